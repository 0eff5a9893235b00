package service

import (
	"fmt"
	"strconv"
)

func exceededMessage(amount, threshold float64) string {
	return fmt.Sprintf("Daily water usage (%sL) has exceeded your %sL threshold by %.1fL",
		liters(amount), liters(threshold), amount-threshold)
}

func approachingMessage(amount float64, percent float64) string {
	return fmt.Sprintf("You've used %sL (%s%%) of your daily water allocation",
		liters(amount), liters(percent))
}

// liters renders the shortest decimal form: 250, 170.5.
func liters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
