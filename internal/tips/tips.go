// Package tips produces conservation advice from average daily usage.
package tips

import "github.com/smallbiznis/aquaalerts/internal/threshold"

var (
	exceededTips = []string{
		"🚨 Your usage is above threshold! Consider taking shorter showers.",
		"💧 Fix leaking faucets immediately - they can waste up to 20L per day!",
		"🌱 Water plants in early morning to reduce evaporation loss.",
	}
	warningTips = []string{
		"⚠️ You're approaching your threshold. Try running full laundry loads.",
		"💡 Turn off tap while brushing - saves up to 6L per minute!",
		"🛁 Consider installing water-efficient showerheads.",
	}
	goodTips = []string{
		"✅ Great job! Your water usage is well managed.",
		"💧 Keep monitoring daily usage to maintain good habits.",
		"🌿 Consider collecting rainwater for gardening.",
	}
	universalTips = []string{
		"📊 Check for hidden leaks by monitoring your water meter.",
		"🚿 Limit shower time to 5 minutes to save water.",
	}
)

// Generate returns the band-specific block followed by the universal tips.
func Generate(average, dailyThreshold float64) ([]string, error) {
	band, err := threshold.Classify(average, dailyThreshold)
	if err != nil {
		return nil, err
	}

	var block []string
	switch band {
	case threshold.BandExceeded:
		block = exceededTips
	case threshold.BandWarning:
		block = warningTips
	default:
		block = goodTips
	}

	out := make([]string, 0, len(block)+len(universalTips))
	out = append(out, block...)
	out = append(out, universalTips...)
	return out, nil
}

// Average is the arithmetic mean of amounts, 0 for an empty slice.
func Average(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	return sum / float64(len(amounts))
}
