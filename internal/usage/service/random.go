package service

import (
	"math/rand/v2"

	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
)

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// NewRandomSource returns the process-wide generator, safe for concurrent use.
func NewRandomSource() usagedomain.RandomSource {
	return globalRandom{}
}
