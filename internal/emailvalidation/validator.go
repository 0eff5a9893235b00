// Package emailvalidation decides whether an address is worth sending a
// registration code to.
package emailvalidation

import (
	"context"
	"regexp"
	"strings"
)

//go:generate mockgen -source=validator.go -destination=mock_validator.go -package=emailvalidation

const (
	SourceAPI       = "api"
	SourceHeuristic = "heuristic"
)

const (
	ReasonMalformed     = "malformed"
	ReasonDisposable    = "disposable"
	ReasonUndeliverable = "undeliverable"
	ReasonLowScore      = "low_score"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var disposableDomains = []string{
	"tempmail.com",
	"guerrillamail.com",
	"mailinator.com",
	"10minutemail.com",
	"throwaway.com",
	"fakeinbox.com",
	"yopmail.com",
	"trashmail.com",
	"sharklasers.com",
}

type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Source string `json:"source"`
}

type Validator interface {
	Validate(ctx context.Context, email string) Result
}

// Heuristic checks syntax and a disposable-domain blocklist. A domain that
// contains any blocklisted entry is rejected, so subdomains are covered.
func Heuristic(email string) Result {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return Result{Valid: false, Reason: ReasonMalformed, Source: SourceHeuristic}
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	for _, disposable := range disposableDomains {
		if strings.Contains(domain, disposable) {
			return Result{Valid: false, Reason: ReasonDisposable, Source: SourceHeuristic}
		}
	}
	return Result{Valid: true, Source: SourceHeuristic}
}
