package extract

import (
	"regexp"
	"strings"

	"github.com/verity-mem/verity/internal/domain"
)

// TemporalResult is a statement's temporal status plus an optional
// explicit period substring, kept for display only.
type TemporalResult struct {
	Status domain.TemporalStatus
	Period string
}

var (
	// Negation-of-continuation wins over everything else: "I no longer
	// work there" is past even though it also says "work".
	pastMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bno longer\b`),
		regexp.MustCompile(`\bnot\b.{0,40}\banymore\b`),
		regexp.MustCompile(`\bdon'?t\b.{0,40}\banymore\b`),
		regexp.MustCompile(`\bused to\b`),
		regexp.MustCompile(`\bknew\b`),
		regexp.MustCompile(`\bquit\b`),
		regexp.MustCompile(`\bstopped\b`),
		regexp.MustCompile(`\bformerly\b`),
		regexp.MustCompile(`\bback then\b`),
	}
	activeMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bcurrently\b`),
		regexp.MustCompile(`\bright now\b`),
		regexp.MustCompile(`\bnow\b`),
		regexp.MustCompile(`\bthese days\b`),
		regexp.MustCompile(`\bnowadays\b`),
	}
	futureMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bwill\b`),
		regexp.MustCompile(`\bgoing to\b`),
		regexp.MustCompile(`\bplan(?:ning)? to\b`),
		regexp.MustCompile(`\bnext (?:week|month|year)\b`),
		regexp.MustCompile(`\bstarting soon\b`),
	}
	potentialMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bmight\b`),
		regexp.MustCompile(`\bcould\b`),
		regexp.MustCompile(`\bmaybe\b`),
		regexp.MustCompile(`\bconsidering\b`),
		regexp.MustCompile(`\bthinking about\b`),
	}

	periodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bfrom\s+\d{4}\s+(?:to|until)\s+\d{4}\b`),
		regexp.MustCompile(`\bsince\s+(?:\d{4}|january|february|march|april|may|june|july|august|september|october|november|december)\b`),
		regexp.MustCompile(`\buntil\s+\d{4}\b`),
		regexp.MustCompile(`\bin\s+(?:19|20)\d{2}\b`),
		regexp.MustCompile(`\bfor\s+\d+\s+years?\b`),
	}
)

// TemporalStatusOf classifies when the statement holds. Priority order:
// negation-of-continuation, then explicit present, future, and
// potential markers; anything else is assumed active.
func TemporalStatusOf(text string) TemporalResult {
	lower := strings.ToLower(text)
	result := TemporalResult{Status: domain.TemporalActive, Period: extractPeriod(lower)}

	for _, re := range pastMarkers {
		if re.MatchString(lower) {
			result.Status = domain.TemporalPast
			return result
		}
	}
	for _, re := range activeMarkers {
		if re.MatchString(lower) {
			return result
		}
	}
	for _, re := range futureMarkers {
		if re.MatchString(lower) {
			result.Status = domain.TemporalFuture
			return result
		}
	}
	for _, re := range potentialMarkers {
		if re.MatchString(lower) {
			result.Status = domain.TemporalPotential
			return result
		}
	}
	return result
}

func extractPeriod(lower string) string {
	for _, re := range periodPatterns {
		if m := re.FindString(lower); m != "" {
			return m
		}
	}
	return ""
}
