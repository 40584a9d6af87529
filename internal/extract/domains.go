// Package extract turns raw user statements into tagged per-slot fact
// candidates. Everything here is pure and total: malformed input yields
// an empty result, never an error.
package extract

import (
	"sort"
	"strings"

	"github.com/verity-mem/verity/internal/domain"
)

// domainVocabulary maps life-context tags to trigger keywords/phrases.
// Matching is whole-word, case-insensitive.
var domainVocabulary = map[string][]string{
	"work":   {"work", "job", "office", "career", "employer", "colleague", "coworker", "boss", "professionally", "at the office"},
	"home":   {"home", "house", "apartment", "family", "at home", "personally", "my kids", "my wife", "my husband"},
	"school": {"school", "university", "college", "class", "studying", "degree", "professor", "campus"},
	"health": {"doctor", "health", "medication", "diagnosed", "allergy", "allergic", "therapist", "hospital"},
	"hobby":  {"hobby", "for fun", "weekend", "weekends", "free time", "on the side", "as a hobby"},
	"online": {"online", "internet", "discord", "gaming", "stream", "forum"},
}

// DomainTags returns the sorted set of life-context tags whose keywords
// appear in the text, or {"general"} when none match.
func DomainTags(text string) []string {
	lower := " " + strings.ToLower(text) + " "
	var tags []string
	for tag, keywords := range domainVocabulary {
		for _, kw := range keywords {
			if containsWord(lower, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	if len(tags) == 0 {
		return []string{domain.DomainGeneral}
	}
	sort.Strings(tags)
	return tags
}

// containsWord checks for kw bounded by non-letter runes. The haystack
// is already lowercased and padded with spaces.
func containsWord(haystack, kw string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], kw)
		if i < 0 {
			return false
		}
		i += idx
		before := haystack[i-1]
		after := haystack[i+len(kw)]
		if !isWordByte(before) && !isWordByte(after) {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
