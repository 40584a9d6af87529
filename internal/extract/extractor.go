package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/verity-mem/verity/internal/domain"
)

// Candidate is one atomic per-slot fact pulled out of a statement,
// decorated with domain tags and temporal status.
type Candidate struct {
	Slot           string
	Value          string
	Domains        []string
	TemporalStatus domain.TemporalStatus
	TemporalPeriod string
}

// slotPattern pairs a regex with a validator. One generic routine in
// Facts drives the whole table; adding a slot means adding a row here
// (and registering the slot in domain.slotRegistry).
type slotPattern struct {
	slot     string
	re       *regexp.Regexp
	validate func(string) bool
}

var nonNameStoplist = map[string]bool{
	"Not": true, "Really": true, "Actually": true, "Very": true,
	"Just": true, "Also": true, "Going": true, "Still": true,
	"Now": true, "So": true, "Always": true, "Never": true,
}

var colorVocabulary = map[string]bool{
	"red": true, "orange": true, "yellow": true, "green": true,
	"blue": true, "purple": true, "violet": true, "pink": true,
	"black": true, "white": true, "gray": true, "grey": true,
	"brown": true, "teal": true, "turquoise": true, "magenta": true,
}

// properNoun: consecutive capitalized tokens ("Boston Consulting Group").
// No dot in the class so a sentence boundary ends the match.
const properNoun = `([A-Z][A-Za-z0-9&'+#-]*(?:[ \t][A-Z][A-Za-z0-9&'+#-]*)*)`

var slotPatterns = []slotPattern{
	{
		slot:     "employer",
		re:       regexp.MustCompile(`\b(?:work|works|working|worked)\s+(?:at|for)\s+` + properNoun),
		validate: isProperName,
	},
	{
		slot:     "employer",
		re:       regexp.MustCompile(`\b[Ii] (?:joined|am joining|will join|left)\s+` + properNoun),
		validate: isProperName,
	},
	{
		slot:     "job_title",
		re:       regexp.MustCompile(`\b[Ii] work as an? ([a-z][a-z ]{2,40}?)(?:\s+(?:at|for|in)\b|[.,!?]|$)`),
		validate: notEmpty,
	},
	{
		slot:     "job_title",
		re:       regexp.MustCompile(`\b[Ii] (?:was promoted to|became) (?:an? )?([a-z][a-z ]{2,40}?)(?:\s+(?:at|for|in)\b|[.,!?]|$)`),
		validate: notEmpty,
	},
	{
		slot:     "name",
		re:       regexp.MustCompile(`\b[Mm]y name(?:'s| is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		validate: isPersonName,
	},
	{
		slot:     "name",
		re:       regexp.MustCompile(`\b(?:[Cc]all me|[Ii]'m called|[Ii] go by)\s+([A-Z][a-z]+)`),
		validate: isPersonName,
	},
	{
		slot:     "location",
		re:       regexp.MustCompile(`\b[Ii] (?:live|lived|am living|used to live) in\s+` + properNoun),
		validate: isProperName,
	},
	{
		slot:     "location",
		re:       regexp.MustCompile(`\b[Ii] (?:moved|am moving|will move) to\s+` + properNoun),
		validate: isProperName,
	},
	{
		slot:     "age",
		re:       regexp.MustCompile(`\b[Ii](?:'m| am)\s+(\d{1,3}) years old`),
		validate: isPlausibleAge,
	},
	{
		slot:     "favorite_color",
		re:       regexp.MustCompile(`\b[Mm]y favou?rite colou?r is\s+([A-Za-z]+)`),
		validate: isKnownColor,
	},
	{
		slot:     "pet_name",
		re:       regexp.MustCompile(`\b[Mm]y (?:dog|cat|pet|bird|fish)(?:'s name is| is (?:named|called))\s+([A-Z][a-z]+)`),
		validate: isPersonName,
	},
	{
		slot:     "skill",
		re:       regexp.MustCompile(`\b[Ii] (?:used to )?(?:know|knew|can write|can program in|code in|program in)\s+([A-Z][A-Za-z+#]*(?:(?:,\s*|\s+and\s+|,\s*and\s+)[A-Z][A-Za-z+#]*)*)`),
		validate: isProperName,
	},
	{
		slot:     "hobby",
		re:       regexp.MustCompile(`\b[Ii] (?:used to )?(?:enjoy|love|took up)\s+([a-z]+ing(?:\s+[a-z]+)?)`),
		validate: notEmpty,
	},
	{
		slot:     "medical_condition",
		re:       regexp.MustCompile(`\b[Ii] (?:was|got|have been) diagnosed with\s+([a-zA-Z][a-zA-Z ]{1,40}?)(?:[.,!?]|$)`),
		validate: notEmpty,
	},
	{
		slot:     "allergy",
		re:       regexp.MustCompile(`\b[Ii](?:'m| am) allergic to\s+([a-zA-Z][a-zA-Z ]{1,40}?)(?:[.,!?]|$)`),
		validate: notEmpty,
	},
}

// Facts extracts every per-slot candidate from the text. Compound
// values are split into atomic facts before anything downstream sees
// them; text that matches nothing yields an empty slice.
func Facts(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tags := DomainTags(text)
	temporal := TemporalStatusOf(text)

	seen := make(map[string]bool)
	var out []Candidate
	for _, p := range slotPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			for _, value := range splitCompound(m[1]) {
				value = strings.TrimSpace(value)
				if value == "" || !p.validate(value) {
					continue
				}
				key := p.slot + "\x00" + domain.NormalizeValue(value)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, Candidate{
					Slot:           p.slot,
					Value:          value,
					Domains:        tags,
					TemporalStatus: temporal.Status,
					TemporalPeriod: temporal.Period,
				})
			}
		}
	}
	return out
}

var compoundSep = regexp.MustCompile(`\s*,\s*(?:and\s+)?|\s+and\s+`)

// splitCompound breaks "Python, JavaScript, and Go" into atomic values.
func splitCompound(v string) []string {
	return compoundSep.Split(v, -1)
}

var correctionMarkers = []string{
	"actually", "i meant", "correction", "that's wrong",
	"that is wrong", "is correct", "not true", "i misspoke",
}

// HasCorrectionMarker reports whether the statement reads as an
// explicit correction of earlier information.
func HasCorrectionMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range correctionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var progressionMarkers = []string{
	"promoted", "became", "moved up", "new role", "now i", "these days",
	"switched to", "transitioned to",
}

// HasProgressionMarker reports ongoing-role update language, used by
// the classifier to separate temporal updates from contradictions.
func HasProgressionMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range progressionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func notEmpty(v string) bool { return strings.TrimSpace(v) != "" }

func isProperName(v string) bool {
	first, _ := firstRune(v)
	return first >= 'A' && first <= 'Z' && !nonNameStoplist[firstWord(v)]
}

func isPersonName(v string) bool {
	return isProperName(v)
}

func isPlausibleAge(v string) bool {
	n, err := strconv.Atoi(v)
	return err == nil && n > 0 && n < 130
}

func isKnownColor(v string) bool {
	return colorVocabulary[strings.ToLower(v)]
}

func firstWord(v string) string {
	if i := strings.IndexByte(v, ' '); i > 0 {
		return v[:i]
	}
	return v
}

func firstRune(v string) (byte, bool) {
	if v == "" {
		return 0, false
	}
	return v[0], true
}
