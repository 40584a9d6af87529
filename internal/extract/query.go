package extract

import "strings"

// querySlotTable maps question keywords to slots, in priority order so
// "where do I work" hits employer before job_title.
var querySlotTable = []struct {
	slot     string
	keywords []string
}{
	{"employer", []string{"where do i work", "employer", "company", "who do i work for", "work"}},
	{"job_title", []string{"job title", "my role", "do for a living", "profession"}},
	{"name", []string{"my name", "who am i", "called"}},
	{"location", []string{"where do i live", "live", "my city", "location"}},
	{"age", []string{"how old", "my age"}},
	{"favorite_color", []string{"color", "colour"}},
	{"pet_name", []string{"pet", "dog", "cat"}},
	{"skill", []string{"skills", "skill", "programming languages", "what do i know"}},
	{"hobby", []string{"hobby", "hobbies", "for fun", "enjoy"}},
	{"medical_condition", []string{"diagnosed", "condition", "health"}},
	{"allergy", []string{"allergic", "allergy", "allergies"}},
}

// QuerySlots infers which slots a question is about, in priority order.
// Empty when the question maps to nothing the registry knows.
func QuerySlots(question string) []string {
	lower := strings.ToLower(question)
	seen := make(map[string]bool)
	var slots []string
	for _, row := range querySlotTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				if !seen[row.slot] {
					seen[row.slot] = true
					slots = append(slots, row.slot)
				}
				break
			}
		}
	}
	return slots
}
