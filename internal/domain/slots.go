package domain

import "sort"

// SlotSpec declares per-slot behavior. Whether a slot may hold several
// current values (PRESERVE-eligible) and whether it is high-stakes are
// explicit properties here, not runtime inferences.
type SlotSpec struct {
	Name        string
	MultiValued bool
	HighStakes  bool
}

var slotRegistry = map[string]SlotSpec{
	"name":              {Name: "name", HighStakes: true},
	"employer":          {Name: "employer", HighStakes: true},
	"job_title":         {Name: "job_title"},
	"location":          {Name: "location"},
	"age":               {Name: "age"},
	"favorite_color":    {Name: "favorite_color"},
	"pet_name":          {Name: "pet_name"},
	"skill":             {Name: "skill", MultiValued: true},
	"hobby":             {Name: "hobby", MultiValued: true},
	"medical_condition": {Name: "medical_condition", MultiValued: true, HighStakes: true},
	"allergy":           {Name: "allergy", MultiValued: true, HighStakes: true},
	"financial_status":  {Name: "financial_status", HighStakes: true},
	"legal_status":      {Name: "legal_status", HighStakes: true},
}

func SlotIsMultiValued(slot string) bool {
	return slotRegistry[slot].MultiValued
}

func SlotIsHighStakes(slot string) bool {
	return slotRegistry[slot].HighStakes
}

func KnownSlot(slot string) bool {
	_, ok := slotRegistry[slot]
	return ok
}

func RegisteredSlots() []string {
	slots := make([]string, 0, len(slotRegistry))
	for name := range slotRegistry {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	return slots
}
