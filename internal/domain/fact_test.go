package domain

import "testing"

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Microsoft", "microsoft"},
		{"  The  Boston  Globe ", "boston globe"},
		{"Amazon.", "amazon"},
		{"an Apple", "apple"},
		{"PYTHON!", "python"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeValue(c.in); got != c.want {
			t.Errorf("NormalizeValue(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDomainsOverlap(t *testing.T) {
	if DomainsOverlap([]string{"work"}, []string{"hobby"}) {
		t.Error("disjoint tags should not overlap")
	}
	if !DomainsOverlap([]string{"work", "school"}, []string{"school"}) {
		t.Error("shared tag should overlap")
	}
	if !DomainsOverlap([]string{DomainGeneral}, []string{"work"}) {
		t.Error("general should overlap everything")
	}
	if !DomainsOverlap([]string{"hobby"}, []string{DomainGeneral}) {
		t.Error("general on either side should overlap")
	}
	if !DomainsOverlap(nil, []string{"work"}) {
		t.Error("empty set should be treated as unscoped")
	}
}

func TestSlotRegistry(t *testing.T) {
	if !SlotIsHighStakes("employer") {
		t.Error("employer should be high-stakes")
	}
	if SlotIsMultiValued("employer") {
		t.Error("employer should be single-valued")
	}
	if !SlotIsMultiValued("skill") {
		t.Error("skill should be multi-valued")
	}
	if KnownSlot("shoe_size") {
		t.Error("unregistered slot should not be known")
	}
}

func TestValidationFeaturesValidate(t *testing.T) {
	f := ValidationFeatures{Similarity: 0.5, Recency: 1}
	f.SetAction(ActionAdd)
	if err := f.Validate(); err != nil {
		t.Fatalf("valid features rejected: %v", err)
	}

	f.Similarity = 1.5
	if err := f.Validate(); err != ErrFeatureOutOfRange {
		t.Errorf("expected ErrFeatureOutOfRange, got %v", err)
	}

	f.Similarity = 0.5
	f.ActionUpdate = 1
	if err := f.Validate(); err != ErrActionNotOneHot {
		t.Errorf("expected ErrActionNotOneHot, got %v", err)
	}
}
