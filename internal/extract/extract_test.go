package extract

import (
	"testing"

	"github.com/verity-mem/verity/internal/domain"
)

func TestDomainTags(t *testing.T) {
	tags := DomainTags("I use Python at the office with my colleagues")
	if len(tags) != 1 || tags[0] != "work" {
		t.Errorf("expected [work], got %v", tags)
	}

	tags = DomainTags("the weather is nice today")
	if len(tags) != 1 || tags[0] != domain.DomainGeneral {
		t.Errorf("expected [general], got %v", tags)
	}

	tags = DomainTags("I study at university and code for fun on weekends")
	if len(tags) != 2 || tags[0] != "hobby" || tags[1] != "school" {
		t.Errorf("expected sorted [hobby school], got %v", tags)
	}
}

func TestTemporalStatusOf(t *testing.T) {
	cases := []struct {
		text string
		want domain.TemporalStatus
	}{
		{"I no longer work at Google", domain.TemporalPast},
		{"I don't play tennis anymore", domain.TemporalPast},
		{"I used to live in Austin", domain.TemporalPast},
		{"I currently work at Stripe", domain.TemporalActive},
		{"I work at Stripe", domain.TemporalActive},
		{"I will join Netflix", domain.TemporalFuture},
		{"I'm going to move to Denver", domain.TemporalFuture},
		{"I might switch to consulting", domain.TemporalPotential},
		{"I could take up painting", domain.TemporalPotential},
	}
	for _, c := range cases {
		if got := TemporalStatusOf(c.text).Status; got != c.want {
			t.Errorf("TemporalStatusOf(%q) = %s, want %s", c.text, got, c.want)
		}
	}
}

func TestTemporalStatusNegationBeatsPresent(t *testing.T) {
	// "now" appears, but negation-of-continuation has priority
	got := TemporalStatusOf("I don't work at IBM anymore, now I relax")
	if got.Status != domain.TemporalPast {
		t.Errorf("expected past, got %s", got.Status)
	}
}

func TestTemporalPeriod(t *testing.T) {
	r := TemporalStatusOf("I worked at Sun from 1999 to 2005")
	if r.Period != "from 1999 to 2005" {
		t.Errorf("expected period substring, got %q", r.Period)
	}
}

func TestFactsEmployer(t *testing.T) {
	facts := Facts("I work at Microsoft")
	if len(facts) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(facts), facts)
	}
	if facts[0].Slot != "employer" || facts[0].Value != "Microsoft" {
		t.Errorf("unexpected candidate: %+v", facts[0])
	}
	if facts[0].TemporalStatus != domain.TemporalActive {
		t.Errorf("expected active, got %s", facts[0].TemporalStatus)
	}
}

func TestFactsPastEmployer(t *testing.T) {
	facts := Facts("I used to work at Google")
	if len(facts) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(facts))
	}
	if facts[0].Value != "Google" || facts[0].TemporalStatus != domain.TemporalPast {
		t.Errorf("unexpected candidate: %+v", facts[0])
	}
}

func TestFactsCompoundSplit(t *testing.T) {
	facts := Facts("I know Python, JavaScript, and Go")
	if len(facts) != 3 {
		t.Fatalf("expected 3 atomic candidates, got %d: %v", len(facts), facts)
	}
	want := map[string]bool{"Python": true, "JavaScript": true, "Go": true}
	for _, f := range facts {
		if f.Slot != "skill" || !want[f.Value] {
			t.Errorf("unexpected candidate: %+v", f)
		}
	}
}

func TestFactsPastTenseMultiValued(t *testing.T) {
	facts := Facts("I used to know Python")
	if len(facts) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(facts), facts)
	}
	if facts[0].Slot != "skill" || facts[0].Value != "Python" || facts[0].TemporalStatus != domain.TemporalPast {
		t.Errorf("unexpected candidate: %+v", facts[0])
	}

	facts = Facts("I used to enjoy hiking")
	if len(facts) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(facts), facts)
	}
	if facts[0].Slot != "hobby" || facts[0].Value != "hiking" || facts[0].TemporalStatus != domain.TemporalPast {
		t.Errorf("unexpected candidate: %+v", facts[0])
	}
}

func TestFactsValidators(t *testing.T) {
	// Stop-listed capitalized word must not become a name.
	if facts := Facts("My name is Not important"); len(facts) != 0 {
		t.Errorf("stop-listed name extracted: %v", facts)
	}
	// Color outside the closed vocabulary is rejected.
	if facts := Facts("my favorite color is dinosaur"); len(facts) != 0 {
		t.Errorf("invalid color extracted: %v", facts)
	}
	if facts := Facts("my favorite color is blue"); len(facts) != 1 || facts[0].Value != "blue" {
		t.Errorf("valid color missed: %v", facts)
	}
}

func TestFactsMalformedInputIsEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "qwerty asdf", "42 42 42"} {
		if facts := Facts(text); len(facts) != 0 {
			t.Errorf("Facts(%q) = %v, want empty", text, facts)
		}
	}
}

func TestFactsDedupes(t *testing.T) {
	facts := Facts("I work at Stripe. Yes, I work at Stripe.")
	if len(facts) != 1 {
		t.Errorf("expected dedup to 1 candidate, got %d", len(facts))
	}
}

func TestCorrectionAndProgressionMarkers(t *testing.T) {
	if !HasCorrectionMarker("Actually, I work at Amazon") {
		t.Error("expected correction marker")
	}
	if HasCorrectionMarker("I work at Amazon") {
		t.Error("unexpected correction marker")
	}
	if !HasProgressionMarker("I was promoted to senior engineer") {
		t.Error("expected progression marker")
	}
}
