package metrics

import (
	"strings"
	"testing"
)

func TestMockValues(t *testing.T) {
	l := Mock()
	if len(l) != 5 {
		t.Fatalf("expected 5 loss terms, got %d", len(l))
	}
	if l[AdversarialLoss] != 0.6789 {
		t.Errorf("expected adversarial 0.6789, got %f", l[AdversarialLoss])
	}
}

func TestMockIsFresh(t *testing.T) {
	a := Mock()
	a[ContinuityLoss] = 99
	if Mock()[ContinuityLoss] != 0.0123 {
		t.Error("Mock returned shared state")
	}
}

func TestLabelsOrder(t *testing.T) {
	l := Mock()
	l["Boundary Loss"] = 0.5
	l["Alpha Loss"] = 0.1

	got := l.Labels()
	want := []string{ContinuityLoss, MomentumXLoss, MomentumYLoss, AdversarialLoss, ReconstructionLoss, "Alpha Loss", "Boundary Loss"}
	if len(got) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDominant(t *testing.T) {
	label, v := Mock().Dominant()
	if label != AdversarialLoss || v != 0.6789 {
		t.Errorf("expected adversarial loss to dominate, got %s=%f", label, v)
	}

	if label, _ := (LossData{}).Dominant(); label != "" {
		t.Errorf("expected no dominant term, got %q", label)
	}
}

func TestString(t *testing.T) {
	s := Mock().String()
	if !strings.HasPrefix(s, "Continuity Loss: 0.0123\n") {
		t.Errorf("unexpected first line: %q", s)
	}
	if !strings.Contains(s, "Reconstruction Loss: 0.1234") {
		t.Errorf("missing reconstruction term: %q", s)
	}
}

func TestTotal(t *testing.T) {
	total := Mock().Total()
	if total < 0.8990 || total > 0.8992 {
		t.Errorf("expected total ~0.8991, got %f", total)
	}
}
