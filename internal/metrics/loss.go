package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// LossData maps a physics-informed loss term to its current value.
type LossData map[string]float64

const (
	ContinuityLoss     = "Continuity Loss"
	MomentumXLoss      = "Momentum-X Loss"
	MomentumYLoss      = "Momentum-Y Loss"
	AdversarialLoss    = "Adversarial Loss"
	ReconstructionLoss = "Reconstruction Loss"
)

// display order of the well-known terms; anything else sorts after them
var termOrder = map[string]int{
	ContinuityLoss:     0,
	MomentumXLoss:      1,
	MomentumYLoss:      2,
	AdversarialLoss:    3,
	ReconstructionLoss: 4,
}

// Mock returns the static stand-in for live training metrics.
func Mock() LossData {
	return LossData{
		ContinuityLoss:     0.0123,
		MomentumXLoss:      0.0456,
		MomentumYLoss:      0.0389,
		AdversarialLoss:    0.6789,
		ReconstructionLoss: 0.1234,
	}
}

func (l LossData) Clone() LossData {
	c := make(LossData, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// Labels returns the term names in display order.
func (l LossData) Labels() []string {
	labels := make([]string, 0, len(l))
	for k := range l {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		oi, iok := termOrder[labels[i]]
		oj, jok := termOrder[labels[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return labels[i] < labels[j]
		}
	})
	return labels
}

func (l LossData) Values() []float64 {
	labels := l.Labels()
	vals := make([]float64, len(labels))
	for i, k := range labels {
		vals[i] = l[k]
	}
	return vals
}

func (l LossData) Total() float64 {
	sum := 0.0
	for _, v := range l {
		sum += v
	}
	return sum
}

// Dominant returns the largest term, the usual suspect when term weights are
// out of balance.
func (l LossData) Dominant() (string, float64) {
	best, bestVal := "", 0.0
	for _, k := range l.Labels() {
		if best == "" || l[k] > bestVal {
			best, bestVal = k, l[k]
		}
	}
	return best, bestVal
}

func FormatValue(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// String renders one "label: value" line per term.
func (l LossData) String() string {
	var b strings.Builder
	for _, k := range l.Labels() {
		fmt.Fprintf(&b, "%s: %s\n", k, FormatValue(l[k]))
	}
	return b.String()
}
