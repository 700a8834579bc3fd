package geometry

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewAllFluid(t *testing.T) {
	tests := []struct {
		w, h int
	}{
		{32, 24},
		{1, 1},
		{7, 3},
		{3, 7},
	}

	for _, tt := range tests {
		g := New(tt.w, tt.h)
		if g.Height() != tt.h {
			t.Fatalf("%dx%d: expected %d rows, got %d", tt.w, tt.h, tt.h, g.Height())
		}
		for y, row := range g {
			if len(row) != tt.w {
				t.Fatalf("%dx%d: row %d has %d cells, want %d", tt.w, tt.h, y, len(row), tt.w)
			}
			for x, cell := range row {
				if cell != Fluid {
					t.Errorf("%dx%d: cell (%d, %d) is %s, want fluid", tt.w, tt.h, x, y, cell)
				}
			}
		}
	}
}

func TestNewEmpty(t *testing.T) {
	if g := New(0, 5); g.Height() != 0 || g.Width() != 0 {
		t.Errorf("expected empty grid, got %dx%d", g.Width(), g.Height())
	}
	if g := New(5, -1); g.Height() != 0 {
		t.Errorf("expected empty grid, got %d rows", g.Height())
	}
}

func TestRowsDoNotAlias(t *testing.T) {
	g := New(4, 3)
	g[0] = append(g[0], Solid)
	if g[1][0] != Fluid {
		t.Error("appending to a row overwrote the next row")
	}
}

func TestCloneIndependent(t *testing.T) {
	g := New(4, 4)
	c := g.Clone()
	c[2][2] = Wall
	if g[2][2] != Fluid {
		t.Error("clone shares storage with the original")
	}
	if !g.Equal(New(4, 4)) {
		t.Error("original changed")
	}
}

func TestConditionText(t *testing.T) {
	for _, bc := range Conditions() {
		text, err := bc.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", bc, err)
		}
		var got BoundaryCondition
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %s: %v", text, err)
		}
		if got != bc {
			t.Errorf("expected %v, got %v", bc, got)
		}
	}

	if _, err := ParseCondition("lava"); !errors.Is(err, ErrUnknownCondition) {
		t.Errorf("expected ErrUnknownCondition, got %v", err)
	}
	if bc, err := ParseCondition(" Outflow "); err != nil || bc != Outflow {
		t.Errorf("expected outflow, got %v (%v)", bc, err)
	}
}

func TestGeometryJSON(t *testing.T) {
	g := New(2, 1)
	g[0][1] = Inflow
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `[["fluid","inflow"]]` {
		t.Errorf("unexpected json: %s", data)
	}
}

func TestDigest(t *testing.T) {
	g := New(5, 2)
	g[0][0] = Inflow
	g[0][4] = Outflow
	g[1][1] = Solid
	g[1][2] = Wall

	digest := g.Digest()
	want := []string{"ifffo", "fswff"}
	for i := range want {
		if digest[i] != want[i] {
			t.Errorf("row %d: expected %q, got %q", i, want[i], digest[i])
		}
	}

	if got := g.DigestJSON(); got != `["ifffo","fswff"]` {
		t.Errorf("unexpected digest json: %s", got)
	}
}

func TestCount(t *testing.T) {
	g := New(3, 3)
	g[1][1] = Solid
	g[2][2] = Solid
	if n := g.Count(Solid); n != 2 {
		t.Errorf("expected 2 solid cells, got %d", n)
	}
	if n := g.Count(Fluid); n != 7 {
		t.Errorf("expected 7 fluid cells, got %d", n)
	}
}
