package config

import (
	"sort"

	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/params"
)

// Scenario is a ready-made combination of obstacle and flow parameters.
type Scenario struct {
	Description string                      `json:"description" yaml:"description"`
	Shape       geometry.Shape              `json:"shape" yaml:"shape"`
	Parameters  params.SimulationParameters `json:"parameters" yaml:"parameters"`
}

var Presets = map[string]*Scenario{
	"creeping": {
		Description: "laminar flow around a cylinder in water",
		Shape:       geometry.Cylinder,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 20, KinematicViscosity: 1e-6, FluidDensity: 1000},
	},
	"separation": {
		Description: "separated wake behind a cylinder",
		Shape:       geometry.Cylinder,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 80, KinematicViscosity: 1.5e-5, FluidDensity: 1.2},
	},
	"karman": {
		Description: "von Karman vortex street in air",
		Shape:       geometry.Cylinder,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 200, KinematicViscosity: 1.5e-5, FluidDensity: 1.2},
	},
	"bluff": {
		Description: "shedding behind a rectangular block",
		Shape:       geometry.Rectangle,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 300, KinematicViscosity: 1.5e-5, FluidDensity: 1.2},
	},
	"wing": {
		Description: "symmetric airfoil at zero incidence",
		Shape:       geometry.Airfoil,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 500, KinematicViscosity: 1.5e-5, FluidDensity: 1.2},
	},
	"oil-channel": {
		Description: "viscous oil past a rectangle",
		Shape:       geometry.Rectangle,
		Parameters:  params.SimulationParameters{ReynoldsNumber: 10, KinematicViscosity: 1e-4, FluidDensity: 900},
	},
}

func GetPreset(name string) *Scenario {
	s, ok := Presets[name]
	if !ok {
		return nil
	}
	return s
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
