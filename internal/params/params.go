package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrInvalidParameters is returned for non-finite parameter values.
	ErrInvalidParameters = errors.New("params: invalid simulation parameters")

	// ErrUnknownField indicates a parameter name outside reynolds, viscosity and density.
	ErrUnknownField = errors.New("params: unknown parameter")

	// ErrUnknownPreset indicates a preset name with no entry in Presets.
	ErrUnknownPreset = errors.New("params: unknown preset")
)

const (
	DefaultReynolds  = 200.0
	DefaultViscosity = 0.01
	DefaultDensity   = 1.225
)

// Field names a single physical parameter.
type Field string

const (
	Reynolds  Field = "reynolds"
	Viscosity Field = "viscosity"
	Density   Field = "density"
)

// Fields lists the parameters in display order.
func Fields() []Field {
	return []Field{Reynolds, Viscosity, Density}
}

func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "reynolds", "re", "reynoldsnumber":
		return Reynolds, nil
	case "viscosity", "nu", "kinematicviscosity":
		return Viscosity, nil
	case "density", "rho", "fluiddensity":
		return Density, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Range is the interactive bound of a parameter.
type Range struct {
	Min, Max, Step float64
	Label          string
	Unit           string
}

var Ranges = map[Field]Range{
	Reynolds:  {Min: 0, Max: 1000, Step: 10, Label: "Reynolds Number (Re)"},
	Viscosity: {Min: 1e-5, Max: 1e-3, Step: 1e-5, Label: "Kinematic Viscosity (ν)", Unit: "m²/s"},
	Density:   {Min: 0.1, Max: 1200, Step: 0.1, Label: "Fluid Density (ρ)", Unit: "kg/m³"},
}

func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// SimulationParameters are the physical inputs sent to the prediction backend.
type SimulationParameters struct {
	ReynoldsNumber     float64 `json:"reynoldsNumber" yaml:"reynolds_number"`
	KinematicViscosity float64 `json:"kinematicViscosity" yaml:"kinematic_viscosity"`
	FluidDensity       float64 `json:"fluidDensity" yaml:"fluid_density"`
}

func Default() SimulationParameters {
	return SimulationParameters{
		ReynoldsNumber:     DefaultReynolds,
		KinematicViscosity: DefaultViscosity,
		FluidDensity:       DefaultDensity,
	}
}

// Validate is a pass/fail numeric check; ranges are left to the views.
func (p SimulationParameters) Validate() error {
	for _, v := range []float64{p.ReynoldsNumber, p.KinematicViscosity, p.FluidDensity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidParameters
		}
	}
	return nil
}

func (p SimulationParameters) Get(f Field) float64 {
	switch f {
	case Reynolds:
		return p.ReynoldsNumber
	case Viscosity:
		return p.KinematicViscosity
	case Density:
		return p.FluidDensity
	}
	return math.NaN()
}

// Set assigns a typed-in value as is. Like a number input, it does not
// enforce the slider range.
func (p SimulationParameters) Set(f Field, v float64) (SimulationParameters, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return p, ErrInvalidParameters
	}
	switch f {
	case Reynolds:
		p.ReynoldsNumber = v
	case Viscosity:
		p.KinematicViscosity = v
	case Density:
		p.FluidDensity = v
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return p, nil
}

// Step nudges a field by delta slider steps and clamps it into range.
func (p SimulationParameters) Step(f Field, delta int) (SimulationParameters, error) {
	r, ok := Ranges[f]
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	v := r.Clamp(p.Get(f) + float64(delta)*r.Step)
	// snap onto the slider lattice anchored at Min
	v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
	return p.Set(f, r.Clamp(v))
}

// Clamp pulls every field into its slider range.
func (p SimulationParameters) Clamp() SimulationParameters {
	return SimulationParameters{
		ReynoldsNumber:     Ranges[Reynolds].Clamp(p.ReynoldsNumber),
		KinematicViscosity: Ranges[Viscosity].Clamp(p.KinematicViscosity),
		FluidDensity:       Ranges[Density].Clamp(p.FluidDensity),
	}
}

// Regime names the expected flow behaviour for a Reynolds number.
func Regime(re float64) string {
	switch {
	case re < 40:
		return "laminar"
	case re <= 100:
		return "flow separation"
	case re <= 400:
		return "vortex shedding"
	default:
		return "turbulent"
	}
}

// Preset is a named fluid: viscosity and density, Reynolds untouched.
type Preset struct {
	Name               string  `json:"name" yaml:"name"`
	KinematicViscosity float64 `json:"kinematicViscosity" yaml:"kinematic_viscosity"`
	FluidDensity       float64 `json:"fluidDensity" yaml:"fluid_density"`
}

var Presets = map[string]Preset{
	"water": {Name: "water", KinematicViscosity: 1e-6, FluidDensity: 1000},
	"air":   {Name: "air", KinematicViscosity: 1.5e-5, FluidDensity: 1.2},
	"oil":   {Name: "oil", KinematicViscosity: 1e-4, FluidDensity: 900},
}

func GetPreset(name string) (Preset, error) {
	p, ok := Presets[strings.ToLower(name)]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	return p, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p SimulationParameters) Apply(pr Preset) SimulationParameters {
	p.KinematicViscosity = pr.KinematicViscosity
	p.FluidDensity = pr.FluidDensity
	return p
}
