package ai

import (
	"strings"
	"text/template"

	"github.com/san-kum/pinnlab/internal/metrics"
)

var explainTemplate = template.Must(template.New("explainPhysicsDiscrepancies").Funcs(template.FuncMap{
	"value": metrics.FormatValue,
}).Parse(`You are an expert in computational fluid dynamics and Physics-Informed Neural Networks (PINNs). Your task is to analyze the physics-informed losses during PINN training for fluid flow simulation and explain any discrepancies or unexpected scenarios.

Here's the data you have:

Loss Data:
{{range .Losses}} - {{.Label}}: {{value .Value}}
{{end}}
Simulation Parameters:
- Reynolds Number: {{.Setup.ReynoldsNumber}}
- Kinematic Viscosity: {{.Setup.KinematicViscosity}}
- Fluid Density: {{.Setup.FluidDensity}}
- Geometry: {{.Setup.Geometry}}
- Boundary Conditions: {{.Setup.BoundaryConditions}}

Historical Flow States:
{{.History}}

Based on this information, provide a detailed explanation of any discrepancies or unexpected scenarios in the physics-informed losses. Consider potential causes such as:
- Imbalances in the loss terms (e.g., adversarial loss dominating reconstruction loss).
- Violations of physical constraints (e.g., continuity equation not being satisfied).
- Sensitivity to simulation parameters (e.g., Reynolds number).
- Inadequate network architecture or training data.

Also, suggest possible refinements to the simulation setup, such as:
- Adjusting the weights of the loss terms.
- Improving the network architecture.
- Increasing the size or quality of the training data.
- Modifying the boundary conditions or simulation geometry.

Your explanation should be clear, concise, and actionable.
`))

type lossLine struct {
	Label string
	Value float64
}

// RenderExplainPrompt fills the fixed explanation template. Loss terms are
// listed in display order.
func RenderExplainPrompt(req ExplainRequest) (string, error) {
	lines := make([]lossLine, 0, len(req.LossData))
	for _, label := range req.LossData.Labels() {
		lines = append(lines, lossLine{Label: label, Value: req.LossData[label]})
	}
	var b strings.Builder
	err := explainTemplate.Execute(&b, struct {
		Losses  []lossLine
		Setup   FlowSetup
		History string
	}{lines, req.SimulationParameters, req.HistoricalFlowStates})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
