// Package ai wraps the generative services used by the control panel.
//
// Two capabilities are modelled independently of any vendor SDK:
//
//   - [Explainer]: free-text explanation of physics-informed loss terms
//   - [ImageGenerator]: initial-condition image from a text description
//
// Each provider ([Genkit], [Gemini]) implements both and is created through
// the [Registry]. Every call is a single blocking round trip with no retry
// and no streaming.
package ai

import (
	"context"
	"errors"

	"github.com/san-kum/pinnlab/internal/metrics"
)

var (
	// ErrEmptyCompletion indicates the text service answered without an explanation.
	ErrEmptyCompletion = errors.New("ai: empty completion")

	// ErrNoMedia indicates the image service answered without an image.
	ErrNoMedia = errors.New("ai: no media in response")

	// ErrEmptyPrompt is returned before any call when the image prompt is blank.
	ErrEmptyPrompt = errors.New("ai: empty prompt")

	// ErrUnknownProvider indicates a provider name missing from the registry.
	ErrUnknownProvider = errors.New("ai: unknown provider")
)

// FlowSetup describes the simulation the losses were measured on.
type FlowSetup struct {
	ReynoldsNumber     float64 `json:"reynoldsNumber"`
	KinematicViscosity float64 `json:"kinematicViscosity"`
	FluidDensity       float64 `json:"fluidDensity"`
	Geometry           string  `json:"geometry"`
	BoundaryConditions string  `json:"boundaryConditions"`
}

type ExplainRequest struct {
	LossData             metrics.LossData `json:"lossData"`
	SimulationParameters FlowSetup        `json:"simulationParameters"`
	HistoricalFlowStates string           `json:"historicalFlowStates"`
}

// Explainer turns loss metrics into an explanation of discrepancies.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

// ImageGenerator renders an image from a text description and returns a
// data URI or URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider is a concrete backend offering both capabilities.
type Provider interface {
	Explainer
	ImageGenerator
	Name() string
}

const (
	ExplainFailedMessage = "Failed to analyze discrepancies. Please try again."
	ImageFailedMessage   = "Failed to generate initial condition image."
)
