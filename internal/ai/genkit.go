package ai

import (
	"context"
	"net/http"
	"strings"
)

const (
	ExplainFlow = "explainPhysicsDiscrepanciesFlow"
	ImageFlow   = "generateInitialConditionsFlow"
)

// Genkit calls deployed Genkit flows over their HTTP interface: the input is
// posted as {"data": …} and the output comes back as {"result": …}.
type Genkit struct {
	baseURL string
	http    *http.Client
}

func NewGenkit(baseURL string, hc *http.Client) *Genkit {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Genkit{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (g *Genkit) Name() string { return "genkit" }

type flowRequest[T any] struct {
	Data T `json:"data"`
}

type flowResponse[T any] struct {
	Result *T `json:"result"`
}

type explainOutput struct {
	Explanation string `json:"explanation"`
}

type imageInput struct {
	Prompt string `json:"prompt"`
}

type imageOutput struct {
	InitialConditionImage string `json:"initialConditionImage"`
}

func (g *Genkit) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	var resp flowResponse[explainOutput]
	err := postJSON(ctx, g.http, g.Name(), g.baseURL+"/"+ExplainFlow, nil, flowRequest[ExplainRequest]{Data: req}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Result == nil || strings.TrimSpace(resp.Result.Explanation) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Result.Explanation, nil
}

func (g *Genkit) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	var resp flowResponse[imageOutput]
	err := postJSON(ctx, g.http, g.Name(), g.baseURL+"/"+ImageFlow, nil, flowRequest[imageInput]{Data: imageInput{Prompt: prompt}}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Result == nil || resp.Result.InitialConditionImage == "" {
		return "", ErrNoMedia
	}
	return resp.Result.InitialConditionImage, nil
}
