package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Gemini talks to the Google Generative Language REST API directly: text
// through generateContent and images through an Imagen predict call.
type Gemini struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	http       *http.Client
}

type GeminiOptions struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
}

func NewGemini(opts GeminiOptions, hc *http.Client) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key not set (GEMINI_API_KEY)")
	}
	if opts.TextModel == "" || opts.ImageModel == "" {
		return nil, errors.New("gemini: text and image models are required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Gemini{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		http:       hc,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type imagenRequest struct {
	Instances  []imageInput `json:"instances"`
	Parameters struct {
		SampleCount int `json:"sampleCount"`
	} `json:"parameters"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

func (g *Gemini) endpoint(model, method string) string {
	return g.baseURL + "/v1beta/models/" + model + ":" + method
}

func (g *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": g.apiKey}
}

func (g *Gemini) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	prompt, err := RenderExplainPrompt(req)
	if err != nil {
		return "", err
	}

	body := generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	var resp generateContentResponse
	if err := postJSON(ctx, g.http, g.Name(), g.endpoint(g.textModel, "generateContent"), g.headers(), body, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	var body imagenRequest
	body.Instances = []imageInput{{Prompt: prompt}}
	body.Parameters.SampleCount = 1

	var resp imagenResponse
	if err := postJSON(ctx, g.http, g.Name(), g.endpoint(g.imageModel, "predict"), g.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return "", ErrNoMedia
	}
	mime := resp.Predictions[0].MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + resp.Predictions[0].BytesBase64Encoded, nil
}
