package session_test

import (
	"context"
	"sync"

	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
)

// fakePredictor returns a fixed result. When gate is set every call blocks
// until it is closed.
type fakePredictor struct {
	mu    sync.Mutex
	calls []params.SimulationParameters
	gate  chan struct{}
	imgs  predict.Images
	err   error
}

func (f *fakePredictor) Predict(ctx context.Context, p params.SimulationParameters) (predict.Images, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.imgs, f.err
}

func (f *fakePredictor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeExplainer struct {
	mu   sync.Mutex
	last ai.ExplainRequest
	gate chan struct{}
	text string
	err  error
}

func (f *fakeExplainer) Explain(ctx context.Context, req ai.ExplainRequest) (string, error) {
	f.mu.Lock()
	f.last = req
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.text, f.err
}

func (f *fakeExplainer) Last() ai.ExplainRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeImages struct {
	prompt string
	image  string
	err    error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.image, f.err
}
