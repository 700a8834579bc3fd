package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGemini(t *testing.T, url string) *Gemini {
	t.Helper()
	g, err := NewGemini(GeminiOptions{
		BaseURL:    url,
		APIKey:     "test-key",
		TextModel:  "gemini-test",
		ImageModel: "imagen-test",
	}, nil)
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}
	return g
}

func TestGeminiExplain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		var body generateContentRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) != 1 || !strings.Contains(body.Contents[0].Parts[0].Text, "Reynolds Number: 200") {
			t.Errorf("unexpected prompt body %+v", body)
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Loss "},{"text":"imbalance."}]}},{"content":{"parts":[{"text":"ignored"}]}}]}`))
	}))
	defer srv.Close()

	text, err := newTestGemini(t, srv.URL).Explain(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}
	if text != "Loss imbalance." {
		t.Errorf("unexpected explanation %q", text)
	}
}

func TestGeminiExplainEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestGemini(t, srv.URL).Explain(context.Background(), sampleRequest())
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGeminiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	_, err := newTestGemini(t, srv.URL).Explain(context.Background(), sampleRequest())
	var serr *ServiceError
	if !errors.As(err, &serr) || serr.Status != 403 || serr.Message != "API key not valid" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/imagen-test:predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body imagenRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Instances) != 1 || body.Instances[0].Prompt != "laminar flow" || body.Parameters.SampleCount != 1 {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"DD==","mimeType":"image/jpeg"}]}`))
	}))
	defer srv.Close()

	img, err := newTestGemini(t, srv.URL).Generate(context.Background(), "laminar flow")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if img != "data:image/jpeg;base64,DD==" {
		t.Errorf("unexpected image %q", img)
	}
}

func TestGeminiGenerateNoMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestGemini(t, srv.URL).Generate(context.Background(), "x"); !errors.Is(err, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", err)
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(GeminiOptions{TextModel: "a", ImageModel: "b"}, nil); err == nil {
		t.Error("expected error without api key")
	}
}
