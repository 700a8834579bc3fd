package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/san-kum/pinnlab/internal/params"
	"github.com/sirupsen/logrus"
)

const dataURIPrefix = "data:image/png;base64,"

// maxBody caps how much of a response is read; two PNGs fit comfortably.
const maxBody = 64 << 20

// Images are the two visualisations returned for a parameter set, as data URIs.
type Images struct {
	Streamline string `json:"streamline"`
	Pressure   string `json:"pressure"`
}

// Predictor produces flow images for a parameter set.
type Predictor interface {
	Predict(ctx context.Context, p params.SimulationParameters) (Images, error)
}

type request struct {
	Reynolds           float64 `json:"reynolds"`
	KinematicViscosity float64 `json:"kinematicViscosity"`
	FluidDensity       float64 `json:"fluidDensity"`
}

type response struct {
	StreamlineImage string `json:"streamline_image"`
	PressureImage   string `json:"pressure_image"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Client talks to the PINN prediction backend over HTTP. One request per
// call, never retried.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout bounds each request. It applies to a copy, so a client passed
// to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Predict(ctx context.Context, p params.SimulationParameters) (Images, error) {
	if err := p.Validate(); err != nil {
		return Images{}, err
	}

	body, err := json.Marshal(request{
		Reynolds:           p.ReynoldsNumber,
		KinematicViscosity: p.KinematicViscosity,
		FluidDensity:       p.FluidDensity,
	})
	if err != nil {
		return Images{}, err
	}

	url := c.baseURL + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Images{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log := c.log.WithFields(logrus.Fields{
		"url":      url,
		"reynolds": p.ReynoldsNumber,
	})
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("prediction request failed")
		return Images{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Images{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &Error{Status: resp.StatusCode}
		var er errorResponse
		if err := json.Unmarshal(data, &er); err != nil {
			perr.Detail = "Unknown error occurred"
		} else {
			perr.Detail = er.Detail
		}
		log.WithField("detail", perr.Detail).Warn("prediction backend returned an error")
		return Images{}, perr
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		log.WithError(err).Warn("prediction response is not json")
		return Images{}, ErrMissingImages
	}
	if out.StreamlineImage == "" || out.PressureImage == "" {
		return Images{}, ErrMissingImages
	}

	log.Debug("prediction received")
	return Images{
		Streamline: DataURI(out.StreamlineImage),
		Pressure:   DataURI(out.PressureImage),
	}, nil
}

// DataURI wraps base64 PNG bytes in a data URI.
func DataURI(b64 string) string {
	return dataURIPrefix + b64
}
