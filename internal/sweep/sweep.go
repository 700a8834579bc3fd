// Package sweep runs one prediction per value of a parameter range.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
)

var ErrBadRange = errors.New("sweep: invalid range")

// maxPoints bounds a single sweep so a typo in step cannot flood the backend.
const maxPoints = 200

type Point struct {
	Parameters params.SimulationParameters `json:"parameters"`
	Regime     string                      `json:"regime"`
	Images     predict.Images              `json:"images"`
	Err        error                       `json:"-"`
}

// Values returns from, from+step, ... up to and including to.
func Values(from, to, step float64) ([]float64, error) {
	if !(step > 0) || !(to >= from) || math.IsInf(step, 0) || math.IsInf(to-from, 0) {
		return nil, fmt.Errorf("%w: %g..%g step %g", ErrBadRange, from, to, step)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	if n > maxPoints {
		return nil, fmt.Errorf("%w: %d points, limit %d", ErrBadRange, n, maxPoints)
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = from + float64(i)*step
	}
	return vals, nil
}

type Sweep struct {
	pred    predict.Predictor
	workers int
}

func New(pred predict.Predictor, workers int) *Sweep {
	if workers <= 0 {
		workers = 1
	}
	return &Sweep{pred: pred, workers: workers}
}

// Run predicts base with field set to each value. Points keep the order of
// values; a failed prediction is recorded on its point and does not stop
// the others. Only cancellation of ctx aborts the sweep.
func (s *Sweep) Run(ctx context.Context, base params.SimulationParameters, field params.Field, values []float64) ([]Point, error) {
	points := make([]Point, len(values))
	for i, v := range values {
		p, err := base.Set(field, v)
		if err != nil {
			return nil, err
		}
		points[i] = Point{Parameters: p, Regime: params.Regime(p.ReynoldsNumber)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range points {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points[i].Images, points[i].Err = s.pred.Predict(gctx, points[i].Parameters)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Failed counts the points whose prediction returned an error.
func Failed(points []Point) int {
	n := 0
	for _, p := range points {
		if p.Err != nil {
			n++
		}
	}
	return n
}
