package diffusion

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/SiriEielsen/diffusion/tensor"
)

// Predictor is the externally trained noise-prediction model: given a noisy
// sample and its step index it estimates the noise component, same shape as
// the sample. The model itself (weights, inference runtime) is opaque to
// this package.
type Predictor func(x *tensor.Tensor, t int) (*tensor.Tensor, error)

// ZeroPredictor predicts all-zero noise. Useful for validating a schedule:
// with it the reverse sampler reduces to a closed-form rescaling.
func ZeroPredictor() Predictor {
	return func(x *tensor.Tensor, _ int) (*tensor.Tensor, error) {
		return tensor.New(x.Shape...), nil
	}
}

// Sampler runs ancestral reverse diffusion over a fixed schedule with an
// external noise predictor.
type Sampler struct {
	schedule *Schedule
	predict  Predictor
}

func NewSampler(s *Schedule, p Predictor) *Sampler {
	return &Sampler{schedule: s, predict: p}
}

// Sample draws a fresh Gaussian prior of the given shape and denoises it
// over T-1 reverse steps.
func (sm *Sampler) Sample(ctx context.Context, shape []int, rng *rand.Rand) (*tensor.Tensor, error) {
	return sm.SampleWithProgress(ctx, shape, rng, nil)
}

// SampleWithProgress is Sample with a per-step callback. The update at step
// t (running from T-1 down to 1) is
//
//	x <- (1/sqrt(alpha[t])) * (x - beta[t]/sqrt(1-alphaBar[t]) * pred) + sqrt(1-alpha[t]) * z
//
// with z standard normal except on the final step, where it is zero so the
// last transition is deterministic given the prediction. Cancellation is
// honored between steps; a single malformed prediction aborts the run.
func (sm *Sampler) SampleWithProgress(ctx context.Context, shape []int, rng *rand.Rand, progress func(step, total int)) (*tensor.Tensor, error) {
	x := tensor.Randn(rng, shape...)

	T := sm.schedule.Steps()
	total := T - 1
	for t := T - 1; t >= 1; t-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pred, err := sm.predict(x, t)
		if err != nil {
			return nil, fmt.Errorf("predict at step %d: %w", t, err)
		}
		if !pred.SameShape(x) {
			return nil, fmt.Errorf("%w: prediction %v vs sample %v at step %d", ErrShape, pred.Shape, x.Shape, t)
		}

		var z *tensor.Tensor
		if t > 1 {
			z = tensor.Randn(rng, shape...)
		}

		x = sm.step(x, pred, z, t)

		if progress != nil {
			progress(total-t+1, total)
		}
	}
	return x, nil
}

// step applies one reverse update. z == nil means no re-noising (final step).
func (sm *Sampler) step(x, pred, z *tensor.Tensor, t int) *tensor.Tensor {
	a := sm.schedule.Alpha[t]
	ab := sm.schedule.AlphaBar[t]
	b := sm.schedule.Beta[t]

	invSqrtA := float32(1 / math.Sqrt(a))
	var coef float32
	if ab < 1 {
		coef = float32(b / math.Sqrt(1-ab))
	}
	sigma := float32(math.Sqrt(1 - a))

	out := tensor.New(x.Shape...)
	for i := range x.Data {
		v := invSqrtA * (x.Data[i] - coef*pred.Data[i])
		if z != nil {
			v += sigma * z.Data[i]
		}
		out.Data[i] = v
	}
	return out
}

// SampleBatch generates n samples concurrently. Generations are independent
// (one seeded rng each); the schedule arrays are shared read-only. The first
// failure cancels the remaining runs.
func (sm *Sampler) SampleBatch(ctx context.Context, n int, shape []int, seed int64) ([]*tensor.Tensor, error) {
	g, ctx := errgroup.WithContext(ctx)
	out := make([]*tensor.Tensor, n)
	for i := range out {
		i := i
		rng := rand.New(rand.NewSource(seed + int64(i)))
		g.Go(func() error {
			x, err := sm.Sample(ctx, shape, rng)
			if err != nil {
				return err
			}
			out[i] = x
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
