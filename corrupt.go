package diffusion

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/SiriEielsen/diffusion/tensor"
)

// Corrupt produces the noisy sample at step t in closed form:
//
//	x_t = sqrt(alphaBar[t])*x + sqrt(1-alphaBar[t])*noise
//
// No iteration over intermediate steps is involved; forward noising at any
// horizon is a single blend.
func (s *Schedule) Corrupt(x, noise *tensor.Tensor, t int) (*tensor.Tensor, error) {
	if err := s.checkStep(t); err != nil {
		return nil, err
	}
	if !x.SameShape(noise) {
		return nil, fmt.Errorf("%w: sample %v vs noise %v", ErrShape, x.Shape, noise.Shape)
	}

	ab := s.AlphaBar[t]
	signal := float32(math.Sqrt(ab))
	sigma := float32(math.Sqrt(1 - ab))

	out := tensor.New(x.Shape...)
	for i := range x.Data {
		out.Data[i] = signal*x.Data[i] + sigma*noise.Data[i]
	}
	return out, nil
}

// CorruptBatch corrupts each sample in a batch at its own step. x has shape
// [batch, ...], ts holds one step per sample, and each sample's gathered
// alphaBar[ts[i]] is broadcast across its non-batch dimensions.
func (s *Schedule) CorruptBatch(x *tensor.Tensor, ts []int, noise *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) < 1 {
		return nil, fmt.Errorf("%w: batched sample needs a leading batch dimension", ErrShape)
	}
	if !x.SameShape(noise) {
		return nil, fmt.Errorf("%w: sample %v vs noise %v", ErrShape, x.Shape, noise.Shape)
	}
	batch := x.Shape[0]
	if len(ts) != batch {
		return nil, fmt.Errorf("%w: %d steps for batch of %d", ErrShape, len(ts), batch)
	}
	for _, t := range ts {
		if err := s.checkStep(t); err != nil {
			return nil, err
		}
	}
	if batch == 0 {
		return tensor.New(x.Shape...), nil
	}

	stride := x.Numel() / batch
	out := tensor.New(x.Shape...)
	for b := 0; b < batch; b++ {
		ab := s.AlphaBar[ts[b]]
		signal := float32(math.Sqrt(ab))
		sigma := float32(math.Sqrt(1 - ab))
		off := b * stride
		for i := 0; i < stride; i++ {
			out.Data[off+i] = signal*x.Data[off+i] + sigma*noise.Data[off+i]
		}
	}
	return out, nil
}

// Decorrupt inverts Corrupt given the same noise:
//
//	x = (x_t - sqrt(1-alphaBar[t])*noise) / sqrt(alphaBar[t])
//
// Round-tripping a sample through Corrupt then Decorrupt recovers it to
// floating-point tolerance, which makes this a useful schedule check.
func (s *Schedule) Decorrupt(xt, noise *tensor.Tensor, t int) (*tensor.Tensor, error) {
	if err := s.checkStep(t); err != nil {
		return nil, err
	}
	if !xt.SameShape(noise) {
		return nil, fmt.Errorf("%w: sample %v vs noise %v", ErrShape, xt.Shape, noise.Shape)
	}

	ab := s.AlphaBar[t]
	signal := float32(math.Sqrt(ab))
	sigma := float32(math.Sqrt(1 - ab))

	out := tensor.New(xt.Shape...)
	for i := range xt.Data {
		out.Data[i] = (xt.Data[i] - sigma*noise.Data[i]) / signal
	}
	return out, nil
}

// DrawSteps draws n training step indices uniformly from [1, T]. Step 0 is
// the noiseless identity and is never a training target.
func (s *Schedule) DrawSteps(rng *rand.Rand, n int) []int {
	ts := make([]int, n)
	for i := range ts {
		ts[i] = 1 + rng.Intn(s.cfg.Steps)
	}
	return ts
}
