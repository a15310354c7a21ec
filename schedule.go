// Package diffusion implements denoising-diffusion noise schedules, the
// closed-form forward corruption, and the ancestral reverse sampler. The
// noise-prediction model itself is external; it enters only as a Predictor.
package diffusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Schedule holds the noise schedule arrays, each of length Steps+1 and
// indexed by diffusion step. Alpha[t] is the fraction of signal retained at
// step t, Beta[t] = 1 - Alpha[t] the noise injected, and AlphaBar[t] the
// running product of Alpha[0..t]. Immutable after construction; safe to
// share across concurrent readers.
type Schedule struct {
	Alpha    []float64
	AlphaBar []float64
	Beta     []float64

	cfg Config
}

// NewSchedule computes the schedule arrays for cfg. Alpha[0] is fixed to 1
// by convention (identity step); every later Alpha[t] is clipped into
// [1-MaxBeta, 1] so that Beta[t] never exceeds MaxBeta.
func NewSchedule(cfg Config) (*Schedule, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	T := cfg.Steps
	alpha := make([]float64, T+1)
	alpha[0] = 1

	switch cfg.Policy {
	case PolicyCosine:
		// f(t) = cos((t/T + s)/(1+s) * pi/2)^2, alpha[t] = f[t]/f[t-1]
		f := make([]float64, T+1)
		for t := 0; t <= T; t++ {
			c := math.Cos((float64(t)/float64(T) + cfg.Offset) / (1 + cfg.Offset) * math.Pi / 2)
			f[t] = c * c
		}
		for t := 1; t <= T; t++ {
			alpha[t] = clip(f[t]/f[t-1], 1-cfg.MaxBeta, 1)
		}
	case PolicyLinear:
		for t := 1; t <= T; t++ {
			alpha[t] = clip(1-cfg.StepScale*float64(t)/float64(T), 1-cfg.MaxBeta, 1)
		}
	}

	alphaBar := make([]float64, T+1)
	floats.CumProd(alphaBar, alpha)

	beta := make([]float64, T+1)
	for t := 0; t <= T; t++ {
		beta[t] = 1 - alpha[t]
	}

	return &Schedule{Alpha: alpha, AlphaBar: alphaBar, Beta: beta, cfg: cfg}, nil
}

// Steps returns T, the total number of diffusion steps.
func (s *Schedule) Steps() int {
	return s.cfg.Steps
}

// Config returns the parameters the schedule was built from.
func (s *Schedule) Config() Config {
	return s.cfg
}

func (s *Schedule) checkStep(t int) error {
	if t < 0 || t > s.cfg.Steps {
		return fmt.Errorf("%w: t=%d with T=%d", ErrStepIndex, t, s.cfg.Steps)
	}
	return nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
