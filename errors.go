package diffusion

import "errors"

// Configuration errors are fatal at construction; shape and index errors
// are fatal per call. None are retryable.
var (
	ErrSteps     = errors.New("diffusion: step count must be at least 1")
	ErrMaxBeta   = errors.New("diffusion: max beta must be in (0, 1)")
	ErrOffset    = errors.New("diffusion: cosine offset must be non-negative")
	ErrStepScale = errors.New("diffusion: step scale must be in (0, 1]")
	ErrPolicy    = errors.New("diffusion: unknown schedule policy")
	ErrEmbedSize = errors.New("diffusion: embed size must be positive and even")
	ErrStepIndex = errors.New("diffusion: step index out of range")
	ErrShape     = errors.New("diffusion: tensor shape mismatch")
)
