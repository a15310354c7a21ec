package diffusion

import "fmt"

// Policy selects how per-step signal retention is shaped across the schedule.
type Policy string

const (
	// PolicyCosine ramps noise slowly near t=0 and t=T, faster in the middle.
	PolicyCosine Policy = "cosine"
	// PolicyLinear decays retained signal linearly in t.
	PolicyLinear Policy = "linear"
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCosine, PolicyLinear:
		return Policy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrPolicy, s)
}

// Config holds the schedule parameters. Zero values are invalid; start from
// DefaultConfig and override.
type Config struct {
	Steps     int     // T, total diffusion steps
	Offset    float64 // s, cosine schedule offset
	MaxBeta   float64 // cap on per-step noise injection
	StepScale float64 // slope of the linear policy
	Policy    Policy
	EmbedSize int // width of the sinusoidal time encoding
}

func DefaultConfig() Config {
	return Config{
		Steps:     4000,
		Offset:    0.008,
		MaxBeta:   0.999,
		StepScale: 0.005,
		Policy:    PolicyCosine,
		EmbedSize: 64,
	}
}

func (c Config) validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("%w: got %d", ErrSteps, c.Steps)
	}
	if c.MaxBeta <= 0 || c.MaxBeta >= 1 {
		return fmt.Errorf("%w: got %g", ErrMaxBeta, c.MaxBeta)
	}
	switch c.Policy {
	case PolicyCosine:
		if c.Offset < 0 {
			return fmt.Errorf("%w: got %g", ErrOffset, c.Offset)
		}
	case PolicyLinear:
		if c.StepScale <= 0 || c.StepScale > 1 {
			return fmt.Errorf("%w: got %g", ErrStepScale, c.StepScale)
		}
	default:
		return fmt.Errorf("%w: %q", ErrPolicy, c.Policy)
	}
	return nil
}
