package diffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleInvariants(t *testing.T) {
	cases := map[string]Config{
		"cosine defaults": DefaultConfig(),
		"cosine short": {
			Steps: 100, Offset: 0.008, MaxBeta: 0.999, Policy: PolicyCosine,
		},
		"linear": {
			Steps: 500, StepScale: 0.005, MaxBeta: 0.999, Policy: PolicyLinear,
		},
		"linear aggressive": {
			Steps: 50, StepScale: 0.9, MaxBeta: 0.5, Policy: PolicyLinear,
		},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			sched, err := NewSchedule(cfg)
			require.NoError(t, err)

			T := cfg.Steps
			require.Len(t, sched.Alpha, T+1)
			require.Len(t, sched.AlphaBar, T+1)
			require.Len(t, sched.Beta, T+1)

			assert.Equal(t, 1.0, sched.Alpha[0])
			assert.Equal(t, 1.0, sched.AlphaBar[0])
			assert.Equal(t, 0.0, sched.Beta[0])

			for i := 0; i <= T; i++ {
				assert.Equal(t, 1-sched.Alpha[i], sched.Beta[i], "beta identity at t=%d", i)
				assert.GreaterOrEqual(t, sched.Beta[i], 0.0, "beta lower bound at t=%d", i)
				assert.LessOrEqual(t, sched.Beta[i], cfg.MaxBeta, "beta upper bound at t=%d", i)
				assert.Greater(t, sched.AlphaBar[i], 0.0, "alphaBar positive at t=%d", i)
				assert.LessOrEqual(t, sched.AlphaBar[i], 1.0, "alphaBar bounded at t=%d", i)
				if i > 0 {
					assert.LessOrEqual(t, sched.AlphaBar[i], sched.AlphaBar[i-1], "alphaBar monotone at t=%d", i)
					assert.InDelta(t, sched.AlphaBar[i-1]*sched.Alpha[i], sched.AlphaBar[i], 1e-12, "running product at t=%d", i)
				}
			}
		})
	}
}

func TestScheduleCosineDefaults(t *testing.T) {
	sched, err := NewSchedule(DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 4000, sched.Steps())

	assert.Equal(t, 1.0, sched.Alpha[0])
	for i := 1; i <= 4000; i++ {
		assert.Less(t, sched.AlphaBar[i], sched.AlphaBar[i-1], "alphaBar strictly decreasing at t=%d", i)
	}
	assert.Less(t, sched.AlphaBar[4000], 1e-6, "alphaBar at T close to zero")
}

func TestScheduleLinearConcrete(t *testing.T) {
	sched, err := NewSchedule(Config{
		Steps: 10, StepScale: 0.005, MaxBeta: 0.999, Policy: PolicyLinear,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.995, sched.Alpha[10], 1e-12)
	assert.InDelta(t, 0.005, sched.Beta[10], 1e-12)
	assert.InDelta(t, 0.9995, sched.Alpha[1], 1e-12)
}

func TestScheduleConfigErrors(t *testing.T) {
	cases := map[string]struct {
		cfg  Config
		want error
	}{
		"zero steps":     {Config{Steps: 0, MaxBeta: 0.999, Policy: PolicyCosine}, ErrSteps},
		"negative steps": {Config{Steps: -5, MaxBeta: 0.999, Policy: PolicyCosine}, ErrSteps},
		"max beta zero":  {Config{Steps: 10, MaxBeta: 0, Policy: PolicyCosine}, ErrMaxBeta},
		"max beta one":   {Config{Steps: 10, MaxBeta: 1, Policy: PolicyCosine}, ErrMaxBeta},
		"bad policy":     {Config{Steps: 10, MaxBeta: 0.999, Policy: "quadratic"}, ErrPolicy},
		"bad offset":     {Config{Steps: 10, MaxBeta: 0.999, Offset: -0.1, Policy: PolicyCosine}, ErrOffset},
		"bad step scale": {Config{Steps: 10, MaxBeta: 0.999, StepScale: 0, Policy: PolicyLinear}, ErrStepScale},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewSchedule(tc.cfg)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("cosine")
	require.NoError(t, err)
	assert.Equal(t, PolicyCosine, p)

	p, err = ParsePolicy("linear")
	require.NoError(t, err)
	assert.Equal(t, PolicyLinear, p)

	_, err = ParsePolicy("sigmoid")
	require.ErrorIs(t, err, ErrPolicy)
}
