package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via DIFFUSION_DEBUG in the environment
	Debug bool
	// Set via DIFFUSION_STEPS in the environment
	Steps int
	// Set via DIFFUSION_SCHEDULE in the environment
	Schedule string
	// Set via DIFFUSION_EMBED_SIZE in the environment
	EmbedSize int
	// Set via DIFFUSION_ORT_LIB in the environment
	ORTLibrary string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"DIFFUSION_DEBUG":      {"DIFFUSION_DEBUG", Debug, "Show additional debug information (e.g. DIFFUSION_DEBUG=1)"},
		"DIFFUSION_STEPS":      {"DIFFUSION_STEPS", Steps, "Total diffusion steps T (default 4000)"},
		"DIFFUSION_SCHEDULE":   {"DIFFUSION_SCHEDULE", Schedule, "Schedule policy, cosine or linear (default cosine)"},
		"DIFFUSION_EMBED_SIZE": {"DIFFUSION_EMBED_SIZE", EmbedSize, "Time-encoding width, must be even (default 64)"},
		"DIFFUSION_ORT_LIB":    {"DIFFUSION_ORT_LIB", ORTLibrary, "Path to the onnxruntime shared library"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	// default values
	Steps = 4000
	Schedule = "cosine"
	EmbedSize = 64

	LoadConfig()
}

func LoadConfig() {
	if debug := clean("DIFFUSION_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if steps := clean("DIFFUSION_STEPS"); steps != "" {
		n, err := strconv.Atoi(steps)
		if err != nil || n < 1 {
			slog.Error("invalid setting, ignoring", "DIFFUSION_STEPS", steps)
		} else {
			Steps = n
		}
	}

	if sched := clean("DIFFUSION_SCHEDULE"); sched != "" {
		Schedule = sched
	}

	if embed := clean("DIFFUSION_EMBED_SIZE"); embed != "" {
		n, err := strconv.Atoi(embed)
		if err != nil || n < 2 || n%2 != 0 {
			slog.Error("invalid setting, ignoring", "DIFFUSION_EMBED_SIZE", embed)
		} else {
			EmbedSize = n
		}
	}

	ORTLibrary = clean("DIFFUSION_ORT_LIB")
}
