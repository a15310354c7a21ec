package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SiriEielsen/diffusion"
	"github.com/SiriEielsen/diffusion/envconfig"
	"github.com/SiriEielsen/diffusion/imaging"
	"github.com/SiriEielsen/diffusion/logutil"
	"github.com/SiriEielsen/diffusion/onnxmodel"
	"github.com/SiriEielsen/diffusion/tensor"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diffuse",
		Short: "Diffusion noise schedules and ancestral sampling",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
			level := slog.LevelInfo
			if envconfig.Debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
	}

	rootCmd.PersistentFlags().Int("steps", envconfig.Steps, "Total diffusion steps T")
	rootCmd.PersistentFlags().String("policy", envconfig.Schedule, "Schedule policy: cosine or linear")
	rootCmd.PersistentFlags().Float64("offset", 0.008, "Cosine schedule offset s")
	rootCmd.PersistentFlags().Float64("max-beta", 0.999, "Cap on per-step noise injection")
	rootCmd.PersistentFlags().Float64("step-scale", 0.005, "Linear schedule slope")

	cobra.EnableCommandSorting = false

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a noise schedule and print it as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := scheduleFromFlags(cmd)
			if err != nil {
				return err
			}
			fmt.Println("t,alpha,beta,alpha_bar")
			for t := 0; t <= sched.Steps(); t++ {
				fmt.Printf("%d,%.9f,%.9f,%.9f\n", t, sched.Alpha[t], sched.Beta[t], sched.AlphaBar[t])
			}
			return nil
		},
	}

	encodeCmd := &cobra.Command{
		Use:   "encode [t ...]",
		Short: "Print sinusoidal time-encoding rows for the given steps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			embedSize, _ := cmd.Flags().GetInt("embed-size")
			table, err := diffusion.TimeEncoding(steps, embedSize)
			if err != nil {
				return err
			}
			ts := make([]int, len(args))
			for i, a := range args {
				t, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("bad step index %q: %w", a, err)
				}
				ts[i] = t
			}
			rows, err := diffusion.LookupTimeEncoding(table, ts)
			if err != nil {
				return err
			}
			for i, t := range ts {
				fmt.Printf("%d:", t)
				for j := 0; j < embedSize; j++ {
					fmt.Printf(" %.6f", rows.Data[i*embedSize+j])
				}
				fmt.Println()
			}
			return nil
		},
	}
	encodeCmd.Flags().Int("embed-size", envconfig.EmbedSize, "Time-encoding width (even)")

	corruptCmd := &cobra.Command{
		Use:   "corrupt INPUT.png OUTPUT.png",
		Short: "Forward-corrupt an image to a given diffusion step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := scheduleFromFlags(cmd)
			if err != nil {
				return err
			}
			t, _ := cmd.Flags().GetInt("t")
			seed, _ := cmd.Flags().GetInt64("seed")

			x, err := imaging.Load(args[0])
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			noise := tensor.Randn(rng, x.Shape...)
			xt, err := sched.Corrupt(x, noise, t)
			if err != nil {
				return err
			}
			slog.Debug("corrupted", "input", args[0], "t", t, "alpha_bar", sched.AlphaBar[t])
			return imaging.Save(xt, args[1])
		},
	}
	corruptCmd.Flags().Int("t", 1000, "Diffusion step to corrupt to")
	corruptCmd.Flags().Int64("seed", 42, "Noise seed")

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Run the reverse sampler from pure noise",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := scheduleFromFlags(cmd)
			if err != nil {
				return err
			}
			modelPath, _ := cmd.Flags().GetString("model")
			zero, _ := cmd.Flags().GetBool("zero")
			size, _ := cmd.Flags().GetInt("size")
			seed, _ := cmd.Flags().GetInt64("seed")
			batch, _ := cmd.Flags().GetInt("batch")
			outPath, _ := cmd.Flags().GetString("output")

			var predict diffusion.Predictor
			switch {
			case zero:
				predict = diffusion.ZeroPredictor()
			case modelPath != "":
				if err := onnxmodel.Init(envconfig.ORTLibrary); err != nil {
					return err
				}
				defer onnxmodel.Destroy()
				model, err := onnxmodel.New(modelPath)
				if err != nil {
					return err
				}
				defer model.Close()
				predict = model.Predictor()
			default:
				return fmt.Errorf("need --model or --zero")
			}

			sampler := diffusion.NewSampler(sched, predict)
			shape := []int{1, 3, size, size}

			samples, err := sampler.SampleBatch(cmd.Context(), batch, shape, seed)
			if err != nil {
				return err
			}
			for i, s := range samples {
				path := outPath
				if path == "" {
					path = fmt.Sprintf("sample-%s.png", uuid.New().String())
				} else if batch > 1 {
					path = fmt.Sprintf("%d-%s", i, outPath)
				}
				if err := imaging.Save(s, path); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", path)
			}
			return nil
		},
	}
	sampleCmd.Flags().String("model", "", "Path to an ONNX noise-prediction model")
	sampleCmd.Flags().Bool("zero", false, "Use the all-zero debug predictor")
	sampleCmd.Flags().Int("size", 64, "Sample height and width")
	sampleCmd.Flags().Int64("seed", 42, "Generation seed")
	sampleCmd.Flags().Int("batch", 1, "Number of independent samples")
	sampleCmd.Flags().String("output", "", "Output PNG path (default sample-<uuid>.png)")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show recognized environment variables",
		Run: func(cmd *cobra.Command, args []string) {
			for _, v := range envconfig.AsMap() {
				fmt.Printf("%s=%v  # %s\n", v.Name, v.Value, v.Description)
			}
		},
	}

	rootCmd.AddCommand(
		scheduleCmd,
		encodeCmd,
		corruptCmd,
		sampleCmd,
		envCmd,
	)

	return rootCmd
}

func scheduleFromFlags(cmd *cobra.Command) (*diffusion.Schedule, error) {
	policyName, _ := cmd.Flags().GetString("policy")
	policy, err := diffusion.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}

	cfg := diffusion.DefaultConfig()
	cfg.Policy = policy
	cfg.Steps, _ = cmd.Flags().GetInt("steps")
	cfg.Offset, _ = cmd.Flags().GetFloat64("offset")
	cfg.MaxBeta, _ = cmd.Flags().GetFloat64("max-beta")
	cfg.StepScale, _ = cmd.Flags().GetFloat64("step-scale")
	return diffusion.NewSchedule(cfg)
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
