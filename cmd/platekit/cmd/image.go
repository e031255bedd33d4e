package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/MeKo-Tech/platekit/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Detect and read license plates in image files",
	Long: `Process one or more image files: detect license plates, crop them
and read their text.

Supported formats: JPEG, PNG, BMP

Examples:
  platekit image frame.jpg
  platekit image *.png --format json
  platekit image frame.jpg --decode-method beam_search --beam-width 8`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		format := cfg.Output.Format
		if format != outputFormatText && format != outputFormatJSON && format != outputFormatCSV {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, csv)", format)
		}

		pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
		if err != nil {
			return fmt.Errorf("failed to build plate pipeline: %w", err)
		}
		defer func() {
			if err := pl.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing pipeline: %v\n", err)
			}
		}()

		cons := utils.DefaultImageConstraints()
		var outputs []string
		for _, path := range args {
			if !utils.IsSupportedImage(path) {
				return fmt.Errorf("unsupported image format: %s", path)
			}
			img, meta, err := utils.LoadImage(path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			if err := utils.ValidateImageConstraints(img, cons); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s: %v\n", path, err)
			}

			res, err := pl.ProcessFrame(img)
			if err != nil {
				return fmt.Errorf("plate recognition failed for %s: %w", path, err)
			}

			out, err := formatFrameResult(meta.Path, res, format, cfg.Output.ConfidencePrecision, len(args) > 1)
			if err != nil {
				return err
			}
			outputs = append(outputs, out)
		}

		final := strings.Join(outputs, "")
		if cfg.Output.File != "" {
			if err := os.WriteFile(cfg.Output.File, []byte(final), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", cfg.Output.File)
			return nil
		}
		if _, err := fmt.Fprint(cmd.OutOrStdout(), final); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

// formatFrameResult renders one frame result in the requested format.
func formatFrameResult(path string, res *pipeline.FrameResult, format string, precision int, multi bool) (string, error) {
	switch format {
	case outputFormatJSON:
		obj := struct {
			File   string                `json:"file"`
			Plates *pipeline.FrameResult `json:"plates"`
		}{File: path, Plates: res}
		bts, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(bts) + "\n", nil
	case outputFormatCSV:
		s, err := pipeline.ToCSV(res)
		if err != nil {
			return "", fmt.Errorf("format csv failed: %w", err)
		}
		if multi {
			s = "# " + path + "\n" + s
		}
		return s, nil
	default:
		s, err := pipeline.ToPlainText(res, precision)
		if err != nil {
			return "", fmt.Errorf("format text failed: %w", err)
		}
		return fmt.Sprintf("%s: %s", path, s), nil
	}
}

func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Float64("confidence", 0.5, "minimum detection confidence threshold")
	cmd.Flags().Float64("nms-threshold", 0.45, "duplicate suppression IoU threshold")
	cmd.Flags().Float64("min-rec-conf", 0.6, "minimum recognition confidence")
	cmd.Flags().String("decode-method", "greedy", "CTC decode method: greedy or beam_search")
	cmd.Flags().Int("beam-width", 5, "beam width for beam_search decoding")
	cmd.Flags().String("det-model", "", "override detection model path")
	cmd.Flags().String("rec-model", "", "override recognition model path")
	cmd.Flags().String("charset", "", "override charset file path")
	cmd.Flags().Int("workers", pipeline.DefaultParallelConfig().MaxWorkers, "max parallel region recognitions")

	cmd.Flags().Bool("gpu", false, "enable GPU acceleration using CUDA")
	cmd.Flags().Int("gpu-device", 0, "CUDA device ID to use")
	cmd.Flags().String("gpu-mem-limit", "auto", "GPU memory limit (e.g. '2GB', '512MB', 'auto')")
}

// bindImageFlags binds all flags to viper configuration keys.
func bindImageFlags(cmd *cobra.Command) {
	flagBindings := []struct {
		key  string
		flag string
	}{
		{"output.format", "format"},
		{"output.file", "output"},
		{"pipeline.detector.conf_threshold", "confidence"},
		{"pipeline.detector.nms_threshold", "nms-threshold"},
		{"pipeline.recognizer.min_confidence", "min-rec-conf"},
		{"pipeline.recognizer.method", "decode-method"},
		{"pipeline.recognizer.beam_width", "beam-width"},
		{"pipeline.detector.model_path", "det-model"},
		{"pipeline.recognizer.model_path", "rec-model"},
		{"pipeline.recognizer.charset_path", "charset"},
		{"pipeline.parallel.max_workers", "workers"},
		{"gpu.enabled", "gpu"},
		{"gpu.device", "gpu-device"},
		{"gpu.memory_limit", "gpu-mem-limit"},
	}

	for _, binding := range flagBindings {
		if err := viper.BindPFlag(binding.key, cmd.Flags().Lookup(binding.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", binding.flag, err))
		}
	}
}

func init() {
	rootCmd.AddCommand(imageCmd)

	addImageFlags(imageCmd)
	bindImageFlags(imageCmd)
}

// GetImageCommand returns the image command for testing purposes.
func GetImageCommand() *cobra.Command {
	return imageCmd
}
