package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/MeKo-Tech/platekit/internal/recognizer"
	"github.com/spf13/cobra"
)

// decodeInput is the JSON schema for raw tensor decoding: a detector
// output and/or recognition outputs captured from a model run.
type decodeInput struct {
	Frame struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"frame"`
	Detection *struct {
		Data   []float32 `json:"data"`
		Rows   int       `json:"rows"`
		Stride int       `json:"stride"`
	} `json:"detection,omitempty"`
	Recognition []struct {
		Data      []float32 `json:"data"`
		Timesteps int       `json:"timesteps"`
		Classes   int       `json:"classes"`
	} `json:"recognition,omitempty"`
}

// decodeOutput is the result envelope written by the decode command.
type decodeOutput struct {
	Regions []regionOutput          `json:"regions,omitempty"`
	Plates  []*pipeline.PlateResult `json:"plates,omitempty"`
}

type regionOutput struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// decodeCmd decodes raw model output tensors without loading any model.
var decodeCmd = &cobra.Command{
	Use:   "decode [tensor-file.json]",
	Short: "Decode raw model output tensors into plate results",
	Long: `Decode raw detector and recognizer output tensors into regions and
plate text without running inference. Useful for validating captured
model outputs and for pipelines that run inference elsewhere.

The input file holds the frame size plus a detection tensor (flat
row-major data with rows and stride) and/or recognition tensors (flat
timesteps x classes data).

Examples:
  platekit decode tensors.json
  platekit decode tensors.json --confidence 0.6 --decode-method beam_search`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0]) //nolint:gosec // G304: user-provided tensor file
		if err != nil {
			return fmt.Errorf("failed to read tensor file: %w", err)
		}

		var input decodeInput
		if err := json.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("failed to parse tensor file: %w", err)
		}
		if input.Detection == nil && len(input.Recognition) == 0 {
			return errors.New("tensor file holds neither a detection nor a recognition tensor")
		}

		var out decodeOutput

		if input.Detection != nil {
			if input.Frame.Width <= 0 || input.Frame.Height <= 0 {
				return fmt.Errorf("invalid frame size %dx%d", input.Frame.Width, input.Frame.Height)
			}
			cfg := pipeline.DefaultRegionConfig(input.Frame.Width, input.Frame.Height)
			conf, _ := cmd.Flags().GetFloat64("confidence")
			cfg.ConfThreshold = conf
			nms, _ := cmd.Flags().GetFloat64("nms-threshold")
			cfg.NMSThreshold = nms
			classes, _ := cmd.Flags().GetInt("num-classes")
			cfg.NumClasses = classes

			regions, err := pipeline.DetectRegions(input.Detection.Data, input.Detection.Rows, input.Detection.Stride, cfg)
			if err != nil {
				return fmt.Errorf("detection decode failed: %w", err)
			}
			for _, region := range regions {
				out.Regions = append(out.Regions, regionOutput{
					X: region.X, Y: region.Y, Width: region.Width, Height: region.Height,
				})
			}
		}

		if len(input.Recognition) > 0 {
			cfg, err := plateConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			for i, rec := range input.Recognition {
				plate, err := pipeline.ReadPlate(rec.Data, rec.Timesteps, rec.Classes, cfg)
				if err != nil {
					return fmt.Errorf("recognition decode failed for tensor %d: %w", i, err)
				}
				if plate == nil {
					// Rejected by validation, expected outcome.
					continue
				}
				out.Plates = append(out.Plates, plate)
			}
		}

		bts, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

// plateConfigFromFlags builds the recognition decode config from flags.
func plateConfigFromFlags(cmd *cobra.Command) (pipeline.PlateConfig, error) {
	cfg := pipeline.DefaultPlateConfig()

	minConf, _ := cmd.Flags().GetFloat64("min-rec-conf")
	cfg.MinConfidence = minConf

	if charsetPath, _ := cmd.Flags().GetString("charset"); charsetPath != "" {
		charset, err := recognizer.LoadCharset(charsetPath)
		if err != nil {
			return pipeline.PlateConfig{}, fmt.Errorf("failed to load charset: %w", err)
		}
		cfg.Charset = charset
	}

	method, _ := cmd.Flags().GetString("decode-method")
	width, _ := cmd.Flags().GetInt("beam-width")
	strategy, err := recognizer.ParseStrategy(method, width)
	if err != nil {
		return pipeline.PlateConfig{}, err
	}
	cfg.Strategy = strategy

	return cfg, nil
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Float64("confidence", 0.5, "minimum detection confidence threshold")
	decodeCmd.Flags().Float64("nms-threshold", 0.45, "duplicate suppression IoU threshold")
	decodeCmd.Flags().Int("num-classes", 1, "number of detector classes")
	decodeCmd.Flags().Float64("min-rec-conf", 0.6, "minimum recognition confidence")
	decodeCmd.Flags().String("decode-method", "greedy", "CTC decode method: greedy or beam_search")
	decodeCmd.Flags().Int("beam-width", 5, "beam width for beam_search decoding")
	decodeCmd.Flags().String("charset", "", "charset file path (default: built-in plate charset)")
}

// GetDecodeCommand returns the decode command for testing purposes.
func GetDecodeCommand() *cobra.Command {
	return decodeCmd
}
