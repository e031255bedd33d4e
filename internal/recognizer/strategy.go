package recognizer

import "fmt"

// StrategyKind identifies a CTC decoding strategy.
type StrategyKind int

const (
	// Greedy takes the per-timestep argmax path.
	Greedy StrategyKind = iota
	// BeamSearch tracks multiple candidate prefixes and returns the most
	// probable one.
	BeamSearch
)

// Strategy selects a decoding strategy. BeamSearch requires Width > 1;
// the two strategies share the same decode contract and result shape,
// and an invalid strategy is a configuration error rather than a silent
// fallback.
type Strategy struct {
	Kind  StrategyKind
	Width int // beam width; only meaningful for BeamSearch
}

// GreedyStrategy returns the default greedy decoding strategy.
func GreedyStrategy() Strategy { return Strategy{Kind: Greedy} }

// BeamSearchStrategy returns a beam search strategy with the given width.
func BeamSearchStrategy(width int) Strategy {
	return Strategy{Kind: BeamSearch, Width: width}
}

// ParseStrategy maps a configuration string ("greedy", "beam_search") to
// a Strategy.
func ParseStrategy(method string, beamWidth int) (Strategy, error) {
	switch method {
	case "", "greedy":
		return GreedyStrategy(), nil
	case "beam_search":
		return BeamSearchStrategy(beamWidth), nil
	default:
		return Strategy{}, fmt.Errorf("recognizer: unknown decoding method %q", method)
	}
}

// Decode dispatches to the configured decoding strategy.
func Decode(strategy Strategy, data []float32, timesteps, classes int, charset *Charset) (DecodedSequence, error) {
	switch strategy.Kind {
	case Greedy:
		return DecodeGreedy(data, timesteps, classes, charset)
	case BeamSearch:
		return DecodeBeam(data, timesteps, classes, strategy.Width, charset)
	default:
		return DecodedSequence{}, fmt.Errorf("recognizer: unknown strategy kind %d", strategy.Kind)
	}
}
