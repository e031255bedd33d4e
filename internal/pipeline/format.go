package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON renders a frame result as JSON, optionally indented.
func ToJSON(res *FrameResult, pretty bool) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("nil frame result")
	}
	if pretty {
		return json.MarshalIndent(res, "", "  ")
	}
	return json.Marshal(res)
}

// ToPlainText renders a frame result as human-readable text.
// Confidences are printed with the given number of decimal places.
func ToPlainText(res *FrameResult, precision int) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil frame result")
	}
	if precision < 0 {
		precision = 2
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Frame %dx%d: %d detection(s), %d plate(s)\n",
		res.Width, res.Height, res.Detections, len(res.Plates))
	for i, p := range res.Plates {
		fmt.Fprintf(&b, "  #%d %s conf=%.*f det=%.*f box=(%d,%d %dx%d)\n",
			i+1, p.Text,
			precision, p.Confidence,
			precision, p.DetectionConfidence,
			p.Region.X, p.Region.Y, p.Region.Width, p.Region.Height)
	}
	return b.String(), nil
}

// ToCSV renders a frame result as CSV with a header row, one row per plate.
func ToCSV(res *FrameResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil frame result")
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"text", "confidence", "detection_confidence", "x", "y", "width", "height"}); err != nil {
		return "", err
	}
	for _, p := range res.Plates {
		row := []string{
			p.Text,
			strconv.FormatFloat(p.Confidence, 'f', -1, 64),
			strconv.FormatFloat(p.DetectionConfidence, 'f', -1, 64),
			strconv.Itoa(p.Region.X),
			strconv.Itoa(p.Region.Y),
			strconv.Itoa(p.Region.Width),
			strconv.Itoa(p.Region.Height),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}
