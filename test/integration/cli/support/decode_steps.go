package support

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// plateClasses is the recognition tensor width: 36 plate tokens plus
// the trailing blank class.
const plateClasses = 37

// RegisterDecodeSteps wires the decode command step definitions.
func (testCtx *TestContext) RegisterDecodeSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a tensor file with frame size (\d+)x(\d+) and one detection row "([^"]*)"$`, testCtx.aDetectionTensorFile)
	sc.Step(`^a tensor file with a recognition tensor spelling "([^"]*)"$`, testCtx.aRecognitionTensorFile)
	sc.Step(`^I run the decode command on the tensor file$`, testCtx.iRunDecodeOnTensorFile)
	sc.Step(`^I run the decode command on a missing file$`, testCtx.iRunDecodeOnMissingFile)
	sc.Step(`^the command succeeds$`, testCtx.theCommandSucceeds)
	sc.Step(`^the command fails with "([^"]*)"$`, testCtx.theCommandFailsWith)
	sc.Step(`^the output contains a region at (\d+),(\d+) sized (\d+)x(\d+)$`, testCtx.theOutputContainsRegion)
	sc.Step(`^the output lists the plate "([^"]*)"$`, testCtx.theOutputListsPlate)
	sc.Step(`^the output lists no plates$`, testCtx.theOutputListsNoPlates)
}

func (testCtx *TestContext) aDetectionTensorFile(width, height int, row string) error {
	fields := strings.Split(row, ",")
	data := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return fmt.Errorf("bad detection row value %q: %w", f, err)
		}
		data = append(data, float32(v))
	}

	content, err := json.Marshal(map[string]interface{}{
		"frame": map[string]int{"width": width, "height": height},
		"detection": map[string]interface{}{
			"data":   data,
			"rows":   1,
			"stride": len(data),
		},
	})
	if err != nil {
		return err
	}
	return testCtx.writeTensorFile(content)
}

func (testCtx *TestContext) aRecognitionTensorFile(text string) error {
	data, timesteps, err := recognitionTensor(text)
	if err != nil {
		return err
	}
	content, err := json.Marshal(map[string]interface{}{
		"recognition": []map[string]interface{}{
			{"data": data, "timesteps": timesteps, "classes": plateClasses},
		},
	})
	if err != nil {
		return err
	}
	return testCtx.writeTensorFile(content)
}

// recognitionTensor builds a probability matrix that greedily decodes
// to text over the built-in charset (digits 0-9 then A-Z), separating
// every character with a blank timestep.
func recognitionTensor(text string) ([]float32, int, error) {
	blank := plateClasses - 1
	timesteps := len(text) * 2
	data := make([]float32, timesteps*plateClasses)

	row := 0
	for _, ch := range text {
		var idx int
		switch {
		case ch >= '0' && ch <= '9':
			idx = int(ch - '0')
		case ch >= 'A' && ch <= 'Z':
			idx = 10 + int(ch-'A')
		default:
			return nil, 0, fmt.Errorf("character %q is outside the plate charset", ch)
		}
		data[row*plateClasses+idx] = 0.95
		row++
		data[row*plateClasses+blank] = 0.95
		row++
	}
	return data, timesteps, nil
}

func (testCtx *TestContext) iRunDecodeOnTensorFile() error {
	if testCtx.TensorPath == "" {
		return fmt.Errorf("no tensor file was prepared")
	}
	testCtx.runCommand("decode", testCtx.TensorPath)
	return nil
}

func (testCtx *TestContext) iRunDecodeOnMissingFile() error {
	testCtx.runCommand("decode", filepath.Join(testCtx.TempDir, "missing.json"))
	return nil
}

func (testCtx *TestContext) theCommandSucceeds() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("expected success, got error: %v\noutput:\n%s", testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandFailsWith(substr string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected failure, command succeeded with output:\n%s", testCtx.LastOutput)
	}
	if !strings.Contains(testCtx.LastError.Error(), substr) {
		return fmt.Errorf("error %q does not contain %q", testCtx.LastError.Error(), substr)
	}
	return nil
}

// decodeResult mirrors the decode command's JSON output envelope.
type decodeResult struct {
	Regions []struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"regions"`
	Plates []struct {
		Text string `json:"text"`
	} `json:"plates"`
}

func (testCtx *TestContext) parseOutput() (*decodeResult, error) {
	var result decodeResult
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &result); err != nil {
		return nil, fmt.Errorf("failed to parse command output: %w\noutput:\n%s", err, testCtx.LastOutput)
	}
	return &result, nil
}

func (testCtx *TestContext) theOutputContainsRegion(x, y, width, height int) error {
	result, err := testCtx.parseOutput()
	if err != nil {
		return err
	}
	for _, r := range result.Regions {
		if r.X == x && r.Y == y && r.Width == width && r.Height == height {
			return nil
		}
	}
	return fmt.Errorf("no region at %d,%d sized %dx%d in output:\n%s", x, y, width, height, testCtx.LastOutput)
}

func (testCtx *TestContext) theOutputListsPlate(text string) error {
	result, err := testCtx.parseOutput()
	if err != nil {
		return err
	}
	for _, p := range result.Plates {
		if p.Text == text {
			return nil
		}
	}
	return fmt.Errorf("plate %q not found in output:\n%s", text, testCtx.LastOutput)
}

func (testCtx *TestContext) theOutputListsNoPlates() error {
	result, err := testCtx.parseOutput()
	if err != nil {
		return err
	}
	if len(result.Plates) != 0 {
		return fmt.Errorf("expected no plates, got %d in output:\n%s", len(result.Plates), testCtx.LastOutput)
	}
	return nil
}
