// Package detector decodes plate-detector output tensors into bounding
// boxes and suppresses duplicate detections.
package detector

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/platekit/internal/mempool"
	"github.com/MeKo-Tech/platekit/internal/models"
	"github.com/MeKo-Tech/platekit/internal/onnx"
	"github.com/yalue/onnxruntime_go"
)

// Result holds decoded detections for one frame plus timing info.
type Result struct {
	Detections     []Detection
	ProcessingTime time.Duration
}

// Detector runs the plate detection model and decodes its output.
type Detector struct {
	config     Config
	session    *onnxruntime_go.DynamicAdvancedSession
	inputInfo  onnxruntime_go.InputOutputInfo
	outputInfo onnxruntime_go.InputOutputInfo
	mu         sync.RWMutex
}

// New creates a plate detector with the given configuration.
func New(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateModelExists(config.ModelPath); err != nil {
		return nil, err
	}

	slog.Debug("Initializing plate detector",
		"model_path", config.ModelPath,
		"input_size", config.InputSize,
		"conf_threshold", config.ConfThreshold,
		"nms_threshold", config.NMSThreshold)

	if err := onnx.InitializeEnvironment(); err != nil {
		return nil, err
	}

	inputInfo, outputInfo, err := validateModelInfo(config.ModelPath)
	if err != nil {
		return nil, err
	}

	session, err := createSession(config.ModelPath, inputInfo, outputInfo, config)
	if err != nil {
		return nil, err
	}

	return &Detector{
		config:     config,
		session:    session,
		inputInfo:  inputInfo,
		outputInfo: outputInfo,
	}, nil
}

// Close releases the ONNX session.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			slog.Warn("Failed to destroy detector session", "error", err)
		}
		d.session = nil
	}
	return nil
}

// Config returns a copy of the detector's configuration.
func (d *Detector) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Detect runs inference on a frame and returns post-processed detections
// (decoded, thresholded, NMS-suppressed). Boxes are normalized [0,1]
// relative to the frame.
func (d *Detector) Detect(img image.Image) (*Result, error) {
	d.mu.RLock()
	session := d.session
	config := d.config
	d.mu.RUnlock()

	if session == nil {
		return nil, fmt.Errorf("detector is closed")
	}

	start := time.Now()

	data, err := preprocessImage(img, config.InputSize)
	if err != nil {
		return nil, fmt.Errorf("detector preprocess failed: %w", err)
	}
	defer mempool.PutFloat32(data)

	inputTensor, err := onnxruntime_go.NewTensor(
		onnxruntime_go.NewShape(1, 3, int64(config.InputSize), int64(config.InputSize)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxruntime_go.Value{nil}
	if err := session.Run([]onnxruntime_go.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("detection inference failed: %w", err)
	}
	outTensor, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected detector output tensor type")
	}
	defer func() { _ = outTensor.Destroy() }()

	rows, stride, transposed, err := interpretOutputShape(outTensor.GetShape(), config.NumClasses)
	if err != nil {
		return nil, err
	}

	raw := outTensor.GetData()
	if transposed {
		buf := mempool.GetFloat32(rows * stride)
		defer mempool.PutFloat32(buf)
		transposeAttributeMajor(raw, buf, rows, stride)
		raw = buf
	}

	detections, err := DecodeDetections(raw, rows, stride, DecodeOptions{
		ConfThreshold: config.ConfThreshold,
		NumClasses:    config.NumClasses,
	})
	if err != nil {
		return nil, err
	}
	detections = NonMaxSuppression(detections, config.NMSThreshold)

	return &Result{
		Detections:     detections,
		ProcessingTime: time.Since(start),
	}, nil
}

// interpretOutputShape determines the (rows, stride) layout of a detector
// output shape. YOLO-style models emit either [1, N, S] (anchor-major) or
// [1, S, N] (attribute-major, needs transposition), with S = 4 box fields
// plus the class count.
func interpretOutputShape(shape []int64, numClasses int) (rows, stride int, transposed bool, err error) {
	// Squeeze batch and other singleton dimensions.
	dims := make([]int64, 0, len(shape))
	for _, d := range shape {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) != 2 {
		return 0, 0, false, fmt.Errorf("unexpected detector output shape %v", shape)
	}

	expected := int64(boxFields + numClasses)
	switch {
	case dims[1] == expected:
		return int(dims[0]), int(dims[1]), false, nil
	case dims[0] == expected:
		return int(dims[1]), int(dims[0]), true, nil
	default:
		return 0, 0, false, fmt.Errorf("detector output shape %v does not match %d attributes", shape, expected)
	}
}

// transposeAttributeMajor rewrites [S, N] attribute-major data into
// [N, S] row-major order.
func transposeAttributeMajor(src, dst []float32, rows, stride int) {
	for a := range stride {
		for i := range rows {
			dst[i*stride+a] = src[a*rows+i]
		}
	}
}
