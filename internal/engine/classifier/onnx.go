package classifier

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/screener/internal/model"
)

func init() {
	Register("onnx", func(cfg Config) (Classifier, error) {
		return NewONNX(cfg.ModelPath, cfg.LibraryPath)
	})
}

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNX runs a tree-ensemble classifier exported to ONNX with separate
// label and probability outputs (no ZipMap).
type ONNX struct {
	session   *ort.DynamicAdvancedSession
	inputName string
	labelName string
	probaName string
}

// NewONNX loads the model at modelPath. An empty libPath resolves to
// libonnxruntime.so next to the model.
func NewONNX(modelPath, libPath string) (*ONNX, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputName, err := validateInput(inputs)
	if err != nil {
		return nil, err
	}
	labelName, probaName, err := resolveOutputs(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{labelName, probaName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNX{
		session:   session,
		inputName: inputName,
		labelName: labelName,
		probaName: probaName,
	}, nil
}

// validateInput expects one [batch, 19] input tensor.
func validateInput(inputs []ort.InputOutputInfo) (string, error) {
	if len(inputs) != 1 {
		return "", fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 {
		return "", fmt.Errorf("onnx: expected 2D input tensor, got %v", dims)
	}
	if dims[1] > 0 && dims[1] != model.NumFeatures {
		return "", fmt.Errorf("onnx: model expects %d features, encoder produces %d", dims[1], model.NumFeatures)
	}
	return inputs[0].Name, nil
}

// resolveOutputs finds the label and probability outputs, by their
// conventional names if present, otherwise by position.
func resolveOutputs(outputs []ort.InputOutputInfo) (label, proba string, err error) {
	if len(outputs) < 2 {
		return "", "", fmt.Errorf("onnx: expected label and probability outputs, model has %d outputs", len(outputs))
	}
	for _, o := range outputs {
		switch o.Name {
		case "label", "output_label":
			label = o.Name
		case "probabilities", "output_probability":
			proba = o.Name
		}
	}
	if label == "" {
		label = outputs[0].Name
	}
	if proba == "" {
		proba = outputs[1].Name
	}
	for _, o := range outputs {
		if o.Name == proba && o.OrtValueType != ort.ONNXTypeTensor {
			return "", "", fmt.Errorf("onnx: probability output %q is %v, not a tensor (export without ZipMap)", proba, o.OrtValueType)
		}
	}
	return label, proba, nil
}

// infer runs one inference call for a single feature vector.
func (o *ONNX) infer(fv model.FeatureVector) (int64, []float32, error) {
	in, err := ort.NewTensor(ort.NewShape(1, model.NumFeatures), fv.Float32())
	if err != nil {
		return 0, nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	// Nil outputs are allocated by the runtime.
	outputs := []ort.Value{nil, nil}
	if err := o.session.Run([]ort.Value{in}, outputs); err != nil {
		return 0, nil, fmt.Errorf("onnx: inference failed: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	labels, ok := outputs[0].(*ort.Tensor[int64])
	if !ok {
		return 0, nil, fmt.Errorf("onnx: label output has type %T, want int64 tensor", outputs[0])
	}
	probs, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return 0, nil, fmt.Errorf("onnx: probability output has type %T, want float32 tensor", outputs[1])
	}

	ld := labels.GetData()
	if len(ld) != 1 {
		return 0, nil, fmt.Errorf("onnx: expected 1 label, got %d", len(ld))
	}

	// Copy data out before the tensor is destroyed.
	src := probs.GetData()
	proba := make([]float32, len(src))
	copy(proba, src)
	return ld[0], proba, nil
}

func (o *ONNX) Predict(_ context.Context, fv model.FeatureVector) (int, error) {
	label, _, err := o.infer(fv)
	if err != nil {
		return 0, err
	}
	return int(label), nil
}

func (o *ONNX) PredictProba(_ context.Context, fv model.FeatureVector) ([]float64, error) {
	_, p, err := o.infer(fv)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = float64(v)
	}
	return out, nil
}

func (o *ONNX) Name() string { return "onnx" }

// Close releases the ONNX session resources.
func (o *ONNX) Close() error {
	return o.session.Destroy()
}
