package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	onnxModelFile  = "url_classifier.onnx"
	onnxLabelsFile = "label_map.json"

	defaultSeqLen = 128
)

// ONNXClassifier runs a character-level URL classifier locally. Bundle layout:
//
//	<bundle>/url_classifier.onnx   inputs input_ids, attention_mask; output logits
//	<bundle>/label_map.json        ["benign", "phishing", ...] or {"0": "benign", ...}
type ONNXClassifier struct {
	session *ort.AdvancedSession
	labels  []string
	seqLen  int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNX initializes the runtime and the session for a bundle directory.
func LoadONNX(bundleDir string, seqLen int) (*ONNXClassifier, error) {
	if strings.TrimSpace(bundleDir) == "" {
		return nil, errors.New("onnx bundle dir is empty")
	}
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}

	modelPath := filepath.Join(bundleDir, onnxModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	labels, err := loadLabels(filepath.Join(bundleDir, onnxLabelsFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		inputIDs.Destroy()
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		inputIDs.Destroy()
		attnMask.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		inputIDs.Destroy()
		attnMask.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXClassifier{
		session:       session,
		labels:        labels,
		seqLen:        seqLen,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Classify never reports Unavailable; runtime failures are Transport.
func (m *ONNXClassifier) Classify(ctx context.Context, rawURL string) Outcome {
	if m == nil || m.session == nil {
		return Outcome{Kind: Transport, Err: errors.New("onnx classifier not initialized")}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Kind: Transport, Err: err}
	}

	ids, mask := encodeChars(rawURL, m.seqLen)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputIDs.GetData(), ids)
	copy(m.attentionMask.GetData(), mask)
	if err := m.session.Run(); err != nil {
		return Outcome{Kind: Transport, Err: fmt.Errorf("onnx run: %w", err)}
	}

	idx, p := argmaxSoftmax(m.output.GetData())
	if idx < 0 || idx >= len(m.labels) {
		return Outcome{Kind: Unrecognized}
	}
	return Outcome{Kind: Classified, Label: m.labels[idx], Score: p}
}

// Close releases the session and tensors.
func (m *ONNXClassifier) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.inputIDs != nil {
		_ = m.inputIDs.Destroy()
		m.inputIDs = nil
	}
	if m.attentionMask != nil {
		_ = m.attentionMask.Destroy()
		m.attentionMask = nil
	}
	if m.output != nil {
		_ = m.output.Destroy()
		m.output = nil
	}
	return err
}

// encodeChars maps each byte of the URL to byte+1, leaving 0 for padding.
func encodeChars(s string, seqLen int) ([]int64, []int64) {
	ids := make([]int64, seqLen)
	mask := make([]int64, seqLen)
	for i := 0; i < len(s) && i < seqLen; i++ {
		ids[i] = int64(s[i]) + 1
		mask[i] = 1
	}
	return ids, mask
}

func argmaxSoftmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return -1, 0
	}
	best := 0
	maxLogit := float64(logits[0])
	for i, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
			best = i
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}
	return best, 1 / sum
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("label map is empty")
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath finds the onnxruntime shared library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins over probing.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
