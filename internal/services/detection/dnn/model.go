// Package dnn runs an SSD object detector through the OpenCV DNN module.
package dnn

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/detection"
)

// minScore drops near-zero rows early. The plastic threshold is applied by the loop.
const minScore = 0.05

type Config struct {
	ModelPath  string
	ConfigPath string
	LabelsPath string
	InputSize  int
	Scale      float64
	SwapRB     bool
	Backend    string
	Target     string
}

// Model is safe for concurrent use; Detect calls are serialised on the net.
type Model struct {
	cfg Config

	mu     sync.Mutex
	net    gocv.Net
	labels detection.Labels
	loaded bool
}

func New(cfg Config) *Model {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1.0
	}
	return &Model{cfg: cfg}
}

// Name identifies the model in status responses.
func (m *Model) Name() string {
	return "dnn:" + filepath.Base(m.cfg.ModelPath)
}

func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, p := range []string{m.cfg.ModelPath, m.cfg.ConfigPath, m.cfg.LabelsPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("model file unavailable: %w", err)
		}
	}

	labels, err := detection.LoadLabels(m.cfg.LabelsPath)
	if err != nil {
		return err
	}

	net := gocv.ReadNet(m.cfg.ModelPath, m.cfg.ConfigPath)
	if net.Empty() {
		return fmt.Errorf("failed to read network from %s", m.cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.ParseNetBackend(m.cfg.Backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(m.cfg.Target))

	m.net = net
	m.labels = labels
	m.loaded = true

	log.Info().
		Str("model", m.cfg.ModelPath).
		Int("labels", len(labels)).
		Int("input_size", m.cfg.InputSize).
		Str("backend", m.cfg.Backend).
		Str("target", m.cfg.Target).
		Msg("dnn_model_loaded")
	return nil
}

func (m *Model) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("invalid frame")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer img.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, fmt.Errorf("model not loaded")
	}

	size := m.cfg.InputSize
	blob := gocv.BlobFromImage(img, m.cfg.Scale, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), m.cfg.SwapRB, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	prob := m.net.Forward("")
	defer prob.Close()

	out, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}
	return detection.DecodeSSD(out, m.labels, frame.Width, frame.Height, minScore), nil
}

func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil
	}
	m.loaded = false
	return m.net.Close()
}
