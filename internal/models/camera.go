package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"
)

// LoopStatus represents the annotation loop operational status
type LoopStatus string

const (
	LoopStatusRunning LoopStatus = "running"
	LoopStatusStopped LoopStatus = "stopped"
)

// String returns the string representation of LoopStatus
func (s LoopStatus) String() string {
	return string(s)
}

// Frame represents a decoded video frame.
// Data holds packed BGR24 pixels, Width*Height*3 bytes.
type Frame struct {
	CameraID  string
	Data      []byte
	Timestamp time.Time
	FrameID   int64
	Width     int
	Height    int
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	c := *f
	c.Data = data
	return &c
}

// Valid reports whether the pixel buffer matches the frame dimensions
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*3
}

// ToImage converts the BGR buffer to an RGBA image
func (f *Frame) ToImage() (*image.RGBA, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid frame: %dx%d with %d bytes", f.Width, f.Height, len(f.Data))
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, p := 0, 0; i < len(f.Data); i, p = i+3, p+4 {
		img.Pix[p] = f.Data[i+2]
		img.Pix[p+1] = f.Data[i+1]
		img.Pix[p+2] = f.Data[i]
		img.Pix[p+3] = 0xFF
	}
	return img, nil
}

// FrameFromImage packs any image into a BGR frame
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			data = append(data, c.B, c.G, c.R)
		}
	}
	return &Frame{
		Data:      data,
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
	}
}

// PNGDataURL encodes the frame as a data:image/png URL
func (f *Frame) PNGDataURL() (string, error) {
	img, err := f.ToImage()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DetectionStatusResponse for API
type DetectionStatusResponse struct {
	Status     LoopStatus      `json:"status"`
	RunID      string          `json:"run_id,omitempty"`
	CameraID   string          `json:"camera_id"`
	Model      string          `json:"model"`
	Canvas     string          `json:"canvas"`
	SourceOK   bool            `json:"source_ready"`
	Frames     int64           `json:"frames_captured"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	Iterations uint64          `json:"iterations"`
	Latest     AnnotationState `json:"latest"`
}

// SensorReading is one sample from the plant sensors
type SensorReading struct {
	Temperature float64   `json:"temperature"`
	Moisture    float64   `json:"moisture"`
	PH          float64   `json:"ph"`
	Sunlight    float64   `json:"sunlight"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthStatus is the overall plant classification
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "Healthy"
	HealthStatusModerate  HealthStatus = "Moderate"
	HealthStatusUnhealthy HealthStatus = "Unhealthy"
)

// PlantReport is the result of a plant analysis
type PlantReport struct {
	Reading   SensorReading `json:"reading"`
	Score     int           `json:"score"`
	Status    HealthStatus  `json:"status"`
	Snapshot  string        `json:"snapshot,omitempty"` // PNG data URL from the plant camera
	Simulated bool          `json:"simulated"`
}
