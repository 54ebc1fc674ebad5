package alerts

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seawatch-worker-go/internal/models"
)

type published struct {
	subject string
	payload models.AlertPayload
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, payload: data.(models.AlertPayload)})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func plastic(score float64) models.AnnotationState {
	return models.NewAnnotationState(&models.Frame{FrameID: 9}, []models.Detection{{Class: "bottle", Score: score}})
}

func noPlastic() models.AnnotationState {
	return models.NewAnnotationState(&models.Frame{FrameID: 10}, nil)
}

func newSink(pub *fakePublisher, mock *clock.Mock) *Sink {
	return NewSink(pub, Options{
		Subject:   "seawatch.alerts.plastic",
		StationID: "station-1",
		CameraID:  "plastic-cam",
		Cooldown:  10 * time.Second,
		Clock:     mock,
		Logger:    zerolog.Nop(),
	})
}

func TestSinkAlertsOnRisingEdgeOnly(t *testing.T) {
	pub := &fakePublisher{}
	sink := newSink(pub, clock.NewMock())

	sent, err := sink.Handle(models.PendingState())
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = sink.Handle(plastic(0.9))
	require.NoError(t, err)
	assert.True(t, sent)

	sent, _ = sink.Handle(plastic(0.95))
	assert.False(t, sent, "continuing plastic is not a new alert")

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "seawatch.alerts.plastic", msg.subject)
	assert.Equal(t, "station-1", msg.payload.StationID)
	assert.Equal(t, "plastic-cam", msg.payload.CameraID)
	assert.Equal(t, models.AlertSeverityHigh, msg.payload.Severity)
	assert.InDelta(t, 0.9, msg.payload.Confidence, 1e-9)
	assert.Equal(t, int64(9), msg.payload.FrameID)
	assert.NotEmpty(t, msg.payload.AlertID)
}

func TestSinkAlertsAgainForNewRun(t *testing.T) {
	pub := &fakePublisher{}
	mock := clock.NewMock()
	sink := newSink(pub, mock)

	first := plastic(0.9)
	first.RunID = "run-1"
	sent, err := sink.Handle(first)
	require.NoError(t, err)
	assert.True(t, sent)

	// detection restarted with plastic still in view
	mock.Add(time.Minute)
	second := plastic(0.9)
	second.RunID = "run-2"
	sent, err = sink.Handle(second)
	require.NoError(t, err)
	assert.True(t, sent)

	second.FrameID++
	sent, _ = sink.Handle(second)
	assert.False(t, sent)
	assert.Equal(t, 2, pub.count())
}

func TestSinkCooldown(t *testing.T) {
	pub := &fakePublisher{}
	mock := clock.NewMock()
	sink := newSink(pub, mock)

	sink.Handle(plastic(0.7))
	sink.Handle(noPlastic())
	mock.Add(5 * time.Second)
	sent, _ := sink.Handle(plastic(0.7))
	assert.False(t, sent, "second rising edge inside the cooldown is suppressed")

	sink.Handle(noPlastic())
	mock.Add(5 * time.Second)
	sent, _ = sink.Handle(plastic(0.5))
	assert.True(t, sent)

	require.Equal(t, 2, pub.count())
	assert.Equal(t, models.AlertSeverityMedium, pub.msgs[0].payload.Severity)
	assert.Equal(t, models.AlertSeverityLow, pub.msgs[1].payload.Severity)
	assert.Equal(t, 2, sink.Sent())
}

func TestSinkPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	sink := newSink(pub, clock.NewMock())

	sent, err := sink.Handle(plastic(0.9))
	assert.Error(t, err)
	assert.False(t, sent)
	assert.Zero(t, sink.Sent())
}

func TestSinkRun(t *testing.T) {
	pub := &fakePublisher{}
	sink := newSink(pub, clock.NewMock())

	states := make(chan models.AnnotationState, 3)
	states <- noPlastic()
	states <- plastic(0.9)
	close(states)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sink.Run(context.Background(), states)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
	assert.Equal(t, 1, pub.count())
}

func TestSinkAttachesSnapshotThumbnail(t *testing.T) {
	pub := &fakePublisher{}
	sink := newSink(pub, clock.NewMock())

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 24)), nil))

	st := plastic(0.7)
	st.Snapshot = buf.Bytes()
	sent, err := sink.Handle(st)
	require.NoError(t, err)
	require.True(t, sent)

	require.Len(t, pub.msgs, 1)
	assert.True(t, strings.HasPrefix(pub.msgs[0].payload.Image, "data:image/jpeg;base64,"))
	assert.Equal(t, models.AlertSeverityMedium, pub.msgs[0].payload.Severity)
}

func TestSinkSkipsUndecodableSnapshot(t *testing.T) {
	pub := &fakePublisher{}
	sink := newSink(pub, clock.NewMock())

	st := plastic(0.9)
	st.Snapshot = []byte("garbage")
	sent, err := sink.Handle(st)
	require.NoError(t, err)
	require.True(t, sent)
	assert.Empty(t, pub.msgs[0].payload.Image)
}
