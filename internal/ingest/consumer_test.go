package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carlosrosan/palantir-webapp/internal/domain"
)

// fakeWriter 记录写入的读数
type fakeWriter struct {
	readings []*domain.SensorReading
	err      error
}

func (f *fakeWriter) InsertSensorReading(ctx context.Context, r *domain.SensorReading) error {
	if f.err != nil {
		return f.err
	}
	f.readings = append(f.readings, r)
	return nil
}

func newTestConsumer(w *fakeWriter) *Consumer {
	return NewConsumer(nil, w, zap.NewNop())
}

func TestAssetIDFromTopic(t *testing.T) {
	id, err := assetIDFromTopic("plc/42/reading")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = assetIDFromTopic("plc/abc/reading")
	assert.Error(t, err)
	_, err = assetIDFromTopic("plc/42/status")
	assert.Error(t, err)
	_, err = assetIDFromTopic("plc/42")
	assert.Error(t, err)
	_, err = assetIDFromTopic("plc/-1/reading")
	assert.Error(t, err)
}

func TestHandleMessagePersistsReading(t *testing.T) {
	w := &fakeWriter{}
	c := newTestConsumer(w)

	payload := []byte(`{
		"sensor_name": "vib-01",
		"sensor_type": "vibration",
		"reading_value": 2.5,
		"unit": "mm/s",
		"timestamp": "2023-05-14T08:30:00Z",
		"status": "warning"
	}`)
	require.NoError(t, c.handleMessage("plc/7/reading", payload))

	require.Len(t, w.readings, 1)
	r := w.readings[0]
	assert.Equal(t, 7, r.AssetID)
	assert.Equal(t, "vibration", r.SensorType)
	assert.Equal(t, 2.5, r.ReadingValue)
	assert.Equal(t, domain.ReadingStatusWarning, r.Status)
	assert.Equal(t, "2023-05-14T08:30:00Z", r.ReadingTimestamp.Format("2006-01-02T15:04:05Z07:00"))
}

func TestHandleMessageDefaultsStatus(t *testing.T) {
	w := &fakeWriter{}
	c := newTestConsumer(w)

	payload := []byte(`{"sensor_type": "rpm", "reading_value": 1480}`)
	require.NoError(t, c.handleMessage("plc/7/reading", payload))

	require.Len(t, w.readings, 1)
	assert.Equal(t, domain.ReadingStatusNormal, w.readings[0].Status)
	assert.False(t, w.readings[0].ReadingTimestamp.IsZero())
}

func TestHandleMessageDropsBadInput(t *testing.T) {
	w := &fakeWriter{}
	c := newTestConsumer(w)

	// 主题不合规、JSON坏、缺 sensor_type、时间戳坏：都丢弃且不报错
	assert.NoError(t, c.handleMessage("plc/abc/reading", []byte(`{}`)))
	assert.NoError(t, c.handleMessage("plc/7/reading", []byte(`{not json`)))
	assert.NoError(t, c.handleMessage("plc/7/reading", []byte(`{"reading_value": 1}`)))
	assert.NoError(t, c.handleMessage("plc/7/reading", []byte(`{"sensor_type":"rpm","timestamp":"yesterday"}`)))

	assert.Empty(t, w.readings)
}

func TestHandleMessageWriteErrorPropagates(t *testing.T) {
	w := &fakeWriter{err: assert.AnError}
	c := newTestConsumer(w)

	payload := []byte(`{"sensor_type": "rpm", "reading_value": 1480}`)
	assert.Error(t, c.handleMessage("plc/7/reading", payload))
}
