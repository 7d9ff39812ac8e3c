package sink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	body, err := encodeMessage("ports_connected", "main-street", map[string]string{"a": "router-1:lan1"}, at)
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "ports_connected", msg["type"])
	assert.Equal(t, "main-street", msg["topology"])
	assert.Equal(t, "2024-03-01T09:30:00Z", msg["published"])
	assert.Equal(t, map[string]interface{}{"a": "router-1:lan1"}, msg["payload"])
}

func TestEncodeMessageRejectsUnencodable(t *testing.T) {
	_, err := encodeMessage("device_updated", "", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestSamplePoint(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	p := samplePoint("storenet_pipeline", Sample{
		Topology:    "main-street",
		Devices:     12,
		Online:      10,
		Offline:     2,
		Findings:    3,
		Errors:      1,
		Warnings:    2,
		PowerPasses: 3,
		Duration:    1500 * time.Microsecond,
		At:          at,
	})

	assert.Equal(t, "storenet_pipeline", p.Measurement)
	assert.Equal(t, "main-street", p.Tags["topology"])
	assert.Equal(t, at, p.Time)
	assert.Equal(t, 12, p.Fields["devices"])
	assert.Equal(t, 3, p.Fields["power_passes"])
	assert.Equal(t, false, p.Fields["pass_cap_hit"])
	assert.Equal(t, int64(1500), p.Fields["duration_us"])
}

func TestSamplePointDefaultsTime(t *testing.T) {
	p := samplePoint("m", Sample{})
	assert.False(t, p.Time.IsZero())
}

func TestNewInfluxRecorderBadURL(t *testing.T) {
	_, err := NewInfluxRecorder("://nope", "storenet", "m", nil)
	assert.Error(t, err)
}

func TestInfluxRecorderQueues(t *testing.T) {
	r, err := NewInfluxRecorder("http://localhost:8086", "storenet", "m", nil)
	require.NoError(t, err)

	for i := 0; i < sampleBuffer; i++ {
		require.NoError(t, r.Record(Sample{Topology: "store"}))
	}
	assert.ErrorIs(t, r.Record(Sample{}), ErrBufferFull)
}
