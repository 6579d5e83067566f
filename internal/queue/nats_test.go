package queue

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNATSQueue(t *testing.T, prefix string) *NATSQueue {
	t.Helper()

	q, err := newNATSQueue(NATSConfig{URL: setupTestNATS(t), Subject: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func streamMessages(t *testing.T, q *NATSQueue, prefix string) uint64 {
	t.Helper()

	info, err := q.js.StreamInfo(streamName(prefix))
	require.NoError(t, err)
	return info.State.Msgs
}

func TestNewNATSQueue_CreatesStream(t *testing.T) {
	q := newTestNATSQueue(t, "forecasting")

	info, err := q.js.StreamInfo("FORECASTING")
	require.NoError(t, err)
	assert.Equal(t, []string{"forecasting.>"}, info.Config.Subjects)
	assert.NotNil(t, q.GetNATSConn())
}

func TestNewNATSQueue_ExistingStream(t *testing.T) {
	url := setupTestNATS(t)

	first, err := newNATSQueue(NATSConfig{URL: url, Subject: "forecasting"})
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	second, err := newNATSQueue(NATSConfig{URL: url, Subject: "forecasting"})
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
}

func TestNewNATSQueue_InvalidURL(t *testing.T) {
	_, err := newNATSQueue(NATSConfig{URL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNATSQueue_Publish(t *testing.T) {
	q := newTestNATSQueue(t, "forecasting")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, q.Publish(ctx, "forecasting.completed", []byte(`{"run_id":"r1"}`)))
	assert.Equal(t, uint64(1), streamMessages(t, q, "forecasting"))

	msg, err := q.js.GetLastMsg("FORECASTING", "forecasting.completed")
	require.NoError(t, err)
	assert.Equal(t, `{"run_id":"r1"}`, string(msg.Data))
}

func TestNATSQueue_PublishOutsideStream(t *testing.T) {
	q := newTestNATSQueue(t, "forecasting")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, q.Publish(ctx, "other.completed", []byte("x")))
}

func TestNATSQueue_PublishBatch(t *testing.T) {
	q := newTestNATSQueue(t, "forecasting")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := q.PublishBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	messages := make([]BatchMessage, 25)
	for i := range messages {
		messages[i] = BatchMessage{Subject: "forecasting.rows", Data: []byte{byte(i)}}
	}

	n, err = q.PublishBatch(ctx, messages)
	require.NoError(t, err)
	assert.Equal(t, len(messages), n)
	assert.Equal(t, uint64(len(messages)), streamMessages(t, q, "forecasting"))
}

func TestNATSQueue_WithConn(t *testing.T) {
	conn, err := nats.Connect(setupTestNATS(t))
	require.NoError(t, err)
	defer conn.Close()

	q, err := newNATSQueueWithConn(conn, "")
	require.NoError(t, err)

	_, err = q.js.StreamInfo(streamName("forecasting"))
	assert.Error(t, err, "no stream without a prefix")
}

func TestStreamName(t *testing.T) {
	tests := map[string]string{
		"forecasting":      "FORECASTING",
		"pricepally.fc":    "PRICEPALLY_FC",
		"weekly-demand_v2": "WEEKLY-DEMAND_V2",
		"a*b>c":            "A_B_C",
	}
	for in, want := range tests {
		assert.Equal(t, want, streamName(in), in)
	}
}
