package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs, err := encode([]Event{
		{
			Key:     "search",
			Value:   map[string]any{"query": "health", "hits": 2},
			Headers: map[string]string{"source": "web", "event-type": "search"},
			Time:    at,
		},
		{Key: "search", Value: []int{1, 2}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, []byte("search"), msgs[0].Key)
	assert.JSONEq(t, `{"query":"health","hits":2}`, string(msgs[0].Value))
	assert.Equal(t, []kafka.Header{
		{Key: "event-type", Value: []byte("search")},
		{Key: "source", Value: []byte("web")},
	}, msgs[0].Headers)
	assert.Equal(t, at, msgs[0].Time)

	assert.Equal(t, "[1,2]", string(msgs[1].Value))
	assert.Nil(t, msgs[1].Headers)
	assert.True(t, msgs[1].Time.IsZero())
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "ok", Value: 1}, {Key: "bad", Value: make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `event 1 (key "bad")`)
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	p := newProducer(&kafka.Writer{Addr: kafka.TCP("127.0.0.1:1"), Topic: "search-events"})
	require.NoError(t, p.PublishBatch(context.Background(), nil))
	require.NoError(t, p.Close())
}
