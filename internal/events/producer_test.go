package events

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestKafkaProducerWritersFlushImmediately(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"})
	t.Cleanup(func() { _ = producer.Close() })

	writer := producer.writerForTopic("roster_events")
	require.Equal(t, 1, writer.BatchSize)
	require.LessOrEqual(t, writer.BatchTimeout, batchTimeout)
	require.False(t, writer.Async)
	require.IsType(t, &kafka.Hash{}, writer.Balancer)

	require.Same(t, writer, producer.writerForTopic("roster_events"))
}
