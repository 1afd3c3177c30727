package queue

import (
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/testutil"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "valid", body: `{"job_id":"abc"}`, want: "abc"},
		{name: "missing id", body: `{}`, wantErr: true},
		{name: "not json", body: `abc`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEnvelope([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAMQP_Contract(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if testing.Short() || url == "" {
		t.Skip("TEST_AMQP_URL not set")
	}
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	name := testutil.UniquePrefix("jobs")
	q, err := NewAMQP(conn, AMQPOptions{
		Exchange:     name + ".x",
		RoutingKey:   "search.submitted",
		Queue:        name,
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ch, err := conn.Channel()
		if err == nil {
			_, _ = ch.QueueDelete(name, false, false, false)
			_ = ch.ExchangeDelete(name+".x", false, false)
			_ = ch.Close()
		}
		_ = q.Close()
	})

	runQueueContract(t, q)
}
