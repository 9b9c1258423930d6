package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a local Redis; skipped otherwise.
func TestPublishAndPop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb, err := Connect(ctx, Options{Addr: "localhost:6379"})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Close()

	queue := "pongai_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	pub := NewPublisher(rdb, queue)
	con := NewConsumer(rdb, queue)
	assert.Equal(t, queue, pub.Queue())

	rec := GameActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   3,
		TeamID:        1,
		PlayerID:      2,
		ActionType:    "prompt_submit",
		ActionPayload: map[string]interface{}{"text": "hello there"},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, pub.PublishGameAction(ctx, rec))

	got, ok, err := con.PopGameAction(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, rec.ActionIndex, got.ActionIndex)
	assert.Equal(t, "hello there", got.ActionPayload["text"])

	_, ok, err = con.PopGameAction(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "empty queue times out")
}

func TestDefaultQueueName(t *testing.T) {
	assert.Equal(t, DefaultQueueName, NewPublisher(nil, "").Queue())
	assert.Equal(t, DefaultQueueName, NewConsumer(nil, "").queue)
}
