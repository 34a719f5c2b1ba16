package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastorm/messaging"
)

func counter(n *int, err error) messaging.IMessageHandler {
	return messaging.NewHandler("count", func(context.Context, messaging.IMessage) error {
		*n++
		return err
	})
}

func TestSyncTransport_PublishFlow(t *testing.T) {
	tpt := NewSyncTransport()
	require.NoError(t, tpt.Start(context.Background()))
	defer tpt.Close()

	var exact, all int
	require.NoError(t, tpt.Subscribe("list.created", counter(&exact, nil)))
	require.NoError(t, tpt.Subscribe("*", counter(&all, nil)))

	require.NoError(t, tpt.Publish(context.Background(), messaging.NewMessage("list.created", nil)))
	require.NoError(t, tpt.Publish(context.Background(), messaging.NewMessage("item.updated", nil)))
	assert.Equal(t, 1, exact)
	assert.Equal(t, 2, all)

	stats := tpt.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, []string{"*", "list.created"}, stats.MessageTypes)
}

func TestSyncTransport_HandlerErrorsAreJoined(t *testing.T) {
	tpt := NewSyncTransport()
	require.NoError(t, tpt.Start(context.Background()))
	defer tpt.Close()

	boom := errors.New("boom")
	var n int
	require.NoError(t, tpt.Subscribe("list.created", counter(&n, boom)))
	require.NoError(t, tpt.Subscribe("list.created", counter(&n, nil)))

	err := tpt.PublishAll(context.Background(), []messaging.IMessage{messaging.NewMessage("list.created", nil)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n, "a failing handler does not stop the others")
}

func TestSyncTransport_Lifecycle(t *testing.T) {
	tpt := NewSyncTransport()
	assert.Error(t, tpt.Publish(context.Background(), messaging.NewMessage("x", nil)))
	assert.Error(t, tpt.Close())

	h := counter(new(int), nil)
	require.NoError(t, tpt.Subscribe("x", h))
	require.NoError(t, tpt.Unsubscribe("x", h))
	assert.Error(t, tpt.Unsubscribe("x", h))

	require.NoError(t, tpt.Start(context.Background()))
	assert.Error(t, tpt.Start(context.Background()))
}
