package event

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSyncDeliversToTypeSubscriber(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []Event
	b.Subscribe(SessionCreated, func(e Event) {
		got = append(got, e)
	})

	b.PublishSync(Event{Type: SessionCreated, Data: "a"})
	b.PublishSync(Event{Type: SessionDeleted, Data: "b"})

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Data)
}

func TestBus_SubscribeAllSeesEverything(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	b.SubscribeAll(func(Event) { count++ })

	b.PublishSync(Event{Type: SessionCreated})
	b.PublishSync(Event{Type: TitleGenerated})
	b.PublishSync(Event{Type: WorkflowFailed})

	assert.Equal(t, 3, count)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	unsub := b.Subscribe(MessagePushed, func(Event) { count++ })

	b.PublishSync(Event{Type: MessagePushed})
	unsub()
	b.PublishSync(Event{Type: MessagePushed})

	assert.Equal(t, 1, count)
}

func TestBus_PublishIsAsync(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	b.Subscribe(TranscriptionFinished, func(Event) { wg.Done() })
	b.SubscribeAll(func(Event) { wg.Done() })

	b.Publish(Event{Type: TranscriptionFinished})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async delivery timed out")
	}
}

func TestBus_ClosedBusDropsEverything(t *testing.T) {
	b := NewBus()

	var count int
	b.Subscribe(SessionUpdated, func(Event) { count++ })
	require.NoError(t, b.Close())

	b.PublishSync(Event{Type: SessionUpdated})
	assert.Zero(t, count)

	// Subscribing after close is a no-op.
	unsub := b.Subscribe(SessionUpdated, func(Event) { count++ })
	unsub()
	b.PublishSync(Event{Type: SessionUpdated})
	assert.Zero(t, count)
}

func TestBus_MirrorsOntoTransport(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.PubSub().Subscribe(ctx, Topic(TitleGenerated))
	require.NoError(t, err)

	b.PublishSync(Event{Type: TitleGenerated, Data: map[string]any{"sessionId": "s-1"}})

	select {
	case msg := <-msgs:
		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, TitleGenerated, got.Type)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the transport")
	}
}
