package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveDelivery(t *testing.T, sub Subscription) Delivery {
	t.Helper()
	select {
	case delivery, ok := <-sub.Deliveries():
		require.True(t, ok, "assinatura fechada antes da entrega")
		return delivery
	case <-time.After(time.Second):
		t.Fatal("nenhuma entrega dentro do prazo")
		return Delivery{}
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	b := NewMemoryBroker()

	sub, err := b.Subscribe("user-1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish("user-1", []byte("game_request=user-2")))

	delivery := receiveDelivery(t, sub)
	assert.Equal(t, "game_request=user-2", string(delivery.Body))
	assert.NoError(t, delivery.Ack())
}

func TestPublishWithoutSubscriberIsDropped(t *testing.T) {
	b := NewMemoryBroker()
	assert.NoError(t, b.Publish("nobody", []byte("accept=user-1")))
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewMemoryBroker()

	sub1, err := b.Subscribe("user-1")
	require.NoError(t, err)
	defer sub1.Close()

	sub2, err := b.Subscribe("user-1")
	require.NoError(t, err)
	defer sub2.Close()

	require.NoError(t, b.Publish("user-1", []byte("start=user-2")))

	assert.Equal(t, "start=user-2", string(receiveDelivery(t, sub1).Body))
	assert.Equal(t, "start=user-2", string(receiveDelivery(t, sub2).Body))
}

func TestPublishIsScopedToDestination(t *testing.T) {
	b := NewMemoryBroker()

	sub, err := b.Subscribe("user-1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish("user-2", []byte("accept=user-3")))

	select {
	case delivery := <-sub.Deliveries():
		t.Fatalf("entrega inesperada: %s", delivery.Body)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseStopsDeliveries(t *testing.T) {
	b := NewMemoryBroker()

	sub, err := b.Subscribe("user-1")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Deliveries()
	assert.False(t, ok)

	// Publicar depois do Close não pode entrar em pânico nem entregar.
	assert.NoError(t, b.Publish("user-1", []byte("reject=user-2")))
}
