package broker

import (
	"log"
	"sync"
)

// MemoryBroker é um Broker em processo. Serve para desenvolvimento num nó só
// (NATS_URL=memory) e para os testes, que precisam observar o tráfego entre
// dois handlers sem subir um NATS.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]*memorySubscription)}
}

func (b *MemoryBroker) Publish(destination string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[destination] {
		// Entrega sem bloqueio: assinante lento perde mensagem, igual ao
		// contrato at-most-once do broker real.
		select {
		case sub.deliveries <- Delivery{Body: body, Ack: func() error { return nil }}:
		default:
			log.Printf("AVISO: assinante de %s com buffer cheio, mensagem descartada", destination)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(destination string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySubscription{
		broker:      b,
		destination: destination,
		deliveries:  make(chan Delivery, deliveryBuffer),
	}
	b.subs[destination] = append(b.subs[destination], sub)
	return sub, nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.destination]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.destination] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	broker      *MemoryBroker
	destination string
	deliveries  chan Delivery
	closeOnce   sync.Once
}

func (s *memorySubscription) Deliveries() <-chan Delivery {
	return s.deliveries
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
		close(s.deliveries)
	})
	return nil
}
