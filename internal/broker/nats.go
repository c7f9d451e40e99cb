package broker

import (
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

// subjectPrefix isola os assuntos deste servidor dentro do NATS.
const subjectPrefix = "bolboard.user."

// deliveryBuffer limita quantas mensagens ficam enfileiradas por assinatura.
// Estourar o buffer descarta a mensagem, coerente com o contrato at-most-once.
const deliveryBuffer = 64

// NATSBroker implementa Broker sobre uma conexão NATS core.
type NATSBroker struct {
	nc *nats.Conn
}

// ConnectNATS abre a conexão com o servidor NATS.
func ConnectNATS(url string) (*NATSBroker, error) {
	nc, err := nats.Connect(url,
		nats.Name("bolboard"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("AVISO: conexão com o NATS perdida: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATSBroker] Reconectado ao NATS em %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("conectando ao NATS em %s: %w", url, err)
	}

	log.Printf("[NATSBroker] Conectado ao NATS em %s", nc.ConnectedUrl())
	return &NATSBroker{nc: nc}, nil
}

// subjectFor converte um userId em assunto NATS válido. O userId tem o formato
// "provider:principal"; dois-pontos é válido em assunto, mas ponto e espaço
// criariam tokens extras.
func subjectFor(destination string) string {
	sanitized := strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-").Replace(destination)
	return subjectPrefix + sanitized
}

func (b *NATSBroker) Publish(destination string, body []byte) error {
	return b.nc.Publish(subjectFor(destination), body)
}

func (b *NATSBroker) Subscribe(destination string) (Subscription, error) {
	msgCh := make(chan *nats.Msg, deliveryBuffer)
	sub, err := b.nc.ChanSubscribe(subjectFor(destination), msgCh)
	if err != nil {
		return nil, fmt.Errorf("assinando destino %s: %w", destination, err)
	}

	s := &natsSubscription{
		sub:        sub,
		deliveries: make(chan Delivery, deliveryBuffer),
		quit:       make(chan struct{}),
	}

	go func() {
		defer close(s.deliveries)
		for {
			select {
			case msg := <-msgCh:
				// NATS core é at-most-once: a mensagem já foi consumida, o
				// Ack existe para brokers com confirmação de entrega.
				select {
				case s.deliveries <- Delivery{Body: msg.Data, Ack: func() error { return nil }}:
				default:
					log.Printf("AVISO: buffer de entregas cheio, mensagem descartada para %s", destination)
				}
			case <-s.quit:
				return
			}
		}
	}()

	return s, nil
}

// Close drena e encerra a conexão.
func (b *NATSBroker) Close() {
	if err := b.nc.Drain(); err != nil {
		log.Printf("AVISO: drain da conexão NATS falhou: %v", err)
	}
}

type natsSubscription struct {
	sub        *nats.Subscription
	deliveries chan Delivery
	quit       chan struct{}
}

func (s *natsSubscription) Deliveries() <-chan Delivery {
	return s.deliveries
}

func (s *natsSubscription) Close() error {
	close(s.quit)
	return s.sub.Unsubscribe()
}
