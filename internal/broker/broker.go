// Package broker abstrai o sistema de mensagens que liga os ConnectionHandlers
// entre si. Toda a coordenação entre adversários passa por aqui: os handlers
// nunca se falam diretamente.
package broker

// Delivery é uma mensagem entregue por uma assinatura. O Ack é manual e deve
// ser emitido assim que a mensagem for repassada à máquina de estados, antes
// do processamento — o protocolo se recupera por timeout, não por redelivery.
type Delivery struct {
	Body []byte
	Ack  func() error
}

// Subscription é o consumo contínuo de um destino.
type Subscription interface {
	// Deliveries entrega as mensagens na ordem de chegada. O canal é fechado
	// quando a assinatura é encerrada.
	Deliveries() <-chan Delivery

	// Close encerra a assinatura e fecha o canal de entregas.
	Close() error
}

// Broker publica e assina mensagens por destino (o userId do destinatário).
// Publicação é fire-and-forget: at-most-once, sem confirmação, sem retry.
type Broker interface {
	Publish(destination string, body []byte) error
	Subscribe(destination string) (Subscription, error)
}
