package socket

import (
	"log"

	"bolboard/internal/broker"
	"bolboard/internal/directory"
	"bolboard/internal/network"
)

// Manager implementa network.EventHandler: cria um Handler por conexão e
// roteia os frames para ele. Todos os callbacks chegam pela goroutine do Hub,
// então o mapa de handlers não precisa de lock.
type Manager struct {
	sessions  SessionLoader
	directory directory.Directory
	broker    broker.Broker

	handlers map[*network.Client]*Handler
}

func NewManager(sessions SessionLoader, dir directory.Directory, b broker.Broker) *Manager {
	return &Manager{
		sessions:  sessions,
		directory: dir,
		broker:    b,
		handlers:  make(map[*network.Client]*Handler),
	}
}

func (m *Manager) OnConnect(c *network.Client) {
	handler := NewHandler(c.Send(), m.sessions, m.directory, m.broker)
	m.handlers[c] = handler
	go handler.Run()
	log.Printf("[Manager] Conexão aceita de %s. Total de conexões: %d", c.Conn().RemoteAddr(), len(m.handlers))
}

func (m *Manager) OnDisconnect(c *network.Client) {
	handler, ok := m.handlers[c]
	if !ok {
		return
	}
	handler.Stop()
	delete(m.handlers, c)
	log.Printf("[Manager] Conexão de %s encerrada. Total de conexões: %d", c.Conn().RemoteAddr(), len(m.handlers))
}

func (m *Manager) OnMessage(c *network.Client, text string) {
	handler, ok := m.handlers[c]
	if !ok {
		return
	}
	handler.HandleClientMessage(text)
}
