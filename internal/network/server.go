package network

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Server gerencia o Hub e promove conexões HTTP a WebSocket.
type Server struct {
	hub *Hub
}

// upgrader armazena as configurações para promover uma conexão HTTP para WebSocket.
var upgrader = websocket.Upgrader{
	// CheckOrigin permite controlar quais domínios podem se conectar.
	// Para desenvolvimento, retornamos 'true' para permitir qualquer origem.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewServer aceita um EventHandler para passá-lo ao Hub. Este é o ponto de
// injeção da lógica do jogo.
func NewServer(handler EventHandler) *Server {
	return &Server{
		hub: NewHub(handler),
	}
}

// Run inicia a goroutine do Hub.
func (s *Server) Run() {
	go s.hub.Run()
}

// WebsocketHandler é o ponto de entrada das conexões de clientes: promove a
// requisição HTTP para WebSocket e registra o cliente no Hub.
func (s *Server) WebsocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("AVISO: erro ao fazer upgrade da conexão: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			hub:  s.hub,
			send: make(chan string, 256),
		}

		client.hub.register <- client

		go client.writeLoop()
		go client.readLoop()
	}
}
