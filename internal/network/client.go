package network

import (
	"net"
	"time"

	"log"

	"github.com/gorilla/websocket"
)

const (
	// Tempo para aguardar por uma escrita na conexão.
	writeWait = 10 * time.Second

	// Tempo máximo para aguardar por uma resposta de pong do cliente.
	pongWait = 60 * time.Second

	// Frequência com que enviamos pings para o cliente. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client é a representação de uma conexão viva do ponto de vista do servidor.
// Ele agrupa a conexão e o canal de saída.
type Client struct {
	// A conexão WebSocket real com o jogador.
	conn *websocket.Conn

	// Uma referência ao Hub central, para se (des)registrar.
	hub *Hub

	// Canal bufferizado de frames de saída. O handler da conexão escreve
	// aqui e a goroutine writeLoop envia. O buffer evita que o handler
	// bloqueie se o cliente estiver lento.
	send chan string
}

// Conn retorna a conexão net.Conn subjacente (útil para logar o endereço).
func (c *Client) Conn() net.Conn {
	return c.conn.UnderlyingConn()
}

// Send é o canal de frames para o cliente.
func (c *Client) Send() chan<- string {
	return c.send
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// O protocolo do jogo é texto puro, um comando por frame.
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("AVISO: erro inesperado no cliente %s: %v", c.conn.RemoteAddr(), err)
			}
			break
		}

		c.hub.incoming <- clientMessage{client: c, text: string(data)}
	}
}

// writeLoop bombeia frames do canal 'send' para a conexão WebSocket.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// O canal foi fechado pelo Hub: o cliente foi desregistrado.
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				log.Printf("AVISO: erro de escrita no cliente %s: %v", c.conn.RemoteAddr(), err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Se o ping falhar, a conexão está morta.
			}
		}
	}
}
