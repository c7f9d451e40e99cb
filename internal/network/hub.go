package network

// clientMessage empacota um frame com o cliente que o enviou.
type clientMessage struct {
	client *Client
	text   string
}

// Hub mantém o conjunto de clientes ativos e roteia eventos para o handler.
type Hub struct {
	// Clientes registrados. Acessado SOMENTE pela goroutine do Hub.
	clients map[*Client]bool

	// Canal para registrar novos clientes.
	register chan *Client

	// Canal para desregistrar clientes.
	unregister chan *Client

	// Frames de entrada, vindos das goroutines readLoop dos clientes.
	incoming chan clientMessage

	// O handler da lógica do jogo que processará os eventos.
	handler EventHandler
}

// NewHub cria, inicializa e retorna um novo Hub.
func NewHub(handler EventHandler) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage),
		handler:    handler,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.handler.OnConnect(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Fechar o canal 'send' é o sinal para a writeLoop do
				// cliente parar.
				close(client.send)
				h.handler.OnDisconnect(client)
			}

		case msg := <-h.incoming:
			// O Hub não interpreta o conteúdo: delega para o handler.
			h.handler.OnMessage(msg.client, msg.text)
		}
	}
}
