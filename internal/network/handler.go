package network

// EventHandler é a interface que conecta a camada de rede com a lógica do
// jogo. O pacote socket implementa esta interface.
type EventHandler interface {
	// OnConnect é chamado quando um novo cliente se conecta com sucesso.
	OnConnect(c *Client)

	// OnDisconnect é chamado quando um cliente se desconecta.
	OnDisconnect(c *Client)

	// OnMessage é chamado a cada frame de texto recebido de um cliente.
	OnMessage(c *Client, text string)
}
