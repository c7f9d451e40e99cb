// bolboard/cmd/client/main.go
package main

import (
	"bufio"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"bolboard/internal/protocol"

	"github.com/gorilla/websocket"
)

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}
	userID := os.Getenv("USER_ID")
	sessionID := os.Getenv("SESSION_ID")
	if userID == "" || sessionID == "" {
		log.Fatalf("Defina USER_ID e SESSION_ID (obtidos via POST /session) antes de conectar.")
	}

	u := url.URL{Scheme: "ws", Host: strings.TrimSpace(addr), Path: "/socket"}
	log.Printf("Conectando a %s", u.String())

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Printf("AVISO: Status da resposta recebida: %s", resp.Status)
		}
		log.Fatalf("Falha ao conectar a %s: %v", addr, err)
	}
	defer conn.Close()
	log.Println("Conexão WebSocket bem-sucedida!")

	// O primeiro frame autentica a conexão: "<userId>=<sessionId>".
	credentials := userID + "=" + sessionID
	if err := conn.WriteMessage(websocket.TextMessage, []byte(credentials)); err != nil {
		log.Fatalf("Falha ao enviar credenciais: %v", err)
	}

	done := make(chan struct{})
	go readLoop(conn, done)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			handleUserInput(conn, scanner.Text())
		}
	}()

	select {
	case <-done:
		log.Println("Desconectado do servidor.")
	case <-interrupt:
		log.Println("Interrupção recebida, fechando conexão.")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Println("\nConexão fechada normalmente.")
			} else {
				log.Printf("\nErro de leitura: %v", err)
			}
			break
		}
		printServerMessage(string(data))
	}
}

// handleUserInput converte a escolha digitada no frame do protocolo: "1".."6"
// jogam a cova correspondente. O handshake de convite é todo do lado do
// servidor, o cliente só joga.
func handleUserInput(conn *websocket.Conn, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	pit, err := strconv.Atoi(input)
	if err != nil || pit < 1 || pit > 6 {
		fmt.Println("Opção inválida. Digite um número de cova entre 1 e 6.")
		return
	}
	frame := protocol.BuildInstructionMessage(strconv.Itoa(pit))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		log.Printf("Erro ao enviar mensagem: %v", err)
	}
}

func printServerMessage(msg string) {
	switch {
	case msg == protocol.WaitingMessage:
		fmt.Println("\nAguardando um convite de jogo...")
	case msg == protocol.WhoseTurnMessage:
		fmt.Print("\nSua vez! Digite a cova (1-6): ")
	case msg == protocol.NotWhoseTurnMessage:
		fmt.Println("\nVez do oponente, aguarde.")
	case msg == protocol.GameEndMessage:
		fmt.Println("\nFim de jogo!")
	case strings.HasPrefix(msg, protocol.OpponentPrefix+"="):
		fmt.Printf("\nPartida iniciada contra %s!\n", strings.TrimPrefix(msg, protocol.OpponentPrefix+"="))
	case protocol.IsStateMessage(msg):
		printBoard(msg)
	default:
		fmt.Printf("\n%s\n", msg)
	}
}

// printBoard desenha o tabuleiro a partir de um frame "state=...".
func printBoard(msg string) {
	pits, turn, ok := protocol.FetchState(msg)
	if !ok || len(pits) != 14 {
		fmt.Printf("\n%s\n", msg)
		return
	}
	fmt.Println()
	fmt.Printf("  Oponente: %2d %2d %2d %2d %2d %2d\n",
		pits[12], pits[11], pits[10], pits[9], pits[8], pits[7])
	fmt.Printf("[%2d]                        [%2d]\n", pits[13], pits[6])
	fmt.Printf("  Você:     %2d %2d %2d %2d %2d %2d\n",
		pits[0], pits[1], pits[2], pits[3], pits[4], pits[5])
	if turn {
		fmt.Println("  (sua vez)")
	}
}
