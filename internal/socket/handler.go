// Package socket implementa o ConnectionHandler: a máquina de estados que
// transforma o fluxo assíncrono de mensagens do cliente e do broker numa
// sessão de jogo correta. Existe exatamente um Handler por conexão viva, e só
// ele lê e escreve o próprio estado.
package socket

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"bolboard/internal/broker"
	"bolboard/internal/directory"
	"bolboard/internal/game"
	"bolboard/internal/model"
	"bolboard/internal/protocol"
)

// ErrAuthTimeout indica que o cache de sessões não respondeu dentro do timeout
// de passo. Para a conexão, equivale a falha de autenticação.
var ErrAuthTimeout = errors.New("session cache lookup timed out")

const (
	// Quanto tempo esperar pelo "start" do adversário antes de desistir do
	// handshake e voltar a esperar convites.
	gameStartTimeout = 15 * time.Second

	// Janela de inatividade durante a partida. Estourar desfaz a partida.
	gameMoveTimeout = 5 * time.Minute

	// Timeout da consulta ao cache de sessões na autenticação.
	authStepTimeout = 3 * time.Second

	// Tamanho da mailbox do handler. Estourar descarta o evento.
	eventBuffer = 32
)

// connState enumera os estados da conexão. As transições acontecem somente na
// goroutine do handler.
type connState int

const (
	stateUnauthenticated connState = iota
	stateWaitingForAuth
	stateWaitingForRequestOrAccept
	stateWaitingForGameStart
	stateGaming
	stateStopped
)

func (s connState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateWaitingForAuth:
		return "waiting-for-auth"
	case stateWaitingForRequestOrAccept:
		return "waiting-for-request-or-accept"
	case stateWaitingForGameStart:
		return "waiting-for-game-start"
	case stateGaming:
		return "gaming"
	case stateStopped:
		return "stopped"
	}
	return "unknown"
}

// SessionLoader é a visão do handler sobre o cache de sessões.
type SessionLoader interface {
	Get(userID string) (model.ActiveSession, error)
}

// event é a interface dos eventos da mailbox do handler.
type event interface {
	isEvent()
}

// clientFrame é um frame de texto vindo do websocket.
type clientFrame struct{ text string }

func (clientFrame) isEvent() {}

// brokerFrame é uma entrega do broker, já confirmada (ack) pelo consumidor.
type brokerFrame struct{ text string }

func (brokerFrame) isEvent() {}

// authResult é a resposta assíncrona do cache de sessões.
type authResult struct {
	session model.ActiveSession
	err     error
}

func (authResult) isEvent() {}

// timerFired carrega a geração do timer para ignorar disparos obsoletos.
type timerFired struct{ gen int }

func (timerFired) isEvent() {}

// stopRequest pede o encerramento do handler (desconexão do cliente).
type stopRequest struct{}

func (stopRequest) isEvent() {}

// Handler é o ator de uma conexão. Todo o estado abaixo é exclusivo da
// goroutine de Run; os outros componentes só falam com ele pela mailbox.
type Handler struct {
	out       chan<- string
	sessions  SessionLoader
	directory directory.Directory
	broker    broker.Broker

	events chan event

	state          connState
	session        model.ActiveSession
	sub            broker.Subscription
	opponentUserID string
	playing        bool
	game           *game.Game

	timer    *time.Timer
	timerGen int
}

// NewHandler cria o handler de uma conexão. out é o canal de frames para o
// cliente (o canal de envio do websocket).
func NewHandler(out chan<- string, sessions SessionLoader, dir directory.Directory, b broker.Broker) *Handler {
	return &Handler{
		out:       out,
		sessions:  sessions,
		directory: dir,
		broker:    b,
		events:    make(chan event, eventBuffer),
		state:     stateUnauthenticated,
	}
}

// Run consome a mailbox até o handler parar. Deve rodar na própria goroutine.
func (h *Handler) Run() {
	for ev := range h.events {
		h.handleEvent(ev)
		if h.state == stateStopped {
			return
		}
	}
}

// HandleClientMessage entrega um frame do cliente à mailbox.
func (h *Handler) HandleClientMessage(text string) {
	h.enqueue(clientFrame{text: text})
}

// Stop pede o encerramento do handler.
func (h *Handler) Stop() {
	h.enqueue(stopRequest{})
}

// enqueue nunca bloqueia: handler parado ou mailbox cheia descartam o evento,
// coerente com o contrato at-most-once do resto do protocolo.
func (h *Handler) enqueue(ev event) {
	select {
	case h.events <- ev:
	default:
		log.Printf("AVISO: mailbox do handler cheia, evento descartado")
	}
}

// ============================================================================
// Despacho por estado
// ============================================================================

func (h *Handler) handleEvent(ev event) {
	if _, ok := ev.(stopRequest); ok {
		h.stop()
		return
	}

	switch h.state {
	case stateUnauthenticated:
		if frame, ok := ev.(clientFrame); ok {
			h.handleCredentials(frame.text)
		}

	case stateWaitingForAuth:
		result, ok := ev.(authResult)
		if !ok {
			log.Printf("AVISO: mensagem inesperada durante autenticação, encerrando conexão")
			h.stop()
			return
		}
		if result.err != nil {
			log.Printf("AVISO: autenticação do usuário %s falhou: %v", h.session.UserID, result.err)
			h.stop()
			return
		}
		h.session = result.session
		if err := h.consumeOwnDestination(); err != nil {
			log.Printf("ERRO: criação e consumo da assinatura falharam: %v", err)
			h.stop()
			return
		}
		h.state = stateWaitingForRequestOrAccept

	case stateWaitingForRequestOrAccept:
		if text, ok := h.textOf(ev); ok {
			switch {
			case protocol.IsGameRequestMessage(text):
				h.handleGameRequest(text)
			case protocol.IsGameAcceptedMessage(text):
				h.handleGameAccepted(text)
			}
		}

	case stateWaitingForGameStart:
		if text, ok := h.textOf(ev); ok && protocol.IsGameStartMessage(text) {
			h.handleGameStart(text)
			return
		}
		if fired, ok := ev.(timerFired); ok && fired.gen == h.timerGen {
			log.Printf("[Handler] Usuário %s não recebeu start a tempo", h.session.UserID)
			h.waitForGameRequest()
		}

	case stateGaming:
		if fired, ok := ev.(timerFired); ok {
			if fired.gen != h.timerGen {
				return
			}
			log.Printf("[Handler] Partida de %s expirou por inatividade", h.session.UserID)
			h.pushToMQ(protocol.BuildRejectMessage(h.session.UserID), h.opponentUserID)
			h.waitForGameRequest()
			return
		}
		if text, ok := h.textOf(ev); ok {
			// Qualquer mensagem da partida renova a janela de inatividade.
			h.armTimeout(gameMoveTimeout)
			switch {
			case protocol.IsGameRejectedMessage(text):
				h.waitForGameRequest()
			case protocol.IsGameInstructionMessage(text):
				h.handleGameInstruction(text)
			}
		}
	}
}

// textOf extrai o texto de frames do cliente e do broker. Entregas do broker
// passam pelo filtro de jogo: com partida em andamento, só instruções e
// rejeições entram; o resto é descartado e logado.
func (h *Handler) textOf(ev event) (string, bool) {
	switch frame := ev.(type) {
	case clientFrame:
		return frame.text, true
	case brokerFrame:
		if h.playing &&
			!protocol.IsGameInstructionMessage(frame.text) &&
			!protocol.IsGameRejectedMessage(frame.text) {
			log.Printf("[Handler] Mensagem %q descartada para %s (playing=%v)",
				frame.text, h.session.UserID, h.playing)
			return "", false
		}
		return frame.text, true
	}
	return "", false
}

// ============================================================================
// Autenticação e assinatura
// ============================================================================

// handleCredentials valida o primeiro frame da conexão: "<userId>=<sessionId>".
// Formato errado encerra a conexão sem nunca consultar o cache.
func (h *Handler) handleCredentials(text string) {
	parts := strings.Split(text, "=")
	if len(parts) != 2 {
		log.Printf("AVISO: primeiro frame malformado, encerrando conexão")
		h.stop()
		return
	}

	h.session = model.ActiveSession{UserID: parts[0], SessionID: parts[1]}
	h.state = stateWaitingForAuth

	log.Printf("[Handler] Sessão %s recebida como primeiro frame da conexão", h.session.UserID)

	// Consulta assíncrona ao cache: a resposta volta como evento da mailbox.
	userID := h.session.UserID
	go func() {
		type reply struct {
			session model.ActiveSession
			err     error
		}
		ch := make(chan reply, 1)
		go func() {
			s, err := h.sessions.Get(userID)
			ch <- reply{session: s, err: err}
		}()

		select {
		case r := <-ch:
			h.enqueue(authResult{session: r.session, err: r.err})
		case <-time.After(authStepTimeout):
			h.enqueue(authResult{err: ErrAuthTimeout})
		}
	}()
}

// consumeOwnDestination assina o destino do próprio usuário no broker e começa
// a repassar as entregas para a mailbox, confirmando cada uma no recebimento.
func (h *Handler) consumeOwnDestination() error {
	sub, err := h.broker.Subscribe(h.session.UserID)
	if err != nil {
		return err
	}
	h.sub = sub

	go func() {
		for delivery := range sub.Deliveries() {
			// Ack imediato, antes do processamento: uma queda no meio perde a
			// mensagem, mas o protocolo se cura por timeout.
			if err := delivery.Ack(); err != nil {
				log.Printf("AVISO: ack da entrega falhou: %v", err)
			}
			text := string(delivery.Body)
			log.Printf("[Handler] Mensagem recebida do broker para %s: %q", h.session.UserID, text)
			h.enqueue(brokerFrame{text: text})
		}
	}()

	return nil
}

// ============================================================================
// Handshake
// ============================================================================

// handleGameRequest aceita um convite: responde accept ao solicitante e fica
// esperando o start dele.
func (h *Handler) handleGameRequest(text string) {
	requester, ok := protocol.FetchRequester(text)
	if !ok {
		return
	}

	h.pushToMQ(protocol.BuildAcceptMessage(h.session.UserID), requester)
	log.Printf("[Handler] Convite de %s aceito por %s", requester, h.session.UserID)

	h.armTimeout(gameStartTimeout)
	h.state = stateWaitingForGameStart
}

// handleGameAccepted fecha o handshake do lado do solicitante: manda o start
// e entra na partida.
func (h *Handler) handleGameAccepted(text string) {
	accepter, ok := protocol.FetchAccepter(text)
	if !ok {
		return
	}

	h.pushToMQ(protocol.BuildStartMessage(h.session.UserID), accepter)
	h.startGame(accepter)
}

func (h *Handler) handleGameStart(text string) {
	starter, ok := protocol.FetchStarter(text)
	if !ok {
		return
	}
	h.startGame(starter)
}

// SeatingFor decide deterministicamente quem começa: o lado com userId
// lexicograficamente menor senta em segundo (turn=false, metade de cima).
// Os dois handlers calculam o mesmo resultado sem nenhuma rodada extra.
func SeatingFor(selfUserID, opponentUserID string) (turn bool, userStartingIndex int) {
	if opponentUserID < selfUserID {
		return false, game.SmallPitsPerUser + 1
	}
	return true, 0
}

// startGame entra no estado Gaming contra o adversário informado. Se o
// registro do adversário sumiu do diretório (desconectou, foi removido), a
// partida não começa e o handler volta a esperar convites.
func (h *Handler) startGame(opponentUserID string) {
	opponent, err := h.directory.FindByUserID(opponentUserID)
	if err != nil || opponent == nil {
		log.Printf("AVISO: adversário %s não encontrado no diretório, partida não iniciada", opponentUserID)
		h.waitForGameRequest()
		return
	}

	h.opponentUserID = opponentUserID
	h.playing = true
	log.Printf("[Handler] Partida entre %s e %s iniciada", h.session.UserID, opponentUserID)

	turn, startingIndex := SeatingFor(h.session.UserID, opponentUserID)
	h.game = game.New(turn, startingIndex)

	h.pushToSocket(protocol.BuildOpponentMessage(opponent.DisplayName))
	h.notifyTurn()

	h.armTimeout(gameMoveTimeout)
	h.state = stateGaming
}

// waitForGameRequest desfaz qualquer partida em andamento e volta ao estado
// seguro de espera por convites.
func (h *Handler) waitForGameRequest() {
	log.Printf("[Handler] Usuário %s voltou a esperar por convites", h.session.UserID)

	h.playing = false
	h.opponentUserID = ""
	h.game = nil
	h.cancelTimeout()

	h.pushToSocket(protocol.WaitingMessage)
	h.state = stateWaitingForRequestOrAccept
}

// ============================================================================
// Partida
// ============================================================================

// handleGameInstruction aplica uma jogada ("##<n>") vinda do cliente local ou
// relayada pelo adversário. Payload não numérico é logado e ignorado.
func (h *Handler) handleGameInstruction(text string) {
	instruction, ok := protocol.FetchInstruction(text)
	if !ok {
		return
	}

	pitIndex, err := strconv.Atoi(instruction)
	if err != nil {
		log.Printf("AVISO: instrução de jogo inválida recebida: %q", text)
		return
	}

	if h.game == nil {
		return
	}

	// Se ainda era a vez do jogador local, a instrução veio dele: relaya o
	// frame intacto para o adversário antes de aplicar.
	if h.game.Turn() {
		h.pushToMQ(text, h.opponentUserID)
	}

	ended := h.game.Move(h.game.Normalized(pitIndex))

	h.pushToSocket(protocol.BuildStateMessage(h.game.State(), h.game.Turn()))

	if ended {
		h.pushToSocket(protocol.GameEndMessage)
	} else {
		h.notifyTurn()
	}
}

func (h *Handler) notifyTurn() {
	if h.game == nil {
		return
	}
	turnMessage := protocol.BuildTurnMessage(h.game.Turn())
	log.Printf("[Handler] Mensagem de vez %q enviada via socket", turnMessage)
	h.pushToSocket(turnMessage)
}

// ============================================================================
// Saída e encerramento
// ============================================================================

func (h *Handler) pushToSocket(message string) {
	select {
	case h.out <- message:
	default:
		log.Printf("AVISO: canal de saída do cliente %s cheio, frame descartado", h.session.UserID)
	}
}

func (h *Handler) pushToMQ(message, destination string) {
	if h.session.UserID == "" {
		return
	}
	if err := h.broker.Publish(destination, []byte(message)); err != nil {
		log.Printf("ERRO: publicação de %q para %s falhou: %v", message, destination, err)
	}
}

// stop encerra o handler a partir de qualquer estado: avisa o adversário para
// não travar a partida dele, fecha a assinatura e marca o usuário offline.
func (h *Handler) stop() {
	if h.state == stateStopped {
		return
	}

	if h.playing {
		log.Printf("[Handler] Encerrando, avisando adversário %s para parar de jogar", h.opponentUserID)
		h.pushToMQ(protocol.BuildRejectMessage(h.session.UserID), h.opponentUserID)
	}

	h.cancelTimeout()

	if h.sub != nil {
		if err := h.sub.Close(); err != nil {
			log.Printf("AVISO: encerramento da assinatura falhou: %v", err)
		}
		h.sub = nil
	}

	h.makeUserOffline()

	h.state = stateStopped
	log.Printf("[Handler] Handler encerrado")
}

func (h *Handler) makeUserOffline() {
	// No momento o sistema não se comporta bem se o usuário usa mais de um
	// navegador ao mesmo tempo.
	if h.session.UserID == "" {
		return
	}
	if err := h.directory.SetOffline(h.session.UserID); err != nil {
		log.Printf("ERRO: marcar usuário %s como offline falhou: %v", h.session.UserID, err)
	}
}

// ============================================================================
// Timer com geração: um disparo que chega depois de uma transição de estado é
// obsoleto e precisa ser ignorado.
// ============================================================================

func (h *Handler) armTimeout(d time.Duration) {
	h.timerGen++
	gen := h.timerGen
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, func() {
		h.enqueue(timerFired{gen: gen})
	})
}

func (h *Handler) cancelTimeout() {
	h.timerGen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
