// Package dispatch recebe os comandos de topo do cliente (create-session,
// search, game-request), autentica contra o cache de sessões e delega cada
// pedido a um worker de vida curta, com espera limitada por timeout.
package dispatch

import (
	"errors"
	"log"
	"time"

	"bolboard/internal/auth"
	"bolboard/internal/broker"
	"bolboard/internal/directory"
	"bolboard/internal/model"
	"bolboard/internal/session"
)

var (
	// ErrInvalidToken: o provedor de identidade não reconheceu o token.
	ErrInvalidToken = errors.New("provided oauth token is not valid")

	// ErrUserCreation: a persistência do usuário falhou. A causa vem anexada.
	ErrUserCreation = errors.New("user creation failed")

	// ErrUnknown cobre timeouts e falhas internas. O cliente recebe sempre um
	// erro genérico de servidor, nunca o detalhe.
	ErrUnknown = errors.New("unknown failure")
)

// Timeouts em três camadas: passo (consultas ao cache, verificação de token),
// worker completo e despacho inteiro do ponto de vista do cliente.
const (
	DefaultStepTimeout     = 3 * time.Second
	DefaultFlowTimeout     = 6 * time.Second
	DefaultDispatchTimeout = 12 * time.Second
)

// dispatcherMessage é a interface das mensagens da mailbox do Dispatcher.
type dispatcherMessage interface {
	isDispatcherMessage()
}

type createSessionCommand struct {
	principal model.Principal
	reply     chan<- sessionResult
}

func (createSessionCommand) isDispatcherMessage() {}

type sessionResult struct {
	session model.ActiveSession
	err     error
}

type searchCommand struct {
	session model.ActiveSession
	content string
	reply   chan<- searchResult
}

func (searchCommand) isDispatcherMessage() {}

type searchResult struct {
	users []model.User
	err   error
}

type gameRequestCommand struct {
	requester model.ActiveSession
	target    string
	reply     chan<- error
}

func (gameRequestCommand) isDispatcherMessage() {}

// Dispatcher é o ator pai de todos os flows de vida curta. A mailbox é
// consumida uma mensagem por vez; o trabalho pesado acontece nos workers.
type Dispatcher struct {
	sessions  *session.Cache
	directory directory.Directory
	verifiers *auth.Registry
	broker    broker.Broker

	stepTimeout     time.Duration
	flowTimeout     time.Duration
	dispatchTimeout time.Duration

	requestCh chan dispatcherMessage
	quit      chan struct{}
}

// NewDispatcher cria o ator e inicia seu loop.
func NewDispatcher(sessions *session.Cache, dir directory.Directory, verifiers *auth.Registry, b broker.Broker) *Dispatcher {
	d := &Dispatcher{
		sessions:        sessions,
		directory:       dir,
		verifiers:       verifiers,
		broker:          b,
		stepTimeout:     DefaultStepTimeout,
		flowTimeout:     DefaultFlowTimeout,
		dispatchTimeout: DefaultDispatchTimeout,
		requestCh:       make(chan dispatcherMessage),
		quit:            make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	log.Println("[Dispatcher] Actor iniciado.")
	for {
		select {
		case msg := <-d.requestCh:
			switch cmd := msg.(type) {
			case createSessionCommand:
				go d.handleCreateSession(cmd)
			case searchCommand:
				go d.handleSearch(cmd)
			case gameRequestCommand:
				go d.handleGameRequest(cmd)
			}
		case <-d.quit:
			return
		}
	}
}

// Stop encerra o loop do ator.
func (d *Dispatcher) Stop() {
	close(d.quit)
}

// ============================================================================
// API pública: envia o comando e espera a resposta, limitado pelo timeout de
// despacho. Estourar o timeout vira ErrUnknown, nunca uma falha de negócio.
// ============================================================================

// CreateSession valida o principal, persiste o usuário e cria a sessão.
func (d *Dispatcher) CreateSession(principal model.Principal) (model.ActiveSession, error) {
	reply := make(chan sessionResult, 1)
	d.requestCh <- createSessionCommand{principal: principal, reply: reply}

	select {
	case result := <-reply:
		return result.session, result.err
	case <-time.After(d.dispatchTimeout):
		log.Printf("ERRO: despacho de create-session para %s estourou o timeout", principal.Username())
		return model.ActiveSession{}, ErrUnknown
	}
}

// Search autentica o chamador e busca usuários online pelo nome.
func (d *Dispatcher) Search(caller model.ActiveSession, content string) ([]model.User, error) {
	reply := make(chan searchResult, 1)
	d.requestCh <- searchCommand{session: caller, content: content, reply: reply}

	select {
	case result := <-reply:
		return result.users, result.err
	case <-time.After(d.dispatchTimeout):
		log.Printf("ERRO: despacho de search para %s estourou o timeout", caller.UserID)
		return nil, ErrUnknown
	}
}

// GameRequest autentica o chamador e dispara o convite de jogo. O envio em si
// é assíncrono e at-most-once: a resposta de sucesso é otimista.
func (d *Dispatcher) GameRequest(requester model.ActiveSession, target string) error {
	reply := make(chan error, 1)
	d.requestCh <- gameRequestCommand{requester: requester, target: target, reply: reply}

	select {
	case err := <-reply:
		return err
	case <-time.After(d.dispatchTimeout):
		log.Printf("ERRO: despacho de game-request de %s estourou o timeout", requester.UserID)
		return ErrUnknown
	}
}

// ============================================================================
// Handlers: um por comando, rodando fora da goroutine da mailbox.
// ============================================================================

func (d *Dispatcher) handleCreateSession(cmd createSessionCommand) {
	log.Printf("[Dispatcher] Criação de sessão para %s sendo despachada", cmd.principal.Username())

	flowReply := make(chan sessionResult, 1)
	go d.runCreateSessionFlow(cmd.principal, flowReply)

	select {
	case result := <-flowReply:
		cmd.reply <- result
	case <-time.After(d.flowTimeout):
		log.Printf("ERRO: CreateSessionFlow para %s estourou o timeout", cmd.principal.Username())
		cmd.reply <- sessionResult{err: ErrUnknown}
	}
}

func (d *Dispatcher) handleSearch(cmd searchCommand) {
	log.Printf("[Dispatcher] Busca do usuário %s sendo despachada", cmd.session.UserID)

	if _, err := d.authenticate(cmd.session); err != nil {
		cmd.reply <- searchResult{err: err}
		return
	}

	flowReply := make(chan searchResult, 1)
	go d.runSearchFlow(cmd.session, cmd.content, flowReply)

	select {
	case result := <-flowReply:
		cmd.reply <- result
	case <-time.After(d.flowTimeout):
		log.Printf("ERRO: SearchFlow para %s estourou o timeout", cmd.session.UserID)
		cmd.reply <- searchResult{err: ErrUnknown}
	}
}

func (d *Dispatcher) handleGameRequest(cmd gameRequestCommand) {
	log.Printf("[Dispatcher] Convite de %s para jogar com %s sendo despachado",
		cmd.requester.UserID, cmd.target)

	if _, err := d.authenticate(cmd.requester); err != nil {
		cmd.reply <- err
		return
	}

	// Fire-and-forget: o flow publica sem confirmação e o chamador já recebe
	// sucesso. Falha de publicação é só logada.
	go d.runGameRequestFlow(cmd.requester, cmd.target)
	cmd.reply <- nil
}

// authenticate consulta o cache de sessões com o timeout de passo. Timeout é
// falha desconhecida, não ErrUserNotFound.
func (d *Dispatcher) authenticate(caller model.ActiveSession) (model.ActiveSession, error) {
	type cacheReply struct {
		session model.ActiveSession
		err     error
	}

	reply := make(chan cacheReply, 1)
	go func() {
		s, err := d.sessions.Get(caller.UserID)
		reply <- cacheReply{session: s, err: err}
	}()

	select {
	case r := <-reply:
		return r.session, r.err
	case <-time.After(d.stepTimeout):
		log.Printf("ERRO: consulta ao cache de sessões para %s estourou o timeout", caller.UserID)
		return model.ActiveSession{}, ErrUnknown
	}
}
