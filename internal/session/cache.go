// Package session guarda em memória as sessões ativas (userId -> sessionId).
// Num sistema maior este componente seria um cache distribuído; aqui ele é um
// ator único que responde às consultas de autenticação de todo o servidor.
package session

import (
	"errors"
	"log"
	"time"

	"bolboard/internal/model"
)

// ErrUserNotFound indica que o usuário não tem sessão viva no cache (nunca
// criou, ou a sessão expirou por inatividade).
var ErrUserNotFound = errors.New("user not found in session cache")

// DefaultTTL é a janela de inatividade padrão de uma sessão.
const DefaultTTL = 10 * time.Minute

// EvictionCallback é invocado quando uma sessão expira. O servidor usa isso
// para marcar o usuário como offline no diretório, em vez de espalhar esse
// efeito colateral pelo resto do código.
type EvictionCallback func(userID string)

type cacheEntry struct {
	sessionID  string
	expiration time.Time
}

// cacheMessage é a interface que todas as mensagens para o ator implementam.
type cacheMessage interface {
	isCacheMessage()
}

type putRequest struct {
	session model.ActiveSession
	reply   chan<- model.ActiveSession
}

func (putRequest) isCacheMessage() {}

type getRequest struct {
	userID string
	reply  chan<- getResult
}

func (getRequest) isCacheMessage() {}

type getResult struct {
	session model.ActiveSession
	err     error
}

// Cache é o ator dono do mapa de sessões. Todo acesso passa pela mailbox,
// então o estado interno nunca precisa de lock.
type Cache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	onEvict EvictionCallback

	requestCh chan cacheMessage
	quit      chan struct{}
}

// NewCache cria o ator e inicia seu loop. onEvict pode ser nil.
func NewCache(ttl time.Duration, onEvict EvictionCallback) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries:   make(map[string]cacheEntry),
		ttl:       ttl,
		onEvict:   onEvict,
		requestCh: make(chan cacheMessage),
		quit:      make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Cache) run() {
	// O sweeper só existe para sessões que ninguém consulta mais: um Get em
	// entrada vencida também conta como eviction.
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.requestCh:
			switch req := msg.(type) {
			case putRequest:
				log.Printf("[SessionCache] Sessão do usuário %s adicionada ao cache", req.session.UserID)
				c.entries[req.session.UserID] = cacheEntry{
					sessionID:  req.session.SessionID,
					expiration: time.Now().Add(c.ttl),
				}
				req.reply <- req.session

			case getRequest:
				entry, found := c.entries[req.userID]
				if !found {
					req.reply <- getResult{err: ErrUserNotFound}
					continue
				}
				if time.Now().After(entry.expiration) {
					c.evict(req.userID)
					req.reply <- getResult{err: ErrUserNotFound}
					continue
				}

				// Expiração deslizante: consultar a sessão a mantém viva.
				entry.expiration = time.Now().Add(c.ttl)
				c.entries[req.userID] = entry

				log.Printf("[SessionCache] Sessão do usuário %s carregada do cache", req.userID)
				req.reply <- getResult{session: model.ActiveSession{
					UserID:    req.userID,
					SessionID: entry.sessionID,
				}}
			}

		case <-ticker.C:
			now := time.Now()
			for userID, entry := range c.entries {
				if now.After(entry.expiration) {
					c.evict(userID)
				}
			}

		case <-c.quit:
			return
		}
	}
}

func (c *Cache) evict(userID string) {
	log.Printf("[SessionCache] Sessão do usuário %s expirou por inatividade", userID)
	delete(c.entries, userID)
	if c.onEvict != nil {
		// O callback toca o diretório de usuários (I/O). Sai da goroutine do
		// ator para não segurar a mailbox.
		go c.onEvict(userID)
	}
}

// Put insere ou sobrescreve a sessão do usuário (last write wins) e retorna a
// sessão armazenada.
func (c *Cache) Put(session model.ActiveSession) model.ActiveSession {
	reply := make(chan model.ActiveSession, 1)
	c.requestCh <- putRequest{session: session, reply: reply}
	return <-reply
}

// Get retorna a sessão viva do usuário ou ErrUserNotFound.
func (c *Cache) Get(userID string) (model.ActiveSession, error) {
	reply := make(chan getResult, 1)
	c.requestCh <- getRequest{userID: userID, reply: reply}
	result := <-reply
	return result.session, result.err
}

// Stop encerra o loop do ator.
func (c *Cache) Stop() {
	close(c.quit)
}
