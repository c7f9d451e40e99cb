package dispatch

import (
	"context"
	"fmt"
	"log"

	"bolboard/internal/model"
	"bolboard/internal/protocol"

	"github.com/google/uuid"
)

// Os três flows são workers de vida curta: cada um atende exatamente um pedido
// de ponta a ponta, dá exatamente uma resposta (quando há resposta) e morre.

// runCreateSessionFlow valida o token OAuth, persiste o usuário como online e
// registra uma sessão nova no cache.
func (d *Dispatcher) runCreateSessionFlow(principal model.Principal, reply chan<- sessionResult) {
	flowID := uuid.NewString()
	log.Printf("[CreateSessionFlow %s] Iniciado para %s", flowID, principal.Username())

	// 1. Verificação do token junto ao provedor. Erro de verificação conta
	// como token inválido: o chamador não distingue os dois casos.
	ctx, cancel := context.WithTimeout(context.Background(), d.stepTimeout)
	defer cancel()

	valid, err := d.verifiers.Verify(ctx, principal)
	if err != nil {
		log.Printf("AVISO: [CreateSessionFlow %s] verificação do token de %s falhou: %v",
			flowID, principal.Username(), err)
		reply <- sessionResult{err: ErrInvalidToken}
		return
	}
	if !valid {
		log.Printf("[CreateSessionFlow %s] Token de %s não é válido", flowID, principal.Username())
		reply <- sessionResult{err: ErrInvalidToken}
		return
	}

	// 2. Upsert do usuário, marcado como online.
	user, err := d.directory.UpsertOnline(principal.Username(), principal.DisplayName)
	if err != nil {
		log.Printf("ERRO: [CreateSessionFlow %s] persistência do usuário %s falhou: %v",
			flowID, principal.Username(), err)
		reply <- sessionResult{err: fmt.Errorf("%w: %v", ErrUserCreation, err)}
		return
	}

	// 3. Sessão nova no cache. Last write wins: uma sessão anterior do mesmo
	// usuário é simplesmente sobrescrita.
	sessionID := uuid.NewString()
	stored := d.sessions.Put(model.ActiveSession{UserID: user.UserID, SessionID: sessionID})

	log.Printf("[CreateSessionFlow %s] Sessão criada para %s", flowID, user.UserID)
	reply <- sessionResult{session: stored}
}

// runSearchFlow busca usuários online pelo nome e tira o próprio solicitante
// da lista.
func (d *Dispatcher) runSearchFlow(caller model.ActiveSession, content string, reply chan<- searchResult) {
	flowID := uuid.NewString()

	users, err := d.directory.SearchOnlineByDisplayName(content)
	if err != nil {
		log.Printf("ERRO: [SearchFlow %s] busca por %q falhou: %v", flowID, content, err)
		reply <- searchResult{err: ErrUnknown}
		return
	}

	filtered := make([]model.User, 0, len(users))
	for _, user := range users {
		if user.UserID != caller.UserID {
			filtered = append(filtered, user)
		}
	}

	log.Printf("[SearchFlow %s] Busca por %q teve %d resultados", flowID, content, len(filtered))
	reply <- searchResult{users: filtered}
}

// runGameRequestFlow publica o convite no destino do alvo, uma vez só, sem
// esperar confirmação. Falha aqui é engolida: o chamador já recebeu sucesso.
func (d *Dispatcher) runGameRequestFlow(requester model.ActiveSession, target string) {
	flowID := uuid.NewString()

	message := protocol.BuildGameRequestMessage(requester.UserID)
	if err := d.broker.Publish(target, []byte(message)); err != nil {
		log.Printf("ERRO: [GameRequestFlow %s] publicação do convite para %s falhou: %v",
			flowID, target, err)
		return
	}

	log.Printf("[GameRequestFlow %s] Mensagem %q publicada para %s", flowID, message, target)
}
