// Package api expõe os comandos de topo por HTTP: criação de sessão, busca de
// adversários e convite de jogo. A lógica mora no Dispatcher; aqui só ficam a
// (de)serialização e o mapeamento de erros para status HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bolboard/internal/dispatch"
	"bolboard/internal/model"
	"bolboard/internal/session"
)

// DTO do convite de jogo.
type GameRequestPayload struct {
	Target string `json:"target"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	unauthorizedMessage = "Provided token is not valid!"
	unknownMessage      = "Unknown failure"
)

// CreateSessionHandler cria o handler HTTP do create-session. No sucesso, a
// sessão é gravada no SessionStore do chamador e devolvida no corpo.
func CreateSessionHandler(dispatcher *dispatch.Dispatcher, store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var principal model.Principal
		if err := json.NewDecoder(r.Body).Decode(&principal); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		activeSession, err := dispatcher.CreateSession(principal)
		if err != nil {
			if errors.Is(err, dispatch.ErrInvalidToken) {
				writeJSONError(w, http.StatusUnauthorized, "Provided OAuth token is not valid!")
				return
			}
			log.Printf("ERRO: create-session falhou: %v", err)
			writeJSONError(w, http.StatusInternalServerError, unknownMessage)
			return
		}

		store.Put(w, model.UserIDKey, activeSession.UserID)
		store.Put(w, model.SessionIDKey, activeSession.SessionID)

		writeJSON(w, http.StatusOK, activeSession)
	}
}

// SearchHandler cria o handler HTTP da busca de adversários online.
func SearchHandler(dispatcher *dispatch.Dispatcher, store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := loadSession(r, store)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, unauthorizedMessage)
			return
		}

		users, err := dispatcher.Search(caller, r.URL.Query().Get("q"))
		if err != nil {
			if errors.Is(err, session.ErrUserNotFound) {
				writeJSONError(w, http.StatusUnauthorized, unauthorizedMessage)
				return
			}
			log.Printf("ERRO: search falhou: %v", err)
			writeJSONError(w, http.StatusInternalServerError, unknownMessage)
			return
		}

		writeJSON(w, http.StatusOK, model.SearchResult{SearchResult: users})
	}
}

// GameRequestHandler cria o handler HTTP do convite de jogo. A resposta de
// sucesso é otimista: a entrega do convite é assíncrona e at-most-once.
func GameRequestHandler(dispatcher *dispatch.Dispatcher, store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		caller, ok := loadSession(r, store)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, unauthorizedMessage)
			return
		}

		var payload GameRequestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Target == "" {
			writeJSONError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		if err := dispatcher.GameRequest(caller, payload.Target); err != nil {
			if errors.Is(err, session.ErrUserNotFound) {
				writeJSONError(w, http.StatusUnauthorized, unauthorizedMessage)
				return
			}
			log.Printf("ERRO: game-request falhou: %v", err)
			writeJSONError(w, http.StatusInternalServerError, unknownMessage)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// loadSession remonta a ActiveSession a partir do SessionStore da requisição.
func loadSession(r *http.Request, store SessionStore) (model.ActiveSession, bool) {
	userID := store.Get(r, model.UserIDKey)
	sessionID := store.Get(r, model.SessionIDKey)
	if userID == "" || sessionID == "" {
		return model.ActiveSession{}, false
	}
	return model.ActiveSession{UserID: userID, SessionID: sessionID}, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("AVISO: escrita da resposta JSON falhou: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
