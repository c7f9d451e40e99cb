package api

import (
	"net/http"
	"net/url"
)

// SessionStore é a superfície chave/valor usada para persistir a sessão do
// cliente entre requisições HTTP. O Dispatcher escreve nela uma única vez, no
// create-session bem sucedido.
type SessionStore interface {
	Put(w http.ResponseWriter, key, value string)
	Get(r *http.Request, key string) string
}

// CookieSessionStore guarda os valores em cookies da resposta.
type CookieSessionStore struct{}

func NewCookieSessionStore() *CookieSessionStore {
	return &CookieSessionStore{}
}

func (s *CookieSessionStore) Put(w http.ResponseWriter, key, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
	})
}

func (s *CookieSessionStore) Get(r *http.Request, key string) string {
	cookie, err := r.Cookie(key)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return value
}
