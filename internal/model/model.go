// Package model reúne os tipos de valor que circulam entre os componentes.
package model

import "fmt"

// Chaves usadas pelo SessionStore do lado HTTP para persistir a sessão do
// cliente entre requisições.
const (
	UserIDKey    = "userId"
	SessionIDKey = "sessionId"
)

// ActiveSession é o par imutável (userId, sessionId) criado pelo
// CreateSessionFlow e guardado no cache de sessões. Igualdade pelos dois campos.
type ActiveSession struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// Principal é a identidade vinda do provedor OAuth, antes de virar usuário.
type Principal struct {
	ProviderID  string `json:"providerId"`
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

// Username monta o identificador único do usuário: "<providerId>:<principalId>".
func (p Principal) Username() string {
	return fmt.Sprintf("%s:%s", p.ProviderID, p.PrincipalID)
}

// User é o registro persistido no diretório de usuários.
type User struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Online      bool   `json:"online"`
}

// SearchResult embrulha a lista de usuários devolvida por uma busca.
type SearchResult struct {
	SearchResult []User `json:"searchResult"`
}
