// Package directory é o diretório de usuários: o registro persistido de quem
// existe, como se chama e se está online.
package directory

import "bolboard/internal/model"

// Directory é a visão que o resto do servidor tem da persistência de usuários.
type Directory interface {
	// FindByUserID retorna o usuário, ou nil se ele não existe.
	FindByUserID(userID string) (*model.User, error)

	// UpsertOnline cria ou atualiza o usuário e o marca como online.
	UpsertOnline(userID, displayName string) (*model.User, error)

	// SearchOnlineByDisplayName busca usuários online cujo nome contém a frase.
	SearchOnlineByDisplayName(phrase string) ([]model.User, error)

	// SetOffline marca o usuário como offline.
	SetOffline(userID string) error
}
