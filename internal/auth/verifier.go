// Package auth valida tokens OAuth contra o provedor de identidade de origem.
package auth

import (
	"context"
	"log"

	"bolboard/internal/model"
)

// Verifier valida o token de um principal junto ao provedor correspondente.
type Verifier interface {
	Verify(ctx context.Context, principal model.Principal) (bool, error)
}

// Registry roteia a verificação para o Verifier do providerId. Provedor
// desconhecido resulta em token inválido, nunca em erro.
type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

func (r *Registry) Register(providerID string, verifier Verifier) {
	r.verifiers[providerID] = verifier
}

func (r *Registry) Verify(ctx context.Context, principal model.Principal) (bool, error) {
	verifier, found := r.verifiers[principal.ProviderID]
	if !found {
		log.Printf("AVISO: provedor de identidade desconhecido: %s", principal.ProviderID)
		return false, nil
	}
	return verifier.Verify(ctx, principal)
}
