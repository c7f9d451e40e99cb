package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"bolboard/internal/model"
)

const (
	// FacebookProviderID é o providerId que os clientes mandam para este verificador.
	FacebookProviderID = "facebook"

	// DefaultFacebookGraphURL é o endpoint de validação do token.
	DefaultFacebookGraphURL = "https://graph.facebook.com/me"

	accessTokenParam = "access_token"
)

// FacebookVerifier valida o token consultando o Graph API: o token é válido se
// o "id" devolvido for o principalId informado pelo cliente.
type FacebookVerifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewFacebookVerifier cria o verificador. baseURL vazio usa o Graph API real;
// os testes apontam para um servidor local.
func NewFacebookVerifier(baseURL string) *FacebookVerifier {
	if baseURL == "" {
		baseURL = DefaultFacebookGraphURL
	}
	return &FacebookVerifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (v *FacebookVerifier) Verify(ctx context.Context, principal model.Principal) (bool, error) {
	log.Printf("[FacebookVerifier] Verificando token do usuário %s", principal.Username())

	validationURL := fmt.Sprintf("%s?%s=%s", v.baseURL, accessTokenParam, url.QueryEscape(principal.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validationURL, nil)
	if err != nil {
		return false, fmt.Errorf("montando requisição de validação: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("consultando provedor de identidade: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decodificando resposta do provedor: %w", err)
	}

	if body.ID == "" {
		return false, nil
	}

	return principal.PrincipalID == body.ID && principal.ProviderID == FacebookProviderID, nil
}
