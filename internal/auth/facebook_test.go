package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bolboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGraphServer simula o endpoint de validação: conhece um único token e
// devolve o id do dono dele, ou um corpo de erro para qualquer outro token.
func newGraphServer(t *testing.T, validToken, ownerID string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") == validToken {
			fmt.Fprintf(w, `{"id": %q, "name": "Maria"}`, ownerID)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "Invalid OAuth access token."}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestVerifyValidToken(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")
	verifier := NewFacebookVerifier(server.URL)

	valid, err := verifier.Verify(context.Background(), model.Principal{
		ProviderID:  FacebookProviderID,
		PrincipalID: "123",
		Token:       "good-token",
	})
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVerifyRejectsInvalidToken(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")
	verifier := NewFacebookVerifier(server.URL)

	valid, err := verifier.Verify(context.Background(), model.Principal{
		ProviderID:  FacebookProviderID,
		PrincipalID: "123",
		Token:       "stolen-token",
	})
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyRejectsTokenOfAnotherUser(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")
	verifier := NewFacebookVerifier(server.URL)

	// Token real, mas de outro principal: o id devolvido não bate.
	valid, err := verifier.Verify(context.Background(), model.Principal{
		ProviderID:  FacebookProviderID,
		PrincipalID: "456",
		Token:       "good-token",
	})
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyRejectsWrongProvider(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")
	verifier := NewFacebookVerifier(server.URL)

	valid, err := verifier.Verify(context.Background(), model.Principal{
		ProviderID:  "twitter",
		PrincipalID: "123",
		Token:       "good-token",
	})
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyReportsUnreachableProvider(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")
	serverURL := server.URL
	server.Close()

	verifier := NewFacebookVerifier(serverURL)

	_, err := verifier.Verify(context.Background(), model.Principal{
		ProviderID:  FacebookProviderID,
		PrincipalID: "123",
		Token:       "good-token",
	})
	assert.Error(t, err)
}

func TestRegistryDispatchesByProvider(t *testing.T) {
	server := newGraphServer(t, "good-token", "123")

	registry := NewRegistry()
	registry.Register(FacebookProviderID, NewFacebookVerifier(server.URL))

	valid, err := registry.Verify(context.Background(), model.Principal{
		ProviderID:  FacebookProviderID,
		PrincipalID: "123",
		Token:       "good-token",
	})
	require.NoError(t, err)
	assert.True(t, valid)

	// Provedor desconhecido não é erro, é token inválido.
	valid, err = registry.Verify(context.Background(), model.Principal{
		ProviderID:  "orkut",
		PrincipalID: "123",
		Token:       "good-token",
	})
	require.NoError(t, err)
	assert.False(t, valid)
}
