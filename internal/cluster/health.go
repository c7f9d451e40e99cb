package cluster

import (
	"fmt"
	"net/http"
)

// NewBasicHealthHandler retorna um http.HandlerFunc genérico de "liveness
// check": apenas confirma que o processo está rodando e respondendo.
func NewBasicHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Service is alive.")
	}
}
