package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"bolboard/internal/api"
	"bolboard/internal/auth"
	"bolboard/internal/broker"
	"bolboard/internal/cluster"
	"bolboard/internal/directory"
	"bolboard/internal/dispatch"
	"bolboard/internal/network"
	"bolboard/internal/session"
	"bolboard/internal/socket"
)

// ============================================================================
// Constantes de Configuração Padrão
// ============================================================================
const (
	defaultServiceName = "bolboard"
	defaultServerAddr  = ":9000"
	defaultNATSURL     = "nats://localhost:4222"
	defaultDBPath      = "bolboard.db"
	defaultSessionTTL  = "10m"
)

// ============================================================================
// Lógica de Configuração
// ============================================================================

// Config armazena todas as configurações da aplicação.
type Config struct {
	ServiceName string
	ServerAddr  string
	NATSURL     string
	DBPath      string
	SessionTTL  time.Duration
	ConsulAddr  string
	GraphURL    string
}

// loadConfig carrega a configuração a partir de variáveis de ambiente.
func loadConfig() (*Config, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = defaultNATSURL
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	ttlStr := os.Getenv("SESSION_TTL")
	if ttlStr == "" {
		ttlStr = defaultSessionTTL
	}
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("formato de SESSION_TTL inválido: %w", err)
	}

	return &Config{
		ServiceName: serviceName,
		ServerAddr:  serverAddr,
		NATSURL:     natsURL,
		DBPath:      dbPath,
		SessionTTL:  ttl,
		ConsulAddr:  os.Getenv("CONSUL_HTTP_ADDR"),
		GraphURL:    os.Getenv("FACEBOOK_GRAPH_URL"),
	}, nil
}

// ============================================================================
// Função Main
// ============================================================================
func main() {
	// 1. CARREGA A CONFIGURAÇÃO
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("ERRO: configuração inválida: %v", err)
	}

	// 2. ABRE O DIRETÓRIO DE USUÁRIOS
	dir, err := directory.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("ERRO: abertura do diretório de usuários falhou: %v", err)
	}
	defer dir.Close()

	// 3. CONECTA AO BROKER
	// NATS_URL=memory roda com o broker em processo, útil num nó só.
	var msgBroker broker.Broker
	if cfg.NATSURL == "memory" {
		log.Println("AVISO: usando broker em memória, sem NATS")
		msgBroker = broker.NewMemoryBroker()
	} else {
		natsBroker, err := broker.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("ERRO: conexão ao NATS falhou: %v", err)
		}
		defer natsBroker.Close()
		msgBroker = natsBroker
	}

	// 4. CACHE DE SESSÕES, COM EVICTION MARCANDO O USUÁRIO OFFLINE
	sessions := session.NewCache(cfg.SessionTTL, func(userID string) {
		if err := dir.SetOffline(userID); err != nil {
			log.Printf("ERRO: marcar usuário %s como offline falhou: %v", userID, err)
		}
	})

	// 5. VERIFICADORES DE TOKEN
	verifiers := auth.NewRegistry()
	verifiers.Register(auth.FacebookProviderID, auth.NewFacebookVerifier(cfg.GraphURL))

	// 6. DISPATCHER DOS COMANDOS DE TOPO
	dispatcher := dispatch.NewDispatcher(sessions, dir, verifiers, msgBroker)

	// 7. CAMADA DE REDE: UM HANDLER POR CONEXÃO WEBSOCKET
	manager := socket.NewManager(sessions, dir, msgBroker)
	server := network.NewServer(manager)
	server.Run()

	// 8. ROTAS HTTP
	store := api.NewCookieSessionStore()
	mux := http.NewServeMux()
	mux.HandleFunc("/socket", server.WebsocketHandler())
	mux.HandleFunc("/session", api.CreateSessionHandler(dispatcher, store))
	mux.HandleFunc("/search", api.SearchHandler(dispatcher, store))
	mux.HandleFunc("/game-request", api.GameRequestHandler(dispatcher, store))
	mux.HandleFunc("/healthz", cluster.NewBasicHealthHandler())

	// 9. REGISTRO NO CONSUL (OPCIONAL)
	if cfg.ConsulAddr != "" {
		consulClient, err := cluster.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			log.Fatalf("ERRO: conexão ao Consul falhou: %v", err)
		}
		port := servicePort(cfg.ServerAddr)
		if err := cluster.RegisterService(consulClient, cfg.ServiceName, port); err != nil {
			log.Fatalf("ERRO: registro no Consul falhou: %v", err)
		}
	}

	log.Printf("Servidor escutando em %s (websocket em ws://%s/socket)", cfg.ServerAddr, cfg.ServerAddr)
	if err := http.ListenAndServe(cfg.ServerAddr, mux); err != nil {
		log.Fatalf("ERRO: servidor HTTP encerrou: %v", err)
	}
}

// servicePort extrai a porta de um endereço "host:porta".
func servicePort(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, err := strconv.Atoi(addr[i+1:])
			if err == nil {
				return port
			}
			break
		}
	}
	return 0
}
