// Package cluster registra o servidor no Consul e expõe o health check usado
// pelo registro. O registro é opcional: sem CONSUL_HTTP_ADDR o servidor roda
// sozinho, sem descoberta.
package cluster

import (
	"fmt"
	"log"
	"os"

	consul "github.com/hashicorp/consul/api"
)

// RegisterService registra este nó no Consul com um health check HTTP.
func RegisterService(client *consul.Client, serviceName string, servicePort int) error {
	// O hostname cria um ID de serviço único por nó.
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	serviceID := fmt.Sprintf("%s-%s", serviceName, hostname)

	registration := &consul.AgentServiceRegistration{
		ID:   serviceID,
		Name: serviceName,
		Port: servicePort,

		Check: &consul.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%d/healthz", hostname, servicePort),
			Timeout:  "5s",
			Interval: "10s",
			// Desregistra automaticamente o serviço se ele ficar em estado
			// crítico por mais de 1 minuto.
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("registrando serviço no Consul: %w", err)
	}

	log.Printf("[cluster] Serviço '%s' registrado no Consul com ID: %s", serviceName, serviceID)
	return nil
}
