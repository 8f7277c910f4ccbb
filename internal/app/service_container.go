// Package app wires configuration, storage, clients and services into
// a running application.
package app

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"paylink-backend/internal/clients"
	"paylink-backend/internal/config"
	"paylink-backend/internal/db"
	"paylink-backend/internal/events"
	"paylink-backend/internal/repository"
	"paylink-backend/internal/services"
	"paylink-backend/internal/signing"
)

// ServiceContainer holds every long-lived component of the service.
type ServiceContainer struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Repositories
	TokenRepo  repository.TokenRepository
	WalletRepo repository.WalletRepository

	// Request signing
	Signer *signing.Signer

	// Oracle clients
	SessionClient  *clients.SessionClient
	SafeClient     *clients.SafeClient
	ExternalClient *clients.ExternalClient

	// Events
	Publisher *events.Publisher
	EventHub  *services.EventHub

	// Core services
	PaymentService *services.PaymentService
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once from the global
// configuration. db.InitDB must have run first.
func InitializeContainer(logger *logrus.Logger) (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		cfg := config.AppConfig
		if cfg == nil {
			initErr = fmt.Errorf("configuration not loaded")
			return
		}

		container := &ServiceContainer{
			DB:     db.DB,
			Logger: logger,
		}

		container.TokenRepo = repository.NewTokenRepository(db.DB)
		container.WalletRepo = repository.NewWalletRepository(db.DB)

		if err := container.initSigning(cfg); err != nil {
			initErr = fmt.Errorf("failed to initialize request signing: %w", err)
			return
		}
		container.initClients(cfg)

		publisher, err := events.NewPublisher(cfg.NATS, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize event publisher: %w", err)
			return
		}
		container.Publisher = publisher
		container.EventHub = services.NewEventHub(logger)

		container.PaymentService = services.NewPaymentService(
			container.TokenRepo,
			container.WalletRepo,
			container.SafeClient,
			container.SafeClient,
			container.ExternalClient,
			container.Publisher,
			container.EventHub,
			logger,
		)

		Container = container
		logger.Info("Service container initialized")
	})

	return Container, initErr
}

// initSigning decodes the Ed25519 seed and builds the request signer
// backed by the session key service.
func (c *ServiceContainer) initSigning(cfg *config.Config) error {
	seed, err := base64.RawURLEncoding.DecodeString(cfg.Signing.PrivateKeySeed)
	if err != nil {
		return fmt.Errorf("malformed private key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("private key seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	c.SessionClient = clients.NewSessionClient(cfg.Remote.SessionAPIHost, cfg.Remote.Timeout())
	c.Signer = signing.NewSigner(
		cfg.Signing.UserID,
		ed25519.NewKeyFromSeed(seed),
		c.SessionClient,
		signing.NewKeyCache(),
	)
	return nil
}

func (c *ServiceContainer) initClients(cfg *config.Config) {
	timeout := cfg.Remote.Timeout()
	counterparty := cfg.Signing.CounterpartyID
	c.SafeClient = clients.NewSafeClient(cfg.Remote.SafeAPIHost, timeout, c.Signer, counterparty)
	c.ExternalClient = clients.NewExternalClient(cfg.Remote.ExternalAPIHost, timeout, c.Signer, counterparty)
}

// Shutdown releases held connections.
func (c *ServiceContainer) Shutdown() {
	if c.Publisher != nil {
		c.Publisher.Close()
	}
}
