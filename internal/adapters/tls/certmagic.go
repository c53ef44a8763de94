// Package tls provides automatic certificates for the HTTP API using
// CertMagic.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"

	"github.com/jobrunner/georef/internal/domain"
)

// Config holds TLS configuration.
type Config struct {
	Domains  []string
	Email    string
	CacheDir string
	Staging  bool // Use Let's Encrypt staging environment
	DNS      *DNSConfig
}

// DNSConfig holds Azure DNS provider configuration for DNS-01 challenges.
type DNSConfig struct {
	SubscriptionID    string
	ResourceGroupName string
	ClientID          string // User Assigned Managed Identity client ID (optional)
}

// Manager obtains and renews the certificates of the configured domains.
type Manager struct {
	config    Config
	logger    *slog.Logger
	tlsConfig *tls.Config
}

// NewManager configures CertMagic for cfg. Without a DNS config the
// HTTP-01 and TLS-ALPN-01 challenges are used.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if len(cfg.Domains) == 0 {
		return nil, &domain.ConfigError{Field: "tls.domains", Message: "TLS enabled but no domains specified"}
	}
	if cfg.Email == "" {
		return nil, &domain.ConfigError{Field: "tls.email", Message: "TLS enabled but no email specified"}
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = cfg.Email

	if cfg.Staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	if cfg.CacheDir != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}

	if cfg.DNS != nil {
		certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
			DNSManager: certmagic.DNSManager{
				DNSProvider: azureProvider(*cfg.DNS),
			},
		}
	}

	tlsConfig, err := certmagic.TLS(cfg.Domains)
	if err != nil {
		return nil, fmt.Errorf("configuring TLS: %w", err)
	}
	// the HTTP API is served over h2 and http/1.1 next to the ACME protocol
	tlsConfig.NextProtos = append([]string{"h2", "http/1.1"}, tlsConfig.NextProtos...)

	return &Manager{
		config:    cfg,
		logger:    logger,
		tlsConfig: tlsConfig,
	}, nil
}

func azureProvider(cfg DNSConfig) *azure.Provider {
	return &azure.Provider{
		SubscriptionId:    cfg.SubscriptionID,
		ResourceGroupName: cfg.ResourceGroupName,
		ClientId:          cfg.ClientID, // Empty = System Assigned Managed Identity
	}
}

// TLSConfig returns the TLS configuration for the HTTP server.
func (m *Manager) TLSConfig() *tls.Config {
	return m.tlsConfig
}

// Domains returns the managed domains.
func (m *Manager) Domains() []string {
	return m.config.Domains
}

// ManageCertificates pre-obtains certificates for the configured domains
// and keeps renewing them in the background.
func (m *Manager) ManageCertificates(ctx context.Context) error {
	m.logger.Info("obtaining certificates",
		"domains", m.config.Domains,
		"dns01", m.config.DNS != nil,
	)

	if err := certmagic.ManageSync(ctx, m.config.Domains); err != nil {
		return fmt.Errorf("managing certificates: %w", err)
	}

	m.logger.Info("certificates obtained successfully")
	return nil
}
