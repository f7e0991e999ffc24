// Package vault resolves vault:// secret references from HashiCorp Vault.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/blueberrycongee/llmcoach/internal/secret"
)

// Auth methods.
const (
	AuthToken   = "token"
	AuthAppRole = "approle"
	AuthCert    = "cert"
)

// Config holds configuration for the Vault provider.
type Config struct {
	Address    string `yaml:"address"`
	AuthMethod string `yaml:"auth_method"` // token, approle, cert
	Token      string `yaml:"token"`
	RoleID     string `yaml:"role_id"`
	SecretID   string `yaml:"secret_id"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Provider reads KV secrets. Login tokens are renewed in the background
// until Close.
type Provider struct {
	client *vault.Client
	logger *slog.Logger
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New logs in to Vault.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	vConfig := vault.DefaultConfig()
	vConfig.Address = cfg.Address

	if cfg.ClientCert != "" || cfg.ClientKey != "" || cfg.CACert != "" {
		tlsConfig := &vault.TLSConfig{
			ClientCert: cfg.ClientCert,
			ClientKey:  cfg.ClientKey,
			CACert:     cfg.CACert,
		}
		if err := vConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("configure tls: %w", err)
		}
	}

	client, err := vault.NewClient(vConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	p := &Provider{
		client: client,
		logger: logger.With("component", "vault"),
		stopCh: make(chan struct{}),
	}

	var login *vault.Secret
	switch cfg.AuthMethod {
	case AuthToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("vault auth_method token requires a token")
		}
		client.SetToken(cfg.Token)
		return p, nil
	case AuthCert:
		login, err = client.Logical().WriteWithContext(ctx, "auth/cert/login", nil)
	case AuthAppRole, "":
		if cfg.RoleID == "" {
			return nil, fmt.Errorf("vault auth_method approle requires role_id")
		}
		login, err = client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
	default:
		return nil, fmt.Errorf("unknown vault auth method %q", cfg.AuthMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("vault login (%s): %w", cfg.AuthMethod, err)
	}
	if login == nil || login.Auth == nil {
		return nil, fmt.Errorf("vault login returned no auth info")
	}

	client.SetToken(login.Auth.ClientToken)
	if login.Auth.Renewable {
		p.wg.Add(1)
		go p.renewToken(login.Auth)
	}
	return p, nil
}

// Get reads "path/to/secret#key". The key defaults to "value"; KV v2
// payloads are unwrapped.
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	secretPath, key := path, "value"
	if idx := strings.LastIndex(path, "#"); idx != -1 {
		secretPath, key = path[:idx], path[idx+1:]
	}

	s, err := p.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("read vault secret %q: %w", secretPath, err)
	}
	if s == nil || s.Data == nil {
		return "", fmt.Errorf("vault secret %q: %w", secretPath, secret.ErrNotFound)
	}

	data := s.Data
	if v, ok := data["data"]; ok {
		if nested, ok := v.(map[string]any); ok {
			data = nested
		}
	}
	val, ok := data[key]
	if !ok || val == nil {
		return "", fmt.Errorf("key %q in vault secret %q: %w", key, secretPath, secret.ErrNotFound)
	}
	return fmt.Sprintf("%v", val), nil
}

// Close stops the token renewer.
func (p *Provider) Close() error {
	p.once.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	return nil
}

func (p *Provider) renewToken(auth *vault.SecretAuth) {
	defer p.wg.Done()

	watcher, err := p.client.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret: &vault.Secret{Auth: auth},
	})
	if err != nil {
		p.logger.Warn("vault token renewal disabled", "error", err)
		return
	}

	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case err := <-watcher.DoneCh():
			if err != nil {
				p.logger.Error("vault token renewal stopped", "error", err)
			}
			return
		case <-watcher.RenewCh():
			p.logger.Debug("vault token renewed")
		}
	}
}
