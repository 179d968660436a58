// Package registry handles bridge registration and token lifecycle
// against the brwse registry service.
package registry

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/config"
)

var (
	ErrNoToken            = errors.New("no token available")
	ErrInvalidTokenFormat = errors.New("invalid token format from server")
)

// Token is the credential pair issued by the registry.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims are the JWT claims the registry signs into access tokens.
type Claims struct {
	jwt.RegisteredClaims
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Client registers the bridge with the registry and keeps its token
// fresh. Safe for concurrent use.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	publicKey       *rsa.PublicKey
	refreshInterval time.Duration
	refreshLeeway   time.Duration
	logger          *common.Logger

	mu    sync.RWMutex
	token *Token
}

// NewClient creates a registry client. publicKey may be nil when token
// validation is not needed. refreshInterval is the idle poll period used
// while no token is held; refreshLeeway is how long before expiry a token
// is refreshed.
func NewClient(endpoint string, publicKey *rsa.PublicKey, refreshInterval, refreshLeeway time.Duration, logger *common.Logger) *Client {
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	if refreshLeeway <= 0 {
		refreshLeeway = 30 * time.Second
	}
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &Client{
		endpoint:        strings.TrimRight(endpoint, "/"),
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		publicKey:       publicKey,
		refreshInterval: refreshInterval,
		refreshLeeway:   refreshLeeway,
		logger:          logger,
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) (*tokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}
	if tr.AccessToken == "" || tr.ExpiresAt.IsZero() {
		return nil, ErrInvalidTokenFormat
	}
	return &tr, nil
}

// Register exchanges the bridge token for an access/refresh token pair.
func (c *Client) Register(ctx context.Context, brToken string) error {
	tr, err := c.post(ctx, "/v1/bridges/register", map[string]string{"br_token": brToken})
	if err != nil {
		return err
	}
	c.setToken(tr)
	c.logger.Info().Str("expires_at", tr.ExpiresAt.Format(time.RFC3339)).Msg("registered with registry")
	return nil
}

// Refresh exchanges the current token pair for a new one.
func (c *Client) Refresh(ctx context.Context) error {
	current := c.GetToken()
	if current == nil {
		return ErrNoToken
	}
	tr, err := c.post(ctx, "/v1/bridges/refresh", map[string]string{
		"access_token":  current.AccessToken,
		"refresh_token": current.RefreshToken,
	})
	if err != nil {
		return err
	}
	c.setToken(tr)
	return nil
}

func (c *Client) setToken(tr *tokenResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    tr.ExpiresAt,
	}
}

// GetToken returns a copy of the current token, or nil before Register.
func (c *Client) GetToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return nil
	}
	t := *c.token
	return &t
}

// ValidateToken verifies a token's signature against the registry public
// key and returns its claims.
func (c *Client) ValidateToken(tokenString string) (*Claims, error) {
	if c.publicKey == nil {
		return nil, errors.New("no registry public key configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claims, nil
}

// RunRefreshLoop refreshes the token shortly before expiry until ctx is
// cancelled. Run it in its own goroutine.
func (c *Client) RunRefreshLoop(ctx context.Context) {
	for {
		var sleep time.Duration
		now := time.Now()

		if token := c.GetToken(); token != nil {
			if !token.ExpiresAt.After(now.Add(c.refreshLeeway)) {
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn().Str("error", err.Error()).Msg("failed to refresh token")
				}
			}
			if token = c.GetToken(); token != nil && token.ExpiresAt.After(now) {
				checkpoint := token.ExpiresAt.Add(-c.refreshLeeway)
				if checkpoint.After(now) {
					sleep = checkpoint.Sub(now)
				} else {
					sleep = 10 * time.Second
				}
			} else {
				sleep = c.refreshInterval
			}
		} else {
			sleep = c.refreshInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// Setup builds a client from config, registers, and starts the refresh
// loop. Returns nil when no bridge token is configured.
func Setup(ctx context.Context, cfg config.RegistryConfig, logger *common.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, nil
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse registry public key: %w", err)
		}
		publicKey = key
	}

	interval := time.Duration(cfg.RefreshIntervalSeconds) * time.Second
	leeway := time.Duration(cfg.RefreshLeewaySeconds) * time.Second
	client := NewClient(cfg.Endpoint, publicKey, interval, leeway, logger)
	if err := client.Register(ctx, cfg.Token); err != nil {
		return nil, fmt.Errorf("failed to register bridge: %w", err)
	}
	go client.RunRefreshLoop(ctx)
	return client, nil
}
