// Package wasabi is a client for the WasabiCard merchant API. Every request
// body is signed with the merchant RSA key.
package wasabi

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"aiacard/config"
	"aiacard/utils"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://sandbox-api-merchant.wasabicard.com"
	defaultTimeout = 30 * time.Second

	HeaderAPIKey    = "X-WSB-API-KEY"
	HeaderSignature = "X-WSB-SIGNATURE"
)

// Config holds the merchant credentials.
type Config struct {
	BaseURL        string
	APIKey         string
	PrivateKeyPEM  string
	PrivateKeyPath string
	Timeout        time.Duration
}

// ConfigFromApp reads the WASABI_* settings.
func ConfigFromApp(c config.Config) Config {
	return Config{
		BaseURL:        c.WasabiBaseURL,
		APIKey:         c.WasabiAPIKey,
		PrivateKeyPEM:  c.WasabiPrivateKey,
		PrivateKeyPath: c.WasabiPrivateKeyPath,
		Timeout:        c.WasabiTimeout,
	}
}

// Client is a client for the WasabiCard API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	key        *rsa.PrivateKey
}

// NewClient parses the signing key and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	pemText := cfg.PrivateKeyPEM
	if pemText == "" && cfg.PrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read wasabi private key: %w", err)
		}
		pemText = string(raw)
	}
	if pemText == "" {
		return nil, errors.New("wasabi private key is not configured")
	}
	key, err := ParsePrivateKey([]byte(pemText))
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL:    baseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: timeout},
		key:        key,
	}, nil
}

// ParsePrivateKey accepts a PKCS#1 or PKCS#8 PEM block. Env files often carry
// the key with literal \n sequences; those are expanded first.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	pemBytes = bytes.ReplaceAll(pemBytes, []byte(`\n`), []byte("\n"))
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("wasabi private key: no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("wasabi private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("wasabi private key: not an RSA key")
	}
	return key, nil
}

// Sign returns the base64 RSA-SHA256 signature of body.
func (c *Client) Sign(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign wasabi request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Call signs payload and POSTs it to path. The signature covers the exact
// bytes sent. On success the body is decoded into out when out is non-nil.
func (c *Client) Call(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal wasabi request: %w", err)
	}
	signature, err := c.Sign(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create wasabi request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, c.APIKey)
	req.Header.Set(HeaderSignature, signature)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute wasabi request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read wasabi response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.GetLogger().Warn("wasabi: non-2xx response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return &utils.PartnerAPIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode wasabi response: %w", err)
	}
	return nil
}
