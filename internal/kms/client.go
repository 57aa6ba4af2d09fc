// Package kms is the client for the external Key-Management-Service that
// holds data keys for secret files. The service is a collaborator: only the
// three-operation contract below is relied upon.
package kms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// DataKey is the material returned by key generation. PlaintextDK is hex and
// must be discarded by the caller after use.
type DataKey struct {
	ID          string `json:"id"`
	PlaintextDK string `json:"plaintextDK"`
	EncryptedDK string `json:"encryptedDK"`
	IV          string `json:"iv"`
	DKHash      string `json:"dkHash"`
	KeyVersion  string `json:"keyVersion"`
}

// Client is the KMS contract.
type Client interface {
	// GenerateKey requests a fresh data key; failure is terminal for the
	// calling upload.
	GenerateKey(ctx context.Context) (*DataKey, error)

	// DecryptKey exports the plaintext data key (hex) for an existing
	// wrapped key; failure is terminal for the calling share-export.
	DecryptKey(ctx context.Context, ref *models.SecretKeyRef) (string, error)

	// DeleteKey removes a data key by id. A key that is already absent is
	// treated as deleted.
	DeleteKey(ctx context.Context, dataKeyID string) error
}

// HTTPClient talks to the KMS over HTTP with a bounded per-call timeout.
// A hung KMS call must never hang the whole request.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a KMS client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) GenerateKey(ctx context.Context) (*DataKey, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keys/generate", nil)
	if err != nil {
		return nil, fmt.Errorf("build generate-key request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate data key: %w: %v", domain.ErrKeyService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate data key: status %d: %w", resp.StatusCode, domain.ErrKeyService)
	}

	var key DataKey
	if err := json.NewDecoder(resp.Body).Decode(&key); err != nil {
		return nil, fmt.Errorf("decode generate-key response: %w: %v", domain.ErrKeyService, err)
	}
	if key.PlaintextDK == "" {
		return nil, fmt.Errorf("generate data key: response missing plaintext key: %w", domain.ErrKeyService)
	}

	c.logger.Debug("data key generated", "data_key_id", key.ID, "key_version", key.KeyVersion)
	return &key, nil
}

func (c *HTTPClient) DecryptKey(ctx context.Context, ref *models.SecretKeyRef) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("marshal key reference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keys/decrypt", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build decrypt-key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("decrypt data key: %w: %v", domain.ErrKeyService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("decrypt data key: status %d: %w", resp.StatusCode, domain.ErrKeyService)
	}

	var result struct {
		PlaintextDK string `json:"plaintextDK"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode decrypt-key response: %w: %v", domain.ErrKeyService, err)
	}
	if result.PlaintextDK == "" {
		return "", fmt.Errorf("decrypt data key: response missing plaintext key: %w", domain.ErrKeyService)
	}

	return result.PlaintextDK, nil
}

func (c *HTTPClient) DeleteKey(ctx context.Context, dataKeyID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/keys/"+dataKeyID, nil)
	if err != nil {
		return fmt.Errorf("build delete-key request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete data key: %w: %v", domain.ErrKeyService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// Idempotent delete: a key that is already gone counts as deleted
	if resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(string(body)), "not found") {
		c.logger.Info("data key already absent, treated as deleted", "data_key_id", dataKeyID)
		return nil
	}

	return fmt.Errorf("delete data key: status %d: %w", resp.StatusCode, domain.ErrKeyService)
}
