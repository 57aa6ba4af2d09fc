package service

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/kms"
)

// CipherPipeline encrypts and decrypts secret file content with per-file
// data keys from the KMS. Content is AES-256-CBC with PKCS#7 padding; the
// key and IV travel as hex strings.
type CipherPipeline struct {
	kms    kms.Client
	logger *slog.Logger
}

// NewCipherPipeline creates the pipeline on top of a KMS client.
func NewCipherPipeline(kmsClient kms.Client, logger *slog.Logger) *CipherPipeline {
	return &CipherPipeline{kms: kmsClient, logger: logger}
}

// EncryptOnIngest requests a fresh data key and encrypts plaintext with it.
// Only the key reference (wrapped key, IV, hash) is returned; the plaintext
// key never leaves this function.
func (p *CipherPipeline) EncryptOnIngest(ctx context.Context, plaintext []byte) ([]byte, *models.SecretKeyRef, error) {
	key, err := p.kms.GenerateKey(ctx)
	if err != nil {
		return nil, nil, err
	}

	ciphertext, err := encryptCBC(key.PlaintextDK, key.IV, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt content: %w", err)
	}

	ref := &models.SecretKeyRef{
		DataKeyID:   key.ID,
		EncryptedDK: key.EncryptedDK,
		IV:          key.IV,
		DKHash:      key.DKHash,
		KeyVersion:  key.KeyVersion,
	}
	return ciphertext, ref, nil
}

// VerifyKey checks a caller-supplied hex key against the stored key hash.
// The hash covers the raw key bytes, not their hex spelling. The comparison
// is constant-time.
func (p *CipherPipeline) VerifyKey(ref *models.SecretKeyRef, keyHex string) error {
	if ref == nil {
		return fmt.Errorf("file has no key reference: %w", domain.ErrInvalidOperation)
	}
	if keyHex == "" {
		return fmt.Errorf("decryption key required: %w", domain.ErrInvalidKey)
	}

	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("malformed decryption key: %w", domain.ErrInvalidKey)
	}
	sum := sha256.Sum256(raw)
	got := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(got), []byte(ref.DKHash)) != 1 {
		return domain.ErrInvalidKey
	}
	return nil
}

// DecryptOnEgress verifies the key and decrypts ciphertext with it.
func (p *CipherPipeline) DecryptOnEgress(ref *models.SecretKeyRef, keyHex string, ciphertext []byte) ([]byte, error) {
	if err := p.VerifyKey(ref, keyHex); err != nil {
		return nil, err
	}

	plaintext, err := decryptCBC(keyHex, ref.IV, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return plaintext, nil
}

// ExportKeyForSharing unwraps the data key through the KMS so it can be
// handed to the sharer exactly once.
func (p *CipherPipeline) ExportKeyForSharing(ctx context.Context, ref *models.SecretKeyRef) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("file has no key reference: %w", domain.ErrInvalidOperation)
	}
	return p.kms.DecryptKey(ctx, ref)
}

// DestroyKey deletes the data key, best effort. The caller's flow must not
// fail because key destruction did.
func (p *CipherPipeline) DestroyKey(ctx context.Context, dataKeyID string) {
	if dataKeyID == "" {
		return
	}
	if err := p.kms.DeleteKey(ctx, dataKeyID); err != nil {
		p.logger.Warn("data key destruction failed", "data_key_id", dataKeyID, "error", err)
	}
}

func newCBC(keyHex, ivHex string) (cipher.Block, []byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("decode key: %w", err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(key) != 32 {
		return nil, nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, nil, fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	return block, iv, nil
}

func encryptCBC(keyHex, ivHex string, plaintext []byte) ([]byte, error) {
	block, iv, err := newCBC(keyHex, ivHex)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func decryptCBC(keyHex, ivHex string, ciphertext []byte) ([]byte, error) {
	block, iv, err := newCBC(keyHex, ivHex)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a block multiple", len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
