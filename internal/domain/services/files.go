package services

import (
	"context"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// FileService handles upload, listing and content egress.
type FileService interface {
	// Upload stores the given files under the caller's namespace. When secret
	// is true each file is encrypted through the cipher pipeline first; a key
	// service failure fails the whole upload with nothing persisted.
	Upload(ctx context.Context, principal models.Principal, inputs []UploadInput, secret bool) ([]models.File, error)

	// List returns one folder level of the caller's namespace
	List(ctx context.Context, principal models.Principal, folderPath string) ([]Entry, error)

	// Download returns the file bytes, decrypting secret files after the
	// caller-supplied key passes the hash check.
	Download(ctx context.Context, principal models.Principal, fileID, keyHex string) (*Content, error)

	// Preview returns bytes for inline rendering; never decrypts secret
	// content and never serves secret shares.
	Preview(ctx context.Context, principal models.Principal, fileID string) (*Content, error)

	// ConfirmSecretDownload re-verifies the key and destroys the file: blob,
	// metadata, shares and (best effort) the KMS data key. A consumed file
	// yields ErrNotFound.
	ConfirmSecretDownload(ctx context.Context, fileID, keyHex string) error
}

// UploadInput is one file of a multipart upload. RelativePath may carry
// folder segments ("a/b/c.txt") for folder uploads.
type UploadInput struct {
	RelativePath string
	ContentType  string
	Data         []byte
}

// Entry is one row of a folder listing.
type Entry struct {
	ID         string `json:"_id"`
	FileName   string `json:"fileName"`
	FolderPath string `json:"folderPath"`
	FileType   string `json:"fileType"`
	UpdatedAt  string `json:"updatedAt"`
	Type       string `json:"type"` // "folder" | "file"
	FilePath   string `json:"filePath,omitempty"`
	FileSize   int64  `json:"fileSize,omitempty"`
	IsSecret   bool   `json:"isSecret"`
}

// Content is a downloadable payload.
type Content struct {
	FileName    string
	ContentType string
	Data        []byte
}
