package services

import (
	"context"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// ShareService is the share registry: creation/upsert of share records,
// pin ordering and share-handle resolution.
type ShareService interface {
	// CreateOrUpdate upserts the share for a file or folder target. For a
	// secret file the exported plaintext key is returned exactly once in the
	// result and never persisted.
	CreateOrUpdate(ctx context.Context, principal models.Principal, req *CreateShareRequest) (*ShareResult, error)

	// Get resolves a share handle for viewing; gated by the access evaluator
	Get(ctx context.Context, principal models.Principal, shareID string) (*ShareView, error)

	// Delete removes a share record; owner-only
	Delete(ctx context.Context, principal models.Principal, shareID string) error

	// SetPinned toggles manual pin ordering
	SetPinned(ctx context.Context, principal models.Principal, shareID string, pinned bool) (*models.SharedFile, error)

	// List returns the caller's shares, pinned first
	List(ctx context.Context, principal models.Principal) ([]ShareView, error)

	// DownloadFolderArchive streams a zip of every file under a folder share
	DownloadFolderArchive(ctx context.Context, principal models.Principal, shareID string) (*Content, error)
}

// CreateShareRequest targets exactly one of FileID or FolderPath.
type CreateShareRequest struct {
	FileID      string             `json:"fileId,omitempty"`
	FolderPath  string             `json:"folderPath,omitempty"`
	ShareOption models.ShareOption `json:"shareOption"`
	Departments []string           `json:"departments,omitempty"`
}

// ShareResult is the response to a share upsert.
type ShareResult struct {
	SharedFile  *models.SharedFile `json:"sharedFile"`
	ShareLink   string             `json:"shareLink"`
	PlaintextDK string             `json:"plaintextDK,omitempty"` // secret files only, returned once
}

// ShareView is a share joined with its file metadata (nil for folder shares).
type ShareView struct {
	SharedFile *models.SharedFile `json:"sharedFile"`
	File       *models.File       `json:"file,omitempty"`
}
