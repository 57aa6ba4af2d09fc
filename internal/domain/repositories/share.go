package repositories

import (
	"context"
	"time"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// ShareRepository persists share records.
type ShareRepository interface {
	// GetByID retrieves a share by its public handle
	GetByID(ctx context.Context, id string) (*models.SharedFile, error)

	// FindByFileID returns the active share for a file, or (nil, nil) when unshared
	FindByFileID(ctx context.Context, fileID string) (*models.SharedFile, error)

	// UpsertFileShare creates or updates the share keyed by (owner, fileID).
	// On update the existing ID, createdAt and pin state are preserved and
	// written back into the passed record.
	UpsertFileShare(ctx context.Context, share *models.SharedFile) error

	// UpsertFolderShare creates or updates the share keyed by (owner, folderPath)
	UpsertFolderShare(ctx context.Context, share *models.SharedFile) error

	// Delete removes one share record
	Delete(ctx context.Context, id string) error

	// DeleteByFileIDs removes file shares referencing any of the given files,
	// returning the count removed
	DeleteByFileIDs(ctx context.Context, owner string, fileIDs []string) (int64, error)

	// DeleteFolderSharesUnder removes folder shares whose canonical fullPath
	// equals the prefix or sits under it (segment-anchored), returning the
	// count removed
	DeleteFolderSharesUnder(ctx context.Context, owner, prefix string) (int64, error)

	// SetPinned updates the pin state, recording pinnedAt when pinning
	SetPinned(ctx context.Context, id string, pinned bool, pinnedAt *time.Time) (*models.SharedFile, error)

	// ListByOwner lists an owner's shares, pinned first then newest first
	ListByOwner(ctx context.Context, owner string) ([]models.SharedFile, error)
}
