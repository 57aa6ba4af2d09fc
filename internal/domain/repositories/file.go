package repositories

import (
	"context"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// FileRepository persists file and folder metadata records.
type FileRepository interface {
	// Create inserts a new record; the ID is assigned by the store.
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*models.File, error)

	// Update rewrites the mutable fields (path, name, filePath, updatedAt)
	Update(ctx context.Context, file *models.File) error

	// Delete removes one record
	Delete(ctx context.Context, id string) error

	// DeleteByIDs removes a batch of an owner's records, returning the count removed
	DeleteByIDs(ctx context.Context, owner string, ids []string) (int64, error)

	// ListByFolder lists records directly inside one folder level
	ListByFolder(ctx context.Context, owner, folderPath string) ([]models.File, error)

	// ListByPathPrefix lists every record whose full path equals the prefix
	// or sits strictly under it. The match is segment-anchored: prefix "abc"
	// never matches "abc2/...".
	ListByPathPrefix(ctx context.Context, owner, prefix string) ([]models.File, error)

	// FindByLocation looks up a record by its exact (folderPath, fileName, kind)
	// location. Returns (nil, nil) when absent.
	FindByLocation(ctx context.Context, owner, folderPath, fileName string, folder bool) (*models.File, error)

	// RewritePathPrefix replaces oldPrefix with newPrefix in the folderPath of
	// every matching record of the owner in one batch, refreshing updatedAt and
	// the canonical filePath. Returns the number of records rewritten.
	RewritePathPrefix(ctx context.Context, owner, oldPrefix, newPrefix string) (int64, error)

	// FindFolderPathContaining returns the folderPath of some record that has
	// folderName as one of its path segments, preferring the lexicographically
	// first match. Returns ("", nil) when no record references the segment.
	FindFolderPathContaining(ctx context.Context, owner, folderName string) (string, error)

	// SetShared flips the shared back-reference on a file record
	SetShared(ctx context.Context, id string, shared bool) error
}
