package services

import (
	"context"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
)

// NamespaceService maintains the mapping between a resource's logical
// (folderPath, fileName) and its physical location, keeping descendants of a
// moved folder consistent.
type NamespaceService interface {
	// Move relocates a file or folder to destinationPath within the owner's
	// namespace, resolving name collisions by numeric suffixing.
	Move(ctx context.Context, principal models.Principal, req *MoveRequest) (*MoveResult, error)

	// DeleteFile removes a single file: blob, metadata, shares and (for
	// secret files) the KMS data key.
	DeleteFile(ctx context.Context, principal models.Principal, fileID string) error

	// DeleteFolder removes a folder subtree: physical tree, every descendant
	// record, and all share records under the folder's path.
	DeleteFolder(ctx context.Context, principal models.Principal, folderPath string) (*FolderDeletion, error)
}

// MoveRequest identifies the resource to move and its destination folder
// path ("" for root).
type MoveRequest struct {
	SourceID        string `json:"sourceId"`
	DestinationPath string `json:"destinationPath"`
}

// MoveResult reports the outcome of a move.
type MoveResult struct {
	File      *models.File `json:"file"`
	Unchanged bool         `json:"unchanged"`         // source and destination were identical
	Renamed   bool         `json:"renamed,omitempty"` // a collision suffix was applied
}

// FolderDeletion reports how many records a folder cascade removed.
type FolderDeletion struct {
	Files        int64 `json:"files"`
	FolderShares int64 `json:"folderShares"`
	FileShares   int64 `json:"fileShares"`
}
