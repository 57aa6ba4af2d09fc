package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/config"
	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
	"github.com/PaaDream1999/inspect-drive/internal/storage"
)

// NamespaceManager implements services.NamespaceService: moves and deletes
// that keep the logical namespace, the blob tree and the share registry
// consistent with each other.
type NamespaceManager struct {
	files  repositories.FileRepository
	shares repositories.ShareRepository
	tx     repositories.TransactionManager
	blobs  storage.Store
	cipher *CipherPipeline
	logger *slog.Logger
}

// NewNamespaceManager wires the namespace manager.
func NewNamespaceManager(
	files repositories.FileRepository,
	shares repositories.ShareRepository,
	tx repositories.TransactionManager,
	blobs storage.Store,
	cipher *CipherPipeline,
	logger *slog.Logger,
) *NamespaceManager {
	return &NamespaceManager{
		files:  files,
		shares: shares,
		tx:     tx,
		blobs:  blobs,
		cipher: cipher,
		logger: logger,
	}
}

// findFreeName probes name, name(1), name(2), ... until a candidate is free
// in both the metadata store and the blob store.
func findFreeName(ctx context.Context, files repositories.FileRepository, blobs storage.Store, owner, folderPath, fileName string, folder bool) (string, error) {
	for n := 0; n <= config.MaxCollisionProbes; n++ {
		cand := CandidateName(fileName, n, folder)

		rec, err := files.FindByLocation(ctx, owner, folderPath, cand, folder)
		if err != nil {
			return "", err
		}
		if rec != nil {
			continue
		}

		taken, err := blobs.Exists(owner, JoinPath(folderPath, cand))
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		return cand, nil
	}
	return "", fmt.Errorf("no free name for %q after %d probes: %w", fileName, config.MaxCollisionProbes, domain.ErrConflict)
}

func (m *NamespaceManager) Move(ctx context.Context, principal models.Principal, req *services.MoveRequest) (*services.MoveResult, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}
	if req.SourceID == "" {
		return nil, fmt.Errorf("sourceId is required: %w", domain.ErrValidation)
	}

	file, err := m.files.GetByID(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if file.Owner != principal.UserID {
		return nil, fmt.Errorf("not the owner: %w", domain.ErrForbidden)
	}

	dest := NormalizePath(req.DestinationPath)
	if err := ValidatePath(dest); err != nil {
		return nil, err
	}

	oldFull := file.FullPath()

	// A folder cannot move into itself or its own subtree
	if file.IsFolder() && (dest == oldFull || strings.HasPrefix(dest, oldFull+"/")) {
		return nil, fmt.Errorf("cannot move a folder into itself: %w", domain.ErrInvalidOperation)
	}

	// Same parent means same full path; the probe below would collide with
	// the resource itself and suffix it, so the no-op check comes first.
	if dest == file.FolderPath {
		return &services.MoveResult{File: file, Unchanged: true}, nil
	}

	finalName, err := findFreeName(ctx, m.files, m.blobs, file.Owner, dest, file.FileName, file.IsFolder())
	if err != nil {
		return nil, err
	}

	if dest != "" {
		if err := m.blobs.EnsureDir(file.Owner, dest); err != nil {
			return nil, err
		}
	}

	newFull := JoinPath(dest, finalName)

	// The probe result can go stale; re-check right before the rename
	taken, err := m.blobs.Exists(file.Owner, newFull)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("destination %q appeared during move: %w", newFull, domain.ErrConflict)
	}

	if err := m.blobs.Rename(file.Owner, oldFull, newFull); err != nil {
		return nil, err
	}

	// Physical rename succeeded; now rewrite metadata. If this fails the blob
	// tree and the records diverge, so the failure is logged loudly for the
	// operator before surfacing.
	renamed := finalName != file.FileName
	err = m.tx.ExecTx(ctx, func(txCtx context.Context) error {
		file.FolderPath = dest
		file.FileName = finalName
		if err := m.files.Update(txCtx, file); err != nil {
			return err
		}
		if file.IsFolder() {
			if _, err := m.files.RewritePathPrefix(txCtx, file.Owner, oldFull, newFull); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("metadata rewrite failed after physical rename, manual reconciliation required",
			"owner", file.Owner,
			"old_path", oldFull,
			"new_path", newFull,
			"error", err,
		)
		return nil, fmt.Errorf("update metadata after rename: %w", err)
	}

	m.logger.Info("resource moved",
		"owner", file.Owner,
		"old_path", oldFull,
		"new_path", newFull,
		"renamed", renamed,
	)

	return &services.MoveResult{File: file, Renamed: renamed}, nil
}

func (m *NamespaceManager) DeleteFile(ctx context.Context, principal models.Principal, fileID string) error {
	if principal.Anonymous() {
		return domain.ErrUnauthorized
	}

	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.Owner != principal.UserID {
		return fmt.Errorf("not the owner: %w", domain.ErrForbidden)
	}
	if file.IsFolder() {
		return fmt.Errorf("folders are deleted by path: %w", domain.ErrInvalidOperation)
	}

	// Blob first; a missing blob is fine, the record is the source of truth
	if err := m.blobs.Delete(file.Owner, file.FullPath()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("blob delete failed", "file_id", fileID, "error", err)
	}

	err = m.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := m.shares.DeleteByFileIDs(txCtx, file.Owner, []string{file.ID}); err != nil {
			return err
		}
		return m.files.Delete(txCtx, file.ID)
	})
	if err != nil {
		return err
	}

	if file.IsSecret && file.SecretKey != nil {
		m.cipher.DestroyKey(ctx, file.SecretKey.DataKeyID)
	}

	m.logger.Info("file deleted", "owner", file.Owner, "file_id", fileID, "path", file.FullPath())
	return nil
}

func (m *NamespaceManager) DeleteFolder(ctx context.Context, principal models.Principal, folderPath string) (*services.FolderDeletion, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	folderPath = NormalizePath(folderPath)
	if folderPath == "" {
		return nil, fmt.Errorf("folder path is required: %w", domain.ErrValidation)
	}
	if err := ValidatePath(folderPath); err != nil {
		return nil, err
	}

	parent, leaf := SplitPath(folderPath)
	folder, err := m.files.FindByLocation(ctx, principal.UserID, parent, leaf, true)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %q: %w", folderPath, domain.ErrNotFound)
	}

	descendants, err := m.files.ListByPathPrefix(ctx, principal.UserID, folderPath)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(descendants))
	var keyIDs []string
	for _, f := range descendants {
		ids = append(ids, f.ID)
		if f.IsSecret && f.SecretKey != nil {
			keyIDs = append(keyIDs, f.SecretKey.DataKeyID)
		}
	}

	// Metadata is the source of truth; a failed physical removal leaves
	// orphaned blobs for the operator but must not block the cascade.
	if err := m.blobs.RemoveTree(principal.UserID, folderPath); err != nil {
		m.logger.Warn("blob tree removal failed, continuing with metadata cleanup",
			"owner", principal.UserID,
			"path", folderPath,
			"error", err,
		)
	}

	var result services.FolderDeletion
	err = m.tx.ExecTx(ctx, func(txCtx context.Context) error {
		fileShares, err := m.shares.DeleteByFileIDs(txCtx, principal.UserID, ids)
		if err != nil {
			return err
		}
		folderShares, err := m.shares.DeleteFolderSharesUnder(txCtx, principal.UserID, folderPath)
		if err != nil {
			return err
		}
		files, err := m.files.DeleteByIDs(txCtx, principal.UserID, ids)
		if err != nil {
			return err
		}
		result = services.FolderDeletion{Files: files, FolderShares: folderShares, FileShares: fileShares}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, keyID := range keyIDs {
		m.cipher.DestroyKey(ctx, keyID)
	}

	m.logger.Info("folder deleted",
		"owner", principal.UserID,
		"path", folderPath,
		"files", result.Files,
		"folder_shares", result.FolderShares,
		"file_shares", result.FileShares,
	)
	return &result, nil
}
