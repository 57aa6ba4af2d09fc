package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PaaDream1999/inspect-drive/internal/config"
	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
	"github.com/PaaDream1999/inspect-drive/internal/storage"
)

// FileManager implements services.FileService: ingress, listings and content
// egress including the secret file lifecycle.
type FileManager struct {
	files  repositories.FileRepository
	shares repositories.ShareRepository
	tx     repositories.TransactionManager
	blobs  storage.Store
	cipher *CipherPipeline
	logger *slog.Logger
}

// NewFileManager wires the file manager.
func NewFileManager(
	files repositories.FileRepository,
	shares repositories.ShareRepository,
	tx repositories.TransactionManager,
	blobs storage.Store,
	cipher *CipherPipeline,
	logger *slog.Logger,
) *FileManager {
	return &FileManager{
		files:  files,
		shares: shares,
		tx:     tx,
		blobs:  blobs,
		cipher: cipher,
		logger: logger,
	}
}

func (m *FileManager) Upload(ctx context.Context, principal models.Principal, inputs []services.UploadInput, secret bool) ([]models.File, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no files in upload: %w", domain.ErrValidation)
	}

	var total int64
	for _, in := range inputs {
		total += int64(len(in.Data))
	}
	if total > config.MaxUploadBytes {
		return nil, fmt.Errorf("upload exceeds %d bytes: %w", int64(config.MaxUploadBytes), domain.ErrValidation)
	}

	created := make([]models.File, 0, len(inputs))
	for _, in := range inputs {
		file, err := m.uploadOne(ctx, principal.UserID, in, secret)
		if err != nil {
			return nil, err
		}
		created = append(created, *file)
	}
	return created, nil
}

func (m *FileManager) uploadOne(ctx context.Context, owner string, in services.UploadInput, secret bool) (*models.File, error) {
	full := NormalizePath(in.RelativePath)
	if full == "" {
		return nil, fmt.Errorf("file name is required: %w", domain.ErrValidation)
	}
	if err := ValidatePath(full); err != nil {
		return nil, err
	}

	folderPath, fileName := SplitPath(full)

	if err := m.ensureFolders(ctx, owner, folderPath); err != nil {
		return nil, err
	}

	finalName, err := findFreeName(ctx, m.files, m.blobs, owner, folderPath, fileName, false)
	if err != nil {
		return nil, err
	}

	data := in.Data
	var keyRef *models.SecretKeyRef
	if secret {
		// Key generation failing must leave nothing behind
		data, keyRef, err = m.cipher.EncryptOnIngest(ctx, in.Data)
		if err != nil {
			return nil, err
		}
	}

	blobPath := JoinPath(folderPath, finalName)
	if err := m.blobs.Write(owner, blobPath, data); err != nil {
		if keyRef != nil {
			m.cipher.DestroyKey(ctx, keyRef.DataKeyID)
		}
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file := &models.File{
		Owner:      owner,
		FolderPath: folderPath,
		FileName:   finalName,
		FileType:   contentType,
		FileSize:   int64(len(in.Data)),
		IsSecret:   secret,
		SecretKey:  keyRef,
	}
	if err := m.files.Create(ctx, file); err != nil {
		if delErr := m.blobs.Delete(owner, blobPath); delErr != nil {
			m.logger.Warn("orphaned blob after failed record create", "path", blobPath, "error", delErr)
		}
		if keyRef != nil {
			m.cipher.DestroyKey(ctx, keyRef.DataKeyID)
		}
		return nil, err
	}

	m.logger.Info("file uploaded",
		"owner", owner,
		"file_id", file.ID,
		"path", file.FullPath(),
		"size", file.FileSize,
		"secret", secret,
	)
	return file, nil
}

// ensureFolders creates the missing folder records (and physical directory)
// for every ancestor of folderPath.
func (m *FileManager) ensureFolders(ctx context.Context, owner, folderPath string) error {
	if folderPath == "" {
		return nil
	}

	parent := ""
	for _, seg := range strings.Split(folderPath, "/") {
		existing, err := m.files.FindByLocation(ctx, owner, parent, seg, true)
		if err != nil {
			return err
		}
		if existing == nil {
			folder := &models.File{
				Owner:      owner,
				FolderPath: parent,
				FileName:   seg,
				FileType:   models.FolderType,
			}
			if err := m.files.Create(ctx, folder); err != nil {
				return err
			}
		}
		parent = JoinPath(parent, seg)
	}

	return m.blobs.EnsureDir(owner, folderPath)
}

func (m *FileManager) List(ctx context.Context, principal models.Principal, folderPath string) ([]services.Entry, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	folderPath = NormalizePath(folderPath)
	if err := ValidatePath(folderPath); err != nil {
		return nil, err
	}

	records, err := m.files.ListByFolder(ctx, principal.UserID, folderPath)
	if err != nil {
		return nil, err
	}

	// Folders first, each group already newest-first from the repository
	entries := make([]services.Entry, 0, len(records))
	for _, folders := range []bool{true, false} {
		for _, f := range records {
			if f.IsFolder() != folders {
				continue
			}
			entry := services.Entry{
				ID:         f.ID,
				FileName:   f.FileName,
				FolderPath: f.FolderPath,
				FileType:   f.FileType,
				UpdatedAt:  f.UpdatedAt.UTC().Format(time.RFC3339),
				IsSecret:   f.IsSecret,
			}
			if folders {
				entry.Type = "folder"
			} else {
				entry.Type = "file"
				entry.FilePath = f.FilePath
				entry.FileSize = f.FileSize
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *FileManager) Download(ctx context.Context, principal models.Principal, fileID, keyHex string) (*services.Content, error) {
	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsFolder() {
		return nil, fmt.Errorf("folders are downloaded through shares: %w", domain.ErrInvalidOperation)
	}

	share, err := m.shares.FindByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	decision := Evaluate(ActionDownload, file.Owner, share, principal)
	if decision.RequireLogin {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrLoginRequired)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrForbidden)
	}

	data, err := m.blobs.Read(file.Owner, file.FullPath())
	if err != nil {
		return nil, err
	}

	// Secret content is key-gated for everyone, including the owner
	if file.IsSecret {
		plain, err := m.cipher.DecryptOnEgress(file.SecretKey, keyHex, data)
		if err != nil {
			return nil, err
		}
		data = plain
	}

	return &services.Content{FileName: file.FileName, ContentType: file.FileType, Data: data}, nil
}

func (m *FileManager) Preview(ctx context.Context, principal models.Principal, fileID string) (*services.Content, error) {
	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsFolder() {
		return nil, fmt.Errorf("folders have no preview: %w", domain.ErrInvalidOperation)
	}

	share, err := m.shares.FindByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	decision := Evaluate(ActionPreview, file.Owner, share, principal)
	if decision.RequireLogin {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrLoginRequired)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrForbidden)
	}

	// Stored bytes as-is; secret content stays ciphertext
	data, err := m.blobs.Read(file.Owner, file.FullPath())
	if err != nil {
		return nil, err
	}

	return &services.Content{FileName: file.FileName, ContentType: file.FileType, Data: data}, nil
}

func (m *FileManager) ConfirmSecretDownload(ctx context.Context, fileID, keyHex string) error {
	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		// Already consumed files surface as not found, by the same path
		return err
	}
	if !file.IsSecret {
		return fmt.Errorf("file is not secret: %w", domain.ErrInvalidOperation)
	}

	if err := m.cipher.VerifyKey(file.SecretKey, keyHex); err != nil {
		return err
	}

	if err := m.blobs.Delete(file.Owner, file.FullPath()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("blob delete failed during confirm", "file_id", fileID, "error", err)
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

	if file.SecretKey != nil {
		m.cipher.DestroyKey(ctx, file.SecretKey.DataKeyID)
	}

	m.logger.Info("secret file consumed", "owner", file.Owner, "file_id", fileID)
	return nil
}
