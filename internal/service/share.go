package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
	"github.com/PaaDream1999/inspect-drive/internal/storage"
	"github.com/PaaDream1999/inspect-drive/internal/utils"
)

// ShareRegistry implements services.ShareService.
type ShareRegistry struct {
	shares  repositories.ShareRepository
	files   repositories.FileRepository
	tx      repositories.TransactionManager
	blobs   storage.Store
	cipher  *CipherPipeline
	baseURL string
	logger  *slog.Logger
}

// NewShareRegistry wires the share registry. baseURL is the public origin
// used to build share links.
func NewShareRegistry(
	shares repositories.ShareRepository,
	files repositories.FileRepository,
	tx repositories.TransactionManager,
	blobs storage.Store,
	cipher *CipherPipeline,
	baseURL string,
	logger *slog.Logger,
) *ShareRegistry {
	return &ShareRegistry{
		shares:  shares,
		files:   files,
		tx:      tx,
		blobs:   blobs,
		cipher:  cipher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func validateShareRequest(req *services.CreateShareRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ShareOption, validation.Required, validation.By(func(v interface{}) error {
			if opt, _ := v.(models.ShareOption); !opt.Valid() {
				return errors.New("unknown share option")
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	if (req.FileID == "") == (req.FolderPath == "") {
		return fmt.Errorf("exactly one of fileId or folderPath is required: %w", domain.ErrValidation)
	}
	return nil
}

// resolveDepartments normalizes the department grant list. An empty list
// defaults to the sharer's own department.
func resolveDepartments(req *services.CreateShareRequest, principal models.Principal) ([]string, error) {
	if req.ShareOption != models.ShareDepartment {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var departments []string
	for _, d := range req.Departments {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		departments = append(departments, d)
	}

	if len(departments) == 0 {
		own := strings.ToLower(strings.TrimSpace(principal.Department))
		if own == "" {
			return nil, fmt.Errorf("department share needs at least one department: %w", domain.ErrValidation)
		}
		departments = []string{own}
	}
	return departments, nil
}

func (r *ShareRegistry) CreateOrUpdate(ctx context.Context, principal models.Principal, req *services.CreateShareRequest) (*services.ShareResult, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}
	if err := validateShareRequest(req); err != nil {
		return nil, err
	}

	departments, err := resolveDepartments(req, principal)
	if err != nil {
		return nil, err
	}

	if req.FileID != "" {
		return r.upsertFileShare(ctx, principal, req, departments)
	}
	return r.upsertFolderShare(ctx, principal, req, departments)
}

func (r *ShareRegistry) upsertFileShare(ctx context.Context, principal models.Principal, req *services.CreateShareRequest, departments []string) (*services.ShareResult, error) {
	file, err := r.files.GetByID(ctx, req.FileID)
	if err != nil {
		return nil, err
	}
	if file.Owner != principal.UserID {
		return nil, fmt.Errorf("not the owner: %w", domain.ErrForbidden)
	}
	if file.IsFolder() {
		return nil, fmt.Errorf("folders are shared by path: %w", domain.ErrInvalidOperation)
	}

	if file.IsSecret && req.ShareOption != models.ShareSecret {
		return nil, fmt.Errorf("secret files can only use the secret tier: %w", domain.ErrValidation)
	}
	if !file.IsSecret && req.ShareOption == models.ShareSecret {
		return nil, fmt.Errorf("secret tier requires a secret file: %w", domain.ErrValidation)
	}

	// Export the plaintext key before touching any records so a KMS failure
	// leaves the registry untouched
	var plaintextDK string
	if file.IsSecret {
		plaintextDK, err = r.cipher.ExportKeyForSharing(ctx, file.SecretKey)
		if err != nil {
			return nil, err
		}
	}

	share := &models.SharedFile{
		FileID:                &file.ID,
		Owner:                 principal.UserID,
		ShareOption:           req.ShareOption,
		SharedWithDepartments: departments,
		FullPath:              file.FullPath(),
	}

	err = r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := r.shares.UpsertFileShare(txCtx, share); err != nil {
			return err
		}
		return r.files.SetShared(txCtx, file.ID, true)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("file share upserted", "owner", principal.UserID, "share_id", share.ID, "option", share.ShareOption)

	return &services.ShareResult{
		SharedFile:  share,
		ShareLink:   r.shareLink(share.ID),
		PlaintextDK: plaintextDK,
	}, nil
}

func (r *ShareRegistry) upsertFolderShare(ctx context.Context, principal models.Principal, req *services.CreateShareRequest, departments []string) (*services.ShareResult, error) {
	if req.ShareOption == models.ShareSecret {
		return nil, fmt.Errorf("folders cannot use the secret tier: %w", domain.ErrValidation)
	}

	folderPath := NormalizePath(req.FolderPath)
	if err := ValidatePath(folderPath); err != nil {
		return nil, err
	}
	if folderPath == "" {
		return nil, fmt.Errorf("folder path is required: %w", domain.ErrValidation)
	}

	fullPath, err := r.resolveFolderPath(ctx, principal.UserID, folderPath)
	if err != nil {
		return nil, err
	}

	share := &models.SharedFile{
		Owner:                 principal.UserID,
		ShareOption:           req.ShareOption,
		SharedWithDepartments: departments,
		IsFolder:              true,
		FolderPath:            folderPath,
		FullPath:              fullPath,
	}
	if err := r.shares.UpsertFolderShare(ctx, share); err != nil {
		return nil, err
	}

	r.logger.Info("folder share upserted", "owner", principal.UserID, "share_id", share.ID, "path", fullPath)

	return &services.ShareResult{
		SharedFile: share,
		ShareLink:  r.shareLink(share.ID),
	}, nil
}

// resolveFolderPath canonicalizes the shared folder path. A multi-segment
// path is taken as-is after an existence check. A bare leaf name is first
// tried at the root; only then is it located by scanning for the segment
// anywhere in the owner's namespace.
func (r *ShareRegistry) resolveFolderPath(ctx context.Context, owner, folderPath string) (string, error) {
	parent, leaf := SplitPath(folderPath)

	if strings.Contains(folderPath, "/") {
		folder, err := r.files.FindByLocation(ctx, owner, parent, leaf, true)
		if err != nil {
			return "", err
		}
		if folder == nil {
			return "", fmt.Errorf("folder %q: %w", folderPath, domain.ErrNotFound)
		}
		return folderPath, nil
	}

	folder, err := r.files.FindByLocation(ctx, owner, "", leaf, true)
	if err != nil {
		return "", err
	}
	if folder != nil {
		return leaf, nil
	}

	containing, err := r.files.FindFolderPathContaining(ctx, owner, leaf)
	if err != nil {
		return "", err
	}
	if containing == "" {
		return "", fmt.Errorf("folder %q: %w", folderPath, domain.ErrNotFound)
	}

	// Cut the located path down to the chain ending at the leaf segment
	segs := strings.Split(containing, "/")
	for i, seg := range segs {
		if seg == leaf {
			return strings.Join(segs[:i+1], "/"), nil
		}
	}
	return containing, nil
}

func (r *ShareRegistry) shareLink(shareID string) string {
	return r.baseURL + "/share/" + shareID
}

func (r *ShareRegistry) Get(ctx context.Context, principal models.Principal, shareID string) (*services.ShareView, error) {
	share, err := r.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}

	decision := Evaluate(ActionViewMetadata, share.Owner, share, principal)
	if decision.RequireLogin {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrLoginRequired)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrForbidden)
	}

	view := &services.ShareView{SharedFile: share}
	if share.FileID != nil {
		file, err := r.files.GetByID(ctx, *share.FileID)
		if err != nil {
			return nil, err
		}
		view.File = file
	}
	return view, nil
}

func (r *ShareRegistry) Delete(ctx context.Context, principal models.Principal, shareID string) error {
	if principal.Anonymous() {
		return domain.ErrUnauthorized
	}

	share, err := r.shares.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share.Owner != principal.UserID {
		return fmt.Errorf("only the owner can remove a share: %w", domain.ErrForbidden)
	}

	return r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := r.shares.Delete(txCtx, shareID); err != nil {
			return err
		}
		if share.FileID != nil {
			// The file may be gone already; unsharing still succeeds
			if err := r.files.SetShared(txCtx, *share.FileID, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

func (r *ShareRegistry) SetPinned(ctx context.Context, principal models.Principal, shareID string, pinned bool) (*models.SharedFile, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	share, err := r.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.Owner != principal.UserID {
		return nil, fmt.Errorf("only the owner can pin a share: %w", domain.ErrForbidden)
	}

	var pinnedAt *time.Time
	if pinned {
		now := time.Now().UTC()
		pinnedAt = &now
	}
	return r.shares.SetPinned(ctx, shareID, pinned, pinnedAt)
}

func (r *ShareRegistry) List(ctx context.Context, principal models.Principal) ([]services.ShareView, error) {
	if principal.Anonymous() {
		return nil, domain.ErrUnauthorized
	}

	shares, err := r.shares.ListByOwner(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]services.ShareView, 0, len(shares))
	for i := range shares {
		view := services.ShareView{SharedFile: &shares[i]}
		if shares[i].FileID != nil {
			file, err := r.files.GetByID(ctx, *shares[i].FileID)
			if err == nil {
				view.File = file
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *ShareRegistry) DownloadFolderArchive(ctx context.Context, principal models.Principal, shareID string) (*services.Content, error) {
	share, err := r.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if !share.IsFolder {
		return nil, fmt.Errorf("share is not a folder: %w", domain.ErrInvalidOperation)
	}

	decision := Evaluate(ActionDownload, share.Owner, share, principal)
	if decision.RequireLogin {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrLoginRequired)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, domain.ErrForbidden)
	}

	records, err := r.files.ListByPathPrefix(ctx, share.Owner, share.FullPath)
	if err != nil {
		return nil, err
	}

	archive, err := utils.BuildZip(r.blobs, share.Owner, share.FullPath, records, r.logger)
	if err != nil {
		return nil, err
	}

	_, leaf := SplitPath(share.FullPath)
	return &services.Content{
		FileName:    leaf + ".zip",
		ContentType: "application/zip",
		Data:        archive,
	}, nil
}
