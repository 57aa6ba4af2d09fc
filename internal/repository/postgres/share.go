package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
)

const shareColumns = `id, file_id, owner, share_option, shared_with_departments,
	is_folder, folder_path, full_path, is_pinned, pinned_at, created_at`

// shareRepository implements repositories.ShareRepository on PostgreSQL.
type shareRepository struct {
	pool *pgxpool.Pool
}

// NewShareRepository creates a PostgreSQL share repository.
func NewShareRepository(pool *pgxpool.Pool) repositories.ShareRepository {
	return &shareRepository{pool: pool}
}

func scanShare(row pgx.Row) (*models.SharedFile, error) {
	var s models.SharedFile
	err := row.Scan(
		&s.ID, &s.FileID, &s.Owner, &s.ShareOption, &s.SharedWithDepartments,
		&s.IsFolder, &s.FolderPath, &s.FullPath, &s.IsPinned, &s.PinnedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shareRepository) GetByID(ctx context.Context, id string) (*models.SharedFile, error) {
	query := `SELECT ` + shareColumns + ` FROM shared_files WHERE id = $1`

	share, err := scanShare(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get share %s: %w", id, err)
	}
	return share, nil
}

func (r *shareRepository) FindByFileID(ctx context.Context, fileID string) (*models.SharedFile, error) {
	query := `SELECT ` + shareColumns + ` FROM shared_files WHERE file_id = $1`

	share, err := scanShare(db(ctx, r.pool).QueryRow(ctx, query, fileID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find share for file %s: %w", fileID, err)
	}
	return share, nil
}

func (r *shareRepository) UpsertFileShare(ctx context.Context, share *models.SharedFile) error {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}

	// Re-sharing keeps the existing row: the handle, createdAt and pin state
	// survive, only the grant itself changes.
	query := `
		INSERT INTO shared_files (id, file_id, owner, share_option,
			shared_with_departments, is_folder, folder_path, full_path)
		VALUES ($1, $2, $3, $4, $5, FALSE, '', $6)
		ON CONFLICT (file_id) WHERE file_id IS NOT NULL DO UPDATE
		SET share_option = EXCLUDED.share_option,
		    shared_with_departments = EXCLUDED.shared_with_departments,
		    full_path = EXCLUDED.full_path
		RETURNING id, is_pinned, pinned_at, created_at`

	err := db(ctx, r.pool).QueryRow(ctx, query,
		share.ID, share.FileID, share.Owner, share.ShareOption,
		share.SharedWithDepartments, share.FullPath,
	).Scan(&share.ID, &share.IsPinned, &share.PinnedAt, &share.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert file share: %w", err)
	}
	return nil
}

func (r *shareRepository) UpsertFolderShare(ctx context.Context, share *models.SharedFile) error {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}

	query := `
		INSERT INTO shared_files (id, file_id, owner, share_option,
			shared_with_departments, is_folder, folder_path, full_path)
		VALUES ($1, NULL, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (owner, folder_path) WHERE is_folder DO UPDATE
		SET share_option = EXCLUDED.share_option,
		    shared_with_departments = EXCLUDED.shared_with_departments,
		    full_path = EXCLUDED.full_path
		RETURNING id, is_pinned, pinned_at, created_at`

	err := db(ctx, r.pool).QueryRow(ctx, query,
		share.ID, share.Owner, share.ShareOption,
		share.SharedWithDepartments, share.FolderPath, share.FullPath,
	).Scan(&share.ID, &share.IsPinned, &share.PinnedAt, &share.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert folder share: %w", err)
	}
	return nil
}

func (r *shareRepository) Delete(ctx context.Context, id string) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM shared_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete share %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *shareRepository) DeleteByFileIDs(ctx context.Context, owner string, fileIDs []string) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}
	tag, err := db(ctx, r.pool).Exec(ctx,
		`DELETE FROM shared_files WHERE owner = $1 AND file_id = ANY($2::uuid[])`,
		owner, fileIDs)
	if err != nil {
		return 0, fmt.Errorf("delete file shares: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *shareRepository) DeleteFolderSharesUnder(ctx context.Context, owner, prefix string) (int64, error) {
	query := `
		DELETE FROM shared_files
		WHERE owner = $1 AND is_folder
		  AND (full_path = $2 OR full_path LIKE $3 ESCAPE '\')`

	tag, err := db(ctx, r.pool).Exec(ctx, query, owner, prefix, escapeLike(prefix)+`/%`)
	if err != nil {
		return 0, fmt.Errorf("delete folder shares under %q: %w", prefix, err)
	}
	return tag.RowsAffected(), nil
}

func (r *shareRepository) SetPinned(ctx context.Context, id string, pinned bool, pinnedAt *time.Time) (*models.SharedFile, error) {
	query := `
		UPDATE shared_files
		SET is_pinned = $2, pinned_at = $3
		WHERE id = $1
		RETURNING ` + shareColumns

	share, err := scanShare(db(ctx, r.pool).QueryRow(ctx, query, id, pinned, pinnedAt))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("set pin on share %s: %w", id, err)
	}
	return share, nil
}

func (r *shareRepository) ListByOwner(ctx context.Context, owner string) ([]models.SharedFile, error) {
	query := `SELECT ` + shareColumns + `
		FROM shared_files
		WHERE owner = $1
		ORDER BY is_pinned DESC, pinned_at DESC NULLS LAST, created_at DESC`

	rows, err := db(ctx, r.pool).Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list shares for %s: %w", owner, err)
	}
	defer rows.Close()

	var shares []models.SharedFile
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share row: %w", err)
		}
		shares = append(shares, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share rows: %w", err)
	}
	return shares, nil
}
