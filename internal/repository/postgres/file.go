package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
)

const fileColumns = `id, owner, folder_path, file_name, file_type, file_path,
	file_size, is_secret, shared, secret_key, created_at, updated_at`

// fileRepository implements repositories.FileRepository on PostgreSQL.
type fileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository creates a PostgreSQL file repository.
func NewFileRepository(pool *pgxpool.Pool) repositories.FileRepository {
	return &fileRepository{pool: pool}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var f models.File
	err := row.Scan(
		&f.ID, &f.Owner, &f.FolderPath, &f.FileName, &f.FileType, &f.FilePath,
		&f.FileSize, &f.IsSecret, &f.Shared, &f.SecretKey, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// escapeLike escapes LIKE metacharacters so user paths match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.FilePath == "" && file.FileType != models.FolderType {
		file.FilePath = "/api/files/download/" + file.ID
	}

	query := `
		INSERT INTO files (id, owner, folder_path, file_name, file_type, file_path,
			file_size, is_secret, secret_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := db(ctx, r.pool).QueryRow(ctx, query,
		file.ID, file.Owner, file.FolderPath, file.FileName, file.FileType,
		file.FilePath, file.FileSize, file.IsSecret, file.SecretKey,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("file record exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create file record: %w", err)
	}
	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return file, nil
}

func (r *fileRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET folder_path = $2, file_name = $3, file_path = $4, updated_at = $5
		WHERE id = $1`

	file.UpdatedAt = time.Now().UTC()
	tag, err := db(ctx, r.pool).Exec(ctx, query,
		file.ID, file.FolderPath, file.FileName, file.FilePath, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update file %s: %w", file.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *fileRepository) Delete(ctx context.Context, id string) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *fileRepository) DeleteByIDs(ctx context.Context, owner string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := db(ctx, r.pool).Exec(ctx,
		`DELETE FROM files WHERE owner = $1 AND id = ANY($2::uuid[])`, owner, ids)
	if err != nil {
		return 0, fmt.Errorf("delete file records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *fileRepository) ListByFolder(ctx context.Context, owner, folderPath string) ([]models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE owner = $1 AND folder_path = $2
		ORDER BY updated_at DESC`

	rows, err := db(ctx, r.pool).Query(ctx, query, owner, folderPath)
	if err != nil {
		return nil, fmt.Errorf("list folder %q: %w", folderPath, err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (r *fileRepository) ListByPathPrefix(ctx context.Context, owner, prefix string) ([]models.File, error) {
	// Matches the folder record itself (full path == prefix), everything whose
	// folderPath sits at or under the prefix, and nothing like "abc2" for
	// prefix "abc".
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE owner = $1
		  AND (folder_path = $2
		       OR folder_path LIKE $3 ESCAPE '\'
		       OR (CASE WHEN folder_path = '' THEN file_name
		                ELSE folder_path || '/' || file_name END) = $2)
		ORDER BY folder_path, file_name`

	rows, err := db(ctx, r.pool).Query(ctx, query, owner, prefix, escapeLike(prefix)+`/%`)
	if err != nil {
		return nil, fmt.Errorf("list path prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (r *fileRepository) FindByLocation(ctx context.Context, owner, folderPath, fileName string, folder bool) (*models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE owner = $1 AND folder_path = $2 AND file_name = $3
		  AND (file_type = 'folder') = $4
		LIMIT 1`

	file, err := scanFile(db(ctx, r.pool).QueryRow(ctx, query, owner, folderPath, fileName, folder))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find record at %q/%q: %w", folderPath, fileName, err)
	}
	return file, nil
}

func (r *fileRepository) RewritePathPrefix(ctx context.Context, owner, oldPrefix, newPrefix string) (int64, error) {
	query := `
		UPDATE files
		SET folder_path = $3 || substr(folder_path, char_length($2::text) + 1),
		    updated_at = now()
		WHERE owner = $1
		  AND (folder_path = $2 OR folder_path LIKE $4 ESCAPE '\')`

	tag, err := db(ctx, r.pool).Exec(ctx, query,
		owner, oldPrefix, newPrefix, escapeLike(oldPrefix)+`/%`)
	if err != nil {
		return 0, fmt.Errorf("rewrite path prefix %q -> %q: %w", oldPrefix, newPrefix, err)
	}
	return tag.RowsAffected(), nil
}

func (r *fileRepository) FindFolderPathContaining(ctx context.Context, owner, folderName string) (string, error) {
	pattern := `(^|/)` + regexp.QuoteMeta(folderName) + `(/|$)`
	query := `
		SELECT folder_path FROM files
		WHERE owner = $1 AND folder_path ~ $2
		ORDER BY folder_path
		LIMIT 1`

	var folderPath string
	err := db(ctx, r.pool).QueryRow(ctx, query, owner, pattern).Scan(&folderPath)
	if err != nil {
		if IsPgNoRowsError(err) {
			return "", nil
		}
		return "", fmt.Errorf("resolve folder %q: %w", folderName, err)
	}
	return folderPath, nil
}

func (r *fileRepository) SetShared(ctx context.Context, id string, shared bool) error {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE files SET shared = $2 WHERE id = $1`, id, shared)
	if err != nil {
		return fmt.Errorf("set shared flag on file %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func collectFiles(rows pgx.Rows) ([]models.File, error) {
	var files []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}
	return files, nil
}
