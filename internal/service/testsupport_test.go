package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/repositories"
	"github.com/PaaDream1999/inspect-drive/internal/kms"
)

// In-memory doubles for the repository, storage and KMS contracts so the
// services can be exercised without infrastructure.

type memFiles struct {
	mu      sync.Mutex
	records map[string]*models.File
}

func newMemFiles() *memFiles {
	return &memFiles{records: map[string]*models.File{}}
}

func cloneFile(f *models.File) *models.File {
	c := *f
	if f.SecretKey != nil {
		k := *f.SecretKey
		c.SecretKey = &k
	}
	return &c
}

func (m *memFiles) Create(_ context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.FilePath == "" && file.FileType != models.FolderType {
		file.FilePath = "/api/files/download/" + file.ID
	}
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now
	m.records[file.ID] = cloneFile(file)
	return nil
}

func (m *memFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return cloneFile(f), nil
}

func (m *memFiles) Update(_ context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[file.ID]
	if !ok {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	existing.FolderPath = file.FolderPath
	existing.FileName = file.FileName
	existing.FilePath = file.FilePath
	existing.UpdatedAt = time.Now().UTC()
	file.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

func (m *memFiles) DeleteByIDs(_ context.Context, owner string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if f, ok := m.records[id]; ok && f.Owner == owner {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memFiles) ListByFolder(_ context.Context, owner, folderPath string) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.File
	for _, f := range m.records {
		if f.Owner == owner && f.FolderPath == folderPath {
			out = append(out, *cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memFiles) ListByPathPrefix(_ context.Context, owner, prefix string) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.File
	for _, f := range m.records {
		if f.Owner != owner {
			continue
		}
		if f.FolderPath == prefix || strings.HasPrefix(f.FolderPath, prefix+"/") || f.FullPath() == prefix {
			out = append(out, *cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullPath() < out[j].FullPath() })
	return out, nil
}

func (m *memFiles) FindByLocation(_ context.Context, owner, folderPath, fileName string, folder bool) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.records {
		if f.Owner == owner && f.FolderPath == folderPath && f.FileName == fileName && f.IsFolder() == folder {
			return cloneFile(f), nil
		}
	}
	return nil, nil
}

func (m *memFiles) RewritePathPrefix(_ context.Context, owner, oldPrefix, newPrefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.records {
		if f.Owner != owner {
			continue
		}
		if f.FolderPath == oldPrefix || strings.HasPrefix(f.FolderPath, oldPrefix+"/") {
			f.FolderPath = newPrefix + f.FolderPath[len(oldPrefix):]
			f.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *memFiles) FindFolderPathContaining(_ context.Context, owner, folderName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	re := regexp.MustCompile(`(^|/)` + regexp.QuoteMeta(folderName) + `(/|$)`)
	var matches []string
	for _, f := range m.records {
		if f.Owner == owner && re.MatchString(f.FolderPath) {
			matches = append(matches, f.FolderPath)
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (m *memFiles) SetShared(_ context.Context, id string, shared bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.records[id]
	if !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	f.Shared = shared
	return nil
}

type memShares struct {
	mu      sync.Mutex
	records map[string]*models.SharedFile
}

func newMemShares() *memShares {
	return &memShares{records: map[string]*models.SharedFile{}}
}

func cloneShare(s *models.SharedFile) *models.SharedFile {
	c := *s
	if s.FileID != nil {
		id := *s.FileID
		c.FileID = &id
	}
	c.SharedWithDepartments = append([]string(nil), s.SharedWithDepartments...)
	return &c
}

func (m *memShares) GetByID(_ context.Context, id string) (*models.SharedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	return cloneShare(s), nil
}

func (m *memShares) FindByFileID(_ context.Context, fileID string) (*models.SharedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.records {
		if s.FileID != nil && *s.FileID == fileID {
			return cloneShare(s), nil
		}
	}
	return nil, nil
}

func (m *memShares) UpsertFileShare(_ context.Context, share *models.SharedFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.records {
		if s.FileID != nil && share.FileID != nil && *s.FileID == *share.FileID {
			s.ShareOption = share.ShareOption
			s.SharedWithDepartments = append([]string(nil), share.SharedWithDepartments...)
			s.FullPath = share.FullPath
			share.ID = s.ID
			share.IsPinned = s.IsPinned
			share.PinnedAt = s.PinnedAt
			share.CreatedAt = s.CreatedAt
			return nil
		}
	}
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	share.CreatedAt = time.Now().UTC()
	m.records[share.ID] = cloneShare(share)
	return nil
}

func (m *memShares) UpsertFolderShare(_ context.Context, share *models.SharedFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.records {
		if s.IsFolder && s.Owner == share.Owner && s.FolderPath == share.FolderPath {
			s.ShareOption = share.ShareOption
			s.SharedWithDepartments = append([]string(nil), share.SharedWithDepartments...)
			s.FullPath = share.FullPath
			share.ID = s.ID
			share.IsPinned = s.IsPinned
			share.PinnedAt = s.PinnedAt
			share.CreatedAt = s.CreatedAt
			return nil
		}
	}
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	share.CreatedAt = time.Now().UTC()
	m.records[share.ID] = cloneShare(share)
	return nil
}

func (m *memShares) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

func (m *memShares) DeleteByFileIDs(_ context.Context, owner string, fileIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := map[string]struct{}{}
	for _, id := range fileIDs {
		ids[id] = struct{}{}
	}
	var n int64
	for key, s := range m.records {
		if s.Owner != owner || s.FileID == nil {
			continue
		}
		if _, hit := ids[*s.FileID]; hit {
			delete(m.records, key)
			n++
		}
	}
	return n, nil
}

func (m *memShares) DeleteFolderSharesUnder(_ context.Context, owner, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, s := range m.records {
		if s.Owner != owner || !s.IsFolder {
			continue
		}
		if s.FullPath == prefix || strings.HasPrefix(s.FullPath, prefix+"/") {
			delete(m.records, key)
			n++
		}
	}
	return n, nil
}

func (m *memShares) SetPinned(_ context.Context, id string, pinned bool, pinnedAt *time.Time) (*models.SharedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	s.IsPinned = pinned
	s.PinnedAt = pinnedAt
	return cloneShare(s), nil
}

func (m *memShares) ListByOwner(_ context.Context, owner string) ([]models.SharedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SharedFile
	for _, s := range m.records {
		if s.Owner == owner {
			out = append(out, *cloneShare(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// memTx runs the function directly; the fakes have no transactions.
type memTx struct{}

func (memTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type memBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	removeTreeErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func blobKey(ownerID, path string) string { return ownerID + "\x00" + path }

func (m *memBlobs) Write(ownerID, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[blobKey(ownerID, path)] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobs) Read(ownerID, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[blobKey(ownerID, path)]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *memBlobs) Delete(ownerID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := blobKey(ownerID, path)
	if _, ok := m.files[key]; !ok {
		return fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
	}
	delete(m.files, key)
	return nil
}

func (m *memBlobs) Rename(ownerID, oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldKey, newKey := blobKey(ownerID, oldPath), blobKey(ownerID, newPath)
	if data, ok := m.files[oldKey]; ok {
		m.files[newKey] = data
		delete(m.files, oldKey)
		return nil
	}
	if m.dirs[oldKey] {
		for key, data := range m.files {
			if strings.HasPrefix(key, oldKey+"/") {
				m.files[newKey+key[len(oldKey):]] = data
				delete(m.files, key)
			}
		}
		for key := range m.dirs {
			if key == oldKey || strings.HasPrefix(key, oldKey+"/") {
				m.dirs[newKey+key[len(oldKey):]] = true
				delete(m.dirs, key)
			}
		}
		return nil
	}
	return fmt.Errorf("rename %s: %w", oldPath, domain.ErrStorage)
}

func (m *memBlobs) EnsureDir(ownerID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs := strings.Split(path, "/")
	for i := range segs {
		m.dirs[blobKey(ownerID, strings.Join(segs[:i+1], "/"))] = true
	}
	return nil
}

func (m *memBlobs) Exists(ownerID, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := blobKey(ownerID, path)
	if _, ok := m.files[key]; ok {
		return true, nil
	}
	if m.dirs[key] {
		return true, nil
	}
	return false, nil
}

func (m *memBlobs) RemoveTree(ownerID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeTreeErr != nil {
		return m.removeTreeErr
	}
	key := blobKey(ownerID, path)
	for k := range m.files {
		if strings.HasPrefix(k, key+"/") {
			delete(m.files, k)
		}
	}
	for k := range m.dirs {
		if k == key || strings.HasPrefix(k, key+"/") {
			delete(m.dirs, k)
		}
	}
	return nil
}

// fakeKMS hands out deterministic data keys and records destroyed key ids.
type fakeKMS struct {
	mu      sync.Mutex
	counter int
	keys    map[string]string // id -> plaintext hex
	deleted []string

	generateErr error
	decryptErr  error
}

func newFakeKMS() *fakeKMS {
	return &fakeKMS{keys: map[string]string{}}
}

func (k *fakeKMS) GenerateKey(context.Context) (*kms.DataKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.generateErr != nil {
		return nil, k.generateErr
	}

	k.counter++
	keyBytes := sha256.Sum256([]byte(fmt.Sprintf("key-material-%d", k.counter)))
	ivBytes := sha256.Sum256([]byte(fmt.Sprintf("iv-material-%d", k.counter)))
	plaintext := hex.EncodeToString(keyBytes[:])
	// dkHash covers the raw key bytes, matching the KMS wire contract
	hash := sha256.Sum256(keyBytes[:])

	id := fmt.Sprintf("dk-%d", k.counter)
	k.keys[id] = plaintext

	return &kms.DataKey{
		ID:          id,
		PlaintextDK: plaintext,
		EncryptedDK: "wrapped:" + plaintext,
		IV:          hex.EncodeToString(ivBytes[:16]),
		DKHash:      hex.EncodeToString(hash[:]),
		KeyVersion:  "v1",
	}, nil
}

func (k *fakeKMS) DecryptKey(_ context.Context, ref *models.SecretKeyRef) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.decryptErr != nil {
		return "", k.decryptErr
	}
	plaintext, ok := k.keys[ref.DataKeyID]
	if !ok {
		return "", fmt.Errorf("unknown key %s: %w", ref.DataKeyID, domain.ErrKeyService)
	}
	return plaintext, nil
}

func (k *fakeKMS) DeleteKey(_ context.Context, dataKeyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.deleted = append(k.deleted, dataKeyID)
	delete(k.keys, dataKeyID)
	return nil
}
