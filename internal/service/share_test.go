package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
)

func TestShareUpsertKeepsHandle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := env.mustUpload(t, "report.txt", []byte("x"))

	first, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.SharePrivate,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://drive.test/share/"+first.SharedFile.ID, first.ShareLink)

	// Re-sharing with a different tier keeps the same handle
	second, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SharedFile.ID, second.SharedFile.ID)
	assert.Equal(t, models.SharePublic, second.SharedFile.ShareOption)

	// The file record carries the back-reference
	rec, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.True(t, rec.Shared)
}

func TestShareValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := env.mustUpload(t, "report.txt", []byte("x"))

	tests := []struct {
		name string
		req  services.CreateShareRequest
	}{
		{"missing target", services.CreateShareRequest{ShareOption: models.SharePublic}},
		{"both targets", services.CreateShareRequest{FileID: file.ID, FolderPath: "x", ShareOption: models.SharePublic}},
		{"unknown option", services.CreateShareRequest{FileID: file.ID, ShareOption: "open-bar"}},
		{"secret tier on plain file", services.CreateShareRequest{FileID: file.ID, ShareOption: models.ShareSecret}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registry.CreateOrUpdate(ctx, alice, &tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := env.registry.CreateOrUpdate(ctx, models.Principal{}, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.SharePublic,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDepartmentShareDefaultsToOwnDepartment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := env.mustUpload(t, "report.txt", []byte("x"))

	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.ShareDepartment,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, result.SharedFile.SharedWithDepartments)

	// Duplicates and blanks are cleaned up
	result, err = env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.ShareDepartment,
		Departments: []string{" Eng ", "eng", "", "sales"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "sales"}, result.SharedFile.SharedWithDepartments)

	// No usable department anywhere fails
	nobody := models.Principal{UserID: "drifter"}
	other := env.mustUploadAs(t, nobody, "d.txt", []byte("y"))
	_, err = env.registry.CreateOrUpdate(ctx, nobody, &services.CreateShareRequest{
		FileID:      other.ID,
		ShareOption: models.ShareDepartment,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func (e *testEnv) mustUploadAs(t *testing.T, p models.Principal, relPath string, data []byte) models.File {
	t.Helper()
	created, err := e.manager.Upload(context.Background(), p, []services.UploadInput{
		{RelativePath: relPath, ContentType: "text/plain", Data: data},
	}, false)
	require.NoError(t, err)
	return created[0]
}

func TestSecretShareExportsKeyOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.manager.Upload(ctx, alice, []services.UploadInput{
		{RelativePath: "secret.txt", ContentType: "text/plain", Data: []byte("classified")},
	}, true)
	require.NoError(t, err)
	file := created[0]

	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.ShareSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, env.kms.keys[file.SecretKey.DataKeyID], result.PlaintextDK)

	// The key never lands in a stored record
	stored, err := env.shares.GetByID(ctx, result.SharedFile.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.FullPath, result.PlaintextDK)

	// KMS outage makes the export fail without touching the registry
	env.kms.decryptErr = domain.ErrKeyService
	_, err = env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.ShareSecret,
	})
	assert.ErrorIs(t, err, domain.ErrKeyService)
}

func TestFolderShareResolvesBareLeaf(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.mustUpload(t, "projects/2026/reports/summary.txt", []byte("x"))

	// A bare leaf name resolves to its ancestor chain
	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "reports",
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/2026/reports", result.SharedFile.FullPath)

	// A full path is taken as-is
	result, err = env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "projects/2026",
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/2026", result.SharedFile.FullPath)

	// A root folder with the same name as a nested one wins the fallback
	env.mustUpload(t, "reports/root.txt", []byte("y"))
	result, err = env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "reports",
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)
	assert.Equal(t, "reports", result.SharedFile.FullPath)

	_, err = env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "nonexistent",
		ShareOption: models.SharePublic,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestShareGetGatedByEvaluator(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := env.mustUpload(t, "report.txt", []byte("x"))
	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.ShareDepartment,
		Departments: []string{"eng"},
	})
	require.NoError(t, err)

	view, err := env.registry.Get(ctx, models.Principal{UserID: "bob", Department: "eng"}, result.SharedFile.ID)
	require.NoError(t, err)
	require.NotNil(t, view.File)
	assert.Equal(t, file.ID, view.File.ID)

	_, err = env.registry.Get(ctx, models.Principal{UserID: "carol", Department: "sales"}, result.SharedFile.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.registry.Get(ctx, models.Principal{}, result.SharedFile.ID)
	assert.ErrorIs(t, err, domain.ErrLoginRequired)
}

func TestShareDeleteOwnerOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := env.mustUpload(t, "report.txt", []byte("x"))
	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FileID:      file.ID,
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)

	err = env.registry.Delete(ctx, models.Principal{UserID: "bob"}, result.SharedFile.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, env.registry.Delete(ctx, alice, result.SharedFile.ID))

	rec, err := env.files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.False(t, rec.Shared)
}

func TestSharePinOrdering(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.mustUpload(t, "a.txt", []byte("a"))
	b := env.mustUpload(t, "b.txt", []byte("b"))

	shareA, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{FileID: a.ID, ShareOption: models.SharePublic})
	require.NoError(t, err)
	shareB, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{FileID: b.ID, ShareOption: models.SharePublic})
	require.NoError(t, err)

	pinned, err := env.registry.SetPinned(ctx, alice, shareA.SharedFile.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	require.NotNil(t, pinned.PinnedAt)

	views, err := env.registry.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, shareA.SharedFile.ID, views[0].SharedFile.ID)
	assert.Equal(t, shareB.SharedFile.ID, views[1].SharedFile.ID)

	unpinned, err := env.registry.SetPinned(ctx, alice, shareA.SharedFile.ID, false)
	require.NoError(t, err)
	assert.False(t, unpinned.IsPinned)
	assert.Nil(t, unpinned.PinnedAt)
}

func TestDownloadFolderArchive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.mustUpload(t, "pack/one.txt", []byte("1"))
	env.mustUpload(t, "pack/sub/two.txt", []byte("2"))

	result, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "pack",
		ShareOption: models.SharePublic,
	})
	require.NoError(t, err)

	content, err := env.registry.DownloadFolderArchive(ctx, models.Principal{}, result.SharedFile.ID)
	require.NoError(t, err)
	assert.Equal(t, "pack.zip", content.FileName)
	assert.Equal(t, "application/zip", content.ContentType)
	assert.NotEmpty(t, content.Data)

	// Department-shared folders bounce anonymous callers to login
	deptShare, err := env.registry.CreateOrUpdate(ctx, alice, &services.CreateShareRequest{
		FolderPath:  "pack",
		ShareOption: models.ShareDepartment,
		Departments: []string{"eng"},
	})
	require.NoError(t, err)

	_, err = env.registry.DownloadFolderArchive(ctx, models.Principal{}, deptShare.SharedFile.ID)
	assert.ErrorIs(t, err, domain.ErrLoginRequired)
}
