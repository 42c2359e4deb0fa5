package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestCVRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewCVRepository(newTestDB(t))

	doc := &CVDocument{UserID: 7, Title: "Mine", TemplateID: "classic", Content: datatypes.JSON(`{"hobbies":[]}`)}
	require.NoError(t, repo.Create(ctx, doc))
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, StatusDraft, doc.Status)

	got, err := repo.GetForUser(ctx, doc.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)

	_, err = repo.GetForUser(ctx, doc.ID, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetForUser(ctx, "not-a-uuid", 7)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Update(ctx, got, "Renamed", "modern", datatypes.JSON(`{"hobbies":["chess"]}`)))
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "modern", got.TemplateID)

	require.NoError(t, repo.SetArtifact(ctx, doc.ID, "docx", "cv/x/exports/a.docx"))
	require.NoError(t, repo.SetPreview(ctx, doc.ID, "cv/x/preview/a.jpg"))
	got, err = repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExported, got.Status)
	assert.Equal(t, "cv/x/exports/a.docx", got.ArtifactKey("docx"))
	assert.Equal(t, "", got.ArtifactKey("pdf"))
	assert.Equal(t, "cv/x/preview/a.jpg", got.PreviewKey)

	assert.Error(t, repo.SetArtifact(ctx, doc.ID, "odt", "k"))

	list, err := repo.ListForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, got))
	_, err = repo.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
