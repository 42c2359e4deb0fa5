package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/tasks"
)

const content = `{"personalInfo":{"fullName":"Jane Doe"},"experience":[],"education":[],"skills":[],"certifications":[],"languages":[],"hobbies":[]}`

type upload struct {
	key         string
	contentType string
	size        int
}

type fakeStore struct {
	uploads   []upload
	deleted   []string
	deleteErr error
}

func (s *fakeStore) UploadFile(_ context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, errors.New("size mismatch")
	}
	s.uploads = append(s.uploads, upload{key: objectName, contentType: contentType, size: len(data)})
	return &minio.UploadInfo{Key: objectName, Size: size}, nil
}

func (s *fakeStore) GeneratePresignedURLWithParams(_ context.Context, key string, _ time.Duration, _ map[string]string) (string, error) {
	return "https://minio.local/" + key, nil
}

func (s *fakeStore) DeleteObject(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.deleteErr
}

func (s *fakeStore) DeletePrefix(context.Context, string) error { return nil }

type published struct {
	channel string
	msg     ExportNotifyMessage
}

type fakePublisher struct {
	messages []published
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	var msg ExportNotifyMessage
	_ = json.Unmarshal(message.([]byte), &msg)
	p.messages = append(p.messages, published{channel: channel, msg: msg})
	return redis.NewIntResult(1, nil)
}

type fakeEngine struct{ shots int }

func (e *fakeEngine) RenderPDF(context.Context, string, page.Profile) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

func (e *fakeEngine) Screenshot(context.Context, string, page.Profile, int) ([]byte, error) {
	e.shots++
	return []byte{0xff, 0xd8, 0xff}, nil
}

type fixture struct {
	repo    *database.CVRepository
	store   *fakeStore
	pub     *fakePublisher
	engine  *fakeEngine
	handler *ExportTaskHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	reg, err := style.NewBuiltinRegistry()
	require.NoError(t, err)

	f := &fixture{
		repo:   database.NewCVRepository(db),
		store:  &fakeStore{},
		pub:    &fakePublisher{},
		engine: &fakeEngine{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := export.NewService(reg, f.engine, export.MetricsSurfaces{}, logger, export.Options{RetryDelay: time.Millisecond})
	f.handler = NewExportTaskHandler(f.repo, f.store, f.pub, svc, logger)
	return f
}

func (f *fixture) createCV(t *testing.T, body string) *database.CVDocument {
	t.Helper()
	doc := &database.CVDocument{UserID: 7, Title: "CV", TemplateID: "classic", Content: datatypes.JSON(body)}
	require.NoError(t, f.repo.Create(context.Background(), doc))
	return doc
}

func task(t *testing.T, cvID, format string) *asynq.Task {
	t.Helper()
	tk, err := tasks.NewCVExportTask(cvID, format, "", "corr-1")
	require.NoError(t, err)
	return tk
}

func TestProcessDOCXExport(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, content)

	require.NoError(t, f.handler.ProcessTask(context.Background(), task(t, doc.ID, "docx")))

	require.Len(t, f.store.uploads, 1)
	up := f.store.uploads[0]
	assert.True(t, strings.HasPrefix(up.key, "cv/"+doc.ID+"/exports/"))
	assert.True(t, strings.HasSuffix(up.key, ".docx"))

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExported, got.Status)
	assert.Equal(t, up.key, got.DocxKey)
	assert.Empty(t, got.PreviewKey)

	require.Len(t, f.pub.messages, 1)
	assert.Equal(t, "user_notify:7", f.pub.messages[0].channel)
	assert.Equal(t, "completed", f.pub.messages[0].msg.Status)
	assert.Equal(t, up.key, f.pub.messages[0].msg.ObjectKey)
	assert.Equal(t, "corr-1", f.pub.messages[0].msg.CorrelationID)
	assert.Zero(t, f.engine.shots)
}

func TestProcessPDFExportCapturesPreview(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, content)

	require.NoError(t, f.handler.ProcessTask(context.Background(), task(t, doc.ID, "pdf")))

	require.Len(t, f.store.uploads, 2)
	assert.Equal(t, "application/pdf", f.store.uploads[0].contentType)
	assert.Equal(t, "image/jpeg", f.store.uploads[1].contentType)
	assert.Equal(t, 1, f.engine.shots)

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, f.store.uploads[0].key, got.PdfKey)
	assert.Equal(t, f.store.uploads[1].key, got.PreviewKey)
}

func TestProcessInvalidContentSkipsRetry(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, `{"experience": {"company": "Acme"}}`)

	err := f.handler.ProcessTask(context.Background(), task(t, doc.ID, "pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, errcode.IsKind(err, errcode.KindSchemaViolation))
	assert.Empty(t, f.store.uploads)

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusFailed, got.Status)

	require.Len(t, f.pub.messages, 1)
	msg := f.pub.messages[0].msg
	assert.Equal(t, "error", msg.Status)
	assert.Equal(t, errcode.SchemaViolation, msg.ErrorCode)
	assert.Equal(t, "failed to export pdf", msg.ErrorMessage)
}

func TestProcessUnsupportedFormat(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, content)

	err := f.handler.ProcessTask(context.Background(), task(t, doc.ID, "odt"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, errcode.IsKind(err, errcode.KindUnsupportedFormat))
}

func TestProcessMissingDocumentIsDropped(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.handler.ProcessTask(context.Background(), task(t, "00000000-0000-0000-0000-000000000000", "pdf")))
	assert.Empty(t, f.pub.messages)
}

func TestProcessMalformedPayload(t *testing.T) {
	f := newFixture(t)
	err := f.handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeCVExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReExportRemovesReplacedObjects(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, content)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "pdf")))
	assert.Empty(t, f.store.deleted)
	first, err := f.repo.Get(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "pdf")))
	second, err := f.repo.Get(ctx, doc.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.PdfKey, second.PdfKey)
	assert.NotEqual(t, first.PreviewKey, second.PreviewKey)
	assert.ElementsMatch(t, []string{first.PdfKey, first.PreviewKey}, f.store.deleted)

	// 另一种格式的产物不受影响
	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "docx")))
	assert.Len(t, f.store.deleted, 2)
}

func TestReExportToleratesMissingOldObject(t *testing.T) {
	f := newFixture(t)
	doc := f.createCV(t, content)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "docx")))
	f.store.deleteErr = minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "docx")))

	f.store.deleteErr = errors.New("connection reset")
	require.NoError(t, f.handler.ProcessTask(ctx, task(t, doc.ID, "docx")))

	got, err := f.repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, f.store.uploads[len(f.store.uploads)-1].key, got.DocxKey)
	assert.Len(t, f.store.deleted, 2)
}
