package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/auth"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

const janeDoe = `{
  "personalInfo": {"fullName": "Jane Doe", "jobTitle": "Engineer", "email": "j@x.com", "phone": "", "address": "", "summary": ""},
  "experience": [{"id": "e1", "company": "Acme", "position": "Dev", "startDate": "2020", "endDate": "2021", "description": "- Did X\n- Did Y", "current": false}],
  "education": [], "skills": [], "certifications": [], "languages": [], "hobbies": []
}`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedCV(t *testing.T, repo *database.CVRepository, userID uint) *database.CVDocument {
	t.Helper()
	doc := &database.CVDocument{UserID: userID, Title: "Mine", TemplateID: "classic", Content: datatypes.JSON(janeDoe)}
	require.NoError(t, repo.Create(context.Background(), doc))
	return doc
}

type fakeStorage struct {
	mu       sync.Mutex
	deleted  []string
	lastKey  string
	lastArgs map[string]string
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, size int64, _ string) (*minio.UploadInfo, error) {
	_, _ = io.Copy(io.Discard, reader)
	return &minio.UploadInfo{Key: objectName, Size: size}, nil
}

func (s *fakeStorage) GeneratePresignedURLWithParams(_ context.Context, key string, _ time.Duration, params map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKey = key
	s.lastArgs = params
	return "https://example.invalid/" + key, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, prefix)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeRate struct {
	counts map[string]int64
}

func (r *fakeRate) Incr(ctx context.Context, key string) *redis.IntCmd {
	if r.counts == nil {
		r.counts = map[string]int64{}
	}
	r.counts[key]++
	return redis.NewIntResult(r.counts[key], nil)
}

func (r *fakeRate) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

type fakeEngine struct {
	err error
}

func (e *fakeEngine) RenderPDF(_ context.Context, html string, _ page.Profile) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte("%PDF-1.7 " + html[:min(len(html), 16)]), nil
}

type fakeValidator struct{}

func (fakeValidator) ValidateAccessToken(token string) (*auth.TokenClaims, error) {
	if token != "good-token" {
		return nil, errors.New("invalid token")
	}
	return &auth.TokenClaims{UserID: 1, TokenType: "access"}, nil
}

func newRegistry(t *testing.T) *style.BuiltinRegistry {
	t.Helper()
	reg, err := style.NewBuiltinRegistry()
	require.NoError(t, err)
	return reg
}

func newExporter(t *testing.T, engine *fakeEngine) *export.Service {
	t.Helper()
	opts := export.DefaultOptions()
	opts.RetryDelay = time.Millisecond
	return export.NewService(newRegistry(t), engine, export.MetricsSurfaces{}, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
}

// asUser 模拟鉴权中间件注入 userID。
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}
