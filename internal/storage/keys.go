package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ArtifactStore 是导出产物存储的最小接口，便于在测试中替换 MinIO。
type ArtifactStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CVPrefix 返回某份简历全部产物的前缀。
func CVPrefix(cvID string) string {
	return "cv/" + cvID + "/"
}

// ExportKey 生成导出产物的对象 key，例如 cv/<id>/exports/<uuid>.pdf。
// 每次导出使用新 key，避免 CDN/浏览器缓存旧文件。
func ExportKey(cvID, format string) string {
	return fmt.Sprintf("%sexports/%s.%s", CVPrefix(cvID), uuid.NewString(), strings.ToLower(format))
}

// PreviewKey 生成预览缩略图的对象 key。
func PreviewKey(cvID string) string {
	return fmt.Sprintf("%spreview/%s.jpg", CVPrefix(cvID), uuid.NewString())
}
