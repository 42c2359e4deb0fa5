package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCVExport = "cv:export"
)

// CVExportPayload 描述一次异步导出所需的最小信息。
type CVExportPayload struct {
	CVID          string `json:"cv_id"`
	Format        string `json:"format"`
	PageProfile   string `json:"page_profile,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// NewCVExportTask 构造一个新的简历导出任务。
func NewCVExportTask(cvID, format, pageProfile, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CVExportPayload{
		CVID:          cvID,
		Format:        format,
		PageProfile:   pageProfile,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCVExport, payload), nil
}
