package catalyst

import (
	"context"

	"github.com/uc-package/swimctl/internal/models"
)

// TaskState 异步任务状态
type TaskState int

const (
	TaskRunning TaskState = iota
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	}
	return "unknown"
}

// TaskStatus 一次任务状态查询的结果
type TaskStatus struct {
	State  TaskState
	Reason string // 失败时服务端返回的原因，原样保留
}

// Client Catalyst Center SWIM 镜像仓库客户端接口
type Client interface {
	// ListImages 获取全部镜像记录（不依赖服务端筛选）
	ListImages(ctx context.Context) ([]models.ImageRecord, error)
	// DeleteImage 提交删除请求，返回任务 ID；服务端同步完成时返回空字符串
	DeleteImage(ctx context.Context, imageID string) (string, error)
	// RemoveGoldenTag 移除指定作用域下的 golden 标记，返回任务 ID（可能为空）
	RemoveGoldenTag(ctx context.Context, scope models.UnlockScope, imageID string) (string, error)
	// GetTaskStatus 查询异步任务状态
	GetTaskStatus(ctx context.Context, taskID string) (TaskStatus, error)
}

// NewClient 根据配置创建客户端
func NewClient(config *models.CatalystConfig) (Client, error) {
	return NewHTTPClient(config)
}
