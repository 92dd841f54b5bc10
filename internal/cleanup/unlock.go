package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/models"
	"github.com/uc-package/swimctl/internal/task"
	"go.uber.org/zap"
)

// UnlockResult 移除 golden 标记的结果
type UnlockResult struct {
	Unlocked bool
	Reason   string
	TaskID   string
}

// GoldenUnlocker 删除前移除候选镜像的 golden 标记
type GoldenUnlocker struct {
	client catalyst.Client
	poller *task.Poller
	log    *zap.Logger
}

// NewGoldenUnlocker 创建 golden 标记移除器
func NewGoldenUnlocker(client catalyst.Client, poller *task.Poller, log *zap.Logger) *GoldenUnlocker {
	return &GoldenUnlocker{
		client: client,
		poller: poller,
		log:    log,
	}
}

// Unlock 在给定作用域下移除 golden 标记；服务端返回任务时等待任务完成。
// 只有认证失败或 ctx 取消会返回 error，其余失败体现在 UnlockResult 中。
func (u *GoldenUnlocker) Unlock(ctx context.Context, img models.ImageRecord, scope models.UnlockScope) (UnlockResult, error) {
	u.log.Info("Removing golden tag",
		zap.String("imageId", img.ID),
		zap.String("siteId", scope.SiteID),
		zap.String("deviceFamilyIdentifier", scope.DeviceFamilyIdentifier),
		zap.String("deviceRole", scope.DeviceRole))

	taskID, err := u.client.RemoveGoldenTag(ctx, scope, img.ID)
	if err != nil {
		if errors.Is(err, catalyst.ErrUnauthorized) {
			return UnlockResult{Reason: err.Error()}, err
		}
		if ctx.Err() != nil {
			return UnlockResult{Reason: err.Error()}, ctx.Err()
		}
		return UnlockResult{Reason: fmt.Sprintf("remove golden tag: %v", err)}, nil
	}

	if taskID == "" {
		return UnlockResult{Unlocked: true}, nil
	}

	res, err := u.poller.Await(ctx, taskID)
	if err != nil {
		return UnlockResult{TaskID: taskID, Reason: res.Reason}, err
	}

	switch res.State {
	case task.Succeeded:
		return UnlockResult{Unlocked: true, TaskID: taskID}, nil
	case task.TimedOut:
		return UnlockResult{TaskID: taskID, Reason: "remove golden tag task timed out: " + res.Reason}, nil
	default:
		return UnlockResult{TaskID: taskID, Reason: "remove golden tag task failed: " + res.Reason}, nil
	}
}
