package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"github.com/uc-package/swimctl/internal/task"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConfigError 运行参数错误，在任何远程调用之前返回
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Msg
}

// ConfirmFunc 删除前请求操作员确认，返回 false 表示不执行
type ConfirmFunc func(ctx context.Context, candidates []models.ImageRecord) bool

// Options 一次运行的模式参数
type Options struct {
	DryRun       bool
	AutoConfirm  bool
	Confirm      ConfirmFunc
	UnlockGolden bool
	Scope        models.UnlockScope
	Limit        int // 0 表示不限制
	Concurrency  int // <=1 顺序执行
}

// OptionsFromConfig 从配置构建运行参数
func OptionsFromConfig(config *models.Config) Options {
	return Options{
		DryRun:       config.Run.DryRun,
		AutoConfirm:  config.Run.AutoConfirm,
		UnlockGolden: config.Unlock.Enabled,
		Scope:        config.Unlock.Scope(),
		Limit:        config.Run.Limit,
		Concurrency:  config.Run.Concurrency,
	}
}

// Validate 检查运行参数
func (o Options) Validate() error {
	if o.UnlockGolden {
		if missing := o.Scope.Missing(); len(missing) > 0 {
			return &ConfigError{Msg: "unlocking golden images requires " + strings.Join(missing, ", ")}
		}
	}
	if o.Limit < 0 {
		return &ConfigError{Msg: "limit must not be negative"}
	}
	return nil
}

// ImageCleaner 按筛选条件删除 SWIM 镜像
type ImageCleaner struct {
	client   catalyst.Client
	poller   *task.Poller
	unlocker *GoldenUnlocker
	log      *zap.Logger
	now      func() time.Time
}

// NewImageCleaner 创建镜像清理器
func NewImageCleaner(client catalyst.Client, poller *task.Poller) *ImageCleaner {
	log := logger.Named("cleanup")
	return &ImageCleaner{
		client:   client,
		poller:   poller,
		unlocker: NewGoldenUnlocker(client, poller, log),
		log:      log,
		now:      time.Now,
	}
}

// Preview 获取镜像清单并返回满足筛选条件的候选镜像
func (c *ImageCleaner) Preview(ctx context.Context, spec filter.Spec) ([]models.ImageRecord, error) {
	matcher, err := filter.Compile(spec, c.now())
	if err != nil {
		return nil, err
	}

	images, err := c.client.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	candidates := matcher.Select(images)
	c.log.Info("Selected candidates",
		zap.Int("total", len(images)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// Run 完整执行：校验参数 → 获取清单 → 筛选 → 处理候选镜像
func (c *ImageCleaner) Run(ctx context.Context, spec filter.Spec, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	candidates, err := c.Preview(ctx, spec)
	if err != nil {
		return nil, err
	}

	return c.Process(ctx, candidates, opts)
}

// Process 处理已筛选的候选镜像。单个镜像失败不影响其他镜像；
// 认证失败或 ctx 取消时停止启动新的镜像，已提交的删除不会回滚。
func (c *ImageCleaner) Process(ctx context.Context, candidates []models.ImageRecord, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
		DryRun:    opts.DryRun,
	}
	log := c.log.With(zap.String("runId", report.RunID))
	acc := newAccumulator(len(candidates))

	defer func() {
		acc.build(report)
		report.FinishedAt = c.now()
	}()

	if opts.DryRun {
		for i, img := range candidates {
			acc.record(i, Entry{Image: img, Outcome: OutcomeSkippedDryRun})
		}
		log.Info("Dry run, no deletions performed", zap.Int("candidates", len(candidates)))
		return report, nil
	}

	if len(candidates) == 0 {
		log.Info("Nothing to delete (no matches)")
		return report, nil
	}

	if !opts.AutoConfirm && (opts.Confirm == nil || !opts.Confirm(ctx, candidates)) {
		for i, img := range candidates {
			acc.record(i, Entry{Image: img, Outcome: OutcomeAwaitingConfirmation})
		}
		report.Halted = true
		log.Info("Deletion not confirmed, halting before any change", zap.Int("candidates", len(candidates)))
		return report, nil
	}

	limit := len(candidates)
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}
	for i := limit; i < len(candidates); i++ {
		acc.record(i, Entry{
			Image:   candidates[i],
			Outcome: OutcomeSkippedLimit,
			Reason:  fmt.Sprintf("limit of %d reached", opts.Limit),
		})
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	seen := make(map[string]int, limit)
	for i := 0; i < limit; i++ {
		i, img := i, candidates[i]

		if img.ID != "" {
			if first, dup := seen[img.ID]; dup {
				acc.record(i, Entry{
					Image:   img,
					Outcome: OutcomeDeleteFailed,
					Reason:  fmt.Sprintf("duplicate image id (same as candidate #%d)", first+1),
				})
				continue
			}
			seen[img.ID] = i
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				acc.record(i, Entry{Image: img, Outcome: OutcomeAborted, Reason: "run aborted before start"})
				return nil
			}
			entry, err := c.processOne(gctx, img, opts)
			acc.record(i, entry)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		// 被中止时尚未排队的镜像
		for i := 0; i < limit; i++ {
			if !acc.recorded(i) {
				acc.record(i, Entry{Image: candidates[i], Outcome: OutcomeAborted, Reason: "run aborted before start"})
			}
		}
		log.Error("Run aborted", zap.Error(err))
		return report, err
	}

	return report, nil
}

// processOne 单个镜像的流水线：[移除 golden 标记] → 提交删除 → 轮询任务
func (c *ImageCleaner) processOne(ctx context.Context, img models.ImageRecord, opts Options) (Entry, error) {
	entry := Entry{Image: img}
	log := c.log.With(zap.String("imageId", img.ID), zap.String("name", img.Name))

	if img.ID == "" {
		entry.Outcome = OutcomeDeleteFailed
		entry.Reason = "missing image id"
		return entry, nil
	}

	if img.Golden {
		if !opts.UnlockGolden {
			entry.Outcome = OutcomeSkippedGolden
			entry.Reason = "image is golden; enable golden unlock to delete it"
			log.Info("Skipping golden image")
			return entry, nil
		}

		res, err := c.unlocker.Unlock(ctx, img, opts.Scope)
		if err != nil || !res.Unlocked {
			entry.Outcome = OutcomeUnlockFailed
			entry.Reason = res.Reason
			entry.TaskID = res.TaskID
			log.Warn("Failed to remove golden tag", zap.String("reason", res.Reason))
			return entry, err
		}
		// 本次运行内视为已解除，不重新获取
		entry.Unlocked = true
		entry.Image.Golden = false
	}

	log.Info("Deleting image", zap.String("version", img.Version))
	taskID, err := c.client.DeleteImage(ctx, img.ID)
	if err != nil {
		entry.Outcome = OutcomeDeleteFailed
		entry.Reason = deleteFailureReason(err)
		log.Warn("Delete request rejected", zap.Error(err))
		if errors.Is(err, catalyst.ErrUnauthorized) {
			return entry, err
		}
		return entry, ctx.Err()
	}

	entry.TaskID = taskID
	if taskID == "" {
		entry.Outcome = OutcomeDeleted
		log.Info("Deleted image")
		return entry, nil
	}

	res, err := c.poller.Await(ctx, taskID)
	entry.Polls = res.Polls
	switch res.State {
	case task.Succeeded:
		entry.Outcome = OutcomeDeleted
		log.Info("Deleted image", zap.String("taskId", taskID))
	case task.TimedOut:
		entry.Outcome = OutcomeTimedOut
		entry.Reason = res.Reason
		log.Warn("Delete task timed out", zap.String("taskId", taskID))
	default:
		entry.Outcome = OutcomeDeleteFailed
		entry.Reason = "task failed: " + res.Reason
		log.Warn("Delete task failed", zap.String("taskId", taskID), zap.String("reason", res.Reason))
	}
	return entry, err
}

// deleteFailureReason 把提交阶段的错误转换为报告中的原因
func deleteFailureReason(err error) string {
	switch {
	case errors.Is(err, catalyst.ErrNotFound):
		return "not found (already deleted?): " + err.Error()
	case errors.Is(err, catalyst.ErrConflict):
		return "conflict (golden or in use): " + err.Error()
	}
	return err.Error()
}
