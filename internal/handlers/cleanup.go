package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/uc-package/swimctl/internal/auth"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
)

// RunObserver 接收每次运行的结果（指标记录）
type RunObserver interface {
	Observe(report *cleanup.Report)
	ObserveError()
}

// CleanupRequest 清理请求
type CleanupRequest struct {
	Filter models.FilterConfig `json:"filter"`
	// DryRun 省略时按 true 处理
	DryRun *bool `json:"dryRun"`
	// Confirm 为 true 才会执行真实删除，API 没有交互式确认
	Confirm     bool                `json:"confirm"`
	Unlock      models.UnlockConfig `json:"unlock"`
	Limit       int                 `json:"limit"`
	Concurrency int                 `json:"concurrency"`
}

// CleanupHandler 清理执行处理器
type CleanupHandler struct {
	cleaner  Cleaner
	observer RunObserver
	// 同一时间只允许一个真实删除运行
	running sync.Mutex
	log     *zap.Logger
}

// NewCleanupHandler 创建清理执行处理器，observer 可以为 nil
func NewCleanupHandler(cleaner Cleaner, observer RunObserver) *CleanupHandler {
	return &CleanupHandler{
		cleaner:  cleaner,
		observer: observer,
		log:      logger.Named("cleanup-handler"),
	}
}

// RunCleanup 执行一次清理并返回报告
func (h *CleanupHandler) RunCleanup(c *gin.Context) {
	subject, _ := auth.GetSubject(c)

	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式无效: " + err.Error()})
		return
	}

	dryRun := req.DryRun == nil || *req.DryRun
	if !dryRun && !auth.CanDelete(c) {
		h.log.Warn("Delete not permitted",
			zap.String("subject", subject))
		c.JSON(http.StatusForbidden, gin.H{"error": "当前凭据不允许执行删除"})
		return
	}

	if err := ValidateUnlockScope(req.Unlock.Scope()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ValidateRunLimits(req.Limit, req.Concurrency); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := filter.FromConfig(req.Filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !dryRun && spec.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "真实删除至少需要一个筛选条件"})
		return
	}

	opts := cleanup.Options{
		DryRun:       dryRun,
		AutoConfirm:  req.Confirm,
		UnlockGolden: req.Unlock.Enabled,
		Scope:        req.Unlock.Scope(),
		Limit:        req.Limit,
		Concurrency:  req.Concurrency,
	}

	if !dryRun {
		if !h.running.TryLock() {
			c.JSON(http.StatusConflict, gin.H{"error": "已有清理任务在运行"})
			return
		}
		defer h.running.Unlock()
	}

	h.log.Info("Cleanup requested",
		zap.String("subject", subject),
		zap.Bool("dryRun", dryRun),
		zap.Bool("unlockGolden", opts.UnlockGolden),
		zap.Int("limit", opts.Limit))

	report, err := h.cleaner.Run(c.Request.Context(), spec, opts)
	if err != nil {
		if h.observer != nil {
			h.observer.ObserveError()
		}
		h.log.Error("Cleanup failed",
			zap.String("subject", subject),
			zap.Error(err))
		body := gin.H{"error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		c.JSON(statusForError(err), body)
		return
	}

	if h.observer != nil {
		h.observer.Observe(report)
	}

	h.log.Info("Cleanup finished",
		zap.String("subject", subject),
		zap.String("runId", report.RunID),
		zap.Any("counts", report.Counts))

	c.JSON(http.StatusOK, report)
}
