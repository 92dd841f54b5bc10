package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uc-package/swimctl/internal/auth"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
)

// Cleaner 处理器依赖的清理能力
type Cleaner interface {
	Preview(ctx context.Context, spec filter.Spec) ([]models.ImageRecord, error)
	Run(ctx context.Context, spec filter.Spec, opts cleanup.Options) (*cleanup.Report, error)
}

// ImageListResponse 候选镜像列表响应
type ImageListResponse struct {
	Images []models.ImageRecord `json:"images"`
	Total  int                  `json:"total"`
}

// ImageHandler 镜像预览处理器
type ImageHandler struct {
	cleaner Cleaner
	log     *zap.Logger
}

// NewImageHandler 创建镜像预览处理器
func NewImageHandler(cleaner Cleaner) *ImageHandler {
	return &ImageHandler{
		cleaner: cleaner,
		log:     logger.Named("image-handler"),
	}
}

// ListImages 按查询参数筛选并返回候选镜像，不做任何修改
func (h *ImageHandler) ListImages(c *gin.Context) {
	subject, _ := auth.GetSubject(c)

	fc, err := ParseFilterQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spec, err := filter.FromConfig(fc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := h.cleaner.Preview(c.Request.Context(), spec)
	if err != nil {
		h.log.Error("Failed to preview images",
			zap.String("subject", subject),
			zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImageListResponse{
		Images: images,
		Total:  len(images),
	})
}

// statusForError 把清理流程的错误映射为 HTTP 状态码
func statusForError(err error) int {
	var filterErr *filter.InvalidFilterError
	var configErr *cleanup.ConfigError
	switch {
	case errors.As(err, &filterErr), errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, catalyst.ErrUnauthorized), errors.Is(err, catalyst.ErrMissingCredentials):
		// 上游认证失败，不是调用方的问题
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
