package handlers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uc-package/swimctl/internal/models"
)

// 站点 UUID 或 -1（Global）
var siteIDRegex = regexp.MustCompile(`^(-1|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)

// 设备族标识：纯数字
var deviceFamilyRegex = regexp.MustCompile(`^[0-9]+$`)

// ParseFilterQuery 从查询参数构建筛选条件
func ParseFilterQuery(c *gin.Context) (models.FilterConfig, error) {
	fc := models.FilterConfig{
		Family:       strings.TrimSpace(c.Query("family")),
		Version:      strings.TrimSpace(c.Query("version")),
		VersionRegex: c.Query("versionRegex"),
		NameContains: c.Query("nameContains"),
		NameRegex:    c.Query("nameRegex"),
		Type:         strings.TrimSpace(c.Query("type")),
		Golden:       strings.TrimSpace(c.Query("golden")),
	}

	if v := c.Query("olderThanDays"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fc, fmt.Errorf("olderThanDays 必须是整数")
		}
		fc.OlderThanDays = days
	}

	if v := c.Query("unusedOnly"); v != "" {
		unused, err := strconv.ParseBool(v)
		if err != nil {
			return fc, fmt.Errorf("unusedOnly 必须是 true 或 false")
		}
		fc.UnusedOnly = unused
	}

	return fc, nil
}

// ValidateUnlockScope 验证 golden 解除作用域的格式，缺失字段由清理器统一报告
func ValidateUnlockScope(scope models.UnlockScope) error {
	if scope.SiteID != "" && !siteIDRegex.MatchString(scope.SiteID) {
		return fmt.Errorf("siteId 格式无效，应为站点 UUID 或 -1")
	}
	if scope.DeviceFamilyIdentifier != "" && !deviceFamilyRegex.MatchString(scope.DeviceFamilyIdentifier) {
		return fmt.Errorf("deviceFamilyIdentifier 格式无效，应为数字")
	}
	if len(scope.DeviceRole) > 64 {
		return fmt.Errorf("deviceRole 过长（最大 64 字符）")
	}
	return nil
}

// ValidateRunLimits 验证数量限制和并发数
func ValidateRunLimits(limit, concurrency int) error {
	if limit < 0 {
		return fmt.Errorf("limit 不能为负数")
	}
	if concurrency < 0 || concurrency > 16 {
		return fmt.Errorf("concurrency 超出合理范围 (0-16)")
	}
	return nil
}
