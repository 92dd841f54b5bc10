package catalyst

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/uc-package/swimctl/internal/models"
)

// 不同版本的 /image/importation 返回的字段名略有差异，按顺序取第一个非空值
var (
	idKeys      = []string{"imageUuid", "id", "imageId"}
	nameKeys    = []string{"name", "imageName"}
	versionKeys = []string{"version", "softwareVersion", "displayVersion"}
	familyKeys  = []string{"family", "familyName"}
	typeKeys    = []string{"imageType", "type"}
	goldenKeys  = []string{"isTaggedGolden", "isGolden", "golden"}
	usedKeys    = []string{"usedDevicesCount", "usingDeviceCount", "deviceCount"}
	timeKeys    = []string{"createdTime", "importedDate", "lastUpdateTime"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeRecord 把原始 JSON 记录转换为 ImageRecord
func normalizeRecord(raw map[string]any) models.ImageRecord {
	rawType := firstString(raw, typeKeys...)
	return models.ImageRecord{
		ID:         firstString(raw, idKeys...),
		Name:       firstString(raw, nameKeys...),
		Version:    firstString(raw, versionKeys...),
		Family:     firstString(raw, familyKeys...),
		Type:       models.ClassifyImageType(rawType),
		RawType:    rawType,
		Golden:     firstBool(raw, goldenKeys...),
		UsedCount:  firstInt(raw, usedKeys...),
		ImportedAt: firstTime(raw, timeKeys...),
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// firstBool 字段缺失视为 false
func firstBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil && b {
				return true
			}
		}
	}
	return false
}

// firstInt 无法解析的计数按 0（未使用）处理
func firstInt(raw map[string]any, keys ...string) int {
	for _, k := range keys {
		var n int64
		var err error
		switch v := raw[k].(type) {
		case json.Number:
			n, err = v.Int64()
			if err != nil {
				var f float64
				f, err = v.Float64()
				n = int64(f)
			}
		case float64:
			n = int64(v)
		case string:
			n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		default:
			continue
		}
		if err == nil && n > 0 {
			return int(n)
		}
	}
	return 0
}

func firstTime(raw map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		if t := parseTimestamp(raw[k]); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// parseTimestamp 支持秒 / 毫秒时间戳和常见的 ISO 格式，统一转为 UTC
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpoch(n)
		}
		if f, err := t.Float64(); err == nil {
			return fromEpoch(int64(f))
		}
	case float64:
		return fromEpoch(int64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(n)
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

func fromEpoch(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
