package models

import (
	"fmt"
	"strings"
	"time"
)

// ImageType 镜像类型
type ImageType string

const (
	ImageTypeBase    ImageType = "base"   // 系统镜像
	ImageTypeSMU     ImageType = "smu"    // 补丁 / 维护单元
	ImageTypeROMMON  ImageType = "rommon" // 引导程序
	ImageTypeOther   ImageType = "other"
	ImageTypeUnknown ImageType = ""
)

// ParseImageType 解析用户输入的镜像类型
func ParseImageType(s string) (ImageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base", "bin", "system", "system_sw":
		return ImageTypeBase, nil
	case "smu", "sp", "service-pack", "maintenance":
		return ImageTypeSMU, nil
	case "rommon", "bootloader", "boot-loader":
		return ImageTypeROMMON, nil
	case "other":
		return ImageTypeOther, nil
	}
	return ImageTypeUnknown, fmt.Errorf("unknown image type %q (expected base, smu, rommon or other)", s)
}

// ClassifyImageType 根据 Catalyst Center 返回的原始类型字符串归类
func ClassifyImageType(raw string) ImageType {
	s := strings.ToLower(raw)
	switch {
	case s == "":
		return ImageTypeOther
	case strings.Contains(s, "smu"), strings.Contains(s, "maintenance"), strings.Contains(s, "service_pack"), strings.Contains(s, "apsp"):
		return ImageTypeSMU
	case strings.Contains(s, "rommon"), strings.Contains(s, "boot"):
		return ImageTypeROMMON
	case strings.Contains(s, "system"), strings.Contains(s, "bin"), strings.Contains(s, "base"), strings.Contains(s, "sw"):
		return ImageTypeBase
	}
	return ImageTypeOther
}

// ImageRecord 镜像仓库中的一条记录（获取时的只读快照）
type ImageRecord struct {
	ID         string    `json:"imageUuid"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Family     string    `json:"family"`
	Type       ImageType `json:"type"`
	RawType    string    `json:"rawType,omitempty"` // 服务端原始类型字符串
	Golden     bool      `json:"golden"`
	UsedCount  int       `json:"usedCount"`
	ImportedAt time.Time `json:"importedAt,omitempty"` // 零值表示未知
}

// UnlockScope 移除 golden 标记所需的作用域，由调用方提供而不是从记录推导
type UnlockScope struct {
	SiteID                 string `json:"siteId"`
	DeviceFamilyIdentifier string `json:"deviceFamilyIdentifier"`
	DeviceRole             string `json:"deviceRole"`
}

// Missing 返回未填写的作用域字段名
func (s UnlockScope) Missing() []string {
	var missing []string
	if s.SiteID == "" {
		missing = append(missing, "siteId")
	}
	if s.DeviceFamilyIdentifier == "" {
		missing = append(missing, "deviceFamilyIdentifier")
	}
	if s.DeviceRole == "" {
		missing = append(missing, "deviceRole")
	}
	return missing
}

// Scope 从配置构建 UnlockScope
func (u UnlockConfig) Scope() UnlockScope {
	return UnlockScope{
		SiteID:                 u.SiteID,
		DeviceFamilyIdentifier: u.DeviceFamilyIdentifier,
		DeviceRole:             u.DeviceRole,
	}
}
