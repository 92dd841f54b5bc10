package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/uc-package/swimctl/internal/models"
)

// Spec 镜像筛选条件。每个字段都是可选谓词，nil / false 表示不约束；
// 记录当且仅当满足所有已设置的谓词时被选中。
type Spec struct {
	Family         *string
	Version        *string
	VersionPattern *string
	NameContains   *string
	NamePattern    *string
	Type           *models.ImageType
	OlderThanDays  *int
	UnusedOnly     bool
	Golden         *bool
}

// IsEmpty 是否没有任何谓词
func (s Spec) IsEmpty() bool {
	return s.Family == nil && s.Version == nil && s.VersionPattern == nil &&
		s.NameContains == nil && s.NamePattern == nil && s.Type == nil &&
		s.OlderThanDays == nil && !s.UnusedOnly && s.Golden == nil
}

// InvalidFilterError 筛选条件配置错误（例如正则无法编译），在任何远程调用之前返回
type InvalidFilterError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFilterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid filter %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid filter %s=%q", e.Field, e.Value)
}

func (e *InvalidFilterError) Unwrap() error {
	return e.Err
}

// FromConfig 把配置文件 / 命令行中的筛选条件转换为 Spec，空值不产生谓词
func FromConfig(c models.FilterConfig) (Spec, error) {
	var spec Spec

	if c.Family != "" {
		spec.Family = ptr(c.Family)
	}
	if c.Version != "" {
		spec.Version = ptr(c.Version)
	}
	if c.VersionRegex != "" {
		spec.VersionPattern = ptr(c.VersionRegex)
	}
	if c.NameContains != "" {
		spec.NameContains = ptr(c.NameContains)
	}
	if c.NameRegex != "" {
		spec.NamePattern = ptr(c.NameRegex)
	}
	if c.Type != "" {
		t, err := models.ParseImageType(c.Type)
		if err != nil {
			return Spec{}, &InvalidFilterError{Field: "type", Value: c.Type, Err: err}
		}
		spec.Type = &t
	}
	if c.OlderThanDays < 0 {
		return Spec{}, &InvalidFilterError{Field: "olderThanDays", Value: strconv.Itoa(c.OlderThanDays), Err: fmt.Errorf("must not be negative")}
	}
	if c.OlderThanDays > 0 {
		spec.OlderThanDays = ptr(c.OlderThanDays)
	}
	spec.UnusedOnly = c.UnusedOnly

	golden, err := ParseGolden(c.Golden)
	if err != nil {
		return Spec{}, &InvalidFilterError{Field: "golden", Value: c.Golden, Err: err}
	}
	spec.Golden = golden

	return spec, nil
}

// ParseGolden 解析 true/false/any，any 或空返回 nil
func ParseGolden(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return nil, nil
	case "true", "t", "yes", "y", "1":
		return ptr(true), nil
	case "false", "f", "no", "n", "0":
		return ptr(false), nil
	}
	return nil, fmt.Errorf("expected true, false or any")
}

// Matcher 编译后的筛选条件，正则在每次运行中只编译一次
type Matcher struct {
	spec         Spec
	versionRegex *regexp.Regexp
	nameRegex    *regexp.Regexp
	threshold    time.Duration
	now          time.Time
}

// Compile 编译 Spec，now 用于计算镜像年龄
func Compile(spec Spec, now time.Time) (*Matcher, error) {
	m := &Matcher{spec: spec, now: now.UTC()}

	if spec.VersionPattern != nil {
		re, err := regexp.Compile(*spec.VersionPattern)
		if err != nil {
			return nil, &InvalidFilterError{Field: "versionRegex", Value: *spec.VersionPattern, Err: err}
		}
		m.versionRegex = re
	}
	if spec.NamePattern != nil {
		re, err := regexp.Compile(*spec.NamePattern)
		if err != nil {
			return nil, &InvalidFilterError{Field: "nameRegex", Value: *spec.NamePattern, Err: err}
		}
		m.nameRegex = re
	}
	if spec.OlderThanDays != nil {
		if *spec.OlderThanDays < 0 {
			return nil, &InvalidFilterError{Field: "olderThanDays", Value: strconv.Itoa(*spec.OlderThanDays), Err: fmt.Errorf("must not be negative")}
		}
		m.threshold = time.Duration(*spec.OlderThanDays) * 24 * time.Hour
	}

	return m, nil
}

// Match 判断记录是否满足全部谓词。先做相等 / 子串比较，最后才匹配正则。
func (m *Matcher) Match(img models.ImageRecord) bool {
	s := m.spec

	if s.Family != nil && !strings.EqualFold(img.Family, *s.Family) {
		return false
	}
	if s.Version != nil && !strings.EqualFold(img.Version, *s.Version) {
		return false
	}
	if s.Type != nil && img.Type != *s.Type {
		return false
	}
	if s.Golden != nil && img.Golden != *s.Golden {
		return false
	}
	if s.UnusedOnly && img.UsedCount > 0 {
		return false
	}
	if s.NameContains != nil && !strings.Contains(strings.ToLower(img.Name), strings.ToLower(*s.NameContains)) {
		return false
	}
	// 导入时间未知的记录不受年龄条件约束
	if s.OlderThanDays != nil && !img.ImportedAt.IsZero() && m.now.Sub(img.ImportedAt) < m.threshold {
		return false
	}
	if m.versionRegex != nil && !m.versionRegex.MatchString(img.Version) {
		return false
	}
	if m.nameRegex != nil && !m.nameRegex.MatchString(img.Name) {
		return false
	}
	return true
}

// Select 按原顺序返回满足条件的记录，不修改输入
func Select(records []models.ImageRecord, spec Spec, now time.Time) ([]models.ImageRecord, error) {
	m, err := Compile(spec, now)
	if err != nil {
		return nil, err
	}
	return m.Select(records), nil
}

// Select 按原顺序返回满足条件的记录
func (m *Matcher) Select(records []models.ImageRecord) []models.ImageRecord {
	selected := make([]models.ImageRecord, 0, len(records))
	for _, img := range records {
		if m.Match(img) {
			selected = append(selected, img)
		}
	}
	return selected
}

func ptr[T any](v T) *T {
	return &v
}
