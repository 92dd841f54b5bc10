package models

import (
	"os"

	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"
)

// DefaultConfigPath 未设置 SWIM_CONFIG 时使用的配置文件路径
const DefaultConfigPath = "/etc/swimctl/config.yaml"

// Config 系统配置
type Config struct {
	Catalyst   CatalystConfig   `yaml:"catalyst" json:"catalyst"`
	Filter     FilterConfig     `yaml:"filter" json:"filter"`
	Unlock     UnlockConfig     `yaml:"unlock" json:"unlock"`
	Polling    PollingConfig    `yaml:"polling" json:"polling"`
	Run        RunConfig        `yaml:"run" json:"run"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Kubernetes KubernetesConfig `yaml:"kubernetes" json:"kubernetes"`
}

// CatalystConfig Catalyst Center 连接配置
type CatalystConfig struct {
	BaseURL  string `yaml:"baseURL" json:"baseURL"`   // https://<catalyst-center-host>
	Username string `yaml:"username" json:"username"` // API 用户名
	Password string `yaml:"password" json:"password"` // API 密码
	Token    string `yaml:"token" json:"token"`       // 预先获取的 X-Auth-Token，优先于用户名密码
	Insecure bool   `yaml:"insecure" json:"insecure"` // 跳过 TLS 校验
	Timeout  int    `yaml:"timeout" json:"timeout"`   // 单次请求超时（秒），默认 30

	// LegacyDelete 主删除路径返回 404/405 时是否回退到旧版 /image/{id} 路径
	LegacyDelete bool `yaml:"legacyDelete" json:"legacyDelete"`

	// CredentialsSecret 从 Kubernetes Secret 读取凭据（CronJob 部署时使用）
	CredentialsSecret *SecretRef `yaml:"credentialsSecret,omitempty" json:"credentialsSecret,omitempty"`
}

// SecretRef Kubernetes Secret 引用
type SecretRef struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Name      string `yaml:"name" json:"name"`
}

// FilterConfig 镜像筛选条件，未设置的字段不参与筛选
type FilterConfig struct {
	Family        string `yaml:"family,omitempty" json:"family,omitempty"`
	Version       string `yaml:"version,omitempty" json:"version,omitempty"`
	VersionRegex  string `yaml:"versionRegex,omitempty" json:"versionRegex,omitempty"`
	NameContains  string `yaml:"nameContains,omitempty" json:"nameContains,omitempty"`
	NameRegex     string `yaml:"nameRegex,omitempty" json:"nameRegex,omitempty"`
	Type          string `yaml:"type,omitempty" json:"type,omitempty"`                   // base, smu, rommon, other
	OlderThanDays int    `yaml:"olderThanDays,omitempty" json:"olderThanDays,omitempty"` // 0 表示不限制
	UnusedOnly    bool   `yaml:"unusedOnly,omitempty" json:"unusedOnly,omitempty"`
	Golden        string `yaml:"golden,omitempty" json:"golden,omitempty"` // true, false, any
}

// UnlockConfig 删除前移除 golden 标记的作用域
type UnlockConfig struct {
	Enabled                bool   `yaml:"enabled" json:"enabled"`
	SiteID                 string `yaml:"siteId" json:"siteId"`                                 // 站点 UUID，-1 表示 Global
	DeviceFamilyIdentifier string `yaml:"deviceFamilyIdentifier" json:"deviceFamilyIdentifier"` // 设备族标识（数字字符串）
	DeviceRole             string `yaml:"deviceRole" json:"deviceRole"`                         // ALL, ACCESS, DISTRIBUTION, CORE ...
}

// PollingConfig 异步任务轮询配置
type PollingConfig struct {
	IntervalSeconds    float64 `yaml:"intervalSeconds" json:"intervalSeconds"`       // 初始轮询间隔
	MaxIntervalSeconds float64 `yaml:"maxIntervalSeconds" json:"maxIntervalSeconds"` // 间隔上限
	Multiplier         float64 `yaml:"multiplier" json:"multiplier"`                 // 1 表示固定间隔
	TimeoutSeconds     int     `yaml:"timeoutSeconds" json:"timeoutSeconds"`         // 单个任务最长等待时间
	MaxTransientErrors int     `yaml:"maxTransientErrors" json:"maxTransientErrors"` // 连续异常响应的重试次数
}

// RunConfig 执行模式配置
type RunConfig struct {
	DryRun      bool `yaml:"dryRun" json:"dryRun"`
	AutoConfirm bool `yaml:"autoConfirm" json:"autoConfirm"` // 跳过确认直接删除
	Limit       int  `yaml:"limit" json:"limit"`             // 最多处理的镜像数，0 表示不限制
	Concurrency int  `yaml:"concurrency" json:"concurrency"` // 并发处理数，默认 1（顺序执行）
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	OutputPath string `yaml:"outputPath" json:"outputPath"`
}

// MetricsConfig 指标输出配置
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayURL" json:"pushgatewayURL"` // 为空时不推送
	Job            string `yaml:"job" json:"job"`
	TextfilePath   string `yaml:"textfilePath" json:"textfilePath"` // node_exporter textfile collector 输出路径
}

// ServerConfig API 服务配置
type ServerConfig struct {
	Port      string   `yaml:"port" json:"port"`
	JWTSecret string   `yaml:"jwtSecret" json:"jwtSecret"` // 为空且未配置 APIKeys 时不做认证
	APIKeys   []string `yaml:"apiKeys" json:"apiKeys"`
}

// KubernetesConfig Kubernetes 客户端配置
type KubernetesConfig struct {
	DisableProxy bool `yaml:"disableProxy" json:"disableProxy"` // 禁用 HTTP/HTTPS 代理
	Timeout      int  `yaml:"timeout" json:"timeout"`           // API 请求超时时间（秒），默认 30
}

// LoadConfig 从文件加载配置，未出现在文件中的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Load 加载配置（优先使用环境变量指定的路径），并应用环境变量覆盖
// 自动加载当前目录下的 .env 文件
func Load() (*Config, string, error) {
	// 尝试加载 .env 文件（不存在时忽略）
	_ = godotenv.Load()

	configPath := os.Getenv("SWIM_CONFIG")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		config = DefaultConfig()
	}
	config.ApplyEnv()

	return config, configPath, err
}

// LoadFile 从指定文件加载配置并应用 .env 和环境变量覆盖，文件必须存在
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()

	return config, nil
}

// ApplyEnv 使用环境变量覆盖凭据相关配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CATALYST_BASE_URL"); v != "" {
		c.Catalyst.BaseURL = v
	}
	if v := os.Getenv("CATALYST_USERNAME"); v != "" {
		c.Catalyst.Username = v
	}
	if v := os.Getenv("CATALYST_PASSWORD"); v != "" {
		c.Catalyst.Password = v
	}
	if v := os.Getenv("CATALYST_TOKEN"); v != "" {
		c.Catalyst.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Catalyst: CatalystConfig{
			Timeout:      30,
			LegacyDelete: true,
		},
		Filter: FilterConfig{
			Golden: "any",
		},
		Polling: PollingConfig{
			IntervalSeconds:    2.5,
			MaxIntervalSeconds: 15,
			Multiplier:         1.5,
			TimeoutSeconds:     300,
			MaxTransientErrors: 3,
		},
		Run: RunConfig{
			DryRun:      false,
			AutoConfirm: false,
			Limit:       0,
			Concurrency: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
		Metrics: MetricsConfig{
			Job: "swimctl",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Kubernetes: KubernetesConfig{
			DisableProxy: true,
			Timeout:      30,
		},
	}
}
