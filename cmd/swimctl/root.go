package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"github.com/uc-package/swimctl/internal/task"
	"go.uber.org/zap"
)

// globalOptions 所有子命令共用的参数
type globalOptions struct {
	configPath string
	baseURL    string
	username   string
	password   string
	token      string
	insecure   bool
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "swimctl",
		Short: "Filter and delete SWIM images on Cisco Catalyst Center",
		Long: `swimctl selects software images from the Catalyst Center SWIM repository by
family, version, name, type, age, usage and golden status, then deletes them.
Golden images are only deleted when golden unlock is enabled with a full scope.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to the configuration file (default $SWIM_CONFIG or "+models.DefaultConfigPath+")")
	pf.StringVar(&g.baseURL, "base-url", "", "Catalyst Center base URL, e.g. https://dnac.example.com")
	pf.StringVarP(&g.username, "username", "u", "", "API username")
	pf.StringVarP(&g.password, "password", "p", "", "API password (prefer CATALYST_PASSWORD)")
	pf.StringVar(&g.token, "token", "", "Pre-issued X-Auth-Token, used instead of username/password")
	pf.BoolVarP(&g.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: console or json")

	cmd.AddCommand(
		newListCommand(g),
		newDeleteCommand(g),
		newTokenCommand(g),
		newVersionCommand(),
	)
	return cmd
}

// load 读取配置、叠加命令行参数并初始化日志
func (g *globalOptions) load() (*models.Config, error) {
	var config *models.Config
	var loadErr error
	var configPath string

	if g.configPath != "" {
		c, err := models.LoadFile(g.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", g.configPath, err)
		}
		config, configPath = c, g.configPath
	} else {
		config, configPath, loadErr = models.Load()
	}

	g.apply(config)

	if err := logger.Init(&logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	}); err != nil {
		return nil, err
	}

	// 没有配置文件是正常情况，全部参数可以来自命令行和环境变量
	if loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
		logger.Warn("Failed to load config, using defaults",
			zap.String("path", configPath),
			zap.Error(loadErr))
	}
	return config, nil
}

// apply 命令行参数覆盖配置文件
func (g *globalOptions) apply(config *models.Config) {
	if g.baseURL != "" {
		config.Catalyst.BaseURL = g.baseURL
	}
	if g.username != "" {
		config.Catalyst.Username = g.username
	}
	if g.password != "" {
		config.Catalyst.Password = g.password
	}
	if g.token != "" {
		config.Catalyst.Token = g.token
	}
	if g.insecure {
		config.Catalyst.Insecure = true
	}
	if g.logLevel != "" {
		config.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		config.Logging.Format = g.logFormat
	}
}

// newCleaner 按配置组装 Catalyst 客户端、任务轮询器和清理器
func newCleaner(config *models.Config) (*cleanup.ImageCleaner, error) {
	client, err := catalyst.NewClient(&config.Catalyst)
	if err != nil {
		return nil, err
	}
	poller := task.NewPoller(client, task.PolicyFromConfig(config.Polling))
	return cleanup.NewImageCleaner(client, poller), nil
}
