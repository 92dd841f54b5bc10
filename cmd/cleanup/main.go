package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/k8s"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/metrics"
	"github.com/uc-package/swimctl/internal/models"
	"github.com/uc-package/swimctl/internal/task"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run 由 CronJob 触发的一次清理，返回进程退出码
func run() int {
	config, configPath, loadErr := models.Load()

	if err := logger.Init(&logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Named("cronjob")

	if loadErr != nil {
		log.Warn("Failed to load config, using defaults",
			zap.String("path", configPath),
			zap.Error(loadErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	defer recorder.Export(context.Background(), config.Metrics)

	// 凭据可从 Kubernetes Secret 读取
	if ref := config.Catalyst.CredentialsSecret; ref != nil && ref.Name != "" {
		k8sClient, err := k8s.NewClient(&config.Kubernetes)
		if err != nil {
			log.Error("Failed to initialize K8s client", zap.Error(err))
			recorder.ObserveError()
			return 2
		}
		if err := k8sClient.LoadCatalystCredentials(ctx, *ref, &config.Catalyst); err != nil {
			log.Error("Failed to load credentials", zap.Error(err))
			recorder.ObserveError()
			return 2
		}
	}

	spec, err := filter.FromConfig(config.Filter)
	if err != nil {
		log.Error("Invalid filter", zap.Error(err))
		recorder.ObserveError()
		return 2
	}
	if spec.IsEmpty() && !config.Run.DryRun {
		log.Error("Refusing to delete without any filter")
		recorder.ObserveError()
		return 2
	}

	client, err := catalyst.NewClient(&config.Catalyst)
	if err != nil {
		log.Error("Failed to initialize Catalyst Center client", zap.Error(err))
		recorder.ObserveError()
		return 2
	}

	poller := task.NewPoller(client, task.PolicyFromConfig(config.Polling))
	cleaner := cleanup.NewImageCleaner(client, poller)

	log.Info("SWIM image cleanup - triggered by CronJob",
		zap.String("catalyst", config.Catalyst.BaseURL),
		zap.Bool("dryRun", config.Run.DryRun),
		zap.Bool("autoConfirm", config.Run.AutoConfirm))

	// CronJob 没有交互式确认，未设置 autoConfirm 时只输出候选列表
	report, err := cleaner.Run(ctx, spec, cleanup.OptionsFromConfig(config))
	if report != nil {
		recorder.Observe(report)
		if werr := cleanup.WriteJSON(os.Stdout, report); werr != nil {
			log.Warn("Failed to write report", zap.Error(werr))
		}
	}
	if err != nil {
		if report == nil {
			recorder.ObserveError()
		}
		log.Error("Error during cleanup", zap.Error(err))
		return 1
	}

	if report.Failed() {
		log.Warn("Cleanup finished with failures", zap.Any("counts", report.Counts))
		return 1
	}

	log.Info("Cleanup completed successfully", zap.Any("counts", report.Counts))
	return 0
}
