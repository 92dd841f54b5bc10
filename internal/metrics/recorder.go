package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
)

const namespace = "swim_cleanup"

// Recorder 记录清理运行的指标
type Recorder struct {
	registry   *prometheus.Registry
	outcomes   *prometheus.CounterVec
	candidates prometheus.Gauge
	polls      prometheus.Counter
	runs       *prometheus.CounterVec
	duration   prometheus.Gauge
	lastRun    prometheus.Gauge
	log        *zap.Logger
}

// NewRecorder 创建指标记录器，使用独立的 Registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Candidate images by final outcome.",
		}, []string{"outcome"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates",
			Help:      "Number of images selected by the filter in the last run.",
		}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_polls_total",
			Help:      "Task status queries issued while waiting for deletions.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Cleanup runs by result.",
		}, []string{"result"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last cleanup run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last cleanup run finished.",
		}),
		log: logger.Named("metrics"),
	}

	r.registry.MustRegister(r.outcomes, r.candidates, r.polls, r.runs, r.duration, r.lastRun)
	return r
}

// Registry 返回内部 Registry，用于 /metrics
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe 记录一次运行的报告
func (r *Recorder) Observe(report *cleanup.Report) {
	if report == nil {
		return
	}

	r.candidates.Set(float64(len(report.Entries)))
	for _, e := range report.Entries {
		r.outcomes.WithLabelValues(string(e.Outcome)).Inc()
		r.polls.Add(float64(e.Polls))
	}

	result := "success"
	switch {
	case report.DryRun:
		result = "dry_run"
	case report.Halted:
		result = "halted"
	case report.Failed():
		result = "failed"
	}
	r.runs.WithLabelValues(result).Inc()

	r.duration.Set(report.Duration().Seconds())
	r.lastRun.Set(float64(report.FinishedAt.Unix()))
}

// ObserveError 记录在产生报告之前失败的运行
func (r *Recorder) ObserveError() {
	r.runs.WithLabelValues("error").Inc()
}

// Push 推送到 Pushgateway
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = "swimctl"
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	r.log.Info("Pushed metrics", zap.String("url", url), zap.String("job", job))
	return nil
}

// WriteTextfile 以文本格式写入 node_exporter textfile collector 目录，先写临时文件再重命名
func (r *Recorder) WriteTextfile(path string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create textfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Export 按配置推送 / 写入指标，失败只记录日志
func (r *Recorder) Export(ctx context.Context, config models.MetricsConfig) {
	if config.PushgatewayURL != "" {
		if err := r.Push(ctx, config.PushgatewayURL, config.Job); err != nil {
			r.log.Warn("Failed to push metrics", zap.Error(err))
		}
	}
	if config.TextfilePath != "" {
		if err := r.WriteTextfile(config.TextfilePath); err != nil {
			r.log.Warn("Failed to write metrics textfile", zap.String("path", config.TextfilePath), zap.Error(err))
		}
	}
}
