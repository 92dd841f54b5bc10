package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/models"
	"go.uber.org/zap"
)

// State 任务最终状态
type State string

const (
	Succeeded State = "succeeded"
	Failed    State = "failed"
	TimedOut  State = "timed_out"
)

// Result 一次 Await 的结果
type Result struct {
	State  State
	Reason string // Failed 时为服务端原因（原样），TimedOut 时说明等待时长
	Polls  int    // 实际发起的状态查询次数
}

// StatusSource 任务状态查询接口，catalyst.Client 满足该接口
type StatusSource interface {
	GetTaskStatus(ctx context.Context, taskID string) (catalyst.TaskStatus, error)
}

// Clock 时间源，测试中可替换为不真正等待的实现
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Policy 轮询策略
type Policy struct {
	InitialInterval    time.Duration
	MaxInterval        time.Duration
	Multiplier         float64 // <=1 表示固定间隔
	MaxWait            time.Duration
	MaxTransientErrors int // 连续异常响应超过该次数后判定为失败
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval:    2500 * time.Millisecond,
		MaxInterval:        15 * time.Second,
		Multiplier:         1.5,
		MaxWait:            5 * time.Minute,
		MaxTransientErrors: 3,
	}
}

// PolicyFromConfig 从配置构建策略，未设置的字段使用默认值
func PolicyFromConfig(c models.PollingConfig) Policy {
	p := DefaultPolicy()
	if c.IntervalSeconds > 0 {
		p.InitialInterval = time.Duration(c.IntervalSeconds * float64(time.Second))
	}
	if c.MaxIntervalSeconds > 0 {
		p.MaxInterval = time.Duration(c.MaxIntervalSeconds * float64(time.Second))
	}
	if c.Multiplier > 0 {
		p.Multiplier = c.Multiplier
	}
	if c.TimeoutSeconds > 0 {
		p.MaxWait = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.MaxTransientErrors >= 0 {
		p.MaxTransientErrors = c.MaxTransientErrors
	}
	return p
}

// Poller 把任务 ID 解析为最终状态
type Poller struct {
	source StatusSource
	policy Policy
	clock  Clock
	log    *zap.Logger
}

// Option Poller 可选项
type Option func(*Poller)

// WithClock 替换时间源
func WithClock(c Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithLogger 替换日志
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		p.log = l
	}
}

// NewPoller 创建任务轮询器
func NewPoller(source StatusSource, policy Policy, opts ...Option) *Poller {
	p := &Poller{
		source: source,
		policy: policy,
		clock:  realClock{},
		log:    logger.Named("task"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// newBackOff 间隔序列：InitialInterval 起按 Multiplier 增长，不超过 MaxInterval，不做随机抖动。
// 总等待时长由 Await 自己控制。
func (p *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.policy.InitialInterval
	b.RandomizationFactor = 0
	b.Multiplier = p.policy.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = p.policy.MaxInterval
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = 0
	b.Clock = p.clock
	b.Reset()
	return b
}

// Await 轮询直到任务成功、失败或超过 MaxWait。
// 只有认证失败和 ctx 取消会返回 error；ctx 取消时 Result 为 TimedOut。
func (p *Poller) Await(ctx context.Context, taskID string) (Result, error) {
	start := p.clock.Now()
	deadline := start.Add(p.policy.MaxWait)
	b := p.newBackOff()
	log := p.log.With(zap.String("taskId", taskID))

	var result Result
	transient := 0

	for {
		result.Polls++
		status, err := p.source.GetTaskStatus(ctx, taskID)
		switch {
		case err == nil:
			transient = 0
			switch status.State {
			case catalyst.TaskSucceeded:
				result.State = Succeeded
				log.Debug("Task succeeded", zap.Int("polls", result.Polls))
				return result, nil
			case catalyst.TaskFailed:
				result.State = Failed
				result.Reason = status.Reason
				log.Debug("Task failed", zap.String("reason", status.Reason))
				return result, nil
			}
		case errors.Is(err, catalyst.ErrUnauthorized):
			result.State = Failed
			result.Reason = err.Error()
			return result, err
		case ctx.Err() != nil:
			result.State = TimedOut
			result.Reason = "interrupted: " + ctx.Err().Error()
			return result, ctx.Err()
		default:
			transient++
			log.Warn("Task status query failed",
				zap.Int("attempt", transient),
				zap.Error(err))
			if transient > p.policy.MaxTransientErrors {
				result.State = Failed
				result.Reason = fmt.Sprintf("task status unavailable after %d attempts: %v", transient, err)
				return result, nil
			}
		}

		now := p.clock.Now()
		if !now.Before(deadline) {
			result.State = TimedOut
			result.Reason = fmt.Sprintf("task did not finish within %s", p.policy.MaxWait)
			log.Warn("Task timed out", zap.Duration("waited", now.Sub(start)), zap.Int("polls", result.Polls))
			return result, nil
		}

		wait := b.NextBackOff()
		if remaining := deadline.Sub(now); wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			result.State = TimedOut
			result.Reason = "interrupted: " + ctx.Err().Error()
			return result, ctx.Err()
		case <-p.clock.After(wait):
		}
	}
}
