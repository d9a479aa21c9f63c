package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultJobTimeout 单次任务的最长执行时间
const DefaultJobTimeout = 10 * time.Minute

// Job 定时任务
type Job func(ctx context.Context) error

// Scheduler 任务调度器
//
// 同一任务上一次未结束时跳过本次触发；任务 panic 会被恢复并记录。
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler 创建任务调度器，使用 5 段式 cron 表达式
func NewScheduler(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: DefaultJobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob 注册定时任务
func (s *Scheduler) AddJob(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := time.Now()
		s.log.Info().Str("job", name).Msg("开始执行定时任务")
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("定时任务执行失败")
			return
		}
		s.log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("定时任务执行完成")
	})
	if err != nil {
		return fmt.Errorf("注册定时任务 %s 失败: %w", name, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("已注册定时任务")
	return nil
}

// Len 已注册的任务数
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度器，取消正在执行的任务并等待其退出
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger 将 cron 的日志接口适配到 zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
