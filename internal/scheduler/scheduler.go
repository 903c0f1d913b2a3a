package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/fachebot/tg2kb/internal/logger"
	"github.com/robfig/cron/v3"
)

// PipelineFunc 一次完整的导出、注释、生成流程
type PipelineFunc func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	pipeline PipelineFunc
	config   *config.Watch
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
}

// locUTC UTC 标准时间（UTC）
var locUTC = time.UTC

func NewScheduler(pipeline PipelineFunc, cfg *config.Watch) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(locUTC)),
		pipeline: pipeline,
		config:   cfg,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	_, err := s.cron.AddFunc(s.config.Cron, s.runPipeline)
	if err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] 调度器已启动, 定时任务: %s, 会话: %d", s.config.Cron, s.config.ChatId)
	return nil
}

// Stop 停止调度器，等待进行中的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Scheduler] 调度器已停止")
}

// runPipeline 执行一次流程，上一次还在运行时跳过本次触发
func (s *Scheduler) runPipeline() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warnf("[Scheduler] 上一次任务尚未完成，跳过本次触发")
		return
	}
	s.running = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger.Infof("[Scheduler] 开始执行定时任务")
	if err := s.pipeline(ctx); err != nil {
		logger.Errorf("[Scheduler] 定时任务执行失败: %v", err)
		return
	}
	logger.Infof("[Scheduler] 定时任务执行完成")
}
