package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_InvalidCron(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, &config.Watch{
		Cron:   "not a cron",
		ChatId: 1,
	})
	err := s.Start()
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, &config.Watch{
		Cron:   "0 23 * * *",
		ChatId: 1,
	})
	require.NoError(t, s.Start())
	s.Stop()
}

func TestRunPipeline_SkipsOverlap(t *testing.T) {
	var calls atomic.Int32
	blocker := make(chan struct{})
	started := make(chan struct{})

	s := NewScheduler(func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-blocker
		return nil
	}, &config.Watch{Cron: "0 23 * * *", ChatId: 1})
	s.ctx, s.cancel = context.WithCancel(context.Background())

	go s.runPipeline()
	<-started

	// 第一次任务还在运行，第二次触发应被跳过
	s.runPipeline()
	assert.Equal(t, int32(1), calls.Load())

	close(blocker)
}
