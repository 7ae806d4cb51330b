package game

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/hexland/internal/logger"
	"go.uber.org/zap"
)

// Scheduler 定时检查回合是否到期，到期时驱动引擎结算。
// 检查间隔远小于回合间隔，先判断"该不该跑"再启动结算，避免重复结算。
type Scheduler struct {
	engine        *Engine
	checkInterval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewScheduler 创建调度器
func NewScheduler(engine *Engine, checkInterval time.Duration) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &Scheduler{
		engine:        engine,
		checkInterval: checkInterval,
	}
}

// Start 启动后台检查循环，重复调用是空操作
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)
	logger.WithModule("scheduler").Info("回合调度器已启动",
		zap.Duration("check_interval", s.checkInterval))
}

// Stop 停止检查循环并等待退出
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.started = false
	logger.WithModule("scheduler").Info("回合调度器已停止")
}

func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.check()
		}
	}
}

// check 单次检查：回合到期则结算，结算失败留到下次检查重试
func (s *Scheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), s.checkInterval)
	defer cancel()

	due, err := s.engine.TickDue(ctx)
	if err != nil {
		logger.WithModule("scheduler").Error("检查回合状态失败", zap.Error(err))
		return
	}
	if !due {
		return
	}

	if _, err := s.engine.ProcessTick(ctx); err != nil {
		logger.WithModule("scheduler").Error("回合结算失败，下次检查重试", zap.Error(err))
	}
}

// TriggerNow 手动触发一次回合结算（管理接口），不检查间隔
func (s *Scheduler) TriggerNow(ctx context.Context) (*TickResult, error) {
	return s.engine.ProcessTick(ctx)
}

// TickDue 检查当前是否到达回合推进时间
func (e *Engine) TickDue(ctx context.Context) (bool, error) {
	state, err := e.repos.GameState().GetOrCreate(ctx, int(e.cfg.TickInterval.Seconds()), e.cfg.InitialRadius)
	if err != nil {
		return false, err
	}
	return state.TickDue(time.Now()), nil
}
