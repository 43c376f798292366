package algo

import (
	"log"
	"sync"
	"time"

	"travel-heatmap/model"
)

// Sampler 持有当前唯一的采样会话
// 启动新会话时先取消旧会话再替换 (cancel-then-replace)
type Sampler struct {
	planner  Planner
	renderer Renderer
	newProbe func(cfg model.SamplingConfig, departure time.Time) ProbeFunc
	now      func() time.Time
	onFinish func(Status)

	mu      sync.Mutex
	config  model.SamplingConfig
	target  model.WorldPoint
	current *Session
}

// NewSampler 创建采样器，target 为未指定目标时使用的初始目标点
func NewSampler(planner Planner, renderer Renderer, cfg model.SamplingConfig, target model.WorldPoint) *Sampler {
	s := &Sampler{
		planner:  planner,
		renderer: renderer,
		now:      time.Now,
		config:   cfg,
		target:   target,
	}
	s.newProbe = func(cfg model.SamplingConfig, departure time.Time) ProbeFunc {
		return NewProber(s.planner, cfg.CellSize(), departure).Probe
	}
	return s
}

// OnFinish 设置会话结束 (完成或被取消) 时的回调
func (s *Sampler) OnFinish(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

// Start 开始计算到 target 的出行时间热力图
func (s *Sampler) Start(target model.WorldPoint) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(target)
}

// Restart 使用当前配置重新计算当前目标
func (s *Sampler) Restart() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(s.target)
}

func (s *Sampler) startLocked(target model.WorldPoint) *Session {
	if s.current != nil {
		s.current.Cancel()
	}

	cfg := s.config
	departure := cfg.Departure(s.now())
	sess := newSession(target, cfg, s.newProbe(cfg, departure), s.renderer)
	s.target = target
	s.current = sess

	log.Printf("[Sampler] session %s started: target=%s half_width=%d points=%d departure=%s",
		sess.ID, target, cfg.HalfWidth, cfg.PointCount(), departure.Format(time.RFC3339))

	onFinish := s.onFinish
	go func() {
		status := sess.run()
		if status.Cancelled {
			log.Printf("[Sampler] session %s superseded after %d/%d points", status.ID, status.Processed, status.Total)
		} else {
			log.Printf("[Sampler] session %s completed in %s: %d/%d points resolved",
				status.ID, status.Elapsed.Round(time.Millisecond), status.Resolved, status.Total)
		}
		if onFinish != nil {
			onFinish(status)
		}
	}()
	return sess
}

// UpdateConfig 修改配置并对当前目标重新采样
// 配置不合法时返回错误，原配置保留且不会重启会话
func (s *Sampler) UpdateConfig(update model.ConfigUpdate) (model.SamplingConfig, *Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.config.Apply(update)
	if err != nil {
		return s.config, nil, err
	}
	s.config = next
	return next, s.startLocked(s.target), nil
}

// Config 当前配置
func (s *Sampler) Config() model.SamplingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Target 当前目标点
func (s *Sampler) Target() model.WorldPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Current 当前会话，尚未启动时返回 nil
func (s *Sampler) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cancel 取消当前会话，没有进行中的会话时返回 false
func (s *Sampler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Cancelled() {
		return false
	}
	select {
	case <-s.current.Done():
		return false
	default:
	}
	s.current.Cancel()
	return true
}
