package algo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"travel-heatmap/model"
)

// ProbeFunc 查询一个网格点到目标的出行时间 (分钟)，ok=false 表示未解析
type ProbeFunc func(ctx context.Context, from, to model.WorldPoint) (minutes float64, ok bool)

// Session 一次 "到目标点 P 的出行时间" 采样
// 会话拥有自己的取消信号和网格，从不与其他会话共享
type Session struct {
	ID        string
	Target    model.WorldPoint
	Config    model.SamplingConfig
	StartedAt time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	probe    ProbeFunc
	renderer Renderer

	mu         sync.Mutex
	grid       *SparseGrid
	finishedAt time.Time

	total     int
	processed atomic.Int64
	done      chan struct{}
}

// Status 会话进度
type Status struct {
	ID        string           `json:"id"`
	Target    model.WorldPoint `json:"target"`
	HalfWidth int              `json:"half_width"`
	Total     int              `json:"total"`
	Processed int              `json:"processed"`
	Resolved  int              `json:"resolved"`
	Done      bool             `json:"done"`
	Cancelled bool             `json:"cancelled"`
	StartedAt time.Time        `json:"started_at"`
	Elapsed   time.Duration    `json:"elapsed"`
}

func newSession(target model.WorldPoint, cfg model.SamplingConfig, probe ProbeFunc, renderer Renderer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        uuid.NewString(),
		Target:    target,
		Config:    cfg,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		probe:     probe,
		renderer:  renderer,
		grid:      NewSparseGrid(cfg.PointCount()),
		total:     cfg.PointCount(),
		done:      make(chan struct{}),
	}
}

// run 由内向外逐圈查询所有网格点，所有任务结束后返回
func (s *Session) run() Status {
	defer close(s.done)

	points := FilledRect(s.Target, s.Config.HalfWidth, s.Config.AreaSize)

	// 新会话先推送一个空快照，替换掉上一个目标的热力图
	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()

	_ = RunBounded(points, s.Config.MaxConcurrent, func(p model.GridPoint) error {
		defer s.processed.Add(1)
		if s.ctx.Err() != nil {
			return nil
		}
		value, ok := s.probe(s.ctx, p.World, s.Target)
		if !ok || s.ctx.Err() != nil {
			return nil
		}
		s.record(model.Sample{Offset: p.Offset, World: p.World, Value: value})
		return nil
	})

	s.mu.Lock()
	s.finishedAt = time.Now()
	s.mu.Unlock()
	return s.Status()
}

// record 写入一个采样结果并立即推送压缩后的快照
// 在锁内再次检查取消状态，保证被取代的会话不会写入或推送
func (s *Session) record(sample model.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	s.grid.Put(sample)
	s.publishLocked()
}

func (s *Session) publishLocked() {
	if s.renderer == nil || s.ctx.Err() != nil {
		return
	}
	s.renderer.SetData(s.snapshotLocked())
}

func (s *Session) snapshotLocked() model.HeatmapData {
	var samples []model.Sample
	if s.grid != nil {
		samples = s.grid.Samples()
	}
	return model.NewHeatmapData(s.ID, s.Config.MaxDurationMinutes, samples)
}

// Snapshot 当前的热力图快照
func (s *Session) Snapshot() model.HeatmapData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Samples 当前网格中的原始采样结果 (未截断)
func (s *Session) Samples() []model.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return nil
	}
	return s.grid.Samples()
}

// Cancel 取消会话并丢弃网格，返回后该会话不会再推送任何数据
// 正在进行的查询通过 ctx 中止
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.grid = nil
}

// Cancelled 会话是否已被取消
func (s *Session) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Done 会话的所有任务结束后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait 等待会话结束
func (s *Session) Wait() {
	<-s.done
}

// Status 返回会话进度
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := 0
	if s.grid != nil {
		resolved = s.grid.Len()
	}
	end := s.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return Status{
		ID:        s.ID,
		Target:    s.Target,
		HalfWidth: s.Config.HalfWidth,
		Total:     s.total,
		Processed: int(s.processed.Load()),
		Resolved:  resolved,
		Done:      !s.finishedAt.IsZero(),
		Cancelled: s.ctx.Err() != nil,
		StartedAt: s.StartedAt,
		Elapsed:   end.Sub(s.StartedAt),
	}
}
