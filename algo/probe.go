package algo

import (
	"context"
	"math/rand/v2"
	"time"

	"travel-heatmap/model"
	"travel-heatmap/utils"
)

const (
	// MaxProbeAttempts 单个采样点最多查询次数
	MaxProbeAttempts = 5

	colocatedDistance = 0.01 // 米
	colocatedNudge    = 0.01 // 度
)

// JitterScale 第 attempt 次尝试 (从 0 开始) 的抖动幅度，单位为一个网格单元
// 第一次不抖动，之后线性增大，用于绕开落在湖里等无法规划的起点
func JitterScale(attempt, maxAttempts int) float64 {
	if maxAttempts <= 0 || attempt <= 0 {
		return 0
	}
	return float64(attempt) / float64(maxAttempts)
}

// Prober 查询单个网格点到目标点的出行时间
type Prober struct {
	planner     Planner
	cellSize    model.WorldPoint
	departure   time.Time
	maxAttempts int
	random      func() float64 // [0, 1)
}

// NewProber 创建查询器，cellSize 为单个网格单元的世界尺寸
func NewProber(planner Planner, cellSize model.WorldPoint, departure time.Time) *Prober {
	return &Prober{
		planner:     planner,
		cellSize:    cellSize,
		departure:   departure,
		maxAttempts: MaxProbeAttempts,
		random:      rand.Float64,
	}
}

// Probe 返回从 from 出发到达 to 的总耗时 (分钟)
// 使用行程的到达时间减去请求的出发时间，包含出发前的等待时间;
// 重试全部失败或 ctx 被取消时返回 ok=false，不会返回错误
func (p *Prober) Probe(ctx context.Context, from, to model.WorldPoint) (minutes float64, ok bool) {
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return 0, false
		}

		req := model.PlanRequest{
			From:      separateColocated(p.jitter(from, attempt), to),
			To:        to,
			Departure: p.departure,
		}
		itineraries, err := p.planner.Plan(ctx, req)

		// 已取消的会话不再使用可能过期的结果
		if ctx.Err() != nil {
			return 0, false
		}
		if err != nil || len(itineraries) == 0 {
			continue
		}
		return itineraries[0].Arrival.Sub(p.departure).Minutes(), true
	}
	return 0, false
}

func (p *Prober) jitter(point model.WorldPoint, attempt int) model.WorldPoint {
	scale := JitterScale(attempt, p.maxAttempts)
	if scale == 0 {
		return point
	}
	return point.Add(
		(p.random()*2-1)*scale*p.cellSize.Lat,
		(p.random()*2-1)*scale*p.cellSize.Lng,
	)
}

// separateColocated 起点与终点几乎重合时把起点向北挪一点，避免零长度查询
func separateColocated(point, reference model.WorldPoint) model.WorldPoint {
	if utils.HaversineDistance(point, reference) > colocatedDistance {
		return point
	}
	return point.Add(colocatedNudge, 0)
}
