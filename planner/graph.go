package planner

import (
	"context"
	"math"
	"time"

	"travel-heatmap/algo"
	"travel-heatmap/model"
	"travel-heatmap/utils"
)

// DefaultMaxAccessDistance 采样点到最近路网节点的最大步行距离 (米)
const DefaultMaxAccessDistance = 2000.0

// GraphPlanner 基于本地路网的出行时间估算
// 起终点先步行到最近的节点，再在路网上用 Dijkstra 求最短时间
type GraphPlanner struct {
	graph             *algo.Graph
	modeMask          int
	maxAccessDistance float64
}

var _ algo.Planner = (*GraphPlanner)(nil)

// NewGraphPlanner 创建本地路网规划器，modeMask 为允许的交通方式
func NewGraphPlanner(graph *algo.Graph, modeMask int) *GraphPlanner {
	if modeMask == model.ModeNone {
		modeMask = model.ModeTransit
	}
	return &GraphPlanner{
		graph:             graph,
		modeMask:          modeMask,
		maxAccessDistance: DefaultMaxAccessDistance,
	}
}

// Plan 估算行程，起点或终点离路网太远、或路网不连通时返回空列表
func (p *GraphPlanner) Plan(ctx context.Context, req model.PlanRequest) ([]model.Itinerary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 距离不远时可以直接步行
	seconds := math.Inf(1)
	if direct := utils.HaversineDistance(req.From, req.To); direct <= p.maxAccessDistance {
		seconds = direct / model.SpeedWalk
	}

	start, access := p.graph.FindNearestNode(req.From)
	end, egress := p.graph.FindNearestNode(req.To)
	if start != nil && end != nil && access <= p.maxAccessDistance && egress <= p.maxAccessDistance {
		if result := p.graph.Dijkstra(start.ID, end.ID, p.modeMask); result.Found {
			seconds = min(seconds, result.EstimatedTime+(access+egress)/model.SpeedWalk)
		}
	}
	if math.IsInf(seconds, 1) {
		return nil, nil
	}

	arrival := req.Departure.Add(time.Duration(seconds * float64(time.Second)))
	return []model.Itinerary{{Departure: req.Departure, Arrival: arrival}}, nil
}
