package algo

import (
	"context"

	"travel-heatmap/model"
)

// Planner 外部路径规划服务 (出行时间查询)
// 网络错误、非成功状态码、没有行程都可能发生，调用方一律视为可重试
type Planner interface {
	Plan(ctx context.Context, req model.PlanRequest) ([]model.Itinerary, error)
}

// Renderer 热力图渲染层，每完成一个采样点都会收到一次完整快照
type Renderer interface {
	SetData(data model.HeatmapData)
}
