package model

import "time"

// PlanRequest 一次出行时间查询: 从 From 到 To，在 Departure 出发
type PlanRequest struct {
	From      WorldPoint
	To        WorldPoint
	Departure time.Time
}

// Itinerary 路径规划服务返回的一条行程
type Itinerary struct {
	Departure time.Time // 行程实际出发时间 (可能晚于请求时间)
	Arrival   time.Time // 到达时间
}
