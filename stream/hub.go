package stream

import (
	"sync"

	"travel-heatmap/algo"
	"travel-heatmap/model"
)

// Hub 热力图快照的分发中心，实现 algo.Renderer
// 保存最新快照并推送给所有订阅者; 订阅者处理不过来时只会跳过中间快照，
// 最终总能收到最新的一份
type Hub struct {
	mu     sync.RWMutex
	latest model.HeatmapData
	subs   map[int]chan model.HeatmapData
	nextID int
}

var _ algo.Renderer = (*Hub)(nil)

// NewHub 创建分发中心
func NewHub() *Hub {
	return &Hub{
		latest: model.HeatmapData{Data: []model.HeatmapPoint{}},
		subs:   make(map[int]chan model.HeatmapData),
	}
}

// SetData 更新最新快照并通知订阅者，不会阻塞调用方
func (h *Hub) SetData(data model.HeatmapData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = data
	for _, ch := range h.subs {
		offer(ch, data)
	}
}

// offer 向容量为 1 的通道投递，旧数据未被取走时替换掉
func offer(ch chan model.HeatmapData, data model.HeatmapData) {
	for {
		select {
		case ch <- data:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Latest 最新快照
func (h *Hub) Latest() model.HeatmapData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe 订阅快照，返回的通道立即带有当前最新快照
// 调用返回的 cancel 取消订阅并关闭通道
func (h *Hub) Subscribe() (<-chan model.HeatmapData, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan model.HeatmapData, 1)
	ch <- h.latest
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
