package telemetry

import (
	"log"

	"github.com/posthog/posthog-go"

	"travel-heatmap/algo"
)

// Tracker 使用统计上报，未配置 key 时为 nil，所有方法对 nil 安全
type Tracker struct {
	client posthog.Client
}

// NewTracker 创建上报客户端，key 为空时返回 nil
func NewTracker(key, host string) *Tracker {
	if key == "" {
		return nil
	}
	client, err := posthog.NewWithConfig(key, posthog.Config{Endpoint: host})
	if err != nil {
		log.Printf("Failed to initialize PostHog: %v", err)
		return nil
	}
	return &Tracker{client: client}
}

// Track 上报事件
func (t *Tracker) Track(event string, props map[string]interface{}) {
	if t == nil {
		return
	}
	if err := t.client.Enqueue(posthog.Capture{
		DistinctId: "travel-heatmap-server",
		Event:      event,
		Properties: props,
	}); err != nil {
		log.Printf("[Telemetry] enqueue %s: %v", event, err)
	}
}

// SessionFinished 上报一次采样会话的结果
func (t *Tracker) SessionFinished(status algo.Status) {
	t.Track("sampling_session_finished", map[string]interface{}{
		"session_id": status.ID,
		"target_lat": status.Target.Lat,
		"target_lng": status.Target.Lng,
		"half_width": status.HalfWidth,
		"total":      status.Total,
		"processed":  status.Processed,
		"resolved":   status.Resolved,
		"cancelled":  status.Cancelled,
		"elapsed_ms": status.Elapsed.Milliseconds(),
	})
}

// Close 发送剩余事件并关闭
func (t *Tracker) Close() {
	if t == nil {
		return
	}
	if err := t.client.Close(); err != nil {
		log.Printf("[Telemetry] close: %v", err)
	}
}
