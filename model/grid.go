package model

// GridOffset 采样网格中的整数坐标，取值范围 [0, 2S]，S 为网格半宽
type GridOffset struct {
	TileX int `json:"x"`
	TileY int `json:"y"`
}

// GridPoint 网格坐标及其对应的世界坐标
type GridPoint struct {
	Offset GridOffset
	World  WorldPoint
}

// Sample 单个网格点的采样结果，生成后不可修改
type Sample struct {
	Offset GridOffset
	World  WorldPoint // 网格点本身的坐标 (未加抖动)
	Value  float64    // 出行时间 (分钟)
}

// HeatmapPoint 渲染层使用的数据点
type HeatmapPoint struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Value float64 `json:"value"`
}

// HeatmapData 推送给渲染层的完整快照
type HeatmapData struct {
	SessionID string         `json:"session_id"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Data      []HeatmapPoint `json:"data"`
}

// NewHeatmapData 由采样结果构建快照
// 数值只在这里按 max 截断用于显示，原始采样值保持不变
func NewHeatmapData(sessionID string, maxMinutes float64, samples []Sample) HeatmapData {
	data := make([]HeatmapPoint, 0, len(samples))
	for _, s := range samples {
		value := s.Value
		if value > maxMinutes {
			value = maxMinutes
		}
		data = append(data, HeatmapPoint{
			X:     s.Offset.TileX,
			Y:     s.Offset.TileY,
			Lat:   s.World.Lat,
			Lng:   s.World.Lng,
			Value: value,
		})
	}
	return HeatmapData{
		SessionID: sessionID,
		Min:       0,
		Max:       maxMinutes,
		Data:      data,
	}
}
