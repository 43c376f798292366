package model

import "github.com/lib/pq"

// Edge 路网中两个节点之间的一条连线
type Edge struct {
	ID     uint           `json:"-" gorm:"primaryKey"`
	From   string         `json:"from" gorm:"index"`
	To     string         `json:"to"`
	Dist   float64        `json:"dist"`                             // 距离 (米)，为 0 时加载时按坐标计算
	Modes  pq.StringArray `json:"modes" gorm:"type:text[]"`         // 原始模式列表: ["car", "bus"]
	LineID string         `json:"line_id,omitempty"`                // 线路ID, 仅公交/地铁有
	Desc   string         `json:"desc,omitempty"`                   // 描述

	ModeMask int `json:"-" gorm:"-"` // 加载后计算的位掩码
}

// MapData 用于解析种子数据文件 map_data.json
type MapData struct {
	Meta  map[string]interface{} `json:"meta"`
	Nodes []Node                 `json:"nodes"`
	Edges []Edge                 `json:"edges"`
}

// 通行模式位掩码
const (
	ModeNone   = 0
	ModeWalk   = 1 << 0
	ModeBike   = 1 << 1
	ModeCar    = 1 << 2
	ModeBus    = 1 << 3
	ModeSubway = 1 << 4

	// ModeTransit 公共交通出行 (步行 + 公交 + 地铁)，热力图默认使用
	ModeTransit = ModeWalk | ModeBus | ModeSubway
	// ModeBidirectional 自动生成反向边的模式
	ModeBidirectional = ModeWalk | ModeBike | ModeCar
)

// TravelMode 单个交通方式的参数
type TravelMode struct {
	Mask  int
	Speed float64 // 平均速度 (米/秒)
	Wait  float64 // 上车/换乘的平均等待时间 (秒)
}

// SpeedWalk 步行速度，也用于接驳段 (采样点到最近节点)
const SpeedWalk = 1.4

var travelModes = map[string]TravelMode{
	"walk":   {Mask: ModeWalk, Speed: SpeedWalk, Wait: 0},
	"bike":   {Mask: ModeBike, Speed: 4.2, Wait: 30},
	"car":    {Mask: ModeCar, Speed: 8.3, Wait: 60},
	"bus":    {Mask: ModeBus, Speed: 5.5, Wait: 300},
	"subway": {Mask: ModeSubway, Speed: 10.0, Wait: 180},
}

// LookupMode 查询交通方式参数，未知方式按步行处理
func LookupMode(mode string) (TravelMode, bool) {
	m, ok := travelModes[mode]
	if !ok {
		return travelModes["walk"], false
	}
	return m, true
}

// ParseModes 将字符串数组转换为位掩码，例如 ["walk", "bike"] -> 3
func ParseModes(modes []string) int {
	mask := ModeNone
	for _, name := range modes {
		if m, ok := travelModes[name]; ok {
			mask |= m.Mask
		}
	}
	return mask
}

// FilterModesByMask 返回边上在 userMask 下可以实际使用的交通方式
func FilterModesByMask(edgeModes []string, userMask int) []string {
	var filtered []string
	for _, name := range edgeModes {
		if m, ok := travelModes[name]; ok && m.Mask&userMask != 0 {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// EstimateSegmentTime 估算路段时间 (秒)，考虑换乘等待，返回最快的交通方式
// prevMode/prevLineID 为上一段的方式和线路，空字符串表示第一段
func EstimateSegmentTime(distance float64, availableModes []string, prevMode, prevLineID, lineID string) (float64, string) {
	if len(availableModes) == 0 {
		return distance / SpeedWalk, "walk"
	}

	bestTime := -1.0
	bestMode := ""
	for _, name := range availableModes {
		m, _ := LookupMode(name)
		total := distance / m.Speed

		switch name {
		case "bike", "car":
			if prevMode != name {
				total += m.Wait
			}
		case "bus", "subway":
			// 同一条线路的连续站点不需要重新等待
			if prevMode != name || (prevLineID != lineID && lineID != "") {
				total += m.Wait
			}
		}

		if bestTime < 0 || total < bestTime {
			bestTime = total
			bestMode = name
		}
	}
	return bestTime, bestMode
}
