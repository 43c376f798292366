package model

import "fmt"

// WorldPoint 代表一个经纬度点 (WGS84)，值类型，创建后不再修改
type WorldPoint struct {
	Lat float64 `json:"lat"` // 纬度
	Lng float64 `json:"lng"` // 经度
}

// Add 返回偏移后的新坐标
func (p WorldPoint) Add(dLat, dLng float64) WorldPoint {
	return WorldPoint{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// String 格式化为 "lat,lng"，Google Directions 等接口直接使用该格式
func (p WorldPoint) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// Node 对应地图上的一个点 (站点、路口、地标)，供离线路网规划使用
type Node struct {
	ID   string  `json:"id" gorm:"primaryKey"`
	Name string  `json:"name" gorm:"index"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type" gorm:"index"` // 如: "landmark", "subway_entrance", "bus_stop"
}

// Point 返回节点坐标
func (n *Node) Point() WorldPoint {
	return WorldPoint{Lat: n.Lat, Lng: n.Lng}
}
