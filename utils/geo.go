package utils

import (
	"travel-heatmap/model"

	"github.com/golang/geo/s2"
)

// EarthRadius 地球平均半径 (米)
const EarthRadius = 6371000.0

// HaversineDistance 两点间球面距离 (米)
func HaversineDistance(p1, p2 model.WorldPoint) float64 {
	a := s2.LatLngFromDegrees(p1.Lat, p1.Lng)
	b := s2.LatLngFromDegrees(p2.Lat, p2.Lng)
	return a.Distance(b).Radians() * EarthRadius
}

// Chebyshev 两个网格坐标之间的切比雪夫距离 (所在的环序号)
func Chebyshev(a, b model.GridOffset) int {
	dx := a.TileX - b.TileX
	if dx < 0 {
		dx = -dx
	}
	dy := a.TileY - b.TileY
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}
