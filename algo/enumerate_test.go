package algo

import (
	"math"
	"testing"

	"travel-heatmap/model"
	"travel-heatmap/utils"
)

var (
	testCenter = model.WorldPoint{Lat: 60.167070, Lng: 24.939650}
	testArea   = model.WorldPoint{Lat: 0.6, Lng: 1.2}
)

func TestHollowRingCenter(t *testing.T) {
	for _, maxStep := range []int{0, 1, 5} {
		points := HollowRing(testCenter, 0, maxStep, testArea)
		if len(points) != 1 {
			t.Fatalf("maxStep=%d: got %d points, want 1", maxStep, len(points))
		}
		want := model.GridOffset{TileX: maxStep, TileY: maxStep}
		if points[0].Offset != want {
			t.Errorf("maxStep=%d: center offset = %+v, want %+v", maxStep, points[0].Offset, want)
		}
		if points[0].World != testCenter {
			t.Errorf("maxStep=%d: center world = %+v, want %+v", maxStep, points[0].World, testCenter)
		}
	}
}

func TestHollowRingSize(t *testing.T) {
	const maxStep = 6
	center := model.GridOffset{TileX: maxStep, TileY: maxStep}
	for k := 1; k <= maxStep; k++ {
		points := HollowRing(testCenter, k, maxStep, testArea)
		if len(points) != 8*k {
			t.Fatalf("ring %d: got %d points, want %d", k, len(points), 8*k)
		}
		seen := make(map[model.GridOffset]bool)
		for _, p := range points {
			if d := utils.Chebyshev(p.Offset, center); d != k {
				t.Errorf("ring %d: offset %+v at distance %d", k, p.Offset, d)
			}
			if seen[p.Offset] {
				t.Errorf("ring %d: duplicate offset %+v", k, p.Offset)
			}
			seen[p.Offset] = true
		}
	}
}

func TestHollowRingWalkOrder(t *testing.T) {
	points := HollowRing(testCenter, 1, 1, testArea)
	want := []model.GridOffset{
		{TileX: 0, TileY: 0}, {TileX: 1, TileY: 0}, // 上边
		{TileX: 2, TileY: 0}, {TileX: 2, TileY: 1}, // 右边
		{TileX: 1, TileY: 2}, {TileX: 2, TileY: 2}, // 下边
		{TileX: 0, TileY: 1}, {TileX: 0, TileY: 2}, // 左边
	}
	for i, p := range points {
		if p.Offset != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, p.Offset, want[i])
		}
	}
}

func TestFilledRectCoversGridCenterOut(t *testing.T) {
	for _, s := range []int{0, 1, 2, 7} {
		points := FilledRect(testCenter, s, testArea)
		side := 2*s + 1
		if len(points) != side*side {
			t.Fatalf("S=%d: got %d points, want %d", s, len(points), side*side)
		}

		center := model.GridOffset{TileX: s, TileY: s}
		seen := make(map[model.GridOffset]bool)
		prevRing := 0
		for _, p := range points {
			if p.Offset.TileX < 0 || p.Offset.TileX > 2*s || p.Offset.TileY < 0 || p.Offset.TileY > 2*s {
				t.Fatalf("S=%d: offset %+v out of range", s, p.Offset)
			}
			if seen[p.Offset] {
				t.Fatalf("S=%d: duplicate offset %+v", s, p.Offset)
			}
			seen[p.Offset] = true

			ring := utils.Chebyshev(p.Offset, center)
			if ring < prevRing {
				t.Fatalf("S=%d: ring index decreased from %d to %d", s, prevRing, ring)
			}
			prevRing = ring
		}
	}
}

func TestFilledRectWorldInterpolation(t *testing.T) {
	const s = 4
	for _, p := range FilledRect(testCenter, s, testArea) {
		latStep := float64(p.Offset.TileX - s)
		lngStep := float64(p.Offset.TileY - s)
		wantLat := latStep/s*testArea.Lat/2 + testCenter.Lat
		wantLng := lngStep/s*testArea.Lng/2 + testCenter.Lng
		if math.Abs(p.World.Lat-wantLat) > 1e-12 || math.Abs(p.World.Lng-wantLng) > 1e-12 {
			t.Errorf("offset %+v: world %+v, want (%v, %v)", p.Offset, p.World, wantLat, wantLng)
		}
	}

	// 最外圈的角点落在采样区域的边界上
	corner := FilledRect(testCenter, s, testArea)[len(FilledRect(testCenter, s-1, testArea))]
	if math.Abs(corner.World.Lat-(testCenter.Lat-testArea.Lat/2)) > 1e-12 {
		t.Errorf("outer corner lat = %v", corner.World.Lat)
	}
}
