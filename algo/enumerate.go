package algo

import "travel-heatmap/model"

// HollowRing 输出以 center 为中心、切比雪夫距离恰好为 steps 的一圈网格点
// 四条边依次为: 上边 (左→右)、右边 (上→下)、下边 (右→左)、左边 (下→上)，
// 每条边 2*steps 个点，角点不重复，共 8*steps 个点; steps 为 0 时只输出中心点
// maxStep 为网格半宽 S，area 为整个采样区域的世界尺寸
func HollowRing(center model.WorldPoint, steps, maxStep int, area model.WorldPoint) []model.GridPoint {
	if steps == 0 {
		return []model.GridPoint{gridPoint(center, 0, 0, maxStep, area)}
	}

	result := make([]model.GridPoint, 0, 8*steps)
	for i := -steps; i < steps; i++ {
		result = append(result, gridPoint(center, i, -steps, maxStep, area))
	}
	for i := -steps; i < steps; i++ {
		result = append(result, gridPoint(center, steps, i, maxStep, area))
	}
	for i := -steps; i < steps; i++ {
		result = append(result, gridPoint(center, i+1, steps, maxStep, area))
	}
	for i := -steps; i < steps; i++ {
		result = append(result, gridPoint(center, -steps, i+1, maxStep, area))
	}
	return result
}

// FilledRect 依次拼接 0..maxStep 各圈，最靠近中心的点排在最前面
// 采样中途被打断时，已完成的点集中在目标附近
func FilledRect(center model.WorldPoint, maxStep int, area model.WorldPoint) []model.GridPoint {
	side := 2*maxStep + 1
	result := make([]model.GridPoint, 0, side*side)
	for k := 0; k <= maxStep; k++ {
		result = append(result, HollowRing(center, k, maxStep, area)...)
	}
	return result
}

// gridPoint 由相对中心的步数计算网格坐标和线性插值得到的世界坐标
func gridPoint(center model.WorldPoint, latStep, lngStep, maxStep int, area model.WorldPoint) model.GridPoint {
	world := center
	if maxStep > 0 {
		world = center.Add(
			float64(latStep)/float64(maxStep)*area.Lat/2,
			float64(lngStep)/float64(maxStep)*area.Lng/2,
		)
	}
	return model.GridPoint{
		Offset: model.GridOffset{TileX: latStep + maxStep, TileY: lngStep + maxStep},
		World:  world,
	}
}
