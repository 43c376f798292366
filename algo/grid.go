package algo

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"travel-heatmap/model"
)

// SparseGrid 按网格坐标存放采样结果，未采样成功的位置为空洞
type SparseGrid struct {
	cells map[model.GridOffset]model.Sample
}

// NewSparseGrid 创建空网格
func NewSparseGrid(capacity int) *SparseGrid {
	return &SparseGrid{cells: make(map[model.GridOffset]model.Sample, capacity)}
}

// Put 写入采样结果
func (g *SparseGrid) Put(s model.Sample) {
	g.cells[s.Offset] = s
}

// Get 读取某个网格点
func (g *SparseGrid) Get(offset model.GridOffset) (model.Sample, bool) {
	s, ok := g.cells[offset]
	return s, ok
}

// Len 已有结果的网格点数量
func (g *SparseGrid) Len() int {
	return len(g.cells)
}

// Samples 压缩为普通列表 (按 x, y 排序)
func (g *SparseGrid) Samples() []model.Sample {
	samples := lo.Values(g.cells)
	slices.SortFunc(samples, func(a, b model.Sample) int {
		return cmp.Or(
			cmp.Compare(a.Offset.TileX, b.Offset.TileX),
			cmp.Compare(a.Offset.TileY, b.Offset.TileY),
		)
	})
	return samples
}
