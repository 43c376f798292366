package planner

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"travel-heatmap/algo"
	"travel-heatmap/model"
)

// DefaultCacheSize 默认缓存条目数
const DefaultCacheSize = 50000

type cacheKey struct {
	fromLat, fromLng int64
	toLat, toLng     int64
	departure        int64
}

// 坐标按 1e-6 度取整 (约 0.1 米)
func newCacheKey(req model.PlanRequest) cacheKey {
	round := func(v float64) int64 { return int64(math.Round(v * 1e6)) }
	return cacheKey{
		fromLat:   round(req.From.Lat),
		fromLng:   round(req.From.Lng),
		toLat:     round(req.To.Lat),
		toLng:     round(req.To.Lng),
		departure: req.Departure.Unix(),
	}
}

// CachedPlanner 为 Planner 加上 LRU 缓存，只缓存成功且非空的结果
type CachedPlanner struct {
	next  algo.Planner
	cache *lru.Cache[cacheKey, []model.Itinerary]
}

var _ algo.Planner = (*CachedPlanner)(nil)

// NewCachedPlanner 包装 next
func NewCachedPlanner(next algo.Planner, size int) (*CachedPlanner, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []model.Itinerary](size)
	if err != nil {
		return nil, fmt.Errorf("create planner cache: %w", err)
	}
	return &CachedPlanner{next: next, cache: cache}, nil
}

// Plan 先查缓存，未命中时调用下游
func (p *CachedPlanner) Plan(ctx context.Context, req model.PlanRequest) ([]model.Itinerary, error) {
	key := newCacheKey(req)
	if itineraries, ok := p.cache.Get(key); ok {
		return itineraries, nil
	}

	itineraries, err := p.next.Plan(ctx, req)
	if err != nil || len(itineraries) == 0 {
		return itineraries, err
	}
	p.cache.Add(key, itineraries)
	return itineraries, nil
}

// Len 当前缓存条目数
func (p *CachedPlanner) Len() int {
	return p.cache.Len()
}
