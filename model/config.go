package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRoutingTime 出发时间格式错误 (要求 HH:MM)
var ErrInvalidRoutingTime = errors.New("invalid routing time, expected HH:MM")

// RoutingTime 一天中的出发时刻
type RoutingTime struct {
	Hour   int
	Minute int
}

// ParseRoutingTime 解析 "HH:MM" 格式的时间
func ParseRoutingTime(s string) (RoutingTime, error) {
	if len(s) != len("15:04") {
		return RoutingTime{}, fmt.Errorf("%w: %q", ErrInvalidRoutingTime, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return RoutingTime{}, fmt.Errorf("%w: %q", ErrInvalidRoutingTime, s)
	}
	return RoutingTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t RoutingTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalJSON 输出为 "HH:MM"
func (t RoutingTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// MaxHalfWidth 网格半宽上限，(2S+1)^2 约一百万个点
const MaxHalfWidth = 500

// SamplingConfig 一次采样会话使用的只读配置
type SamplingConfig struct {
	HalfWidth          int            `json:"half_width"`           // 网格半宽 S，总点数 (2S+1)^2
	AreaSize           WorldPoint     `json:"area_size"`            // 整个采样区域的纬度/经度跨度 (度)
	MaxConcurrent      int            `json:"max_concurrent"`       // 同时进行的查询数
	RoutingTime        RoutingTime    `json:"routing_time"`         // 出发时刻
	Weekday            time.Weekday   `json:"weekday"`              // 出发日 (下一个该星期几，避开节假日)
	Location           *time.Location `json:"-"`                    // 路径规划服务所在时区
	MaxDurationMinutes float64        `json:"max_duration_minutes"` // 显示上限，超出部分截断
}

// DefaultSamplingConfig 默认配置 (赫尔辛基，工作日早上 8 点)
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		HalfWidth:          50,
		AreaSize:           WorldPoint{Lat: 0.6, Lng: 1.2},
		MaxConcurrent:      40,
		RoutingTime:        RoutingTime{Hour: 8},
		Weekday:            time.Monday,
		Location:           time.UTC,
		MaxDurationMinutes: 90,
	}
}

// Validate 检查配置是否合法
func (c SamplingConfig) Validate() error {
	if c.HalfWidth < 0 || c.HalfWidth > MaxHalfWidth {
		return fmt.Errorf("half width must be in [0, %d], got %d", MaxHalfWidth, c.HalfWidth)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent queries must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.AreaSize.Lat <= 0 || c.AreaSize.Lng <= 0 {
		return fmt.Errorf("area size must be positive, got %v", c.AreaSize)
	}
	if c.MaxDurationMinutes <= 0 {
		return fmt.Errorf("max duration must be positive, got %v", c.MaxDurationMinutes)
	}
	if c.RoutingTime.Hour < 0 || c.RoutingTime.Hour > 23 || c.RoutingTime.Minute < 0 || c.RoutingTime.Minute > 59 {
		return fmt.Errorf("%w: %s", ErrInvalidRoutingTime, c.RoutingTime)
	}
	return nil
}

// PointCount 网格总点数
func (c SamplingConfig) PointCount() int {
	side := 2*c.HalfWidth + 1
	return side * side
}

// CellSize 单个网格点对应的世界尺寸 (度)
func (c SamplingConfig) CellSize() WorldPoint {
	side := float64(2*c.HalfWidth + 1)
	return WorldPoint{Lat: c.AreaSize.Lat / side, Lng: c.AreaSize.Lng / side}
}

// Departure 计算规划用的出发时间: 今天之后下一个 Weekday 的 RoutingTime
func (c SamplingConfig) Departure(now time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	days := (int(c.Weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	day := now.AddDate(0, 0, days)
	return time.Date(day.Year(), day.Month(), day.Day(), c.RoutingTime.Hour, c.RoutingTime.Minute, 0, 0, loc)
}

// ConfigUpdate 来自控制端的配置修改，nil 字段表示不修改
type ConfigUpdate struct {
	HalfWidth     *int    `json:"half_width"`
	RoutingTime   *string `json:"routing_time"`
	MaxConcurrent *int    `json:"max_concurrent"`
}

// Apply 返回应用修改后的配置
// 任何字段不合法时返回错误，原配置保持不变
func (c SamplingConfig) Apply(u ConfigUpdate) (SamplingConfig, error) {
	next := c
	if u.HalfWidth != nil {
		next.HalfWidth = *u.HalfWidth
	}
	if u.MaxConcurrent != nil {
		next.MaxConcurrent = *u.MaxConcurrent
	}
	if u.RoutingTime != nil {
		t, err := ParseRoutingTime(*u.RoutingTime)
		if err != nil {
			return c, err
		}
		next.RoutingTime = t
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}
