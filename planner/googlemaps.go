package planner

import (
	"context"
	"fmt"
	"strconv"

	maps "googlemaps.github.io/maps"

	"travel-heatmap/algo"
	"travel-heatmap/model"
)

// GoogleMapsPlanner 通过 Google Directions API (公共交通) 查询出行时间
type GoogleMapsPlanner struct {
	client *maps.Client
	mode   maps.Mode
}

var _ algo.Planner = (*GoogleMapsPlanner)(nil)

// NewGoogleMapsPlanner 创建 Google Directions 客户端，qps 为每秒请求上限
func NewGoogleMapsPlanner(apiKey string, qps int) (*GoogleMapsPlanner, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if qps > 0 {
		opts = append(opts, maps.WithRateLimit(qps))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("maps.NewClient: %w", err)
	}
	return &GoogleMapsPlanner{client: client, mode: maps.TravelModeTransit}, nil
}

// Plan 查询 req 对应的行程
// 公共交通方案带有到达时间; 其他情况按出发时间加各段时长计算
func (p *GoogleMapsPlanner) Plan(ctx context.Context, req model.PlanRequest) ([]model.Itinerary, error) {
	routes, _, err := p.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:        req.From.String(),
		Destination:   req.To.String(),
		Mode:          p.mode,
		DepartureTime: strconv.FormatInt(req.Departure.Unix(), 10),
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}

	itineraries := make([]model.Itinerary, 0, len(routes))
	for _, route := range routes {
		if len(route.Legs) == 0 {
			continue
		}
		first, last := route.Legs[0], route.Legs[len(route.Legs)-1]

		departure := first.DepartureTime
		if departure.IsZero() {
			departure = req.Departure
		}
		arrival := last.ArrivalTime
		if arrival.IsZero() {
			arrival = req.Departure
			for _, leg := range route.Legs {
				arrival = arrival.Add(leg.Duration)
			}
		}
		itineraries = append(itineraries, model.Itinerary{Departure: departure, Arrival: arrival})
	}
	return itineraries, nil
}
