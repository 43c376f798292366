package planner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"travel-heatmap/algo"
	"travel-heatmap/model"
)

// DefaultDigitransitURL 赫尔辛基地区 (HSL) 的路径规划接口
const DefaultDigitransitURL = "https://api.digitransit.fi/routing/v1/routers/hsl/index/graphql"

// 只取第一条行程的起止时间，使用结束时间而不是行程时长 (时长不含出发前的等待)
const planQuery = `query Plan($from: InputCoordinates, $to: InputCoordinates, $date: String, $time: String) { plan(ignoreRealtimeUpdates: true, from: $from, to: $to, date: $date, time: $time, numItineraries: 1) { itineraries { startTime endTime } } }`

// DigitransitConfig Digitransit 客户端配置
type DigitransitConfig struct {
	Endpoint string
	APIKey   string         // digitransit-subscription-key，可为空
	QPS      float64        // 每秒最多请求数，<=0 表示不限制
	Timeout  time.Duration  // 单次请求超时
	Location *time.Location // 服务所在时区，date/time 参数按该时区格式化
}

// DigitransitPlanner 通过 Digitransit GraphQL 接口查询出行时间
type DigitransitPlanner struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	loc      *time.Location
}

var _ algo.Planner = (*DigitransitPlanner)(nil)

// NewDigitransitPlanner 创建 Digitransit 客户端
func NewDigitransitPlanner(cfg DigitransitConfig) *DigitransitPlanner {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultDigitransitURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	p := &DigitransitPlanner{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		loc:      cfg.Location,
	}
	if cfg.QPS > 0 {
		burst := int(cfg.QPS)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.QPS), burst)
	}
	return p
}

type coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type planVariables struct {
	From coordinates `json:"from"`
	To   coordinates `json:"to"`
	Date string      `json:"date"`
	Time string      `json:"time"`
}

type graphQLRequest struct {
	Query     string        `json:"query"`
	Variables planVariables `json:"variables"`
}

type planResponse struct {
	Data struct {
		Plan *struct {
			Itineraries []struct {
				StartTime int64 `json:"startTime"` // 毫秒时间戳
				EndTime   int64 `json:"endTime"`
			} `json:"itineraries"`
		} `json:"plan"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Plan 查询 req 对应的行程
func (p *DigitransitPlanner) Plan(ctx context.Context, req model.PlanRequest) ([]model.Itinerary, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	departure := req.Departure.In(p.loc)
	body, err := json.Marshal(graphQLRequest{
		Query: planQuery,
		Variables: planVariables{
			From: coordinates{Lat: req.From.Lat, Lon: req.From.Lng},
			To:   coordinates{Lat: req.To.Lat, Lon: req.To.Lng},
			Date: departure.Format("2006-01-02"),
			Time: departure.Format("15:04:05"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode plan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if p.apiKey != "" {
		httpReq.Header.Set("digitransit-subscription-key", p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("digitransit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Provider: "digitransit", Code: resp.StatusCode}
	}

	var out planResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode plan response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("digitransit: %s", out.Errors[0].Message)
	}
	if out.Data.Plan == nil {
		return nil, nil
	}

	itineraries := make([]model.Itinerary, 0, len(out.Data.Plan.Itineraries))
	for _, it := range out.Data.Plan.Itineraries {
		itineraries = append(itineraries, model.Itinerary{
			Departure: time.UnixMilli(it.StartTime).In(p.loc),
			Arrival:   time.UnixMilli(it.EndTime).In(p.loc),
		})
	}
	return itineraries, nil
}
