package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"travel-heatmap/model"
)

// 支持的路径规划服务
const (
	PlannerDigitransit = "digitransit"
	PlannerGoogleMaps  = "googlemaps"
	PlannerGraph       = "graph"
)

// Config 应用配置
type Config struct {
	Port     string
	Database DatabaseConfig
	Planner  PlannerConfig
	Sampling model.SamplingConfig
	Target   model.WorldPoint // 启动时的初始目标点

	JWTSecret    string
	AuthRequired bool

	PostHogKey  string
	PostHogHost string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SeedFile string // 路网为空时导入的种子数据
}

// DSN 返回 PostgreSQL 连接字符串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.DBName, c.Port,
	)
}

// PlannerConfig 路径规划服务配置
type PlannerConfig struct {
	Kind             string
	DigitransitURL   string
	DigitransitKey   string
	QPS              float64
	GoogleMapsAPIKey string
	CacheSize        int
	Location         *time.Location
}

// Load 加载配置: 先读取 .env (可选)，环境变量优先
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("读取 .env 失败: %v", err)
	}

	loc, err := time.LoadLocation(getEnvOrDefault("ROUTER_TIMEZONE", "Europe/Helsinki"))
	if err != nil {
		return nil, fmt.Errorf("ROUTER_TIMEZONE: %w", err)
	}

	routingTime, err := model.ParseRoutingTime(getEnvOrDefault("ROUTING_TIME", "08:00"))
	if err != nil {
		return nil, fmt.Errorf("ROUTING_TIME: %w", err)
	}
	weekday, err := parseWeekday(getEnvOrDefault("ROUTING_WEEKDAY", "monday"))
	if err != nil {
		return nil, err
	}

	sampling := model.DefaultSamplingConfig()
	sampling.HalfWidth = getEnvInt("SAMPLING_HALF_WIDTH", sampling.HalfWidth)
	sampling.MaxConcurrent = getEnvInt("SAMPLING_MAX_CONCURRENT", sampling.MaxConcurrent)
	areaLat := getEnvFloat("SAMPLING_AREA_LAT", sampling.AreaSize.Lat)
	sampling.AreaSize = model.WorldPoint{Lat: areaLat, Lng: areaLat * 2}
	sampling.MaxDurationMinutes = getEnvFloat("MAX_DURATION_MINUTES", sampling.MaxDurationMinutes)
	sampling.RoutingTime = routingTime
	sampling.Weekday = weekday
	sampling.Location = loc
	if err := sampling.Validate(); err != nil {
		return nil, fmt.Errorf("sampling config: %w", err)
	}

	cfg := &Config{
		Port: getEnvOrDefault("PORT", ":8080"),
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "vvuser"),
			Password: getEnvOrDefault("DB_PASSWORD", "vvpassword"),
			DBName:   getEnvOrDefault("DB_NAME", "vvtraffic"),
			SeedFile: getEnvOrDefault("DB_SEED_FILE", "map_data.json"),
		},
		Planner: PlannerConfig{
			Kind:             strings.ToLower(getEnvOrDefault("PLANNER", PlannerDigitransit)),
			DigitransitURL:   getEnvOrDefault("DIGITRANSIT_URL", ""),
			DigitransitKey:   getEnvOrDefault("DIGITRANSIT_API_KEY", ""),
			QPS:              getEnvFloat("PLANNER_QPS", 20),
			GoogleMapsAPIKey: getEnvOrDefault("GOOGLE_MAPS_API_KEY", ""),
			CacheSize:        getEnvInt("PLANNER_CACHE_SIZE", 50000),
			Location:         loc,
		},
		Sampling: sampling,
		Target: model.WorldPoint{
			Lat: getEnvFloat("INITIAL_TARGET_LAT", 60.167070),
			Lng: getEnvFloat("INITIAL_TARGET_LNG", 24.939650),
		},
		JWTSecret:    getEnvOrDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		AuthRequired: getEnvBool("AUTH_REQUIRED", false),
		PostHogKey:   getEnvOrDefault("POSTHOG_KEY", ""),
		PostHogHost:  getEnvOrDefault("POSTHOG_HOST", "https://us.i.posthog.com"),
	}

	switch cfg.Planner.Kind {
	case PlannerDigitransit:
	case PlannerGoogleMaps:
		if cfg.Planner.GoogleMapsAPIKey == "" {
			return nil, fmt.Errorf("PLANNER=%s requires GOOGLE_MAPS_API_KEY", PlannerGoogleMaps)
		}
	case PlannerGraph:
		if !cfg.Database.Enabled {
			return nil, fmt.Errorf("PLANNER=%s requires DB_ENABLED", PlannerGraph)
		}
	default:
		return nil, fmt.Errorf("unknown PLANNER %q", cfg.Planner.Kind)
	}
	if cfg.AuthRequired && !cfg.Database.Enabled {
		return nil, fmt.Errorf("AUTH_REQUIRED requires DB_ENABLED")
	}
	return cfg, nil
}

// getEnvOrDefault 获取环境变量，如果不存在则返回默认值
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("ROUTING_WEEKDAY: unknown weekday %q", s)
}
