package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"

	"travel-heatmap/algo"
	"travel-heatmap/config"
	"travel-heatmap/db"
	"travel-heatmap/handler"
	"travel-heatmap/model"
	"travel-heatmap/planner"
	"travel-heatmap/stream"
	"travel-heatmap/telemetry"
)

func main() {
	fmt.Println("=== Travel Heatmap - 出行时间热力图 ===")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化数据库 (用户和离线路网)
	if cfg.Database.Enabled {
		if err := db.InitDB(cfg.Database); err != nil {
			log.Fatalf("初始化数据库失败: %v", err)
		}
	}

	// 3. 路径规划服务
	p, err := buildPlanner(cfg)
	if err != nil {
		log.Fatalf("初始化路径规划服务失败: %v", err)
	}

	// 4. 采样器和快照分发
	hub := stream.NewHub()
	tracker := telemetry.NewTracker(cfg.PostHogKey, cfg.PostHogHost)
	defer tracker.Close()

	sampler := algo.NewSampler(p, hub, cfg.Sampling, cfg.Target)
	sampler.OnFinish(tracker.SessionFinished)
	defer sampler.Cancel()

	// 5. 配置路由
	handler.SetJWTSecret(cfg.JWTSecret)
	r := gin.Default()
	setupRoutes(r, handler.NewHeatmapHandler(sampler, hub), cfg)

	// 启动后先计算初始目标点
	sampler.Start(cfg.Target)

	// 6. 启动服务器
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}
	go func() {
		log.Printf("服务器启动中... 地址 %s, 路径规划服务: %s", cfg.Port, cfg.Planner.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("服务器强制关闭: %v", err)
	}
}

// buildPlanner 按配置创建路径规划服务，并加上结果缓存
func buildPlanner(cfg *config.Config) (algo.Planner, error) {
	var p algo.Planner
	switch cfg.Planner.Kind {
	case config.PlannerGoogleMaps:
		gp, err := planner.NewGoogleMapsPlanner(cfg.Planner.GoogleMapsAPIKey, int(cfg.Planner.QPS))
		if err != nil {
			return nil, err
		}
		p = gp
	case config.PlannerGraph:
		graph, err := db.LoadGraph()
		if err != nil {
			return nil, err
		}
		log.Printf("路网加载成功! 节点数: %d", len(graph.Nodes))
		p = planner.NewGraphPlanner(graph, model.ModeTransit)
	default:
		p = planner.NewDigitransitPlanner(planner.DigitransitConfig{
			Endpoint: cfg.Planner.DigitransitURL,
			APIKey:   cfg.Planner.DigitransitKey,
			QPS:      cfg.Planner.QPS,
			Location: cfg.Planner.Location,
		})
	}

	if cfg.Planner.CacheSize <= 0 {
		return p, nil
	}
	return planner.NewCachedPlanner(p, cfg.Planner.CacheSize)
}

// setupRoutes 配置路由
func setupRoutes(r *gin.Engine, h *handler.HeatmapHandler, cfg *config.Config) {
	// CORS 跨域中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "ok",
		})
	})

	api := r.Group("/api")
	{
		if cfg.Database.Enabled {
			api.POST("/login", handler.Login)
			api.POST("/register", handler.Register)
		}

		// 只读接口
		api.GET("/config", h.GetConfig)
		api.GET("/sessions/current", h.CurrentSession)
		api.GET("/heatmap", h.GetHeatmap)
		api.GET("/heatmap/stream", h.StreamHeatmap)
		api.GET("/heatmap/ws", h.HeatmapSocket)

		// 修改状态的接口，按配置要求登录
		control := api.Group("/")
		if cfg.AuthRequired {
			control.Use(handler.AuthMiddleware())
		}
		control.POST("/sessions", h.StartSession)
		control.DELETE("/sessions/current", h.CancelSession)
		control.PUT("/config", h.UpdateConfig)
	}
}
