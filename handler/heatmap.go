package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"travel-heatmap/algo"
	"travel-heatmap/model"
	"travel-heatmap/stream"
)

// HeatmapHandler 采样会话、配置和热力图快照接口
type HeatmapHandler struct {
	sampler *algo.Sampler
	hub     *stream.Hub
}

// NewHeatmapHandler 创建处理器
func NewHeatmapHandler(sampler *algo.Sampler, hub *stream.Hub) *HeatmapHandler {
	return &HeatmapHandler{sampler: sampler, hub: hub}
}

// StartRequest 选择新的目标点
type StartRequest struct {
	Lat *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
}

// ConfigResponse 当前采样配置
type ConfigResponse struct {
	model.SamplingConfig
	Target model.WorldPoint `json:"target"`
}

// StartSession 以指定目标点开始新的采样，之前的会话被取消
// POST /api/sessions
func (h *HeatmapHandler) StartSession(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	sess := h.sampler.Start(model.WorldPoint{Lat: *req.Lat, Lng: *req.Lng})
	c.JSON(http.StatusAccepted, sess.Status())
}

// CurrentSession 当前会话的进度
// GET /api/sessions/current
func (h *HeatmapHandler) CurrentSession(c *gin.Context) {
	sess := h.sampler.Current()
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有采样会话"})
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

// CancelSession 取消当前会话
// DELETE /api/sessions/current
func (h *HeatmapHandler) CancelSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.sampler.Cancel()})
}

// GetConfig 获取当前配置
// GET /api/config
func (h *HeatmapHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		SamplingConfig: h.sampler.Config(),
		Target:         h.sampler.Target(),
	})
}

// UpdateConfig 修改配置并重新采样当前目标
// 参数不合法 (例如时间不是 HH:MM) 时返回 400，配置保持不变
// PUT /api/config
func (h *HeatmapHandler) UpdateConfig(c *gin.Context) {
	var req model.ConfigUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	cfg, sess, err := h.sampler.UpdateConfig(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"config":  ConfigResponse{SamplingConfig: cfg, Target: sess.Target},
		"session": sess.Status(),
	})
}

// GetHeatmap 最新的热力图快照
// GET /api/heatmap
func (h *HeatmapHandler) GetHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Latest())
}

// StreamHeatmap 以 Server-Sent Events 推送快照
// GET /api/heatmap/stream
func (h *HeatmapHandler) StreamHeatmap(c *gin.Context) {
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("heatmap", data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
