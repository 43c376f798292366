package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 与 CORS 设置一致，允许任意来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HeatmapSocket 通过 WebSocket 推送快照
// GET /api/heatmap/ws
func (h *HeatmapHandler) HeatmapSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Stream] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	// 客户端只接收数据，读循环用于发现连接关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(data); err != nil {
				log.Printf("[Stream] websocket write failed: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
