package handler

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"travel-heatmap/model"
	"travel-heatmap/stream"
)

// readEvents 解析 SSE 响应中的 heatmap 事件
func readEvents(body io.Reader, out chan<- model.HeatmapData) {
	defer close(out)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "heatmap":
			var data model.HeatmapData
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &data); err == nil {
				out <- data
			}
		case line == "":
			event = ""
		}
	}
}

func nextEvent(t *testing.T, events <-chan model.HeatmapData) model.HeatmapData {
	t.Helper()
	select {
	case data, ok := <-events:
		if !ok {
			t.Fatal("event stream closed")
		}
		return data
	case <-time.After(5 * time.Second):
		t.Fatal("no event received in time")
	}
	return model.HeatmapData{}
}

func waitNoSubscribers(t *testing.T, hub *stream.Hub) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want 0", hub.Subscribers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamHeatmapSSE(t *testing.T) {
	r, sampler, hub := setupTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/heatmap/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q", ct)
	}

	events := make(chan model.HeatmapData, 64)
	go readEvents(resp.Body, events)

	// 订阅后立即收到当前快照
	if first := nextEvent(t, events); len(first.Data) != 0 {
		t.Errorf("initial frame has %d points, want 0", len(first.Data))
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", hub.Subscribers())
	}

	sess := sampler.Start(testTarget)
	for {
		data := nextEvent(t, events)
		if data.SessionID == sess.ID && len(data.Data) == 9 {
			break
		}
	}

	cancel()
	waitNoSubscribers(t, hub)
}

func TestHeatmapSocket(t *testing.T) {
	r, _, hub := setupTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	latest := model.HeatmapData{
		SessionID: "latest",
		Max:       90,
		Data:      []model.HeatmapPoint{{X: 1, Y: 2, Lat: 60.2, Lng: 24.9, Value: 12}},
	}
	hub.SetData(latest)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/heatmap/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got model.HeatmapData
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.SessionID != "latest" || len(got.Data) != 1 || got.Data[0] != latest.Data[0] {
		t.Errorf("first message = %+v, want %+v", got, latest)
	}

	hub.SetData(model.HeatmapData{SessionID: "next", Max: 90, Data: []model.HeatmapPoint{}})
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.SessionID != "next" {
		t.Errorf("second message from %q, want next", got.SessionID)
	}

	conn.Close()
	waitNoSubscribers(t, hub)
}
