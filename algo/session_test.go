package algo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kr/pretty"
	"go.uber.org/mock/gomock"

	"travel-heatmap/model"
	"travel-heatmap/utils"
)

// recordingRenderer 记录所有推送的快照
type recordingRenderer struct {
	mu     sync.Mutex
	frames []model.HeatmapData
}

func (r *recordingRenderer) SetData(data model.HeatmapData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, data)
}

func (r *recordingRenderer) snapshot() []model.HeatmapData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.HeatmapData(nil), r.frames...)
}

func (r *recordingRenderer) last() model.HeatmapData {
	frames := r.snapshot()
	if len(frames) == 0 {
		return model.HeatmapData{}
	}
	return frames[len(frames)-1]
}

func smallConfig(halfWidth int) model.SamplingConfig {
	cfg := model.DefaultSamplingConfig()
	cfg.HalfWidth = halfWidth
	cfg.MaxConcurrent = 4
	cfg.MaxDurationMinutes = 1e9
	return cfg
}

// distanceProbe 以米为单位的直线距离代替出行时间
func distanceProbe(model.SamplingConfig, time.Time) ProbeFunc {
	return func(_ context.Context, from, to model.WorldPoint) (float64, bool) {
		return utils.HaversineDistance(from, to), true
	}
}

func newTestSampler(cfg model.SamplingConfig, renderer Renderer) *Sampler {
	s := NewSampler(nil, renderer, cfg, testCenter)
	s.newProbe = distanceProbe
	return s
}

func waitSession(t *testing.T, sess *Session) {
	t.Helper()
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

func TestSessionEndToEnd(t *testing.T) {
	renderer := &recordingRenderer{}
	cfg := smallConfig(1)
	sampler := newTestSampler(cfg, renderer)

	sess := sampler.Start(testCenter)
	waitSession(t, sess)

	samples := sess.Samples()
	if len(samples) != 9 {
		t.Fatalf("got %d samples, want 9", len(samples))
	}

	var want []model.Sample
	for _, p := range FilledRect(testCenter, 1, cfg.AreaSize) {
		want = append(want, model.Sample{Offset: p.Offset, World: p.World, Value: utils.HaversineDistance(p.World, testCenter)})
	}
	grid := NewSparseGrid(len(want))
	for _, s := range want {
		grid.Put(s)
	}
	if diff := pretty.Diff(grid.Samples(), samples); len(diff) > 0 {
		t.Errorf("samples differ:\n%s", pretty.Sprint(diff))
	}

	var center *model.Sample
	for i := range samples {
		if samples[i].Offset == (model.GridOffset{TileX: 1, TileY: 1}) {
			center = &samples[i]
		}
	}
	if center == nil || center.Value != 0 || center.World != testCenter {
		t.Errorf("center sample = %+v, want value 0 at the target", center)
	}

	status := sess.Status()
	if !status.Done || status.Cancelled || status.Processed != 9 || status.Resolved != 9 {
		t.Errorf("unexpected status %# v", pretty.Formatter(status))
	}

	frames := renderer.snapshot()
	if len(frames) != 10 {
		t.Fatalf("got %d frames, want empty snapshot plus one per sample", len(frames))
	}
	if len(frames[0].Data) != 0 {
		t.Errorf("first frame has %d points, want 0", len(frames[0].Data))
	}
	if got := renderer.last(); got.SessionID != sess.ID || len(got.Data) != 9 {
		t.Errorf("last frame: session %s with %d points", got.SessionID, len(got.Data))
	}
}

func TestSessionOrdersProbesCenterOut(t *testing.T) {
	cfg := smallConfig(2)
	cfg.MaxConcurrent = 1
	sampler := newTestSampler(cfg, nil)

	var mu sync.Mutex
	var order []model.WorldPoint
	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(_ context.Context, from, _ model.WorldPoint) (float64, bool) {
			mu.Lock()
			order = append(order, from)
			mu.Unlock()
			return 1, true
		}
	}

	waitSession(t, sampler.Start(testCenter))

	expected := FilledRect(testCenter, 2, cfg.AreaSize)
	if len(order) != len(expected) {
		t.Fatalf("got %d probes, want %d", len(order), len(expected))
	}
	for i, p := range expected {
		if order[i] != p.World {
			t.Fatalf("probe %d at %v, want %v", i, order[i], p.World)
		}
	}
}

func TestSessionSkipsUnresolvedPoints(t *testing.T) {
	cfg := smallConfig(1)
	sampler := newTestSampler(cfg, &recordingRenderer{})
	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(_ context.Context, from, to model.WorldPoint) (float64, bool) {
			if from == to {
				return 0, false
			}
			return 10, true
		}
	}

	sess := sampler.Start(testCenter)
	waitSession(t, sess)

	if n := len(sess.Samples()); n != 8 {
		t.Errorf("got %d samples, want 8", n)
	}
	status := sess.Status()
	if status.Processed != 9 || status.Resolved != 8 {
		t.Errorf("processed=%d resolved=%d, want 9 and 8", status.Processed, status.Resolved)
	}
}

func TestSnapshotClampsOnlyForDisplay(t *testing.T) {
	renderer := &recordingRenderer{}
	cfg := smallConfig(1)
	cfg.MaxDurationMinutes = 90
	sampler := newTestSampler(cfg, renderer)
	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(context.Context, model.WorldPoint, model.WorldPoint) (float64, bool) {
			return 150, true
		}
	}

	sess := sampler.Start(testCenter)
	waitSession(t, sess)

	for _, s := range sess.Samples() {
		if s.Value != 150 {
			t.Fatalf("raw sample value %v, want 150", s.Value)
		}
	}
	data := renderer.last()
	if data.Max != 90 || len(data.Data) != 9 {
		t.Fatalf("unexpected snapshot %# v", pretty.Formatter(data))
	}
	for _, p := range data.Data {
		if p.Value != 90 {
			t.Errorf("display value %v at (%d,%d), want 90", p.Value, p.X, p.Y)
		}
	}
}

func TestSupersededSessionNeverPublishes(t *testing.T) {
	renderer := &recordingRenderer{}
	cfg := smallConfig(2)
	sampler := newTestSampler(cfg, renderer)

	release := make(chan struct{})
	started := make(chan struct{}, 100)
	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(ctx context.Context, _, _ model.WorldPoint) (float64, bool) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
			}
			// 旧会话的查询在取消后仍然返回结果
			return 99, true
		}
	}
	first := sampler.Start(testCenter)
	<-started

	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(context.Context, model.WorldPoint, model.WorldPoint) (float64, bool) {
			return 7, true
		}
	}
	target := testCenter.Add(0.1, 0.1)
	second := sampler.Start(target)
	close(release)

	waitSession(t, first)
	waitSession(t, second)

	if !first.Status().Cancelled {
		t.Error("first session should be cancelled")
	}
	if n := len(first.Samples()); n != 0 {
		t.Errorf("cancelled session kept %d samples", n)
	}
	if sampler.Current() != second || sampler.Target() != target {
		t.Error("sampler should hold the second session")
	}

	for _, frame := range renderer.snapshot() {
		for _, p := range frame.Data {
			if p.Value == 99 {
				t.Fatalf("frame from session %s contains a superseded sample", frame.SessionID)
			}
		}
	}
	data := renderer.last()
	if data.SessionID != second.ID || len(data.Data) != cfg.PointCount() {
		t.Errorf("last frame from %s with %d points, want %s with %d", data.SessionID, len(data.Data), second.ID, cfg.PointCount())
	}
}

func TestSamplerCancel(t *testing.T) {
	sampler := newTestSampler(smallConfig(1), nil)
	if sampler.Cancel() {
		t.Error("cancel without a session should report false")
	}

	block := make(chan struct{})
	sampler.newProbe = func(model.SamplingConfig, time.Time) ProbeFunc {
		return func(ctx context.Context, _, _ model.WorldPoint) (float64, bool) {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return 1, true
		}
	}
	sess := sampler.Start(testCenter)
	if !sampler.Cancel() {
		t.Error("cancel of a running session should report true")
	}
	waitSession(t, sess)
	if sampler.Cancel() {
		t.Error("second cancel should report false")
	}
	if st := sess.Status(); !st.Cancelled || st.Resolved != 0 {
		t.Errorf("unexpected status %# v", pretty.Formatter(st))
	}
}

func TestUpdateConfigRestarts(t *testing.T) {
	sampler := newTestSampler(smallConfig(1), &recordingRenderer{})
	first := sampler.Start(testCenter)
	waitSession(t, first)

	halfWidth := 2
	routing := "09:30"
	cfg, sess, err := sampler.UpdateConfig(model.ConfigUpdate{HalfWidth: &halfWidth, RoutingTime: &routing})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if sess == nil || sess == first {
		t.Fatal("expected a new session")
	}
	waitSession(t, sess)

	if cfg.HalfWidth != 2 || cfg.RoutingTime != (model.RoutingTime{Hour: 9, Minute: 30}) {
		t.Errorf("unexpected config %# v", pretty.Formatter(cfg))
	}
	if sess.Target != testCenter || sess.Config.HalfWidth != 2 {
		t.Errorf("restarted session target=%v half_width=%d", sess.Target, sess.Config.HalfWidth)
	}
	if n := len(sess.Samples()); n != 25 {
		t.Errorf("got %d samples, want 25", n)
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	sampler := newTestSampler(smallConfig(1), nil)
	first := sampler.Start(testCenter)
	waitSession(t, first)
	before := sampler.Config()

	for _, routing := range []string{"8:00", "24:00", "08:60", "morning", ""} {
		r := routing
		_, sess, err := sampler.UpdateConfig(model.ConfigUpdate{RoutingTime: &r})
		if err == nil {
			t.Errorf("routing time %q: expected error", routing)
		}
		if sess != nil {
			t.Errorf("routing time %q: session restarted", routing)
		}
	}

	negative := -1
	if _, _, err := sampler.UpdateConfig(model.ConfigUpdate{HalfWidth: &negative}); err == nil {
		t.Error("negative half width: expected error")
	}

	if diff := pretty.Diff(before, sampler.Config()); len(diff) > 0 {
		t.Errorf("config changed: %v", diff)
	}
	if sampler.Current() != first {
		t.Error("current session replaced by an invalid update")
	}
}

func TestSingleUnresolvedPointPublishesOnlyEmptySnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := NewMockRenderer(ctrl)
	planner := NewMockPlanner(ctrl)

	cfg := smallConfig(0)
	sampler := NewSampler(planner, renderer, cfg, testCenter)
	sampler.now = func() time.Time { return testDeparture.AddDate(0, 0, -3) }

	renderer.EXPECT().SetData(gomock.Any()).Do(func(data model.HeatmapData) {
		if len(data.Data) != 0 || data.Max != cfg.MaxDurationMinutes {
			t.Errorf("unexpected snapshot %+v", data)
		}
	}).Times(1)
	planner.EXPECT().Plan(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.PlanRequest) ([]model.Itinerary, error) {
			if !req.Departure.Equal(testDeparture) {
				t.Errorf("departure = %s, want %s", req.Departure, testDeparture)
			}
			return nil, nil
		},
	).Times(MaxProbeAttempts)

	sess := sampler.Start(testCenter)
	waitSession(t, sess)
	if st := sess.Status(); st.Total != 1 || st.Processed != 1 || st.Resolved != 0 {
		t.Errorf("unexpected status %# v", pretty.Formatter(st))
	}
}
