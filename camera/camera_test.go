package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNew(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)

	if cam.X != 1280 || cam.Y != 720 {
		t.Errorf("expected camera at (1280, 720), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(2)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}
	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)", tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestToroidalWrap(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.CenterOn(100, 720)

	// The right edge of the world is closer going left
	sx, _ := cam.WorldToScreen(2500, 720)
	if sx >= 640 {
		t.Errorf("expected entity on left of screen, got x=%f", sx)
	}
	if !cam.IsVisible(2500, 720, 0) {
		t.Error("entity across the seam should be visible")
	}
}

func TestPanWraps(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.X = 100

	cam.Pan(-200, 0)
	if !near(cam.X, 2460) {
		t.Errorf("expected X to wrap to 2460, got %f", cam.X)
	}
}

func TestZoomClamp(t *testing.T) {
	tests := []struct {
		name           string
		vw, vh, ww, wh float32
		minZoom        float32
		set, want      float32
	}{
		{"below min", 1280, 720, 2560, 1440, 0.5, 0.1, 0.5},
		{"above max", 1280, 720, 2560, 1440, 0.5, 10, 4},
		{"asymmetric", 800, 600, 1600, 800, 0.75, 0.6, 0.75},
		{"in range", 800, 600, 1600, 800, 0.75, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := New(tt.vw, tt.vh, tt.ww, tt.wh)
			if !near(cam.MinZoom, tt.minZoom) {
				t.Errorf("MinZoom = %f, want %f", cam.MinZoom, tt.minZoom)
			}
			cam.SetZoom(tt.set)
			if !near(cam.Zoom, tt.want) {
				t.Errorf("Zoom = %f, want %f", cam.Zoom, tt.want)
			}
		})
	}
}

func TestResizeRaisesZoom(t *testing.T) {
	cam := New(400, 300, 1600, 1200)
	cam.SetZoom(cam.MinZoom)
	cam.Resize(1600, 600)
	if cam.Zoom != 1 {
		t.Errorf("zoom after resize = %f, want 1", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)

	// Visible range is (640, 360) to (1920, 1080)
	tests := []struct {
		name    string
		x, y, r float32
		want    bool
	}{
		{"center", 1280, 720, 10, true},
		{"far corner", 2400, 1300, 10, false},
		{"edge with large radius", 600, 720, 100, true},
		{"just outside", 600, 720, 10, false},
	}
	for _, tt := range tests {
		if got := cam.IsVisible(tt.x, tt.y, tt.r); got != tt.want {
			t.Errorf("%s: IsVisible = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVisibleWorldBounds(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(2)
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	if minX != 960 || minY != 540 || maxX != 1600 || maxY != 900 {
		t.Errorf("bounds = (%v, %v, %v, %v)", minX, minY, maxX, maxY)
	}
}
