// Package camera tracks a viewer's window into the toroidal world, used to
// cull live feed frames per client.
package camera

import (
	"github.com/pthm-cable/scriptbots/systems"
)

// Follow modes, matching the world's points of interest.
const (
	FollowNone     = 0
	FollowOldest   = 1
	FollowSelected = 2
)

// Camera controls the viewport into the simulation world.
// Supports pan and zoom with toroidal world wrapping.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float32

	// Viewport dimensions in screen pixels
	ViewportW, ViewportH float32

	WorldW, WorldH float32

	MinZoom, MaxZoom float32

	// Follow selects a point of interest to keep centered
	Follow int
}

// New creates a camera centered on the world with 1:1 zoom.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		X:       worldW / 2,
		Y:       worldH / 2,
		Zoom:    1.0,
		WorldW:  worldW,
		WorldH:  worldH,
		MaxZoom: 4.0,
	}
	c.Resize(viewportW, viewportH)
	return c
}

// WorldToScreen converts world coordinates to screen coordinates, taking the
// shortest way around the torus.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	dx, dy := systems.ToroidalDelta(c.X, c.Y, wx, wy, c.WorldW, c.WorldH)
	sx = c.ViewportW/2 + dx*c.Zoom
	sy = c.ViewportH/2 + dy*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	dx := (sx - c.ViewportW/2) / c.Zoom
	dy := (sy - c.ViewportH/2) / c.Zoom
	return systems.Wrap(c.X+dx, c.WorldW), systems.Wrap(c.Y+dy, c.WorldH)
}

// IsVisible reports whether a circle at (wx, wy) could be on screen.
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	dx, dy := systems.ToroidalDelta(c.X, c.Y, wx, wy, c.WorldW, c.WorldH)
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return abs32(dx) <= halfW && abs32(dy) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints so
// the view never exceeds the world.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = max(viewportW/c.WorldW, viewportH/c.WorldH)
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X = systems.Wrap(c.X+dx/c.Zoom, c.WorldW)
	c.Y = systems.Wrap(c.Y+dy/c.Zoom, c.WorldH)
}

// CenterOn moves the camera center to a world position.
func (c *Camera) CenterOn(wx, wy float32) {
	c.X = systems.Wrap(wx, c.WorldW)
	c.Y = systems.Wrap(wy, c.WorldH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = systems.ClampFloat(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
// The bounds are not wrapped, so they may extend past the world edges.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
