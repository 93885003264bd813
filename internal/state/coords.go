package state

import "math"

// Normalize maps a pixel position on the displayed image into [0,1] image
// space. A non-positive display dimension yields 0 on that axis.
func Normalize(px, py, displayWidth, displayHeight float64) (float64, float64) {
	return normAxis(px, displayWidth), normAxis(py, displayHeight)
}

// Denormalize maps a normalized position back to display pixels.
func Denormalize(nx, ny, displayWidth, displayHeight float64) (float64, float64) {
	return nx * displayWidth, ny * displayHeight
}

// NormalizePoint is Normalize returning a Point.
func NormalizePoint(px, py, displayWidth, displayHeight float64) Point {
	x, y := Normalize(px, py, displayWidth, displayHeight)
	return Point{X: x, Y: y}
}

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ClampPoint clamps both coordinates of p.
func ClampPoint(p Point) Point {
	return Point{X: Clamp01(p.X), Y: Clamp01(p.Y)}
}

func normAxis(v, size float64) float64 {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return 0
	}
	return Clamp01(v / size)
}

// DisplaySize fits an image of imageW×imageH pixels into a viewport while
// keeping its aspect ratio. The result is what hosts pass as display
// width/height for the whole editing session. A zero viewport height means
// "unbounded", so the image simply takes the full viewport width. When the
// image size is unknown the viewport is returned as given (negatives as 0)
// rather than guessing an aspect ratio.
func DisplaySize(imageW, imageH, viewportW, viewportH float64) (float64, float64) {
	if imageW <= 0 || imageH <= 0 {
		return max(viewportW, 0), max(viewportH, 0)
	}
	if viewportW <= 0 {
		return 0, 0
	}
	w := viewportW
	h := viewportW * imageH / imageW
	if viewportH > 0 && h > viewportH {
		h = viewportH
		w = viewportH * imageW / imageH
	}
	return w, h
}
