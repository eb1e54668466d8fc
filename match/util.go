package match

import (
	"math"

	"github.com/google/uuid"
)

// Vec2 is a point or direction in map coordinates
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned bounds box anchored at the origin
type Rect struct {
	W, H float64
}

// Contains reports whether (x, y) lies inside the bounds, edges included
func (r Rect) Contains(x, y float64) bool {
	return x >= 0 && x <= r.W && y >= 0 && y <= r.H
}

// GenerateID returns a short random identifier
func GenerateID() string {
	return uuid.NewString()[:8]
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
