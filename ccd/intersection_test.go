package ccd

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// unit triangle in the z = 0 plane
var (
	triA = mgl64.Vec3{0, 0, 0}
	triB = mgl64.Vec3{1, 0, 0}
	triC = mgl64.Vec3{0, 1, 0}
)

func TestSegmentTriangleIntersection(t *testing.T) {
	tests := []struct {
		name       string
		p, q       mgl64.Vec3
		degenerate bool
		expected   bool
	}{
		{
			name:     "piercing through interior",
			p:        mgl64.Vec3{0.2, 0.2, 1},
			q:        mgl64.Vec3{0.2, 0.2, -1},
			expected: true,
		},
		{
			name:     "crossing the plane outside the triangle",
			p:        mgl64.Vec3{2, 2, 1},
			q:        mgl64.Vec3{2, 2, -1},
			expected: false,
		},
		{
			name:     "entirely above the plane",
			p:        mgl64.Vec3{0.2, 0.2, 0.5},
			q:        mgl64.Vec3{0.3, 0.3, 1.5},
			expected: false,
		},
		{
			name:       "endpoint resting on the triangle, degenerate miss",
			p:          mgl64.Vec3{0.2, 0.2, 0},
			q:          mgl64.Vec3{0.2, 0.2, 1},
			degenerate: false,
			expected:   false,
		},
		{
			name:       "endpoint resting on the triangle, degenerate hit",
			p:          mgl64.Vec3{0.2, 0.2, 0},
			q:          mgl64.Vec3{0.2, 0.2, 1},
			degenerate: true,
			expected:   true,
		},
		{
			name:       "coplanar segment piercing, degenerate hit",
			p:          mgl64.Vec3{-1, 0.2, 0},
			q:          mgl64.Vec3{1, 0.2, 0},
			degenerate: true,
			expected:   true,
		},
		{
			name:       "coplanar segment piercing, degenerate miss",
			p:          mgl64.Vec3{-1, 0.2, 0},
			q:          mgl64.Vec3{1, 0.2, 0},
			degenerate: false,
			expected:   false,
		},
		{
			name:       "coplanar segment clear of the triangle",
			p:          mgl64.Vec3{-1, 2, 0},
			q:          mgl64.Vec3{1, 2, 0},
			degenerate: true,
			expected:   false,
		},
		{
			name:       "crossing exactly through an edge",
			p:          mgl64.Vec3{0.5, 0, 1},
			q:          mgl64.Vec3{0.5, 0, -1},
			degenerate: true,
			expected:   true,
		},
		{
			name:       "crossing exactly through an edge, strict",
			p:          mgl64.Vec3{0.5, 0, 1},
			q:          mgl64.Vec3{0.5, 0, -1},
			degenerate: false,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentTriangleIntersection(tt.p, 10, tt.q, 11, triA, 0, triB, 1, triC, 2, tt.degenerate)
			if got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}

			// reversing the segment must not change the answer
			rev := SegmentTriangleIntersection(tt.q, 11, tt.p, 10, triA, 0, triB, 1, triC, 2, tt.degenerate)
			if rev != tt.expected {
				t.Errorf("reversed segment: got %v, want %v", rev, tt.expected)
			}
		})
	}
}

func TestSegmentTriangleIntersectionParams(t *testing.T) {
	hit, s, u, v, w, normal := SegmentTriangleIntersectionParams(
		mgl64.Vec3{0.2, 0.2, 1}, 10,
		mgl64.Vec3{0.2, 0.2, -1}, 11,
		triA, 0, triB, 1, triC, 2,
		false,
	)

	if !hit {
		t.Fatal("expected a hit")
	}
	if math.Abs(s-0.5) > 1e-12 {
		t.Errorf("s = %v, want 0.5", s)
	}
	if math.Abs(u-0.6) > 1e-12 || math.Abs(v-0.2) > 1e-12 || math.Abs(w-0.2) > 1e-12 {
		t.Errorf("barycentric = (%v, %v, %v), want (0.6, 0.2, 0.2)", u, v, w)
	}
	if math.Abs(math.Abs(normal.Z())-1) > 1e-12 {
		t.Errorf("normal = %v, want +-z", normal)
	}
}

func TestTriangleTriangleIntersection(t *testing.T) {
	base := [3]mgl64.Vec3{triA, triB, triC}
	baseIdx := [3]int{0, 1, 2}

	tests := []struct {
		name     string
		tri      [3]mgl64.Vec3
		idx      [3]int
		expected bool
	}{
		{
			name:     "piercing triangle",
			tri:      [3]mgl64.Vec3{{0.2, 0.2, -0.5}, {0.3, 0.2, 0.5}, {0.2, 0.3, 0.5}},
			idx:      [3]int{3, 4, 5},
			expected: true,
		},
		{
			name:     "well separated",
			tri:      [3]mgl64.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
			idx:      [3]int{3, 4, 5},
			expected: false,
		},
		{
			name:     "adjacent sharing an edge does not self-report",
			tri:      [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {1, 1, 1}},
			idx:      [3]int{1, 2, 5},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TriangleTriangleIntersection(base, baseIdx, tt.tri, tt.idx)
			if got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}

			// symmetric
			rev := TriangleTriangleIntersection(tt.tri, tt.idx, base, baseIdx)
			if rev != tt.expected {
				t.Errorf("swapped arguments: got %v, want %v", rev, tt.expected)
			}
		})
	}
}
