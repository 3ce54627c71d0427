package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABBOverlaps(t *testing.T) {
	unit := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name     string
		other    AABB
		expected bool
	}{
		{
			name:     "separated on X axis",
			other:    AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{3, 1, 1}},
			expected: false,
		},
		{
			name:     "separated on Y axis",
			other:    AABB{Min: mgl64.Vec3{0, -2, 0}, Max: mgl64.Vec3{1, -1.5, 1}},
			expected: false,
		},
		{
			name:     "separated on Z axis",
			other:    AABB{Min: mgl64.Vec3{0, 0, 1.5}, Max: mgl64.Vec3{1, 1, 2}},
			expected: false,
		},
		{
			name:     "touching faces",
			other:    AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}},
			expected: true,
		},
		{
			name:     "fully contained",
			other:    AABB{Min: mgl64.Vec3{0.25, 0.25, 0.25}, Max: mgl64.Vec3{0.75, 0.75, 0.75}},
			expected: true,
		},
		{
			name:     "partial overlap",
			other:    AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{1.5, 1.5, 1.5}},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unit.Overlaps(tt.other) != tt.expected {
				t.Errorf("Overlaps(%v) = %v, want %v", tt.other, !tt.expected, tt.expected)
			}
			// Test symmetry
			if tt.other.Overlaps(unit) != tt.expected {
				t.Errorf("Overlaps symmetry failed for %v", tt.other)
			}
		})
	}
}

func TestFromPoints(t *testing.T) {
	aabb := FromPoints(
		mgl64.Vec3{1, -2, 3},
		mgl64.Vec3{-1, 2, 0},
		mgl64.Vec3{0.5, 0, 5},
	)

	expectedMin := mgl64.Vec3{-1, -2, 0}
	expectedMax := mgl64.Vec3{1, 2, 5}

	if aabb.Min != expectedMin {
		t.Errorf("Min = %v, want %v", aabb.Min, expectedMin)
	}
	if aabb.Max != expectedMax {
		t.Errorf("Max = %v, want %v", aabb.Max, expectedMax)
	}
}

func TestPad(t *testing.T) {
	aabb := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	padded := aabb.Pad(0.5)

	if padded.Min != (mgl64.Vec3{-0.5, -0.5, -0.5}) {
		t.Errorf("padded Min = %v", padded.Min)
	}
	if padded.Max != (mgl64.Vec3{1.5, 1.5, 1.5}) {
		t.Errorf("padded Max = %v", padded.Max)
	}
}

func TestContainsPoint(t *testing.T) {
	aabb := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	if !aabb.ContainsPoint(mgl64.Vec3{0, 0, 0}) {
		t.Error("center should be contained")
	}
	if !aabb.ContainsPoint(mgl64.Vec3{1, 1, 1}) {
		t.Error("corner should be contained")
	}
	if aabb.ContainsPoint(mgl64.Vec3{1.001, 0, 0}) {
		t.Error("outside point should not be contained")
	}
}
