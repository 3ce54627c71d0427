package ccd

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPointTriangleProximity(t *testing.T) {
	tests := []struct {
		name             string
		x                mgl64.Vec3
		expectedDistance float64
		expectedWeights  [3]float64
	}{
		{
			name:             "above the interior",
			x:                mgl64.Vec3{0.25, 0.25, 0.5},
			expectedDistance: 0.5,
			expectedWeights:  [3]float64{0.5, 0.25, 0.25},
		},
		{
			name:             "closest to vertex a",
			x:                mgl64.Vec3{-1, -1, 0},
			expectedDistance: math.Sqrt(2),
			expectedWeights:  [3]float64{1, 0, 0},
		},
		{
			name:             "closest to edge ab",
			x:                mgl64.Vec3{0.5, -1, 0},
			expectedDistance: 1,
			expectedWeights:  [3]float64{0.5, 0.5, 0},
		},
		{
			name:             "on the triangle",
			x:                mgl64.Vec3{0.25, 0.25, 0},
			expectedDistance: 0,
			expectedWeights:  [3]float64{0.5, 0.25, 0.25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distance, s1, s2, s3, normal := PointTriangleProximity(tt.x, triA, triB, triC)

			if math.Abs(distance-tt.expectedDistance) > 1e-12 {
				t.Errorf("distance = %v, want %v", distance, tt.expectedDistance)
			}
			if math.Abs(s1-tt.expectedWeights[0]) > 1e-12 ||
				math.Abs(s2-tt.expectedWeights[1]) > 1e-12 ||
				math.Abs(s3-tt.expectedWeights[2]) > 1e-12 {
				t.Errorf("weights = (%v, %v, %v), want %v", s1, s2, s3, tt.expectedWeights)
			}
			if math.Abs(normal.Len()-1) > 1e-9 {
				t.Errorf("normal not unit: %v", normal)
			}

			// the normal points from the closest point toward x
			if distance > 0 {
				closest := triA.Mul(s1).Add(triB.Mul(s2)).Add(triC.Mul(s3))
				along := tt.x.Sub(closest).Normalize()
				if normal.Dot(along) < 0.999 {
					t.Errorf("normal %v not aligned with diff %v", normal, along)
				}
			}
		})
	}
}

func TestEdgeEdgeProximity(t *testing.T) {
	tests := []struct {
		name             string
		p0, p1, q0, q1   mgl64.Vec3
		expectedDistance float64
		expectedS        float64
		expectedT        float64
	}{
		{
			name:             "perpendicular crossing with gap",
			p0:               mgl64.Vec3{-0.5, 0, 0},
			p1:               mgl64.Vec3{0.5, 0, 0},
			q0:               mgl64.Vec3{0, -0.5, 1},
			q1:               mgl64.Vec3{0, 0.5, 1},
			expectedDistance: 1,
			expectedS:        0.5,
			expectedT:        0.5,
		},
		{
			name:             "closest at endpoints",
			p0:               mgl64.Vec3{0, 0, 0},
			p1:               mgl64.Vec3{1, 0, 0},
			q0:               mgl64.Vec3{2, 0, 0},
			q1:               mgl64.Vec3{3, 0, 0},
			expectedDistance: 1,
			expectedS:        1,
			expectedT:        0,
		},
		{
			name:             "parallel overlapping",
			p0:               mgl64.Vec3{0, 0, 0},
			p1:               mgl64.Vec3{1, 0, 0},
			q0:               mgl64.Vec3{0, 1, 0},
			q1:               mgl64.Vec3{1, 1, 0},
			expectedDistance: 1,
			expectedS:        0,
			expectedT:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distance, s, u, normal := EdgeEdgeProximity(tt.p0, tt.p1, tt.q0, tt.q1)

			if math.Abs(distance-tt.expectedDistance) > 1e-12 {
				t.Errorf("distance = %v, want %v", distance, tt.expectedDistance)
			}
			if math.Abs(s-tt.expectedS) > 1e-12 || math.Abs(u-tt.expectedT) > 1e-12 {
				t.Errorf("parameters = (%v, %v), want (%v, %v)", s, u, tt.expectedS, tt.expectedT)
			}
			if math.Abs(normal.Len()-1) > 1e-9 {
				t.Errorf("normal not unit: %v", normal)
			}

			// normal points from Q's closest point toward P's
			cp := tt.p0.Add(tt.p1.Sub(tt.p0).Mul(s))
			cq := tt.q0.Add(tt.q1.Sub(tt.q0).Mul(u))
			if normal.Dot(cp.Sub(cq).Normalize()) < 0.999 {
				t.Errorf("normal %v not aligned with separation", normal)
			}
		})
	}
}
