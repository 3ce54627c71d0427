package main

import (
	"fmt"

	"github.com/akmonengine/mantle"
	"github.com/akmonengine/mantle/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

func main() {
	// a unit triangle at z = 0 and a smaller one hovering just above it
	positions := []mgl64.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{0.2, 0.2, 0.001}, {0.6, 0.2, 0.001}, {0.2, 0.6, 0.001},
	}
	masses := []float64{1, 1, 1, 1, 1, 1}

	m := mesh.New()
	for range positions {
		m.AddVertex()
	}
	m.AddTriangle([3]int{0, 1, 2})
	m.AddTriangle([3]int{3, 4, 5})

	surface := mantle.NewSurface(m, positions, masses)
	pipeline := mantle.NewCollisionPipeline(surface, 0.1)

	// drive the triangles into each other over one unit step
	dt := 1.0
	for i := range surface.Velocities {
		if i < 3 {
			surface.Velocities[i] = mgl64.Vec3{0, 0, 1}
		} else {
			surface.Velocities[i] = mgl64.Vec3{0, 0, -1}
		}
		surface.NewPositions[i] = surface.Positions[i].Add(surface.Velocities[i].Mul(dt))
	}
	surface.BroadPhase.UpdateBroadPhase(surface, true)

	pipeline.HandleProximities(dt)

	if pipeline.HandleCollisions(dt) {
		fmt.Println("collisions resolved")
	} else {
		fmt.Println("impulses insufficient, an impact zone solver would take over")
	}

	var collisions []mantle.Collision
	pipeline.DetectCollisions(&collisions)
	fmt.Printf("remaining collisions: %d\n", len(collisions))

	pipeline.AssertPredictedMeshIsIntersectionFree(false)
	fmt.Println("predicted mesh is intersection-free")

	fmt.Printf("narrow phase: %d continuous tests, %d root checks\n",
		surface.Stats.Filtered4DTests, surface.Stats.Exact4DTests)

	for i, v := range surface.Velocities {
		fmt.Printf("vertex %d velocity %.4f\n", i, v)
	}
}
