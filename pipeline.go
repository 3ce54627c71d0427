package mantle

import (
	"fmt"
	"sort"

	"github.com/akmonengine/mantle/ccd"
	"github.com/akmonengine/mantle/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	impulseMultiplier = 1.0
	// proximity repulsion spring constant
	proximitySpringConstant = 10.0
	// hard cap on the update-candidate queue
	maxCandidates = 1000000
	// hard cap on collisions returned by a detection sweep
	maxCollisions = 5000
)

// processCollisionStatus accumulates the outcome of one candidate sweep
type processCollisionStatus struct {
	collisionFound         bool
	overflow               bool
	allCandidatesProcessed bool
}

// CollisionPipeline detects and resolves continuous collisions between
// the moving primitives of a Surface. It borrows the Surface's broad
// phase and mutates only velocities and predicted positions; the mesh
// itself is never touched.
type CollisionPipeline struct {
	FrictionCoefficient float64

	// MaxPasses bounds the outer resolution loop. The original
	// implementation hardwired a single pass.
	MaxPasses int

	surface    *Surface
	broadPhase BroadPhase
}

// NewCollisionPipeline creates a pipeline over the surface's broad phase
func NewCollisionPipeline(surface *Surface, frictionCoefficient float64) *CollisionPipeline {
	return &CollisionPipeline{
		FrictionCoefficient: frictionCoefficient,
		MaxPasses:           1,
		surface:             surface,
		broadPhase:          surface.BroadPhase,
	}
}

// =========================================================
//
// Impulse application
//
// =========================================================

// applyImpulse distributes an impulse of the given magnitude along the
// normal over four vertices weighted by signed barycentric coordinates,
// applies Coulomb friction against the tangential relative velocity,
// and refreshes the predicted positions.
func (p *CollisionPipeline) applyImpulse(alphas [4]float64, vertexIndices [4]int, impulseMagnitude float64, normal mgl64.Vec3, dt float64) {
	s := p.surface

	var invMasses [4]float64
	effectiveMass := 0.0
	for k := 0; k < 4; k++ {
		invMasses[k] = 1.0 / s.Masses[vertexIndices[k]]
		effectiveMass += alphas[k] * alphas[k] * invMasses[k]
	}

	if effectiveMass == 0 {
		return
	}

	impulse := impulseMagnitude / effectiveMass

	preRelativeVelocity := mgl64.Vec3{}
	for k := 0; k < 4; k++ {
		preRelativeVelocity = preRelativeVelocity.Add(s.Velocities[vertexIndices[k]].Mul(alphas[k]))
	}
	preNormalComponent := normal.Mul(normal.Dot(preRelativeVelocity))
	preTangential := preRelativeVelocity.Sub(preNormalComponent)

	for k := 0; k < 4; k++ {
		s.Velocities[vertexIndices[k]] = s.Velocities[vertexIndices[k]].Add(normal.Mul(impulse * alphas[k] * invMasses[k]))
	}

	// friction
	postRelativeVelocity := mgl64.Vec3{}
	for k := 0; k < 4; k++ {
		postRelativeVelocity = postRelativeVelocity.Add(s.Velocities[vertexIndices[k]].Mul(alphas[k]))
	}
	postNormalComponent := normal.Mul(normal.Dot(postRelativeVelocity))
	deltaNormalVelocity := postNormalComponent.Sub(preNormalComponent).Len()

	frictionMagnitude := min(p.FrictionCoefficient*deltaNormalVelocity, preTangential.Len())
	frictionImpulse := frictionMagnitude / effectiveMass

	tangent := preTangential.Mul(-1)
	if l := tangent.Len(); l > 1e-8 {
		tangent = tangent.Mul(1 / l)
	} else {
		tangent = mgl64.Vec3{}
	}

	for k := 0; k < 4; k++ {
		s.Velocities[vertexIndices[k]] = s.Velocities[vertexIndices[k]].Add(tangent.Mul(frictionImpulse * alphas[k] * invMasses[k]))
	}

	for k := 0; k < 4; k++ {
		v := vertexIndices[k]
		s.SetNewPosition(v, s.Positions[v].Add(s.Velocities[v].Mul(dt)))
	}
}

// applyEdgeEdgeImpulse signs the barycentric weights {+,+,-,-}
func (p *CollisionPipeline) applyEdgeEdgeImpulse(collision *Collision, impulseMagnitude, dt float64) {
	b := collision.BarycentricCoordinates
	alphas := [4]float64{b[0], b[1], -b[2], -b[3]}

	p.applyImpulse(alphas, collision.VertexIndices, impulseMagnitude, collision.Normal, dt)
}

// applyTrianglePointImpulse signs the barycentric weights {+,-,-,-}
func (p *CollisionPipeline) applyTrianglePointImpulse(collision *Collision, impulseMagnitude, dt float64) {
	b := collision.BarycentricCoordinates
	alphas := [4]float64{b[0], -b[1], -b[2], -b[3]}

	p.applyImpulse(alphas, collision.VertexIndices, impulseMagnitude, collision.Normal, dt)
}

// =========================================================
//
// Candidate gathering
//
// =========================================================

// addTriangleCandidates pairs a triangle against potentially colliding vertices
func (p *CollisionPipeline) addTriangleCandidates(t int, returnSolid, returnDynamic bool, candidates *[]Candidate) {
	bounds := p.surface.TriangleBounds(t, true)

	var vertices []int
	p.broadPhase.GetPotentialVertexCollisions(bounds, returnSolid, returnDynamic, &vertices)

	for _, v := range vertices {
		*candidates = append(*candidates, Candidate{A: t, B: v, Tag: pointTriangleTag})
	}
}

// addEdgeCandidates pairs an edge against potentially colliding edges
func (p *CollisionPipeline) addEdgeCandidates(e int, returnSolid, returnDynamic bool, candidates *[]Candidate) {
	bounds := p.surface.EdgeBounds(e, true)

	var edges []int
	p.broadPhase.GetPotentialEdgeCollisions(bounds, returnSolid, returnDynamic, &edges)

	for _, other := range edges {
		*candidates = append(*candidates, Candidate{A: e, B: other, Tag: edgeEdgeTag})
	}
}

// addPointCandidates pairs a vertex against potentially colliding triangles
func (p *CollisionPipeline) addPointCandidates(v int, returnSolid, returnDynamic bool, candidates *[]Candidate) {
	bounds := p.surface.VertexBounds(v, true)

	var triangles []int
	p.broadPhase.GetPotentialTriangleCollisions(bounds, returnSolid, returnDynamic, &triangles)

	for _, t := range triangles {
		*candidates = append(*candidates, Candidate{A: t, B: v, Tag: pointTriangleTag})
	}
}

// addPointUpdateCandidates re-enqueues a vertex and everything incident
// to it after an impulse moved it. Solid vertices never move, so they
// contribute nothing.
func (p *CollisionPipeline) addPointUpdateCandidates(v int, candidates *[]Candidate) {
	if p.surface.VertexIsSolid(v) {
		return
	}

	p.addPointCandidates(v, true, true, candidates)

	for _, t := range p.surface.Mesh.VertexToTriangleMap[v] {
		p.addTriangleCandidates(t, true, true, candidates)
	}
	for _, e := range p.surface.Mesh.VertexToEdgeMap[v] {
		p.addEdgeCandidates(e, true, true, candidates)
	}
}

// =========================================================
//
// Proximities
//
// =========================================================

// processProximityCandidates applies a soft repulsion impulse to every
// candidate pair closer than the proximity epsilon
func (p *CollisionPipeline) processProximityCandidates(dt float64, candidates []Candidate) {
	for _, candidate := range candidates {
		if candidate.Tag == edgeEdgeTag {
			p.processEdgeEdgeProximity(dt, candidate)
		} else {
			p.processPointTriangleProximity(dt, candidate)
		}
	}
}

func (p *CollisionPipeline) processEdgeEdgeProximity(dt float64, candidate Candidate) {
	s := p.surface

	e0 := s.Mesh.Edge(candidate.A)
	e1 := s.Mesh.Edge(candidate.B)

	if e0[0] == e0[1] || e1[0] == e1[1] {
		return
	}
	if e0[0] == e1[0] || e0[0] == e1[1] || e0[1] == e1[0] || e0[1] == e1[1] {
		return
	}

	distance, s0, s2, normal := ccd.EdgeEdgeProximity(
		s.Position(e0[0]), s.Position(e0[1]),
		s.Position(e1[0]), s.Position(e1[1]),
	)

	if distance >= s.ProximityEpsilon {
		return
	}

	relativeVelocity := normal.Dot(
		s.Velocities[e0[0]].Mul(1 - s0).
			Add(s.Velocities[e0[1]].Mul(s0)).
			Sub(s.Velocities[e1[0]].Mul(1 - s2)).
			Sub(s.Velocities[e1[1]].Mul(s2)))

	diff := s.Position(e0[0]).Mul(1 - s0).
		Add(s.Position(e0[1]).Mul(s0)).
		Sub(s.Position(e1[0]).Mul(1 - s2)).
		Sub(s.Position(e1[1]).Mul(s2))

	if normal.Dot(diff) < 0 {
		return
	}

	d := s.ProximityEpsilon - distance
	if relativeVelocity > 0.1*d/dt {
		return
	}

	impulse := min(max(0, 0.1*d/dt-relativeVelocity), dt*proximitySpringConstant*d)

	proximity := Collision{
		IsEdgeEdge:             true,
		VertexIndices:          [4]int{e0[0], e0[1], e1[0], e1[1]},
		Normal:                 normal,
		BarycentricCoordinates: [4]float64{1 - s0, s0, 1 - s2, s2},
		RelativeDisplacement:   dt * relativeVelocity,
	}
	p.applyEdgeEdgeImpulse(&proximity, impulse, dt)
}

func (p *CollisionPipeline) processPointTriangleProximity(dt float64, candidate Candidate) {
	s := p.surface

	t := candidate.A
	tri := s.Mesh.Triangle(t)
	v := candidate.B

	if tri[0] == v || tri[1] == v || tri[2] == v {
		return
	}

	distance, s1, s2, s3, normal := ccd.PointTriangleProximity(
		s.Position(v),
		s.Position(tri[0]), s.Position(tri[1]), s.Position(tri[2]),
	)

	if distance >= s.ProximityEpsilon {
		return
	}

	relativeVelocity := normal.Dot(
		s.Velocities[v].
			Sub(s.Velocities[tri[0]].Mul(s1)).
			Sub(s.Velocities[tri[1]].Mul(s2)).
			Sub(s.Velocities[tri[2]].Mul(s3)))

	diff := s.Position(v).
		Sub(s.Position(tri[0]).Mul(s1)).
		Sub(s.Position(tri[1]).Mul(s2)).
		Sub(s.Position(tri[2]).Mul(s3))

	if normal.Dot(diff) < 0 {
		return
	}

	d := s.ProximityEpsilon - distance
	if relativeVelocity > 0.1*d/dt {
		return
	}

	impulse := min(max(0, 0.1*d/dt-relativeVelocity), dt*proximitySpringConstant*d)

	proximity := Collision{
		IsEdgeEdge:             false,
		VertexIndices:          [4]int{v, tri[0], tri[1], tri[2]},
		Normal:                 normal,
		BarycentricCoordinates: [4]float64{1, s1, s2, s3},
		RelativeDisplacement:   dt * relativeVelocity,
	}
	p.applyTrianglePointImpulse(&proximity, impulse, dt)
}

// HandleProximities nudges apart element pairs closer than the
// proximity epsilon, reducing the rate at which true collisions form.
// It is best-effort and has no failure mode.
func (p *CollisionPipeline) HandleProximities(dt float64) {
	s := p.surface

	// the candidate queries must reach out to the proximity epsilon,
	// which may exceed the AABB padding
	if s.AABBPadding < s.ProximityEpsilon {
		padding := s.AABBPadding
		s.AABBPadding = s.ProximityEpsilon
		defer func() { s.AABBPadding = padding }()
	}

	// dynamic point vs solid triangles
	var pointCandidates []Candidate
	for i := 0; i < s.Mesh.NumVertices(); i++ {
		if s.VertexIsSolid(i) {
			continue
		}
		p.addPointCandidates(i, true, false, &pointCandidates)
	}
	p.processProximityCandidates(dt, pointCandidates)

	// dynamic triangle vs all points
	var triangleCandidates []Candidate
	for i := 0; i < s.Mesh.NumTriangles(); i++ {
		if s.Mesh.TriangleIsDeleted(i) || s.TriangleIsSolid(i) {
			continue
		}
		p.addTriangleCandidates(i, true, true, &triangleCandidates)
	}
	p.processProximityCandidates(dt, triangleCandidates)

	// dynamic edge vs all edges
	var edgeCandidates []Candidate
	for i := 0; i < s.Mesh.NumEdges(); i++ {
		if s.Mesh.EdgeIsDeleted(i) || s.EdgeIsSolid(i) {
			continue
		}
		p.addEdgeCandidates(i, true, true, &edgeCandidates)
	}
	p.processProximityCandidates(dt, edgeCandidates)
}

// =========================================================
//
// Collisions
//
// =========================================================

// detectSegmentSegmentCollision runs continuous collision detection on
// an edge-edge candidate
func (p *CollisionPipeline) detectSegmentSegmentCollision(candidate Candidate, collision *Collision) bool {
	s := p.surface

	e0 := s.Mesh.Edge(candidate.A)
	e1 := s.Mesh.Edge(candidate.B)

	if e0[0] == e0[1] || e1[0] == e1[1] {
		return false
	}
	if e0[0] == e1[0] || e0[0] == e1[1] || e0[1] == e1[0] || e0[1] == e1[1] {
		return false
	}
	if s.EdgeIsSolid(candidate.A) && s.EdgeIsSolid(candidate.B) {
		return false
	}

	if e0[1] < e0[0] {
		e0[0], e0[1] = e0[1], e0[0]
	}
	if e1[1] < e1[0] {
		e1[0], e1[1] = e1[1], e1[0]
	}

	a, b, c, d := e0[0], e0[1], e1[0], e1[1]

	hit, s0, s2, normal, relativeDisplacement := ccd.SegmentSegmentCollision(
		s.Stats,
		s.Position(a), s.NewPosition(a), a,
		s.Position(b), s.NewPosition(b), b,
		s.Position(c), s.NewPosition(c), c,
		s.Position(d), s.NewPosition(d), d,
	)
	if !hit {
		return false
	}

	*collision = Collision{
		IsEdgeEdge:             true,
		VertexIndices:          [4]int{a, b, c, d},
		Normal:                 normal,
		BarycentricCoordinates: [4]float64{1 - s0, s0, 1 - s2, s2},
		RelativeDisplacement:   relativeDisplacement,
	}

	return true
}

// detectPointTriangleCollision runs continuous collision detection on a
// point-triangle candidate
func (p *CollisionPipeline) detectPointTriangleCollision(candidate Candidate, collision *Collision) bool {
	s := p.surface

	t := candidate.A
	tri := s.Mesh.Triangle(t)
	v := candidate.B

	if tri[0] == v || tri[1] == v || tri[2] == v {
		return false
	}
	if s.TriangleIsSolid(t) && s.VertexIsSolid(v) {
		return false
	}

	sorted := sortTriangle(tri)

	hit, s1, s2, s3, normal, relativeDisplacement := ccd.PointTriangleCollision(
		s.Stats,
		s.Position(v), s.NewPosition(v), v,
		s.Position(sorted[0]), s.NewPosition(sorted[0]), sorted[0],
		s.Position(sorted[1]), s.NewPosition(sorted[1]), sorted[1],
		s.Position(sorted[2]), s.NewPosition(sorted[2]), sorted[2],
	)
	if !hit {
		return false
	}

	*collision = Collision{
		IsEdgeEdge:             false,
		VertexIndices:          [4]int{v, sorted[0], sorted[1], sorted[2]},
		Normal:                 normal,
		BarycentricCoordinates: [4]float64{1, s1, s2, s3},
		RelativeDisplacement:   relativeDisplacement,
	}

	return true
}

func sortTriangle(tri [3]int) [3]int {
	if tri[1] < tri[0] {
		tri[0], tri[1] = tri[1], tri[0]
	}
	if tri[2] < tri[1] {
		tri[1], tri[2] = tri[2], tri[1]
	}
	if tri[1] < tri[0] {
		tri[0], tri[1] = tri[1], tri[0]
	}

	return tri
}

// processCollisionCandidates drains a candidate queue, applying an
// impulse for every detected collision. When collectCandidates is set,
// each resolved collision enqueues update candidates for its four
// vertices onto newCandidates; newCandidates may be the queue being
// drained, in which case processing continues into the fresh entries
// up to the iteration bound.
func (p *CollisionPipeline) processCollisionCandidates(dt float64, candidates *[]Candidate, collectCandidates bool, newCandidates *[]Candidate, status *processCollisionStatus) {
	maxIteration := 5 * len(*candidates)
	iterations := 0
	head := 0

	for head < len(*candidates) && iterations < maxIteration {
		iterations++
		candidate := (*candidates)[head]
		head++

		var collision Collision
		var hit bool
		if candidate.Tag == edgeEdgeTag {
			hit = p.detectSegmentSegmentCollision(candidate, &collision)
		} else {
			hit = p.detectPointTriangleCollision(candidate, &collision)
		}
		if !hit {
			continue
		}

		relativeVelocity := collision.RelativeDisplacement / dt
		desiredRelativeVelocity := 0.0
		impulse := impulseMultiplier * (desiredRelativeVelocity - relativeVelocity)

		if collision.IsEdgeEdge {
			p.applyEdgeEdgeImpulse(&collision, impulse, dt)
		} else {
			p.applyTrianglePointImpulse(&collision, impulse, dt)
		}

		status.collisionFound = true

		if len(*newCandidates) > maxCandidates {
			status.overflow = true
		}

		if !status.overflow && collectCandidates {
			p.addPointUpdateCandidates(collision.VertexIndices[0], newCandidates)
			p.addPointUpdateCandidates(collision.VertexIndices[1], newCandidates)
			p.addPointUpdateCandidates(collision.VertexIndices[2], newCandidates)
			p.addPointUpdateCandidates(collision.VertexIndices[3], newCandidates)
		}
	}

	status.allCandidatesProcessed = head >= len(*candidates)
	*candidates = (*candidates)[head:]
}

// HandleCollisions resolves continuous collisions by sequential
// impulses. It returns true when the mesh is collision-free for the
// updated velocities, false when the caller must fall back to the
// impact-zone solver (queue overflow, iteration bound, or unresolved
// collisions).
func (p *CollisionPipeline) HandleCollisions(dt float64) bool {
	s := p.surface

	s.Stats.Reset()

	var updateCollisionCandidates []Candidate

	maxPasses := max(1, p.MaxPasses)
	for pass := 0; pass < maxPasses; pass++ {
		// on the last pass, fill the update candidate queue; when the
		// loop exits, that queue is wound down
		collectCandidates := pass == maxPasses-1

		var status processCollisionStatus

		// dynamic point vs solid triangles
		for i := 0; i < s.Mesh.NumVertices(); i++ {
			if s.VertexIsSolid(i) {
				continue
			}
			var candidates []Candidate
			p.addPointCandidates(i, true, false, &candidates)
			p.processCollisionCandidates(dt, &candidates, collectCandidates, &updateCollisionCandidates, &status)
		}

		// dynamic triangle vs all points
		for i := 0; i < s.Mesh.NumTriangles(); i++ {
			if s.Mesh.TriangleIsDeleted(i) || s.TriangleIsSolid(i) {
				continue
			}
			var candidates []Candidate
			p.addTriangleCandidates(i, true, true, &candidates)
			p.processCollisionCandidates(dt, &candidates, collectCandidates, &updateCollisionCandidates, &status)
		}

		// dynamic edge vs all edges
		for i := 0; i < s.Mesh.NumEdges(); i++ {
			if s.Mesh.EdgeIsDeleted(i) || s.EdgeIsSolid(i) {
				continue
			}
			var candidates []Candidate
			p.addEdgeCandidates(i, true, true, &candidates)
			p.processCollisionCandidates(dt, &candidates, collectCandidates, &updateCollisionCandidates, &status)
		}

		collisionFound := status.collisionFound

		if status.overflow {
			if s.Verbose {
				fmt.Println("collision candidate overflow, returning early")
			}
			return false
		}

		if !collisionFound {
			return true
		}
	}

	// unique-ify the remaining candidates
	sort.Slice(updateCollisionCandidates, func(i, j int) bool {
		return candidateLess(updateCollisionCandidates[i], updateCollisionCandidates[j])
	})
	updateCollisionCandidates = dedupCandidates(updateCollisionCandidates)

	// wind down the update candidate queue; resolved collisions feed
	// the same queue
	var status processCollisionStatus
	p.processCollisionCandidates(dt, &updateCollisionCandidates, true, &updateCollisionCandidates, &status)

	ok := status.allCandidatesProcessed

	if s.Verbose && !ok {
		fmt.Println("did not resolve all collisions")
	}

	if status.overflow {
		ok = false
		if s.Verbose {
			fmt.Println("overflowed candidate list")
		}
	}

	return ok
}

func dedupCandidates(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	out := candidates[:1]
	for _, c := range candidates[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}

	return out
}

// testCollisionCandidates runs pure detection over a candidate set,
// appending every collision found, up to the collision cap
func (p *CollisionPipeline) testCollisionCandidates(candidates []Candidate, collisions *[]Collision, status *processCollisionStatus) {
	for _, candidate := range candidates {
		var collision Collision
		var hit bool
		if candidate.Tag == edgeEdgeTag {
			hit = p.detectSegmentSegmentCollision(candidate, &collision)
		} else {
			hit = p.detectPointTriangleCollision(candidate, &collision)
		}
		if !hit {
			continue
		}

		status.collisionFound = true
		*collisions = append(*collisions, collision)

		if len(*collisions) > maxCollisions {
			status.overflow = true
			status.allCandidatesProcessed = false
			return
		}
	}

	status.allCandidatesProcessed = true
}

// AnyCollision reports the first collision found among the candidates
func (p *CollisionPipeline) AnyCollision(candidates []Candidate) (Collision, bool) {
	for _, candidate := range candidates {
		var collision Collision
		if candidate.Tag == edgeEdgeTag {
			if p.detectSegmentSegmentCollision(candidate, &collision) {
				return collision, true
			}
		} else {
			if p.detectPointTriangleCollision(candidate, &collision) {
				return collision, true
			}
		}
	}

	return Collision{}, false
}

// DetectCollisions sweeps the whole mesh and appends every continuous
// collision over the current step. Returns false on overflow, in which
// case the collision list is truncated.
func (p *CollisionPipeline) DetectCollisions(collisions *[]Collision) bool {
	s := p.surface

	var candidates []Candidate

	// dynamic point vs solid triangles
	for i := 0; i < s.Mesh.NumVertices(); i++ {
		if s.VertexIsSolid(i) {
			continue
		}
		p.addPointCandidates(i, true, false, &candidates)
	}

	// dynamic triangles vs all points
	for i := 0; i < s.Mesh.NumTriangles(); i++ {
		if s.Mesh.TriangleIsDeleted(i) || s.TriangleIsSolid(i) {
			continue
		}
		p.addTriangleCandidates(i, true, true, &candidates)
	}

	// dynamic edges vs all edges
	for i := 0; i < s.Mesh.NumEdges(); i++ {
		if s.Mesh.EdgeIsDeleted(i) || s.EdgeIsSolid(i) {
			continue
		}
		p.addEdgeCandidates(i, true, true, &candidates)
	}

	var status processCollisionStatus
	p.testCollisionCandidates(candidates, collisions, &status)

	return status.allCandidatesProcessed
}

// DetectNewCollisions restricts detection to the elements incident to
// the vertices of the given impact zones
func (p *CollisionPipeline) DetectNewCollisions(zones []ImpactZone, collisions *[]Collision) bool {
	s := p.surface

	var zoneVertices, zoneEdges, zoneTriangles []int

	for zi := range zones {
		for ci := range zones[zi].Collisions {
			for _, v := range zones[zi].Collisions[ci].VertexIndices {
				zoneVertices = addUnique(zoneVertices, v)
			}
		}
	}

	for _, v := range zoneVertices {
		for _, t := range s.Mesh.VertexToTriangleMap[v] {
			zoneTriangles = addUnique(zoneTriangles, t)
		}
		for _, e := range s.Mesh.VertexToEdgeMap[v] {
			zoneEdges = addUnique(zoneEdges, e)
		}
	}

	var candidates []Candidate

	for _, v := range zoneVertices {
		p.addPointCandidates(v, true, true, &candidates)
	}
	for _, t := range zoneTriangles {
		p.addTriangleCandidates(t, true, true, &candidates)
	}
	for _, e := range zoneEdges {
		p.addEdgeCandidates(e, true, true, &candidates)
	}

	var status processCollisionStatus
	p.testCollisionCandidates(candidates, collisions, &status)

	return status.allCandidatesProcessed && !status.overflow
}

// CheckCollisionPersists re-runs continuous detection on the vertices
// of a previously found collision
func (p *CollisionPipeline) CheckCollisionPersists(collision *Collision) bool {
	s := p.surface
	vs := collision.VertexIndices

	if collision.IsEdgeEdge {
		hit, _, _, _, _ := ccd.SegmentSegmentCollision(
			s.Stats,
			s.Position(vs[0]), s.NewPosition(vs[0]), vs[0],
			s.Position(vs[1]), s.NewPosition(vs[1]), vs[1],
			s.Position(vs[2]), s.NewPosition(vs[2]), vs[2],
			s.Position(vs[3]), s.NewPosition(vs[3]), vs[3],
		)
		return hit
	}

	hit, _, _, _, _, _ := ccd.PointTriangleCollision(
		s.Stats,
		s.Position(vs[0]), s.NewPosition(vs[0]), vs[0],
		s.Position(vs[1]), s.NewPosition(vs[1]), vs[1],
		s.Position(vs[2]), s.NewPosition(vs[2]), vs[2],
		s.Position(vs[3]), s.NewPosition(vs[3]), vs[3],
	)
	return hit
}

// DetectEdgeTriangleCollisions runs continuous detection between one
// edge and one triangle, testing the edge against the triangle's edges
// and both edge endpoints against the triangle
func (p *CollisionPipeline) DetectEdgeTriangleCollisions(edgeIndex, triangleIndex int, collisions *[]Collision) {
	s := p.surface

	edge := s.Mesh.Edge(edgeIndex)
	if edge[1] < edge[0] {
		edge[0], edge[1] = edge[1], edge[0]
	}
	e0, e1 := edge[0], edge[1]

	tri := sortTriangle(s.Mesh.Triangle(triangleIndex))
	t0, t1, t2 := tri[0], tri[1], tri[2]

	triEdges := [3][2]int{{t0, t1}, {t1, t2}, {t2, t0}}
	for _, te := range triEdges {
		hit, s0, s2, normal, rel := ccd.SegmentSegmentCollision(
			s.Stats,
			s.Position(e0), s.NewPosition(e0), e0,
			s.Position(e1), s.NewPosition(e1), e1,
			s.Position(te[0]), s.NewPosition(te[0]), te[0],
			s.Position(te[1]), s.NewPosition(te[1]), te[1],
		)
		if hit {
			*collisions = append(*collisions, Collision{
				IsEdgeEdge:             true,
				VertexIndices:          [4]int{e0, e1, te[0], te[1]},
				Normal:                 normal,
				BarycentricCoordinates: [4]float64{1 - s0, s0, 1 - s2, s2},
				RelativeDisplacement:   rel,
			})
		}
	}

	for _, v := range [2]int{e0, e1} {
		hit, s1, s2, s3, normal, rel := ccd.PointTriangleCollision(
			s.Stats,
			s.Position(v), s.NewPosition(v), v,
			s.Position(t0), s.NewPosition(t0), t0,
			s.Position(t1), s.NewPosition(t1), t1,
			s.Position(t2), s.NewPosition(t2), t2,
		)
		if hit {
			*collisions = append(*collisions, Collision{
				IsEdgeEdge:             false,
				VertexIndices:          [4]int{v, t0, t1, t2},
				Normal:                 normal,
				BarycentricCoordinates: [4]float64{1, s1, s2, s3},
				RelativeDisplacement:   rel,
			})
		}
	}
}

func addUnique(list []int, value int) []int {
	for _, x := range list {
		if x == value {
			return list
		}
	}

	return append(list, value)
}

// =========================================================
//
// Intersection certification
//
// =========================================================

// checkEdgeTriangleIntersectionByIndex tests edge (edgeA, edgeB)
// against triangle (ta, tb, tc) at the given positions; pairs sharing a
// vertex never intersect. Degeneracies count as intersections so
// borderline geometry is flagged rather than advected through.
func checkEdgeTriangleIntersectionByIndex(edgeA, edgeB, ta, tb, tc int, positions []mgl64.Vec3) bool {
	if edgeA == ta || edgeA == tb || edgeA == tc ||
		edgeB == ta || edgeB == tb || edgeB == tc {
		return false
	}

	return ccd.SegmentTriangleIntersection(
		positions[edgeA], edgeA,
		positions[edgeB], edgeB,
		positions[ta], ta,
		positions[tb], tb,
		positions[tc], tc,
		true,
	)
}

// GetTriangleIntersections intersects the segment (a, b) against the
// current mesh, appending the segment parameter and triangle index of
// every crossing. Used by the outer topology logic for ray-like queries.
func (p *CollisionPipeline) GetTriangleIntersections(pointA, pointB mgl64.Vec3, hitParameters *[]float64, hitTriangles *[]int) {
	s := p.surface

	query := geom.FromPoints(pointA, pointB)

	var overlapping []int
	p.broadPhase.GetPotentialTriangleCollisions(query, true, true, &overlapping)

	dummyIndex := s.Mesh.NumVertices()

	for _, t := range overlapping {
		if s.Mesh.TriangleIsDeleted(t) {
			continue
		}
		tri := sortTriangle(s.Mesh.Triangle(t))

		hit, segS, _, _, _, _ := ccd.SegmentTriangleIntersectionParams(
			pointA, dummyIndex,
			pointB, dummyIndex+1,
			s.Position(tri[0]), tri[0],
			s.Position(tri[1]), tri[1],
			s.Position(tri[2]), tri[2],
			false,
		)
		if hit {
			*hitParameters = append(*hitParameters, segS)
			*hitTriangles = append(*hitTriangles, t)
		}
	}
}

// GetNumberOfTriangleIntersections counts mesh triangles crossed by the
// segment (a, b), counting degenerate configurations as crossings
func (p *CollisionPipeline) GetNumberOfTriangleIntersections(pointA, pointB mgl64.Vec3) int {
	s := p.surface

	query := geom.FromPoints(pointA, pointB)

	var overlapping []int
	p.broadPhase.GetPotentialTriangleCollisions(query, true, true, &overlapping)

	dummyIndex := s.Mesh.NumVertices()
	hits := 0

	for _, t := range overlapping {
		if s.Mesh.TriangleIsDeleted(t) {
			continue
		}
		tri := sortTriangle(s.Mesh.Triangle(t))

		if ccd.SegmentTriangleIntersection(
			pointA, dummyIndex,
			pointB, dummyIndex+1,
			s.Position(tri[0]), tri[0],
			s.Position(tri[1]), tri[1],
			s.Position(tri[2]), tri[2],
			true,
		) {
			hits++
		}
	}

	return hits
}

// CheckTriangleVsAllTrianglesForIntersection tests one triangle against
// every potentially overlapping element: its edges against nearby
// triangles, and nearby edges against it
func (p *CollisionPipeline) CheckTriangleVsAllTrianglesForIntersection(triangleIndex int) bool {
	s := p.surface
	tri := s.Mesh.Triangle(triangleIndex)

	anyIntersection := false

	triEdges := [3][2]int{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}}
	for _, edge := range triEdges {
		query := geom.FromPoints(s.Position(edge[0]), s.Position(edge[1])).Pad(s.AABBPadding)

		var overlapping []int
		p.broadPhase.GetPotentialTriangleCollisions(query, true, true, &overlapping)

		for _, other := range overlapping {
			otherTri := s.Mesh.Triangle(other)
			if s.Mesh.TriangleIsDeleted(other) {
				continue
			}
			if checkEdgeTriangleIntersectionByIndex(edge[0], edge[1], otherTri[0], otherTri[1], otherTri[2], s.Positions) {
				anyIntersection = true
			}
		}
	}

	query := geom.FromPoints(s.Position(tri[0]), s.Position(tri[1]), s.Position(tri[2])).Pad(s.AABBPadding)

	var overlappingEdges []int
	p.broadPhase.GetPotentialEdgeCollisions(query, true, true, &overlappingEdges)

	for _, e := range overlappingEdges {
		if s.Mesh.EdgeIsDeleted(e) {
			continue
		}
		edge := s.Mesh.Edge(e)
		if checkEdgeTriangleIntersectionByIndex(edge[0], edge[1], tri[0], tri[1], tri[2], s.Positions) {
			anyIntersection = true
		}
	}

	return anyIntersection
}

// Intersections sweeps every triangle against candidate edges and
// returns all static edge-triangle crossings, at either the current or
// the predicted positions
func (p *CollisionPipeline) Intersections(degeneracyCountsAsIntersection, useNewPositions bool) []Intersection {
	s := p.surface

	positions := s.Positions
	if useNewPositions {
		positions = s.NewPositions
	}

	var intersections []Intersection

	for i := 0; i < s.Mesh.NumTriangles(); i++ {
		if s.Mesh.TriangleIsDeleted(i) {
			continue
		}

		// solid-on-solid pairs keep the invariant by construction
		getSolidEdges := !s.TriangleIsSolid(i)

		var edgeCandidates []int
		p.broadPhase.GetPotentialEdgeCollisions(s.TriangleBounds(i, false), getSolidEdges, true, &edgeCandidates)

		triangle := s.Mesh.Triangle(i)

		for _, e := range edgeCandidates {
			if s.Mesh.EdgeIsDeleted(e) {
				continue
			}

			edge := s.Mesh.Edge(e)
			if edge[0] == triangle[0] || edge[0] == triangle[1] || edge[0] == triangle[2] ||
				edge[1] == triangle[0] || edge[1] == triangle[1] || edge[1] == triangle[2] {
				continue
			}

			if ccd.SegmentTriangleIntersection(
				positions[edge[0]], edge[0],
				positions[edge[1]], edge[1],
				positions[triangle[0]], triangle[0],
				positions[triangle[1]], triangle[1],
				positions[triangle[2]], triangle[2],
				degeneracyCountsAsIntersection,
			) {
				intersections = append(intersections, Intersection{EdgeIndex: e, TriangleIndex: i})
			}
		}
	}

	return intersections
}

// AssertMeshIsIntersectionFree panics if any edge intersects any
// triangle at the current positions. An intersection here means the
// predicates or the caller's adjacency tables are broken.
func (p *CollisionPipeline) AssertMeshIsIntersectionFree(degeneracyCountsAsIntersection bool) {
	intersections := p.Intersections(degeneracyCountsAsIntersection, false)
	if len(intersections) == 0 {
		return
	}

	first := intersections[0]
	panic(fmt.Sprintf("mesh is not intersection-free: edge %d intersects triangle %d (%d intersections total)",
		first.EdgeIndex, first.TriangleIndex, len(intersections)))
}

// AssertPredictedMeshIsIntersectionFree panics if any edge intersects
// any triangle at the predicted positions. Running it after the
// collision passes catches missed collisions before the mesh is
// advected into an intersecting state.
func (p *CollisionPipeline) AssertPredictedMeshIsIntersectionFree(degeneracyCountsAsIntersection bool) {
	intersections := p.Intersections(degeneracyCountsAsIntersection, true)
	if len(intersections) == 0 {
		return
	}

	first := intersections[0]
	panic(fmt.Sprintf("predicted mesh is not intersection-free: edge %d intersects triangle %d (%d intersections total)",
		first.EdgeIndex, first.TriangleIndex, len(intersections)))
}
