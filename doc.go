// Package mantle is the collision kernel of a dynamic triangle-surface
// tracker. It keeps an explicit triangle mesh free of self-intersection
// while externally computed vertex velocities advect it: a broad phase
// over six uniform acceleration grids culls primitive pairs, continuous
// collision detection finds the contacts that survive, and sequential
// impulses repair the velocities so the predicted mesh stays clean. The
// pincher splits vertices whose incident triangle fans have fallen
// apart, validating each split against the live broad phase.
//
// The kernel consumes target positions, not forces. When sequential
// impulses cannot untangle a contact cluster, HandleCollisions returns
// false and the caller is expected to hand the impact zones to a
// stronger solver or roll back the step.
package mantle
