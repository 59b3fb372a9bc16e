package event

import "github.com/tankwar/server/internal/core/ecs"

// UnitSpawned fires when a unit is placed on the map.
type UnitSpawned struct {
	ID   ecs.EntityID
	Kind ecs.Kind
	X, Y uint32
}

// UnitSighted fires when Target enters Viewer's view.
type UnitSighted struct {
	Viewer ecs.EntityID
	Target ecs.EntityID
}

// UnitLost fires when Target leaves Viewer's view, including when Target is destroyed.
type UnitLost struct {
	Viewer ecs.EntityID
	Target ecs.EntityID
}

// ShotFired fires when a tank launches a bullet.
type ShotFired struct {
	Tank   ecs.EntityID
	Bullet ecs.EntityID
	X, Y   uint32
}

// UnitDestroyed fires when combat removes a unit. By is the tank that
// owned the bullet, zero for expiry.
type UnitDestroyed struct {
	ID   ecs.EntityID
	Kind ecs.Kind
	By   ecs.EntityID
	X, Y uint32
}
