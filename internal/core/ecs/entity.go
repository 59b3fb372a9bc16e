package ecs

// EntityID identifies a unit for its whole lifetime. IDs are allocated
// monotonically starting at 1 and are never handed out again, so a stale id
// can never alias a newer unit. Zero is reserved as "no entity".
type EntityID uint64

func (id EntityID) IsZero() bool { return id == 0 }

// Kind tags which unit store an entity lives in. The set is closed.
type Kind uint8

const (
	KindNone Kind = iota
	KindTank
	KindBullet
)

func (k Kind) String() string {
	switch k {
	case KindTank:
		return "tank"
	case KindBullet:
		return "bullet"
	default:
		return "none"
	}
}

// EntityPool hands out ids and tracks which of them are still alive.
type EntityPool struct {
	next  EntityID
	alive map[EntityID]struct{}
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		next:  1,
		alive: make(map[EntityID]struct{}, 256),
	}
}

func (p *EntityPool) Create() EntityID {
	id := p.next
	p.next++
	p.alive[id] = struct{}{}
	return id
}

func (p *EntityPool) Alive(id EntityID) bool {
	_, ok := p.alive[id]
	return ok
}

// Destroy retires an id. Destroying an unknown or already retired id is a no-op.
func (p *EntityPool) Destroy(id EntityID) {
	delete(p.alive, id)
}

// Len reports the number of live ids.
func (p *EntityPool) Len() int {
	return len(p.alive)
}
