package world

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidSpeed is returned by MoveTo for a speed that is zero, negative or NaN.
var ErrInvalidSpeed = errors.New("world: speed must be positive")

// Position is a unit's time-parameterised motion state.
//
// While a target is set the coordinates follow the straight segment from the
// point where the move started toward the target. Reads return the values
// computed by the last Update; nothing is re-interpolated on access.
type Position struct {
	x, y  uint32
	angle float64
	speed float64

	moving       bool
	fromX, fromY uint32
	toX, toY     uint32
	start        time.Time
	travel       time.Duration
}

// NewPosition returns a static position.
func NewPosition(x, y uint32, angle float64) Position {
	return Position{x: x, y: y, angle: angle}
}

func (p *Position) X() uint32         { return p.x }
func (p *Position) Y() uint32         { return p.y }
func (p *Position) Angle() float64    { return p.angle }
func (p *Position) Speed() float64    { return p.speed }
func (p *Position) Moving() bool      { return p.moving }
func (p *Position) XY() (x, y uint32) { return p.x, p.y }

// Target returns the active destination, ok=false when static.
func (p *Position) Target() (x, y uint32, ok bool) {
	return p.toX, p.toY, p.moving
}

// MoveTo starts a move toward (x, y) at speed world units per second,
// beginning at now. The heading turns toward the target; a zero-length move
// keeps the old heading and completes on the next Update.
func (p *Position) MoveTo(x, y uint32, speed float64, now time.Time) error {
	if !(speed > 0) {
		return ErrInvalidSpeed
	}
	dx := float64(x) - float64(p.x)
	dy := float64(y) - float64(p.y)
	dist := math.Hypot(dx, dy)

	p.fromX, p.fromY = p.x, p.y
	p.toX, p.toY = x, y
	p.speed = speed
	p.start = now
	p.travel = travelTime(dist, speed)
	p.moving = true
	if dist > 0 {
		p.angle = math.Atan2(dy, dx)
	}
	return nil
}

// Stop drops the active target, keeping the current coordinates.
func (p *Position) Stop() {
	p.moving = false
}

// Update advances the position to now. It reports false when there is no
// active move; otherwise true, both while in flight and on arrival.
func (p *Position) Update(now time.Time) bool {
	if !p.moving {
		return false
	}
	elapsed := max(now.Sub(p.start), 0)
	if elapsed >= p.travel {
		p.x, p.y = p.toX, p.toY
		p.moving = false
		return true
	}
	frac := float64(elapsed) / float64(p.travel)
	p.x = lerp(p.fromX, p.toX, frac)
	p.y = lerp(p.fromY, p.toY, frac)
	return true
}

// travelTime saturates at the largest Duration instead of overflowing.
func travelTime(dist, speed float64) time.Duration {
	t := dist / speed * float64(time.Second)
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(t)
}

func lerp(a, b uint32, frac float64) uint32 {
	v := float64(a) + (float64(b)-float64(a))*frac
	return uint32(math.Round(v))
}
