package data

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// BulletTemplate describes the projectile a tank fires.
type BulletTemplate struct {
	Speed     float64 `yaml:"speed"`      // world units per second
	Range     uint32  `yaml:"range"`      // flight distance before expiry
	HitRadius uint32  `yaml:"hit_radius"` // contact distance, doubles as the bullet's view range
}

// TankTemplate holds static data for a tank type loaded from YAML.
type TankTemplate struct {
	Name        string         `yaml:"name"`
	Speed       float64        `yaml:"speed"` // world units per second
	ViewRange   uint32         `yaml:"view_range"`
	ReloadTicks int            `yaml:"reload_ticks"` // ticks between shots
	Bullet      BulletTemplate `yaml:"bullet"`
}

type tankListFile struct {
	Tanks []TankTemplate `yaml:"tanks"`
}

// TankTable holds all tank templates indexed by name.
type TankTable struct {
	templates map[string]*TankTemplate
}

// Validate rejects templates a unit could not be built from. A zero speed
// would make every move endless, so it is refused here rather than at runtime.
func (t *TankTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tank template without name")
	}
	if !(t.Speed > 0) || math.IsInf(t.Speed, 0) {
		return fmt.Errorf("tank %q: speed must be positive, got %v", t.Name, t.Speed)
	}
	if t.ReloadTicks < 0 {
		return fmt.Errorf("tank %q: reload_ticks must not be negative", t.Name)
	}
	if !(t.Bullet.Speed > 0) || math.IsInf(t.Bullet.Speed, 0) {
		return fmt.Errorf("tank %q: bullet speed must be positive, got %v", t.Name, t.Bullet.Speed)
	}
	if t.Bullet.Range == 0 {
		return fmt.Errorf("tank %q: bullet range must be positive", t.Name)
	}
	return nil
}

// LoadTankTable loads tank templates from a YAML file.
func LoadTankTable(path string) (*TankTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tank_list: %w", err)
	}
	return ParseTankTable(raw)
}

// ParseTankTable builds a table from YAML bytes.
func ParseTankTable(raw []byte) (*TankTable, error) {
	var f tankListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tank_list: %w", err)
	}
	t := &TankTable{templates: make(map[string]*TankTemplate, len(f.Tanks))}
	for i := range f.Tanks {
		tpl := &f.Tanks[i]
		if err := tpl.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.templates[tpl.Name]; dup {
			return nil, fmt.Errorf("tank %q defined twice", tpl.Name)
		}
		t.templates[tpl.Name] = tpl
	}
	return t, nil
}

// Get returns a template by name, or nil if not found.
func (t *TankTable) Get(name string) *TankTemplate {
	return t.templates[name]
}

// Count returns the number of loaded templates.
func (t *TankTable) Count() int {
	return len(t.templates)
}
