package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnEntry defines where and how many tanks to place at startup.
type SpawnEntry struct {
	Tank       string `yaml:"tank"`
	X          uint32 `yaml:"x"`
	Y          uint32 `yaml:"y"`
	Count      int    `yaml:"count"`
	RandomX    uint32 `yaml:"randomx"` // spread around X, 0 = exact
	RandomY    uint32 `yaml:"randomy"`
	Controlled bool   `yaml:"controlled"` // player-driven, never given AI orders
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads the spawn list and checks each entry names a known tank.
func LoadSpawnList(path string, tanks *TankTable) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		s := &f.Spawns[i]
		if s.Count <= 0 {
			s.Count = 1
		}
		if tanks.Get(s.Tank) == nil {
			return nil, fmt.Errorf("spawn %d: unknown tank %q", i, s.Tank)
		}
	}
	return f.Spawns, nil
}
