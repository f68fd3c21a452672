package data

import (
	"fmt"
	"os"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/vmath"
	"github.com/driftsim/server/internal/world"
	"gopkg.in/yaml.v3"
)

// MapDef declares one map and its grids, loaded from map_list.yaml.
type MapDef struct {
	MapID int16     `yaml:"map_id"`
	Name  string    `yaml:"name"`
	Grids []GridDef `yaml:"grids"`
}

// GridDef declares one grid's local frame and bounds. Bounds are in the
// grid's local coordinates; origin and rotation place the frame in map-space.
type GridDef struct {
	GridID   uint32  `yaml:"grid_id"`
	Name     string  `yaml:"name"`
	OriginX  float64 `yaml:"origin_x"`
	OriginY  float64 `yaml:"origin_y"`
	Rotation float64 `yaml:"rotation"` // radians
	MinX     float64 `yaml:"min_x"`
	MinY     float64 `yaml:"min_y"`
	MaxX     float64 `yaml:"max_x"`
	MaxY     float64 `yaml:"max_y"`
	Layers   uint32  `yaml:"layers"` // 0 = all layers
}

type mapListFile struct {
	Maps []MapDef `yaml:"maps"`
}

// MapTable holds validated map definitions ready to apply to world state.
type MapTable struct {
	maps []MapDef
}

// LoadMapTable reads and validates map_list.yaml.
func LoadMapTable(path string) (*MapTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", path, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	seen := make(map[uint32]int16)
	for _, m := range file.Maps {
		for _, g := range m.Grids {
			if g.GridID == 0 {
				return nil, fmt.Errorf("map %d: grid id 0 is reserved", m.MapID)
			}
			if prev, dup := seen[g.GridID]; dup {
				return nil, fmt.Errorf("grid %d declared on both map %d and map %d", g.GridID, prev, m.MapID)
			}
			seen[g.GridID] = m.MapID
			if g.MaxX < g.MinX || g.MaxY < g.MinY {
				return nil, fmt.Errorf("grid %d: inverted bounds", g.GridID)
			}
		}
	}

	return &MapTable{maps: file.Maps}, nil
}

// Count returns the number of maps declared.
func (t *MapTable) Count() int {
	return len(t.maps)
}

// GridTotal returns the number of grids declared across all maps.
func (t *MapTable) GridTotal() int {
	n := 0
	for _, m := range t.maps {
		n += len(m.Grids)
	}
	return n
}

// Apply registers every declared map and grid with the world state.
func (t *MapTable) Apply(ws *world.State) error {
	for _, m := range t.maps {
		if _, err := ws.AddMap(component.MapID(m.MapID), m.Name); err != nil {
			return fmt.Errorf("apply map %d: %w", m.MapID, err)
		}
		for _, g := range m.Grids {
			grid := &world.Grid{
				ID:       component.GridID(g.GridID),
				Map:      component.MapID(m.MapID),
				Name:     g.Name,
				Origin:   vmath.Vec2{X: g.OriginX, Y: g.OriginY},
				Rotation: g.Rotation,
				Bounds:   vmath.NewAABB(g.MinX, g.MinY, g.MaxX, g.MaxY),
				Layers:   g.Layers,
			}
			if err := ws.AddGrid(grid); err != nil {
				return fmt.Errorf("apply grid %d: %w", g.GridID, err)
			}
		}
	}
	return nil
}
