package world

import (
	"strings"

	"duskhaven/server/internal/aggro"
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

const (
	DefaultSeed   = "prototype"
	DefaultWidth  = 128
	DefaultHeight = 128

	// DefaultCombatTimeoutTicks is how long the in-combat flag outlives the
	// last exchange.
	DefaultCombatTimeoutTicks = 17

	// DefaultPlayerRespawnDelayTicks is the gap between a player's death and
	// reappearing at the world spawn.
	DefaultPlayerRespawnDelayTicks = 2

	// DefaultEntityLimit caps the combined player and mob population.
	DefaultEntityLimit = 1024
)

// Rect is an axis-aligned tile rectangle used for terrain blocks.
type Rect struct {
	X      int `json:"x"`
	Z      int `json:"z"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Config describes one simulation session. Everything is expressed in tiles
// and ticks; wall-clock pacing lives with the loop that drives Advance.
type Config struct {
	Seed   string `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Spawn is where players enter the world and respawn after death.
	Spawn grid.Tile `json:"spawn"`

	// Walls are blocked rectangles punched out of the walkable interior.
	Walls []Rect `json:"walls,omitempty"`

	EntityLimit int `json:"entityLimit"`

	CombatTimeoutTicks      uint64 `json:"combatTimeoutTicks"`
	PlayerRespawnDelayTicks uint64 `json:"playerRespawnDelayTicks"`

	// FirstAttackDelayTicks defers a combatant's first swing after acquiring
	// a fresh target. Zero lets it swing the same tick it enters range.
	FirstAttackDelayTicks uint64 `json:"firstAttackDelayTicks"`

	// StartingLevels seed a joining player's profile.
	StartingLevels stats.Levels `json:"startingLevels"`

	Aggro   aggro.Config   `json:"aggro"`
	Journal journal.Config `json:"journal"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	if normalized.Spawn == (grid.Tile{}) {
		normalized.Spawn = grid.Tile{X: normalized.Width / 2, Z: normalized.Height / 2}
	}
	if normalized.Spawn.X < 0 || normalized.Spawn.X >= normalized.Width {
		normalized.Spawn.X = normalized.Width / 2
	}
	if normalized.Spawn.Z < 0 || normalized.Spawn.Z >= normalized.Height {
		normalized.Spawn.Z = normalized.Height / 2
	}
	if normalized.EntityLimit <= 0 {
		normalized.EntityLimit = DefaultEntityLimit
	}
	if normalized.CombatTimeoutTicks == 0 {
		normalized.CombatTimeoutTicks = DefaultCombatTimeoutTicks
	}
	if normalized.PlayerRespawnDelayTicks == 0 {
		normalized.PlayerRespawnDelayTicks = DefaultPlayerRespawnDelayTicks
	}
	if normalized.StartingLevels == (stats.Levels{}) {
		normalized.StartingLevels = stats.Levels{Attack: 1, Strength: 1, Defence: 1, Hitpoints: 10}
	}
	normalized.StartingLevels = normalized.StartingLevels.Normalized()
	normalized.Aggro = normalized.Aggro.Normalized()
	normalized.Journal = normalized.Journal.Normalized()
	return normalized
}

// Normalized returns the config with defaults applied.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{}.normalized()
}
