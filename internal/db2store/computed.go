package db2store

import (
	"math"

	"github.com/udisondev/wowauth/internal/db2"
)

// AlternateMapPosition is the result of DetermineAlternateMapPosition: a
// different map and coordinates the client should use instead of the
// input position.
type AlternateMapPosition struct {
	MapID int64
	X, Y  float32
}

// DetermineAlternateMapPosition iterates the world-map-transforms table
// and selects the highest-priority entry whose map id and region bounds
// contain (x, y), applying its offset to produce a position on a
// different map. Returns false if no entry matches.
func (m *Manager) DetermineAlternateMapPosition(mapID int64, x, y, _ float32) (AlternateMapPosition, bool) {
	var (
		best     AlternateMapPosition
		bestPrio int64
		found    bool
	)

	m.WorldMapTransforms().Each(func(r *db2.Record) {
		if r.Fields[worldMapTransformsFieldMapID].Numeric[0] != mapID {
			return
		}
		minX := numericFloat(r, worldMapTransformsFieldRegionMinX)
		minY := numericFloat(r, worldMapTransformsFieldRegionMinY)
		maxX := numericFloat(r, worldMapTransformsFieldRegionMaxX)
		maxY := numericFloat(r, worldMapTransformsFieldRegionMaxY)
		if x < minX || x > maxX || y < minY || y > maxY {
			return
		}

		priority := r.Fields[worldMapTransformsFieldPriority].Numeric[0]
		if found && priority <= bestPrio {
			return
		}

		found = true
		bestPrio = priority
		best = AlternateMapPosition{
			MapID: r.Fields[worldMapTransformsFieldTargetMapID].Numeric[0],
			X:     x + numericFloat(r, worldMapTransformsFieldTargetX) - minX,
			Y:     y + numericFloat(r, worldMapTransformsFieldTargetY) - minY,
		}
	})

	return best, found
}

// LiquidTypeFlag bits returned by LiquidTypeFlags, derived from a liquid
// type's sound-bank field.
type LiquidTypeFlag uint32

const (
	LiquidTypeFlagWater  LiquidTypeFlag = 1 << 0
	LiquidTypeFlagOcean  LiquidTypeFlag = 1 << 1
	LiquidTypeFlagMagma  LiquidTypeFlag = 1 << 2
	LiquidTypeFlagSlime  LiquidTypeFlag = 1 << 3
)

// soundBankFlags maps the known sound-bank enum values to their flag bit.
var soundBankFlags = map[int64]LiquidTypeFlag{
	0: LiquidTypeFlagWater,
	1: LiquidTypeFlagOcean,
	2: LiquidTypeFlagMagma,
	3: LiquidTypeFlagSlime,
}

// LiquidTypeFlags returns the bit-flag set derived from liquid type id's
// sound-bank field, or 0 if id is unknown.
func (m *Manager) LiquidTypeFlags(id int64) LiquidTypeFlag {
	r, ok := m.LiquidType(id)
	if !ok {
		return 0
	}
	return soundBankFlags[r.Fields[liquidTypeFieldSoundBank].Numeric[0]]
}

// numericFloat reinterprets a FieldF32 value's bit pattern, which db2
// stores as the raw unsigned 32-bit pattern in Record.Fields[i].Numeric
// (FieldF32 is not a signed type, so it is never sign-extended).
func numericFloat(r *db2.Record, field int) float32 {
	return math.Float32frombits(uint32(r.Fields[field].Numeric[0]))
}
