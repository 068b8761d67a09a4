// Package db2store owns every loaded DB2 table for the process lifetime
// and builds the derived, read-only secondary indices the session layer
// queries: area-group membership, class/power-type/specialization
// lookups, currency-to-item mappings, taxi-node reachability masks, and
// the computed accessors (alternate map position, liquid type flags).
//
// The schemas below are compile-time descriptions of a representative
// slice of the game's table set.
package db2store

import "github.com/udisondev/wowauth/internal/db2"

// Field indices are named per table below so index-building code reads
// against names instead of magic numbers.

const (
	areaTableFieldID          = 0
	areaTableFieldAreaGroupID = 1
	areaTableFieldName        = 2
)

var areaTableSchema = db2.Schema{
	LayoutHash: 0x1A7EA7A0,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "AreaGroupID", Type: db2.FieldI32, Arity: 1},
		{Name: "Name", Type: db2.FieldLocString, Arity: 1},
	},
	IDFieldIndex: areaTableFieldID,
}

const (
	chrClassesFieldID        = 0
	chrClassesFieldPowerType = 1
	chrClassesFieldName      = 2
)

var chrClassesSchema = db2.Schema{
	LayoutHash: 0xC4A55E55,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "PowerType", Type: db2.FieldI32, Arity: 1},
		{Name: "Name", Type: db2.FieldLocString, Arity: 1},
	},
	IDFieldIndex: chrClassesFieldID,
}

const (
	chrSpecializationFieldID         = 0
	chrSpecializationFieldClassID    = 1
	chrSpecializationFieldOrderIndex = 2
	chrSpecializationFieldName       = 3
)

var chrSpecializationSchema = db2.Schema{
	LayoutHash: 0x5BEC0513,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "ClassID", Type: db2.FieldI32, Arity: 1},
		{Name: "OrderIndex", Type: db2.FieldI32, Arity: 1},
		{Name: "Name", Type: db2.FieldLocString, Arity: 1},
	},
	IDFieldIndex: chrSpecializationFieldID,
}

const (
	currencyContainerFieldID         = 0
	currencyContainerFieldCurrencyID = 1
	currencyContainerFieldItemID     = 2
)

var currencyContainerSchema = db2.Schema{
	LayoutHash: 0x3C7B9A05,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "CurrencyID", Type: db2.FieldI32, Arity: 1},
		{Name: "ItemID", Type: db2.FieldI32, Arity: 1},
	},
	IDFieldIndex: currencyContainerFieldID,
}

const (
	taxiNodesFieldID    = 0
	taxiNodesFieldFlags = 1
	taxiNodesFieldName  = 2
)

// Taxi-node flag bits, matching the client's reachability mask semantics
//").
const (
	TaxiNodeFlagAlliance     uint32 = 1 << 0
	TaxiNodeFlagHorde        uint32 = 1 << 1
	TaxiNodeFlagOldContinent uint32 = 1 << 2
)

var taxiNodesSchema = db2.Schema{
	LayoutHash: 0x9F1D0EAB,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "Flags", Type: db2.FieldU32, Arity: 1},
		{Name: "Name", Type: db2.FieldLocString, Arity: 1},
	},
	IDFieldIndex: taxiNodesFieldID,
}

const (
	worldMapTransformsFieldID          = 0
	worldMapTransformsFieldMapID       = 1
	worldMapTransformsFieldRegionMinX  = 2
	worldMapTransformsFieldRegionMinY  = 3
	worldMapTransformsFieldRegionMaxX  = 4
	worldMapTransformsFieldRegionMaxY  = 5
	worldMapTransformsFieldTargetMapID = 6
	worldMapTransformsFieldTargetX     = 7
	worldMapTransformsFieldTargetY     = 8
	worldMapTransformsFieldPriority    = 9
)

var worldMapTransformsSchema = db2.Schema{
	LayoutHash: 0x6B8D0C43,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "MapID", Type: db2.FieldI32, Arity: 1},
		{Name: "RegionMinX", Type: db2.FieldF32, Arity: 1},
		{Name: "RegionMinY", Type: db2.FieldF32, Arity: 1},
		{Name: "RegionMaxX", Type: db2.FieldF32, Arity: 1},
		{Name: "RegionMaxY", Type: db2.FieldF32, Arity: 1},
		{Name: "TargetMapID", Type: db2.FieldI32, Arity: 1},
		{Name: "TargetX", Type: db2.FieldF32, Arity: 1},
		{Name: "TargetY", Type: db2.FieldF32, Arity: 1},
		{Name: "Priority", Type: db2.FieldI32, Arity: 1},
	},
	IDFieldIndex: worldMapTransformsFieldID,
}

const (
	liquidTypeFieldID        = 0
	liquidTypeFieldSoundBank = 1
	liquidTypeFieldName      = 2
)

var liquidTypeSchema = db2.Schema{
	LayoutHash: 0x2E9C7A11,
	Fields: []db2.FieldSchema{
		{Name: "ID", Type: db2.FieldI32, Arity: 1},
		{Name: "SoundBank", Type: db2.FieldI32, Arity: 1},
		{Name: "Name", Type: db2.FieldLocString, Arity: 1},
	},
	IDFieldIndex: liquidTypeFieldID,
}

// tableSchemas names every table this manager loads, keyed by the
// filename stem under the DB2 data directory (e.g. "AreaTable.db2").
var tableSchemas = map[string]db2.Schema{
	"AreaTable":          areaTableSchema,
	"ChrClasses":         chrClassesSchema,
	"ChrSpecialization":  chrSpecializationSchema,
	"CurrencyContainer":  currencyContainerSchema,
	"TaxiNodes":          taxiNodesSchema,
	"WorldMapTransforms": worldMapTransformsSchema,
	"LiquidType":         liquidTypeSchema,
}
