package db2store

import "github.com/udisondev/wowauth/internal/db2"

// buildIndices rebuilds every derived index in one deterministic pass.
// Indices depend only on loaded tables, so no ordering is needed beyond
// all tables being loaded first.
func (m *Manager) buildIndices() {
	m.buildAreaGroupMembers()
	m.buildClassPowerTypeIndex()
	m.buildClassSpecIndex()
	m.buildCurrencyItems()
	m.buildTaxiMasks()
}

func (m *Manager) buildAreaGroupMembers() {
	m.areaGroupMembers = make(map[int64][]int64)
	m.table("AreaTable").Each(func(r *db2.Record) {
		groupID := r.Fields[areaTableFieldAreaGroupID].Numeric[0]
		if groupID == 0 {
			return // not a member of any area group
		}
		m.areaGroupMembers[groupID] = append(m.areaGroupMembers[groupID], r.ID)
	})
}

// AreaGroupMembers returns the area ids belonging to groupID, in ascending
// id order (Table.Each already iterates ids ascending).
func (m *Manager) AreaGroupMembers(groupID int64) []int64 {
	return m.areaGroupMembers[groupID]
}

func (m *Manager) buildClassPowerTypeIndex() {
	m.classPowerTypeIndex = make(map[int64]map[int64]int)
	m.table("ChrClasses").Each(func(r *db2.Record) {
		powerType := r.Fields[chrClassesFieldPowerType].Numeric[0]
		byPower, ok := m.classPowerTypeIndex[r.ID]
		if !ok {
			byPower = make(map[int64]int)
			m.classPowerTypeIndex[r.ID] = byPower
		}
		byPower[powerType] = len(byPower)
	})
}

// ClassPowerTypeIndex returns the ordinal assigned to (classID, powerType),
// and whether that combination was observed.
func (m *Manager) ClassPowerTypeIndex(classID, powerType int64) (int, bool) {
	byPower, ok := m.classPowerTypeIndex[classID]
	if !ok {
		return 0, false
	}
	idx, ok := byPower[powerType]
	return idx, ok
}

func (m *Manager) buildClassSpecIndex() {
	m.classSpecIndex = make(map[int64]map[int64]int64)
	m.table("ChrSpecialization").Each(func(r *db2.Record) {
		classID := r.Fields[chrSpecializationFieldClassID].Numeric[0]
		orderIndex := r.Fields[chrSpecializationFieldOrderIndex].Numeric[0]
		bySpec, ok := m.classSpecIndex[classID]
		if !ok {
			bySpec = make(map[int64]int64)
			m.classSpecIndex[classID] = bySpec
		}
		bySpec[orderIndex] = r.ID
	})
}

// ClassSpecialization returns the specialization id at orderIndex within
// classID's spec list.
func (m *Manager) ClassSpecialization(classID, orderIndex int64) (int64, bool) {
	bySpec, ok := m.classSpecIndex[classID]
	if !ok {
		return 0, false
	}
	id, ok := bySpec[orderIndex]
	return id, ok
}

func (m *Manager) buildCurrencyItems() {
	m.currencyItems = make(map[int64][]int64)
	m.table("CurrencyContainer").Each(func(r *db2.Record) {
		currencyID := r.Fields[currencyContainerFieldCurrencyID].Numeric[0]
		itemID := r.Fields[currencyContainerFieldItemID].Numeric[0]
		m.currencyItems[currencyID] = append(m.currencyItems[currencyID], itemID)
	})
}

// CurrencyItems returns every item id backing currencyID.
func (m *Manager) CurrencyItems(currencyID int64) []int64 {
	return m.currencyItems[currencyID]
}

func (m *Manager) buildTaxiMasks() {
	tbl := m.table("TaxiNodes")
	maxID := int64(0)
	tbl.Each(func(r *db2.Record) {
		if r.ID > maxID {
			maxID = r.ID
		}
	})
	size := int(maxID/8) + 1
	m.taxiMaskAll = make([]byte, size)
	m.taxiMaskAlliance = make([]byte, size)
	m.taxiMaskHorde = make([]byte, size)
	m.taxiMaskOldContinent = make([]byte, size)

	tbl.Each(func(r *db2.Record) {
		flags := uint32(r.Fields[taxiNodesFieldFlags].Numeric[0])
		byteIdx := int(r.ID / 8)
		bit := byte(1) << uint(r.ID%8)

		m.taxiMaskAll[byteIdx] |= bit
		if flags&TaxiNodeFlagAlliance != 0 {
			m.taxiMaskAlliance[byteIdx] |= bit
		}
		if flags&TaxiNodeFlagHorde != 0 {
			m.taxiMaskHorde[byteIdx] |= bit
		}
		if flags&TaxiNodeFlagOldContinent != 0 {
			m.taxiMaskOldContinent[byteIdx] |= bit
		}
	})
}

// TaxiMaskAll, TaxiMaskAlliance, TaxiMaskHorde, and TaxiMaskOldContinent
// return the bit-mask byte arrays keyed by taxi-node id / 8.
func (m *Manager) TaxiMaskAll() []byte          { return m.taxiMaskAll }
func (m *Manager) TaxiMaskAlliance() []byte     { return m.taxiMaskAlliance }
func (m *Manager) TaxiMaskHorde() []byte        { return m.taxiMaskHorde }
func (m *Manager) TaxiMaskOldContinent() []byte { return m.taxiMaskOldContinent }

// TaxiNodeReachable reports whether nodeID's bit is set in mask.
func TaxiNodeReachable(mask []byte, nodeID int64) bool {
	byteIdx := int(nodeID / 8)
	if byteIdx < 0 || byteIdx >= len(mask) {
		return false
	}
	return mask[byteIdx]&(1<<uint(nodeID%8)) != 0
}
