package analytics

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FilterMode selects between single-value and multi-value entity filters.
// Exactly one mode is active at a time; constructing a filter in one mode
// clears any selection belonging to the other.
type FilterMode string

const (
	ModeSimple FilterMode = "simple"
	ModeMulti  FilterMode = "multi"
)

// SimpleSelection holds at most one selected id per entity dimension.
type SimpleSelection struct {
	Customer      *uuid.UUID
	Cashier       *uuid.UUID
	Branch        *uuid.UUID
	Till          *uuid.UUID
	Product       *uuid.UUID
	Category      *uuid.UUID
	CustomerGroup *uuid.UUID
}

// MultiSelection holds a list of selected ids per entity dimension. An
// empty list is the same as no selection for that dimension.
type MultiSelection struct {
	Customers      []uuid.UUID
	Cashiers       []uuid.UUID
	Branches       []uuid.UUID
	Tills          []uuid.UUID
	Products       []uuid.UUID
	Categories     []uuid.UUID
	CustomerGroups []uuid.UUID
}

// EntityFilter is the user-selected entity filter set for one computation.
type EntityFilter struct {
	Mode   FilterMode
	Simple SimpleSelection
	Multi  MultiSelection
}

// NewSimpleFilter builds a simple-mode filter; any multi selection is
// discarded.
func NewSimpleFilter(sel SimpleSelection) EntityFilter {
	return EntityFilter{Mode: ModeSimple, Simple: sel}
}

// NewMultiFilter builds a multi-mode filter; any simple selection is
// discarded.
func NewMultiFilter(sel MultiSelection) EntityFilter {
	return EntityFilter{Mode: ModeMulti, Multi: sel}
}

// Active reports whether any dimension carries a selection. An inactive
// filter matches everything.
func (f EntityFilter) Active() bool {
	switch f.Mode {
	case ModeSimple:
		s := f.Simple
		return s.Customer != nil || s.Cashier != nil || s.Branch != nil ||
			s.Till != nil || s.Product != nil || s.Category != nil || s.CustomerGroup != nil
	case ModeMulti:
		m := f.Multi
		return len(m.Customers) > 0 || len(m.Cashiers) > 0 || len(m.Branches) > 0 ||
			len(m.Tills) > 0 || len(m.Products) > 0 || len(m.Categories) > 0 ||
			len(m.CustomerGroups) > 0
	}
	return false
}

// GroupIDs returns the selected customer-group ids, if any. Group
// membership is resolved outside the evaluator and union-merged into the
// customer dimension via Sets.
func (f EntityFilter) GroupIDs() []uuid.UUID {
	switch f.Mode {
	case ModeSimple:
		if f.Simple.CustomerGroup != nil {
			return []uuid.UUID{*f.Simple.CustomerGroup}
		}
	case ModeMulti:
		return f.Multi.CustomerGroups
	}
	return nil
}

// MembershipSets is the evaluator's input: one set per dimension. A nil
// set means the dimension is unconstrained and matches everything; an
// empty non-nil set matches nothing.
type MembershipSets struct {
	Customers  map[uuid.UUID]struct{}
	Cashiers   map[uuid.UUID]struct{}
	Branches   map[uuid.UUID]struct{}
	Tills      map[uuid.UUID]struct{}
	Products   map[uuid.UUID]struct{}
	Categories map[uuid.UUID]struct{}
}

// ItemLevelActive reports whether any item-level dimension is
// constrained.
func (s MembershipSets) ItemLevelActive() bool {
	return s.Products != nil || s.Categories != nil
}

// Sets materializes the filter into membership sets. Resolved customer
// group members are union-merged into the customer set: selecting a group
// constrains the customer dimension even when no customer was picked
// directly.
func (f EntityFilter) Sets(groupMembers []uuid.UUID) MembershipSets {
	var sets MembershipSets
	switch f.Mode {
	case ModeSimple:
		s := f.Simple
		sets.Customers = singleton(s.Customer)
		sets.Cashiers = singleton(s.Cashier)
		sets.Branches = singleton(s.Branch)
		sets.Tills = singleton(s.Till)
		sets.Products = singleton(s.Product)
		sets.Categories = singleton(s.Category)
	case ModeMulti:
		m := f.Multi
		sets.Customers = fromSlice(m.Customers)
		sets.Cashiers = fromSlice(m.Cashiers)
		sets.Branches = fromSlice(m.Branches)
		sets.Tills = fromSlice(m.Tills)
		sets.Products = fromSlice(m.Products)
		sets.Categories = fromSlice(m.Categories)
	}

	// A selected group always constrains the customer dimension, even
	// when it resolved to zero members: an empty set matches nothing.
	if len(f.GroupIDs()) > 0 {
		if sets.Customers == nil {
			sets.Customers = make(map[uuid.UUID]struct{}, len(groupMembers))
		}
		for _, id := range groupMembers {
			sets.Customers[id] = struct{}{}
		}
	}
	return sets
}

// Key serializes the active filter deterministically for cache keying.
// Dimensions appear in a fixed order and multi-value ids are sorted, so
// two independently built but logically equal filters produce the same
// key. An inactive filter yields the empty string.
func (f EntityFilter) Key() string {
	if !f.Active() {
		return ""
	}

	var b strings.Builder
	b.WriteString(string(f.Mode))

	writeDim := func(name string, ids []uuid.UUID) {
		if len(ids) == 0 {
			return
		}
		sorted := make([]string, len(ids))
		for i, id := range ids {
			sorted[i] = id.String()
		}
		sort.Strings(sorted)
		b.WriteByte(';')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(sorted, ","))
	}

	switch f.Mode {
	case ModeSimple:
		s := f.Simple
		writeDim("customer", idList(s.Customer))
		writeDim("cashier", idList(s.Cashier))
		writeDim("branch", idList(s.Branch))
		writeDim("till", idList(s.Till))
		writeDim("product", idList(s.Product))
		writeDim("category", idList(s.Category))
		writeDim("group", idList(s.CustomerGroup))
	case ModeMulti:
		m := f.Multi
		writeDim("customer", m.Customers)
		writeDim("cashier", m.Cashiers)
		writeDim("branch", m.Branches)
		writeDim("till", m.Tills)
		writeDim("product", m.Products)
		writeDim("category", m.Categories)
		writeDim("group", m.CustomerGroups)
	}
	return b.String()
}

func singleton(id *uuid.UUID) map[uuid.UUID]struct{} {
	if id == nil {
		return nil
	}
	return map[uuid.UUID]struct{}{*id: {}}
}

func fromSlice(ids []uuid.UUID) map[uuid.UUID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func idList(id *uuid.UUID) []uuid.UUID {
	if id == nil {
		return nil
	}
	return []uuid.UUID{*id}
}
