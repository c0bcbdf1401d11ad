package analytics

import "github.com/google/uuid"

// Apply narrows sales and items to those matching the membership sets.
// The narrowing runs in a fixed order:
//
//  1. sales are filtered by sale-level dimensions (customer, cashier,
//     branch, till); a sale with a null value in a constrained dimension
//     is excluded, a dimension with no set never excludes anything
//  2. items are narrowed to the surviving sale ids, then by the
//     item-level dimensions (product, category)
//  3. when an item-level dimension was constrained, sales are re-narrowed
//     to those that still have at least one surviving item
//
// Each step narrows monotonically. Apply is pure: inputs are never
// mutated and the same inputs always produce the same outputs.
func Apply(sales []SaleRecord, items []SaleItemRecord, sets MembershipSets) ([]SaleRecord, []SaleItemRecord) {
	filteredSales := make([]SaleRecord, 0, len(sales))
	for _, s := range sales {
		if matchesSaleDims(s, sets) {
			filteredSales = append(filteredSales, s)
		}
	}

	surviving := make(map[uuid.UUID]struct{}, len(filteredSales))
	for _, s := range filteredSales {
		surviving[s.ID] = struct{}{}
	}

	filteredItems := make([]SaleItemRecord, 0, len(items))
	for _, it := range items {
		if _, ok := surviving[it.SaleID]; !ok {
			continue
		}
		if sets.Products != nil {
			if _, ok := sets.Products[it.ProductID]; !ok {
				continue
			}
		}
		if sets.Categories != nil {
			if it.CategoryID == nil {
				continue
			}
			if _, ok := sets.Categories[*it.CategoryID]; !ok {
				continue
			}
		}
		filteredItems = append(filteredItems, it)
	}

	if sets.ItemLevelActive() {
		withItems := make(map[uuid.UUID]struct{}, len(filteredItems))
		for _, it := range filteredItems {
			withItems[it.SaleID] = struct{}{}
		}
		renarrowed := filteredSales[:0:0]
		for _, s := range filteredSales {
			if _, ok := withItems[s.ID]; ok {
				renarrowed = append(renarrowed, s)
			}
		}
		filteredSales = renarrowed
	}

	return filteredSales, filteredItems
}

// matchesSaleDims checks the sale-level dimensions only. Null never
// matches a non-empty membership set.
func matchesSaleDims(s SaleRecord, sets MembershipSets) bool {
	return memberOrUnconstrained(s.CustomerID, sets.Customers) &&
		memberOrUnconstrained(s.CashierID, sets.Cashiers) &&
		memberOrUnconstrained(s.BranchID, sets.Branches) &&
		memberOrUnconstrained(s.TillID, sets.Tills)
}

func memberOrUnconstrained(id *uuid.UUID, set map[uuid.UUID]struct{}) bool {
	if set == nil {
		return true
	}
	if id == nil {
		return false
	}
	_, ok := set[*id]
	return ok
}
