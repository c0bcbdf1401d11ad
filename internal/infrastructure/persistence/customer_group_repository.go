package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerGroupRepository resolves customer-group membership.
type CustomerGroupRepository struct {
	db *gorm.DB
}

func NewCustomerGroupRepository(db *gorm.DB) *CustomerGroupRepository {
	return &CustomerGroupRepository{db: db}
}

// MemberIDs returns the union of customer ids belonging to any of the
// given groups. Unknown group ids contribute nothing.
func (r *CustomerGroupRepository) MemberIDs(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&CustomerGroupMemberModel{}).
		Distinct("customer_id").
		Where("group_id IN ?", groupIDs).
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("resolve group members: %w", err)
	}
	return ids, nil
}
