package repository

import (
	"context"

	"kidquest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) WithTx(tx *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: tx}
}

// Catalog returns every badge in evaluation priority: lowest threshold first, then id.
func (r *BadgeRepository) Catalog(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).Order("threshold ASC").Order("id ASC").Find(&badges).Error
	return badges, err
}

// EarnedIDs returns the ids of the badges the user already holds.
func (r *BadgeRepository) EarnedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, err
	}
	earned := make(map[uint]bool, len(ids))
	for _, id := range ids {
		earned[id] = true
	}
	return earned, nil
}

// Grant inserts the user badge and reports whether a new row was written.
// A concurrent grant of the same badge is ignored.
func (r *BadgeRepository) Grant(ctx context.Context, ub *model.UserBadge) (bool, error) {
	res := r.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListForUser returns the user's badges, earliest first.
func (r *BadgeRepository) ListForUser(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Order("id ASC").
		Find(&badges).Error
	return badges, err
}

// CountByUsers returns how many badges each user holds.
func (r *BadgeRepository) CountByUsers(ctx context.Context, userIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		UserID uint
		Total  int
	}
	err := r.DB.WithContext(ctx).
		Model(&model.UserBadge{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}
