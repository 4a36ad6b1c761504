package repository

import (
	"context"

	"kidquest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AddPoints increments the balance in place and returns the new total.
func (r *UserRepository) AddPoints(ctx context.Context, userID uint, delta int) (int, error) {
	db := r.DB.WithContext(ctx)
	res := db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var total int
	err := db.Model(&model.User{}).Where("id = ?", userID).Pluck("points", &total).Error
	return total, err
}

// rankOrder is the leaderboard order: points desc, then earlier account, then lower id.
func rankOrder(db *gorm.DB) *gorm.DB {
	return db.Order("points DESC").Order("created_at ASC").Order("id ASC")
}

// TopChildren ranks every child account.
func (r *UserRepository) TopChildren(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role = ?", model.Child).
		Scopes(rankOrder).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// RankChildren ranks the given child ids.
func (r *UserRepository) RankChildren(ctx context.Context, ids []uint, limit int) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.WithContext(ctx).
		Where("role = ? AND id IN ?", model.Child, ids).
		Scopes(rankOrder).
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Order("id ASC").Find(&users).Error
	return users, err
}

type FamilyRepository struct {
	DB *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) *FamilyRepository {
	return &FamilyRepository{DB: db}
}

func (r *FamilyRepository) WithTx(tx *gorm.DB) *FamilyRepository {
	return &FamilyRepository{DB: tx}
}

func (r *FamilyRepository) IsLinked(ctx context.Context, parentID, childID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&model.ParentChildLink{}).
		Where("parent_id = ? AND child_id = ?", parentID, childID).
		Count(&n).Error
	return n > 0, err
}

// Link inserts the association; an existing link is left as is.
func (r *FamilyRepository) Link(ctx context.Context, parentID, childID uint) error {
	link := model.ParentChildLink{ParentID: parentID, ChildID: childID}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *FamilyRepository) ChildIDs(ctx context.Context, parentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.ParentChildLink{}).
		Where("parent_id = ?", parentID).
		Pluck("child_id", &ids).Error
	return ids, err
}

func (r *FamilyRepository) ParentIDs(ctx context.Context, childID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.ParentChildLink{}).
		Where("child_id = ?", childID).
		Pluck("parent_id", &ids).Error
	return ids, err
}

// SiblingIDs returns every child linked to any of the given parents.
func (r *FamilyRepository) SiblingIDs(ctx context.Context, parentIDs []uint) ([]uint, error) {
	var ids []uint
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := r.DB.WithContext(ctx).
		Model(&model.ParentChildLink{}).
		Distinct("child_id").
		Where("parent_id IN ?", parentIDs).
		Pluck("child_id", &ids).Error
	return ids, err
}
