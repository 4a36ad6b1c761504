package repository

import (
	"context"

	"kidquest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

func (r *RoadmapRepository) WithTx(tx *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: tx}
}

func (r *RoadmapRepository) Find(ctx context.Context, userID uint, courseID string) (*model.RoadmapProgress, error) {
	var rp model.RoadmapProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&rp).Error
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

// Save upserts the course position keyed by (user, course).
func (r *RoadmapRepository) Save(ctx context.Context, rp *model.RoadmapProgress) error {
	if rp.ID != 0 {
		return r.DB.WithContext(ctx).Save(rp).Error
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed_items", "total_items", "current_content_id", "completed_at", "updated_at"}),
		}).
		Create(rp).Error
}
