package repository

import (
	"context"

	"kidquest_backend/internal/model"

	"gorm.io/gorm"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: tx}
}

func (r *ContentRepository) Create(ctx context.Context, content *model.LearningContent) error {
	return r.DB.WithContext(ctx).Create(content).Error
}

func (r *ContentRepository) FindByID(ctx context.Context, id string) (*model.LearningContent, error) {
	var content model.LearningContent
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&content).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

type ContentFilter struct {
	ContentType model.ContentType
	Subject     string
	CourseID    string
}

func (r *ContentRepository) List(ctx context.Context, filter ContentFilter, page, limit int) ([]model.LearningContent, int64, error) {
	var contents []model.LearningContent
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.LearningContent{})
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", filter.ContentType)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.CourseID != "" {
		query = query.Where("course_id = ?", filter.CourseID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("subject ASC").Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&contents).Error
	return contents, total, err
}

func (r *ContentRepository) ListSubjects(ctx context.Context) ([]string, error) {
	var subjects []string
	err := r.DB.WithContext(ctx).
		Model(&model.LearningContent{}).
		Distinct("subject").
		Where("subject <> ''").
		Order("subject ASC").
		Pluck("subject", &subjects).Error
	return subjects, err
}

// ListRoadmap returns stories, quizzes and lessons ordered by (subject, createdAt, id).
// An empty subject lists every subject.
func (r *ContentRepository) ListRoadmap(ctx context.Context, subject string) ([]model.LearningContent, error) {
	var contents []model.LearningContent
	query := r.DB.WithContext(ctx).Where("content_type IN ?", model.RoadmapTypes)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}
	err := query.Order("subject ASC").Order("created_at ASC").Order("id ASC").Find(&contents).Error
	return contents, err
}

// ListCourseItems returns the items of a course ordered by (orderInCourse, id).
func (r *ContentRepository) ListCourseItems(ctx context.Context, courseID string) ([]model.LearningContent, error) {
	var contents []model.LearningContent
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND content_type <> ?", courseID, model.ContentCourse).
		Order("order_in_course ASC").
		Order("id ASC").
		Find(&contents).Error
	return contents, err
}

// CountBySubject counts roadmap content per subject.
func (r *ContentRepository) CountBySubject(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Subject string
		Total   int
	}
	err := r.DB.WithContext(ctx).
		Model(&model.LearningContent{}).
		Select("subject, COUNT(*) AS total").
		Where("content_type IN ?", model.RoadmapTypes).
		Group("subject").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Subject] = row.Total
	}
	return counts, nil
}
