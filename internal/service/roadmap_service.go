package service

import (
	"context"
	"errors"
	"time"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"
	"kidquest_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RoadmapStatus string

const (
	RoadmapCompleted RoadmapStatus = "completed"
	RoadmapCurrent   RoadmapStatus = "current"
	RoadmapUpcoming  RoadmapStatus = "upcoming"
)

type RoadmapItem struct {
	ContentID     string               `json:"contentId"`
	Title         string               `json:"title"`
	ContentType   model.ContentType    `json:"contentType"`
	Subject       string               `json:"subject"`
	OrderInCourse int                  `json:"orderInCourse"`
	Status        RoadmapStatus        `json:"status"`
	LedgerStatus  model.ProgressStatus `json:"ledgerStatus,omitempty"`
}

// ClassifyRoadmap labels ordered items: completed or passed rows are completed, the
// first other item is current and everything after it is upcoming. At most one item
// is current and every item before it is completed.
func ClassifyRoadmap(items []model.LearningContent, statuses map[string]model.ProgressStatus) []RoadmapItem {
	out := make([]RoadmapItem, len(items))
	seenCurrent := false
	for i, c := range items {
		st := statuses[c.ID]
		item := RoadmapItem{
			ContentID:     c.ID,
			Title:         c.Title,
			ContentType:   c.ContentType,
			Subject:       c.Subject,
			OrderInCourse: c.OrderInCourse,
			LedgerStatus:  st,
		}
		switch {
		case seenCurrent:
			item.Status = RoadmapUpcoming
		case st.Done():
			item.Status = RoadmapCompleted
		default:
			item.Status = RoadmapCurrent
			seenCurrent = true
		}
		out[i] = item
	}
	return out
}

type RoadmapService struct {
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	RoadmapRepo  *repository.RoadmapRepository
	Now          func() time.Time
}

func NewRoadmapService(contentRepo *repository.ContentRepository, progressRepo *repository.ProgressRepository, roadmapRepo *repository.RoadmapRepository) *RoadmapService {
	return &RoadmapService{
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		RoadmapRepo:  roadmapRepo,
		Now:          time.Now,
	}
}

func (s *RoadmapService) classify(ctx context.Context, userID uint, items []model.LearningContent) ([]RoadmapItem, error) {
	ids := make([]string, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	statuses, err := s.ProgressRepo.StatusMap(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	return ClassifyRoadmap(items, statuses), nil
}

// GetSubjectRoadmap lists the caller's stories, quizzes and lessons in
// (subject, createdAt, id) order. An empty subject covers all subjects.
func (s *RoadmapService) GetSubjectRoadmap(ctx context.Context, caller util.Identity, subject string) ([]RoadmapItem, error) {
	const op = "GetSubjectRoadmap"
	ctx, span := tracing.Start(ctx, "RoadmapService.GetSubjectRoadmap")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	items, err := s.ContentRepo.ListRoadmap(ctx, subject)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	roadmap, err := s.classify(ctx, caller.UserID, items)
	return roadmap, util.MapError(op, err)
}

type CourseRoadmap struct {
	Course   *model.LearningContent `json:"course"`
	Items    []RoadmapItem          `json:"items"`
	Progress *model.RoadmapProgress `json:"progress,omitempty"`
}

func (s *RoadmapService) GetCourseRoadmap(ctx context.Context, caller util.Identity, courseID string) (*CourseRoadmap, error) {
	const op = "GetCourseRoadmap"
	ctx, span := tracing.Start(ctx, "RoadmapService.GetCourseRoadmap")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	course, err := s.ContentRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	if course.ContentType != model.ContentCourse {
		return nil, util.Validation(op, "content is not a course")
	}

	items, err := s.ContentRepo.ListCourseItems(ctx, courseID)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	classified, err := s.classify(ctx, caller.UserID, items)
	if err != nil {
		return nil, util.MapError(op, err)
	}

	out := &CourseRoadmap{Course: course, Items: classified}
	rp, err := s.RoadmapRepo.Find(ctx, caller.UserID, courseID)
	switch {
	case err == nil:
		out.Progress = rp
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, util.MapError(op, err)
	}
	return out, nil
}

// CheckCourseCompletion recomputes the course position after content reached a done
// status. It reports whether this call completed the course for the first time.
func (s *RoadmapService) CheckCourseCompletion(ctx context.Context, userID uint, content *model.LearningContent) (bool, BestEffort) {
	completed := false
	outcome := runBestEffort(ctx, "course_cascade", func(ctx context.Context) error {
		if content.CourseID == nil {
			return nil
		}
		courseID := *content.CourseID

		items, err := s.ContentRepo.ListCourseItems(ctx, courseID)
		if err != nil {
			return err
		}
		classified, err := s.classify(ctx, userID, items)
		if err != nil {
			return err
		}

		rp, err := s.RoadmapRepo.Find(ctx, userID, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rp = &model.RoadmapProgress{UserID: userID, CourseID: courseID}
		} else if err != nil {
			return err
		}

		// 完成数按台账统计，乱序完成的条目在分类里是 upcoming
		done := 0
		rp.CurrentContentID = nil
		for _, item := range classified {
			if item.LedgerStatus.Done() {
				done++
			}
			if item.Status == RoadmapCurrent {
				id := item.ContentID
				rp.CurrentContentID = &id
			}
		}
		rp.CompletedItems = done
		rp.TotalItems = len(classified)

		if done == len(classified) && done > 0 && rp.CompletedAt == nil {
			now := s.Now()
			rp.CompletedAt = &now
			completed = true
			logger.Log.Info("Course completed", zap.Uint("userId", userID), zap.String("courseId", courseID))
		}
		return s.RoadmapRepo.Save(ctx, rp)
	})
	if !outcome.OK() {
		completed = false
	}
	return completed, outcome
}
