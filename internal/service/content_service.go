package service

import (
	"context"
	"errors"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"

	"gorm.io/gorm"
)

type ContentService struct {
	ContentRepo *repository.ContentRepository
}

func NewContentService(contentRepo *repository.ContentRepository) *ContentService {
	return &ContentService{ContentRepo: contentRepo}
}

// QuizQuestionView hides the answer key from learners.
type QuizQuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type QuizView struct {
	Questions   []QuizQuestionView `json:"questions"`
	PassPercent int                `json:"passPercent,omitempty"`
}

// ContentDetail is a content item with its decoded payload.
type ContentDetail struct {
	*model.LearningContent
	Payload any `json:"payload"`
}

func learnerPayload(p model.ContentPayload) any {
	quiz, ok := p.(model.QuizPayload)
	if !ok {
		return p
	}
	view := QuizView{PassPercent: quiz.PassPercent, Questions: make([]QuizQuestionView, len(quiz.Questions))}
	for i, q := range quiz.Questions {
		view.Questions[i] = QuizQuestionView{Prompt: q.Prompt, Options: q.Options}
	}
	return view
}

func (s *ContentService) GetContent(ctx context.Context, id string) (*ContentDetail, error) {
	const op = "GetContent"
	content, err := s.ContentRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.NotFound(op, "content not found")
	}
	if err != nil {
		return nil, util.MapError(op, err)
	}
	payload, err := decodePayload(op, content)
	if err != nil {
		return nil, err
	}
	return &ContentDetail{LearningContent: content, Payload: learnerPayload(payload)}, nil
}

func (s *ContentService) ListContent(ctx context.Context, filter repository.ContentFilter, page, limit int) ([]model.LearningContent, int64, error) {
	const op = "ListContent"
	if filter.ContentType != "" && !filter.ContentType.Valid() {
		return nil, 0, util.Validation(op, "unknown content type")
	}
	contents, total, err := s.ContentRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, util.MapError(op, err)
	}
	// 列表不返回题目和答案
	for i := range contents {
		contents[i].Payload = nil
	}
	return contents, total, nil
}

func (s *ContentService) ListSubjects(ctx context.Context) ([]string, error) {
	subjects, err := s.ContentRepo.ListSubjects(ctx)
	return subjects, util.MapError("ListSubjects", err)
}
