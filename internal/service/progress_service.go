package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"
	"kidquest_backend/pkg/monitoring"
	"kidquest_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	DB           *gorm.DB
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	Guard        *Guard
	Gamification *GamificationService
	Roadmap      *RoadmapService
	Now          func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	guard *Guard,
	gamification *GamificationService,
	roadmap *RoadmapService,
) *ProgressService {
	return &ProgressService{
		DB:           db,
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		Guard:        guard,
		Gamification: gamification,
		Roadmap:      roadmap,
		Now:          time.Now,
	}
}

// CompletionResult is returned by every terminal flow.
type CompletionResult struct {
	Progress        *model.UserLearningProgress `json:"progress"`
	PointsAwarded   int                         `json:"pointsAwarded"`
	TotalPoints     int                         `json:"totalPoints"`
	NewBadge        *model.Badge                `json:"newBadge,omitempty"`
	CourseCompleted bool                        `json:"courseCompleted"`
	// Pending lists bookkeeping steps that failed and will catch up on a later completion.
	Pending []string `json:"pending,omitempty"`
}

func (r *CompletionResult) note(outcome BestEffort) {
	if !outcome.OK() {
		r.Pending = append(r.Pending, outcome.Op)
	}
}

type QuizResult struct {
	CompletionResult
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
}

func (s *ProgressService) loadContent(ctx context.Context, op, contentID string) (*model.LearningContent, error) {
	if contentID == "" {
		return nil, util.Validation(op, "content id is required")
	}
	content, err := s.ContentRepo.FindByID(ctx, contentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.NotFound(op, "content not found")
	}
	if err != nil {
		return nil, util.MapError(op, err)
	}
	return content, nil
}

func decodePayload(op string, content *model.LearningContent) (model.ContentPayload, error) {
	payload, err := content.DecodePayload()
	if err != nil {
		return nil, util.NewError(util.CodeValidationFailed, op, "content payload is malformed", err)
	}
	return payload, nil
}

// UpsertBlockProgress records a partial-completion marker on the caller's ledger row
// and returns the de-duplicated block list.
func (s *ProgressService) UpsertBlockProgress(ctx context.Context, caller util.Identity, contentID, blockID string) ([]string, error) {
	const op = "UpsertBlockProgress"
	ctx, span := tracing.Start(ctx, "ProgressService.UpsertBlockProgress")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	if blockID == "" {
		return nil, util.Validation(op, "block id is required")
	}
	if _, err := s.loadContent(ctx, op, contentID); err != nil {
		return nil, err
	}
	return s.upsertBlock(ctx, op, caller.UserID, contentID, blockID)
}

func (s *ProgressService) upsertBlock(ctx context.Context, op string, userID uint, contentID, blockID string) ([]string, error) {
	row, err := s.ProgressRepo.UpsertBlock(ctx, userID, contentID, blockID, s.Now())
	if err != nil {
		return nil, util.MapError(op, err)
	}
	monitoring.LedgerWrites.WithLabelValues(string(row.Status)).Inc()
	return row.CompletedBlocks.Values(), nil
}

// RecordStoryPage marks page (1-based) of a story as read.
func (s *ProgressService) RecordStoryPage(ctx context.Context, caller util.Identity, storyID string, page int) ([]string, error) {
	const op = "RecordStoryPage"
	ctx, span := tracing.Start(ctx, "ProgressService.RecordStoryPage")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	content, err := s.loadContent(ctx, op, storyID)
	if err != nil {
		return nil, err
	}
	if content.ContentType != model.ContentStory {
		return nil, util.Validation(op, "content is not a story")
	}
	payload, err := decodePayload(op, content)
	if err != nil {
		return nil, err
	}
	story := payload.(model.StoryPayload)
	if page < 1 || page > len(story.Pages) {
		return nil, util.Validation(op, fmt.Sprintf("page must be between 1 and %d", len(story.Pages)))
	}
	return s.upsertBlock(ctx, op, caller.UserID, content.ID, model.StoryPageBlock(page))
}

// CompleteLessonBlock marks one block of a lesson as done.
func (s *ProgressService) CompleteLessonBlock(ctx context.Context, caller util.Identity, lessonID, blockID string) ([]string, error) {
	const op = "CompleteLessonBlock"
	ctx, span := tracing.Start(ctx, "ProgressService.CompleteLessonBlock")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	if blockID == "" {
		return nil, util.Validation(op, "block id is required")
	}
	content, err := s.loadContent(ctx, op, lessonID)
	if err != nil {
		return nil, err
	}
	if content.ContentType != model.ContentLesson {
		return nil, util.Validation(op, "content is not a lesson")
	}
	payload, err := decodePayload(op, content)
	if err != nil {
		return nil, err
	}
	known := false
	for _, id := range payload.BlockIDs() {
		if id == blockID {
			known = true
			break
		}
	}
	if !known {
		return nil, util.Validation(op, "unknown lesson block")
	}
	return s.upsertBlock(ctx, op, caller.UserID, content.ID, blockID)
}

// CompleteContent finishes a story, lesson or game.
func (s *ProgressService) CompleteContent(ctx context.Context, caller util.Identity, contentID string) (*CompletionResult, error) {
	const op = "CompleteContent"
	ctx, span := tracing.Start(ctx, "ProgressService.CompleteContent")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	content, err := s.loadContent(ctx, op, contentID)
	if err != nil {
		return nil, err
	}
	switch content.ContentType {
	case model.ContentStory, model.ContentLesson, model.ContentGame:
	case model.ContentQuiz:
		return nil, util.Validation(op, "quizzes are completed by submitting answers")
	default:
		return nil, util.Validation(op, "content cannot be completed directly")
	}
	return s.MarkTerminal(ctx, caller, content, model.StatusCompleted, nil)
}

// SubmitQuiz grades answers (one option index per question) and records the outcome.
// The score is floor(100*correct/total); the quiz passes at the payload's pass mark,
// or the configured default when the payload has none.
func (s *ProgressService) SubmitQuiz(ctx context.Context, caller util.Identity, quizID string, answers []int) (*QuizResult, error) {
	const op = "SubmitQuiz"
	ctx, span := tracing.Start(ctx, "ProgressService.SubmitQuiz")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	content, err := s.loadContent(ctx, op, quizID)
	if err != nil {
		return nil, err
	}
	if content.ContentType != model.ContentQuiz {
		return nil, util.Validation(op, "content is not a quiz")
	}
	payload, err := decodePayload(op, content)
	if err != nil {
		return nil, err
	}
	quiz := payload.(model.QuizPayload)
	if len(answers) != len(quiz.Questions) {
		return nil, util.Validation(op, fmt.Sprintf("expected %d answers, got %d", len(quiz.Questions), len(answers)))
	}

	correct := 0
	for i, q := range quiz.Questions {
		if answers[i] == q.CorrectIndex {
			correct++
		}
	}
	score := correct * 100 / len(quiz.Questions)

	passMark := quiz.PassPercent
	if passMark == 0 {
		passMark = s.Gamification.Rules().QuizPassPercent
	}
	outcome := model.StatusFailed
	if score >= passMark {
		outcome = model.StatusPassed
	}

	res, err := s.MarkTerminal(ctx, caller, content, outcome, &score)
	if err != nil {
		return nil, err
	}
	return &QuizResult{
		CompletionResult: *res,
		Correct:          correct,
		Total:            len(quiz.Questions),
		Score:            score,
		Passed:           outcome == model.StatusPassed,
	}, nil
}

// MarkTerminal writes a terminal outcome and credits its points in one transaction,
// then runs badge evaluation and the course cascade. Those follow-ups never fail the
// completion. A completion that is already recorded is written and credited again.
func (s *ProgressService) MarkTerminal(ctx context.Context, caller util.Identity, content *model.LearningContent, outcome model.ProgressStatus, score *int) (*CompletionResult, error) {
	const op = "MarkTerminal"
	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	if !outcome.Terminal() {
		return nil, util.Validation(op, "outcome must be completed, passed or failed")
	}
	if score != nil && (*score < 0 || *score > 100) {
		return nil, util.Validation(op, "score must be within 0-100")
	}

	userID := caller.UserID
	now := s.Now()
	res := &CompletionResult{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.ProgressRepo.WithTx(tx).MarkTerminal(ctx, userID, content.ID, outcome, score, now)
		if err != nil {
			return err
		}
		res.Progress = row

		res.PointsAwarded, res.TotalPoints, err = s.Gamification.AwardPoints(ctx, tx, userID, content, outcome)
		return err
	})
	if err != nil {
		return nil, util.MapError(op, err)
	}

	monitoring.LedgerWrites.WithLabelValues(string(outcome)).Inc()
	if res.PointsAwarded > 0 {
		monitoring.PointsAwarded.WithLabelValues(string(content.ContentType)).Add(float64(res.PointsAwarded))
		res.note(s.Gamification.InvalidateLeaderboard(ctx))
	}
	logger.Log.Info("Content completed",
		zap.Uint("userId", userID),
		zap.String("contentId", content.ID),
		zap.String("outcome", string(outcome)),
		zap.Int("points", res.PointsAwarded))

	res.note(runBestEffort(ctx, "evaluate_badges", func(ctx context.Context) error {
		badge, err := s.Gamification.EvaluateBadges(ctx, userID)
		res.NewBadge = badge
		return err
	}))
	if outcome.Done() {
		var cascade BestEffort
		res.CourseCompleted, cascade = s.Roadmap.CheckCourseCompletion(ctx, userID, content)
		res.note(cascade)
	}
	return res, nil
}

// ReadProgressForUser returns a user's ledger rows, newest access first, optionally
// restricted to contentIDs. The caller must be the user or a linked guardian.
func (s *ProgressService) ReadProgressForUser(ctx context.Context, caller util.Identity, userID uint, contentIDs []string) ([]model.UserLearningProgress, error) {
	const op = "ReadProgressForUser"
	ctx, span := tracing.Start(ctx, "ProgressService.ReadProgressForUser")
	defer span.End()

	if err := s.Guard.Subject(ctx, op, caller, userID); err != nil {
		return nil, err
	}
	rows, err := s.ProgressRepo.ListForUser(ctx, userID, contentIDs)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	return rows, nil
}
