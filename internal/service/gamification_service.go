package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"
	"kidquest_backend/pkg/monitoring"
	"kidquest_backend/pkg/tracing"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// LeaderboardEntry is one ranked child.
type LeaderboardEntry = repository.LeaderboardEntry

const (
	ScopeFamily = "family"
	ScopeGlobal = "global"
)

type GamificationService struct {
	UserRepo     *repository.UserRepository
	BadgeRepo    *repository.BadgeRepository
	ProgressRepo *repository.ProgressRepository
	FamilyRepo   *repository.FamilyRepository
	Guard        *Guard
	Cache        *repository.LeaderboardCache
	Now          func() time.Time

	mu    sync.RWMutex
	rules config.GamificationConfig
	group singleflight.Group
}

func NewGamificationService(
	userRepo *repository.UserRepository,
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	familyRepo *repository.FamilyRepository,
	cache *repository.LeaderboardCache,
	rules config.GamificationConfig,
) *GamificationService {
	return &GamificationService{
		UserRepo:     userRepo,
		BadgeRepo:    badgeRepo,
		ProgressRepo: progressRepo,
		FamilyRepo:   familyRepo,
		Guard:        NewGuard(userRepo, familyRepo),
		Cache:        cache,
		Now:          time.Now,
		rules:        rules,
	}
}

// SetRules swaps the point table at runtime (config hot reload).
func (s *GamificationService) SetRules(rules config.GamificationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	logger.Log.Info("Gamification rules reloaded",
		zap.Int("story", rules.Points.Story),
		zap.Int("lesson", rules.Points.Lesson),
		zap.Int("quizPassed", rules.Points.QuizPassed),
		zap.Int("game", rules.Points.Game),
		zap.Int("quizPassPercent", rules.QuizPassPercent))
}

func (s *GamificationService) Rules() config.GamificationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// PointsFor is the fixed value of one completion event.
func (s *GamificationService) PointsFor(t model.ContentType, outcome model.ProgressStatus) int {
	p := s.Rules().Points
	switch {
	case t == model.ContentStory && outcome == model.StatusCompleted:
		return p.Story
	case t == model.ContentLesson && outcome == model.StatusCompleted:
		return p.Lesson
	case t == model.ContentGame && outcome == model.StatusCompleted:
		return p.Game
	case t == model.ContentQuiz && outcome == model.StatusPassed:
		return p.QuizPassed
	case t == model.ContentQuiz && outcome == model.StatusFailed:
		return p.QuizFailed
	}
	return 0
}

// AwardPoints runs inside the ledger transaction. It re-reads the ledger row and
// credits the event value only when the row holds the outcome just written.
// Repeated completions are credited again.
func (s *GamificationService) AwardPoints(ctx context.Context, tx *gorm.DB, userID uint, content *model.LearningContent, outcome model.ProgressStatus) (awarded, total int, err error) {
	row, err := s.ProgressRepo.WithTx(tx).Find(ctx, userID, content.ID)
	if err != nil {
		return 0, 0, err
	}

	users := s.UserRepo.WithTx(tx)
	amount := s.PointsFor(content.ContentType, outcome)
	if row.Status != outcome || amount == 0 {
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			return 0, 0, err
		}
		return 0, user.Points, nil
	}

	total, err = users.AddPoints(ctx, userID, amount)
	if err != nil {
		return 0, 0, err
	}
	return amount, total, nil
}

func metricValue(counts repository.StatusCounts, metric model.BadgeMetric) int {
	switch metric {
	case model.MetricStoriesCompleted:
		return counts.Get(model.ContentStory, model.StatusCompleted)
	case model.MetricQuizzesPassed:
		return counts.Get(model.ContentQuiz, model.StatusPassed)
	case model.MetricLessonsCompleted:
		return counts.Get(model.ContentLesson, model.StatusCompleted)
	case model.MetricGamesCompleted:
		return counts.Get(model.ContentGame, model.StatusCompleted)
	}
	return 0
}

// EvaluateBadges grants at most one badge: the first one, in (threshold, id) order,
// whose threshold is met and that the user does not hold yet. Later badges are picked
// up by the next qualifying event.
func (s *GamificationService) EvaluateBadges(ctx context.Context, userID uint) (*model.Badge, error) {
	ctx, span := tracing.Start(ctx, "GamificationService.EvaluateBadges")
	defer span.End()

	counts, err := s.ProgressRepo.CountByTypeAndStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.BadgeRepo.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := s.BadgeRepo.EarnedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range catalog {
		badge := catalog[i]
		if earned[badge.ID] || metricValue(counts, badge.Metric) < badge.Threshold {
			continue
		}

		created, err := s.BadgeRepo.Grant(ctx, &model.UserBadge{
			UserID:   userID,
			BadgeID:  badge.ID,
			EarnedAt: s.Now(),
		})
		if util.IsDuplicateKey(err) {
			// 并发授予，视为已拥有
			continue
		}
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}

		monitoring.BadgesAwarded.WithLabelValues(badge.Name).Inc()
		logger.Log.Info("Badge earned", zap.Uint("userId", userID), zap.String("badge", badge.Name))
		return &badge, nil
	}
	return nil, nil
}

// BadgeStatus is one catalog badge with the user's earned state.
type BadgeStatus struct {
	model.Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

func (s *GamificationService) ListBadges(ctx context.Context, caller util.Identity, userID uint) ([]BadgeStatus, error) {
	const op = "ListBadges"
	if err := s.Guard.Subject(ctx, op, caller, userID); err != nil {
		return nil, err
	}

	catalog, err := s.BadgeRepo.Catalog(ctx)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	owned, err := s.BadgeRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	earnedAt := make(map[uint]time.Time, len(owned))
	for _, ub := range owned {
		earnedAt[ub.BadgeID] = ub.EarnedAt
	}

	out := make([]BadgeStatus, 0, len(catalog))
	for _, b := range catalog {
		st := BadgeStatus{Badge: b}
		if at, ok := earnedAt[b.ID]; ok {
			at := at
			st.Earned = true
			st.EarnedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// Leaderboard ranks children by points, ties broken by account age then id.
func (s *GamificationService) Leaderboard(ctx context.Context, caller util.Identity, scope string, limit int) ([]LeaderboardEntry, error) {
	const op = "Leaderboard"
	ctx, span := tracing.Start(ctx, "GamificationService.Leaderboard")
	defer span.End()

	if err := requireCaller(op, caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.Rules().LeaderboardLimit
	}
	if limit <= 0 || limit > util.MaxLimit {
		limit = util.MaxLimit
	}

	switch scope {
	case ScopeFamily, "":
		ids, err := s.familyOf(ctx, caller)
		if err != nil {
			return nil, util.MapError(op, err)
		}
		users, err := s.UserRepo.RankChildren(ctx, ids, limit)
		if err != nil {
			return nil, util.MapError(op, err)
		}
		entries, err := s.toEntries(ctx, users)
		return entries, util.MapError(op, err)
	case ScopeGlobal:
		entries, err := s.globalBoard(ctx)
		if err != nil {
			return nil, util.MapError(op, err)
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, nil
	}
	return nil, util.Validation(op, "scope must be family or global")
}

// familyOf returns the children of a parent, or a child together with every sibling
// reachable through a shared parent.
func (s *GamificationService) familyOf(ctx context.Context, caller util.Identity) ([]uint, error) {
	if caller.Role == model.Parent {
		return s.FamilyRepo.ChildIDs(ctx, caller.UserID)
	}
	parents, err := s.FamilyRepo.ParentIDs(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.FamilyRepo.SiblingIDs(ctx, parents)
	if err != nil {
		return nil, err
	}
	for _, id := range siblings {
		if id == caller.UserID {
			return siblings, nil
		}
	}
	return append(siblings, caller.UserID), nil
}

// leaderboardFillTimeout bounds a shared cache fill, which no longer follows any
// single request's cancellation.
const leaderboardFillTimeout = 10 * time.Second

func (s *GamificationService) globalBoard(ctx context.Context) ([]LeaderboardEntry, error) {
	if entries, ok, err := s.Cache.Get(ctx); err != nil {
		logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
	} else if ok {
		return entries, nil
	}

	ch := s.group.DoChan(ScopeGlobal, func() (interface{}, error) {
		// 共享的回填不能被首个请求的取消拖垮
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaderboardFillTimeout)
		defer cancel()
		return s.fillGlobalBoard(fillCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		entries := res.Val.([]LeaderboardEntry)
		out := make([]LeaderboardEntry, len(entries))
		copy(out, entries)
		return out, nil
	}
}

func (s *GamificationService) fillGlobalBoard(ctx context.Context) ([]LeaderboardEntry, error) {
	// 先取版本号再查库，期间发生的失效会让这次写入落到旧版本
	gen, genErr := s.Cache.Generation(ctx)
	if genErr != nil {
		logger.Log.Warn("Leaderboard cache generation read failed", zap.Error(genErr))
	}

	users, err := s.UserRepo.TopChildren(ctx, util.MaxLimit)
	if err != nil {
		return nil, err
	}
	entries, err := s.toEntries(ctx, users)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if err := s.Cache.Set(ctx, gen, entries); err != nil {
			logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

func (s *GamificationService) toEntries(ctx context.Context, users []model.User) ([]LeaderboardEntry, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	badges, err := s.BadgeRepo.CountByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Avatar:      u.Avatar,
			Points:      u.Points,
			BadgeCount:  badges[u.ID],
		}
	}
	return entries, nil
}

// InvalidateLeaderboard drops the cached global board after points changed.
func (s *GamificationService) InvalidateLeaderboard(ctx context.Context) BestEffort {
	return runBestEffort(ctx, "leaderboard_invalidate", s.Cache.Invalidate)
}

var errNoBadgeCatalog = errors.New("badge catalog is empty")

// CheckCatalog fails when the badge catalog was never seeded.
func (s *GamificationService) CheckCatalog(ctx context.Context) error {
	catalog, err := s.BadgeRepo.Catalog(ctx)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		return errNoBadgeCatalog
	}
	return nil
}
