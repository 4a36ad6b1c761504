package service

import (
	"context"
	"sort"
	"time"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/tracing"
)

type ReportService struct {
	Guard        *Guard
	UserRepo     *repository.UserRepository
	FamilyRepo   *repository.FamilyRepository
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	BadgeRepo    *repository.BadgeRepository
	Cfg          config.ReportConfig
	Now          func() time.Time
	// Location decides calendar day boundaries.
	Location *time.Location
}

func NewReportService(
	guard *Guard,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	badgeRepo *repository.BadgeRepository,
	cfg config.ReportConfig,
) *ReportService {
	return &ReportService{
		Guard:        guard,
		UserRepo:     guard.UserRepo,
		FamilyRepo:   guard.FamilyRepo,
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		BadgeRepo:    badgeRepo,
		Cfg:          cfg,
		Now:          time.Now,
		Location:     time.Local,
	}
}

type ChildSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Points      int    `json:"points"`
	BadgeCount  int    `json:"badgeCount"`
}

type ReportTotals struct {
	StoriesCompleted int `json:"storiesCompleted"`
	QuizzesPassed    int `json:"quizzesPassed"`
	QuizzesAttempted int `json:"quizzesAttempted"`
	LessonsCompleted int `json:"lessonsCompleted"`
	GamesCompleted   int `json:"gamesCompleted"`
	AverageScore     int `json:"averageScore"`
}

type SubjectBreakdown struct {
	Subject      string `json:"subject"`
	Available    int    `json:"available"`
	Completed    int    `json:"completed"`
	Passed       int    `json:"passed"`
	AverageScore int    `json:"averageScore"`
}

type ActivityItem struct {
	ContentID    string               `json:"contentId"`
	Title        string               `json:"title"`
	ContentType  model.ContentType    `json:"contentType"`
	Status       model.ProgressStatus `json:"status"`
	Score        *int                 `json:"score"`
	LastAccessed time.Time            `json:"lastAccessed"`
}

type ChildReport struct {
	Child          ChildSummary       `json:"child"`
	Totals         ReportTotals       `json:"totals"`
	Subjects       []SubjectBreakdown `json:"subjects"`
	RecentActivity []ActivityItem     `json:"recentActivity"`
	Badges         []model.UserBadge  `json:"badges"`
}

type CalendarDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AverageScore is the floor of the mean of the non-null scores, 0 when there are none.
func AverageScore(scores []*int) int {
	sum, n := 0, 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// GetChildProgressDetailsForReport builds the guardian report for one child.
func (s *ReportService) GetChildProgressDetailsForReport(ctx context.Context, caller util.Identity, childID uint) (*ChildReport, error) {
	const op = "GetChildProgressDetailsForReport"
	ctx, span := tracing.Start(ctx, "ReportService.GetChildProgressDetailsForReport")
	defer span.End()

	child, err := s.Guard.Guardian(ctx, op, caller, childID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ProgressRepo.ListEntries(ctx, childID, 0)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	available, err := s.ContentRepo.CountBySubject(ctx)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	badges, err := s.BadgeRepo.ListForUser(ctx, childID)
	if err != nil {
		return nil, util.MapError(op, err)
	}

	report := &ChildReport{
		Child: ChildSummary{
			ID:          child.ID,
			Username:    child.Username,
			DisplayName: child.DisplayName,
			Avatar:      child.Avatar,
			Points:      child.Points,
			BadgeCount:  len(badges),
		},
		Totals:   buildTotals(entries),
		Subjects: buildSubjects(entries, available),
		Badges:   badges,
	}

	limit := s.Cfg.ActivityPageSize
	if limit <= 0 {
		limit = 10
	}
	report.RecentActivity = make([]ActivityItem, 0, limit)
	for _, e := range entries {
		if len(report.RecentActivity) == limit {
			break
		}
		report.RecentActivity = append(report.RecentActivity, ActivityItem{
			ContentID:    e.ContentID,
			Title:        e.Title,
			ContentType:  e.ContentType,
			Status:       e.Status,
			Score:        e.Score,
			LastAccessed: e.LastAccessed,
		})
	}
	return report, nil
}

func buildTotals(entries []repository.LedgerEntry) ReportTotals {
	var t ReportTotals
	scores := make([]*int, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.ContentType == model.ContentStory && e.Status == model.StatusCompleted:
			t.StoriesCompleted++
		case e.ContentType == model.ContentLesson && e.Status == model.StatusCompleted:
			t.LessonsCompleted++
		case e.ContentType == model.ContentGame && e.Status == model.StatusCompleted:
			t.GamesCompleted++
		case e.ContentType == model.ContentQuiz && e.Status == model.StatusPassed:
			t.QuizzesPassed++
			t.QuizzesAttempted++
		case e.ContentType == model.ContentQuiz && e.Status == model.StatusFailed:
			t.QuizzesAttempted++
		}
		scores = append(scores, e.Score)
	}
	t.AverageScore = AverageScore(scores)
	return t
}

func buildSubjects(entries []repository.LedgerEntry, available map[string]int) []SubjectBreakdown {
	bySubject := make(map[string]*SubjectBreakdown)
	scores := make(map[string][]*int)
	get := func(subject string) *SubjectBreakdown {
		b, ok := bySubject[subject]
		if !ok {
			b = &SubjectBreakdown{Subject: subject}
			bySubject[subject] = b
		}
		return b
	}

	for subject, n := range available {
		get(subject).Available = n
	}
	for _, e := range entries {
		// 学科分布只统计路线内容，与 available 口径一致
		if !e.ContentType.OnRoadmap() {
			continue
		}
		b := get(e.Subject)
		switch e.Status {
		case model.StatusCompleted:
			b.Completed++
		case model.StatusPassed:
			b.Passed++
		}
		scores[e.Subject] = append(scores[e.Subject], e.Score)
	}

	out := make([]SubjectBreakdown, 0, len(bySubject))
	for subject, b := range bySubject {
		b.AverageScore = AverageScore(scores[subject])
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// BuildActivityCalendar buckets timestamps by calendar day in loc and returns one entry
// per day for the days ending at today, oldest first, zero days included.
func BuildActivityCalendar(stamps []time.Time, today time.Time, days int, loc *time.Location) []CalendarDay {
	if loc == nil {
		loc = time.Local
	}
	counts := make(map[string]int, len(stamps))
	for _, ts := range stamps {
		counts[ts.In(loc).Format(util.DateFormat)]++
	}

	end := today.In(loc)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	out := make([]CalendarDay, days)
	for i := 0; i < days; i++ {
		day := endDay.AddDate(0, 0, i-days+1).Format(util.DateFormat)
		out[i] = CalendarDay{Date: day, Count: counts[day]}
	}
	return out
}

func (s *ReportService) GetActivityCalendar(ctx context.Context, caller util.Identity, childID uint) ([]CalendarDay, error) {
	const op = "GetActivityCalendar"
	ctx, span := tracing.Start(ctx, "ReportService.GetActivityCalendar")
	defer span.End()

	if _, err := s.Guard.Guardian(ctx, op, caller, childID); err != nil {
		return nil, err
	}
	stamps, err := s.ProgressRepo.LastAccessedTimes(ctx, childID)
	if err != nil {
		return nil, util.MapError(op, err)
	}

	days := s.Cfg.CalendarWindowDays
	if days <= 0 {
		days = 30
	}
	return BuildActivityCalendar(stamps, s.Now(), days, s.Location), nil
}

// ListChildren is the family overview of a parent.
func (s *ReportService) ListChildren(ctx context.Context, caller util.Identity) ([]ChildSummary, error) {
	const op = "ListChildren"
	if err := requireParent(op, caller); err != nil {
		return nil, err
	}
	ids, err := s.FamilyRepo.ChildIDs(ctx, caller.UserID)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	children, err := s.UserRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	badges, err := s.BadgeRepo.CountByUsers(ctx, ids)
	if err != nil {
		return nil, util.MapError(op, err)
	}

	out := make([]ChildSummary, 0, len(children))
	for _, c := range children {
		out = append(out, ChildSummary{
			ID:          c.ID,
			Username:    c.Username,
			DisplayName: c.DisplayName,
			Avatar:      c.Avatar,
			Points:      c.Points,
			BadgeCount:  badges[c.ID],
		})
	}
	return out, nil
}
