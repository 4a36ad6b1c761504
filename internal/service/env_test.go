package service_test

import (
	"testing"
	"time"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/testutil"
	"kidquest_backend/internal/util"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db    *gorm.DB
	clock *testutil.Clock

	guard        *service.Guard
	gamification *service.GamificationService
	roadmap      *service.RoadmapService
	progress     *service.ProgressService
	report       *service.ReportService
	family       *service.FamilyService
	content      *service.ContentService
}

func testRules() config.GamificationConfig {
	return config.GamificationConfig{
		Points: config.PointsConfig{
			Story:      10,
			Lesson:     25,
			QuizPassed: 15,
			QuizFailed: 0,
			Game:       5,
		},
		QuizPassPercent:  60,
		LeaderboardLimit: 10,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	clock := testutil.NewClock(testutil.Epoch.Add(30 * 24 * time.Hour))

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	contentRepo := repository.NewContentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	roadmapRepo := repository.NewRoadmapRepository(db)

	guard := service.NewGuard(userRepo, familyRepo)

	gamification := service.NewGamificationService(userRepo, badgeRepo, progressRepo, familyRepo,
		repository.NewLeaderboardCache(nil, 0), testRules())
	gamification.Now = clock.Now

	roadmap := service.NewRoadmapService(contentRepo, progressRepo, roadmapRepo)
	roadmap.Now = clock.Now

	progress := service.NewProgressService(db, contentRepo, progressRepo, guard, gamification, roadmap)
	progress.Now = clock.Now

	report := service.NewReportService(guard, contentRepo, progressRepo, badgeRepo,
		config.ReportConfig{ActivityPageSize: 10, CalendarWindowDays: 30})
	report.Now = clock.Now
	report.Location = time.UTC

	return &env{
		db:           db,
		clock:        clock,
		guard:        guard,
		gamification: gamification,
		roadmap:      roadmap,
		progress:     progress,
		report:       report,
		family:       service.NewFamilyService(db, guard),
		content:      service.NewContentService(contentRepo),
	}
}

func identityOf(u *model.User) util.Identity {
	return util.Identity{UserID: u.ID, Role: u.Role}
}

func requireCode(t *testing.T, err error, code util.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, util.CodeOf(err), "unexpected error: %v", err)
}
