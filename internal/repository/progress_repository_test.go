package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUpsertBlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "mia")
	story := testutil.SeedStory(t, db, "Moon", "science", 3)
	now := testutil.Epoch

	for i := 0; i < 3; i++ {
		_, err := repo.UpsertBlock(ctx, child.ID, story.ID, "page-1", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	row, err := repo.Find(ctx, child.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"page-1"}, row.CompletedBlocks.Values())
	assert.Equal(t, model.StatusInProgress, row.Status)
	assert.True(t, row.LastAccessed.Equal(now.Add(2*time.Minute)))
	assert.True(t, row.StartedAt.Equal(now))

	var count int64
	require.NoError(t, db.Model(&model.UserLearningProgress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertBlockKeepsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "leo")
	lesson := testutil.SeedLesson(t, db, "Shapes", "math", []string{"b1", "b2"})

	_, err := repo.MarkTerminal(ctx, child.ID, lesson.ID, model.StatusCompleted, nil, testutil.Epoch)
	require.NoError(t, err)

	row, err := repo.UpsertBlock(ctx, child.ID, lesson.ID, "b2", testutil.Epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, row.Status)
	assert.True(t, row.CompletedBlocks.Contains("b2"))
	require.NotNil(t, row.CompletedAt)
}

func TestMarkTerminalKeepsBlocksAndScore(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "ava")
	story := testutil.SeedStory(t, db, "Sun", "science", 2)

	_, err := repo.UpsertBlock(ctx, child.ID, story.ID, "page-1", testutil.Epoch)
	require.NoError(t, err)
	row, err := repo.MarkTerminal(ctx, child.ID, story.ID, model.StatusCompleted, nil, testutil.Epoch.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, row.Status)
	assert.Equal(t, []string{"page-1"}, row.CompletedBlocks.Values())
	assert.Nil(t, row.Score)

	quiz := testutil.SeedQuiz(t, db, "Planets", "science", 4)
	row, err = repo.MarkTerminal(ctx, child.ID, quiz.ID, model.StatusFailed, testutil.IntPtr(25), testutil.Epoch)
	require.NoError(t, err)
	require.NotNil(t, row.Score)
	assert.Equal(t, 25, *row.Score)
}

// A competing first insert lands between the lookup and our insert; the write must
// be applied to the winner's row instead of failing.
func TestUpsertRetriesAfterConcurrentFirstInsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "kai")
	story := testutil.SeedStory(t, db, "Rain", "science", 3)

	raced := false
	err := db.Callback().Query().After("gorm:query").Register("test:race_first_insert", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "user_learning_progresses" || !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return
		}
		raced = true
		_, execErr := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			`INSERT INTO user_learning_progresses (created_at, updated_at, user_id, content_id, status, completed_blocks, started_at, last_accessed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			testutil.Epoch, testutil.Epoch, child.ID, story.ID, model.StatusInProgress, `["page-1"]`, testutil.Epoch, testutil.Epoch)
		require.NoError(t, execErr)
	})
	require.NoError(t, err)

	row, err := repo.UpsertBlock(ctx, child.ID, story.ID, "page-2", testutil.Epoch.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, raced)

	assert.Equal(t, []string{"page-1", "page-2"}, row.CompletedBlocks.Values())

	var count int64
	require.NoError(t, db.Model(&model.UserLearningProgress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCountByTypeAndStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "zoe")
	s1 := testutil.SeedStory(t, db, "A", "reading", 1)
	s2 := testutil.SeedStory(t, db, "B", "reading", 1)
	q1 := testutil.SeedQuiz(t, db, "Q1", "math", 2)
	q2 := testutil.SeedQuiz(t, db, "Q2", "math", 2)

	testutil.SeedProgress(t, db, child, s1, model.StatusCompleted, nil, testutil.Epoch)
	testutil.SeedProgress(t, db, child, s2, model.StatusInProgress, nil, testutil.Epoch)
	testutil.SeedProgress(t, db, child, q1, model.StatusPassed, testutil.IntPtr(100), testutil.Epoch)
	testutil.SeedProgress(t, db, child, q2, model.StatusFailed, testutil.IntPtr(0), testutil.Epoch)

	counts, err := repo.CountByTypeAndStatus(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(model.ContentStory, model.StatusCompleted))
	assert.Equal(t, 1, counts.Get(model.ContentStory, model.StatusInProgress))
	assert.Equal(t, 1, counts.Get(model.ContentQuiz, model.StatusPassed))
	assert.Equal(t, 1, counts.Get(model.ContentQuiz, model.StatusFailed))
	assert.Equal(t, 0, counts.Get(model.ContentLesson, model.StatusCompleted))
}

func TestListEntriesNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)

	child := testutil.SeedChild(t, db, "eli")
	s1 := testutil.SeedStory(t, db, "Old", "reading", 1)
	s2 := testutil.SeedStory(t, db, "New", "reading", 1)
	testutil.SeedProgress(t, db, child, s1, model.StatusCompleted, nil, testutil.Epoch)
	testutil.SeedProgress(t, db, child, s2, model.StatusInProgress, nil, testutil.Epoch.Add(time.Hour))

	entries, err := repo.ListEntries(ctx, child.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Title)
	assert.Equal(t, model.ContentStory, entries[0].ContentType)
}
