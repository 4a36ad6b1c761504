package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/testutil"
	"kidquest_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusesOf(items []service.RoadmapItem) []service.RoadmapStatus {
	out := make([]service.RoadmapStatus, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}

func TestClassifyRoadmap(t *testing.T) {
	items := []model.LearningContent{{}, {}, {}}
	for i := range items {
		items[i].ID = fmt.Sprintf("c%d", i)
	}

	const (
		done = service.RoadmapCompleted
		cur  = service.RoadmapCurrent
		next = service.RoadmapUpcoming
	)

	tests := []struct {
		name     string
		statuses map[string]model.ProgressStatus
		want     []service.RoadmapStatus
	}{
		{name: "nothing started", statuses: nil, want: []service.RoadmapStatus{cur, next, next}},
		{name: "first done", statuses: map[string]model.ProgressStatus{"c0": model.StatusCompleted}, want: []service.RoadmapStatus{done, cur, next}},
		{name: "passed counts as done", statuses: map[string]model.ProgressStatus{"c0": model.StatusPassed, "c1": model.StatusCompleted}, want: []service.RoadmapStatus{done, done, cur}},
		{name: "failed quiz stays current", statuses: map[string]model.ProgressStatus{"c0": model.StatusFailed}, want: []service.RoadmapStatus{cur, next, next}},
		{name: "done after current is upcoming", statuses: map[string]model.ProgressStatus{"c1": model.StatusInProgress, "c2": model.StatusCompleted}, want: []service.RoadmapStatus{cur, next, next}},
		{name: "all done", statuses: map[string]model.ProgressStatus{"c0": model.StatusCompleted, "c1": model.StatusPassed, "c2": model.StatusCompleted}, want: []service.RoadmapStatus{done, done, done}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusesOf(service.ClassifyRoadmap(items, tt.statuses)))
		})
	}
}

// Every combination of ledger states yields at most one current item, preceded only
// by completed items.
func TestClassifyRoadmapSingleCurrent(t *testing.T) {
	states := []model.ProgressStatus{"", model.StatusInProgress, model.StatusCompleted, model.StatusPassed, model.StatusFailed}
	const n = 4
	items := make([]model.LearningContent, n)
	for i := range items {
		items[i].ID = fmt.Sprintf("c%d", i)
	}

	total := 1
	for i := 0; i < n; i++ {
		total *= len(states)
	}
	for combo := 0; combo < total; combo++ {
		statuses := make(map[string]model.ProgressStatus)
		k := combo
		for i := 0; i < n; i++ {
			if st := states[k%len(states)]; st != "" {
				statuses[items[i].ID] = st
			}
			k /= len(states)
		}

		got := service.ClassifyRoadmap(items, statuses)
		current := -1
		for i, it := range got {
			if it.Status != service.RoadmapCurrent {
				continue
			}
			require.Equal(t, -1, current, "two current items for %v", statuses)
			current = i
		}
		if current == -1 {
			for _, it := range got {
				require.Equal(t, service.RoadmapCompleted, it.Status, "no current item but %v", statuses)
			}
			continue
		}
		for _, it := range got[:current] {
			require.Equal(t, service.RoadmapCompleted, it.Status, "item before current not completed for %v", statuses)
		}
	}
}

func TestGetSubjectRoadmapOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	child := testutil.SeedChild(t, e.db, "mia")
	mathQuiz := testutil.SeedQuiz(t, e.db, "Sums", "math", 1)
	artStory := testutil.SeedStory(t, e.db, "Colours", "art", 1)
	mathStory := testutil.SeedStory(t, e.db, "Numbers", "math", 1)
	testutil.SeedGame(t, e.db, "Tetris", "math")
	testutil.SeedCourse(t, e.db, "Course", "math")

	testutil.SeedProgress(t, e.db, child, artStory, model.StatusCompleted, nil, testutil.Epoch)

	roadmap, err := e.roadmap.GetSubjectRoadmap(ctx, identityOf(child), "")
	require.NoError(t, err)
	require.Len(t, roadmap, 3)
	assert.Equal(t, []string{artStory.ID, mathQuiz.ID, mathStory.ID},
		[]string{roadmap[0].ContentID, roadmap[1].ContentID, roadmap[2].ContentID})
	assert.Equal(t, []service.RoadmapStatus{service.RoadmapCompleted, service.RoadmapCurrent, service.RoadmapUpcoming}, statusesOf(roadmap))

	roadmap, err = e.roadmap.GetSubjectRoadmap(ctx, identityOf(child), "math")
	require.NoError(t, err)
	require.Len(t, roadmap, 2)
	assert.Equal(t, service.RoadmapCurrent, roadmap[0].Status)

	_, err = e.roadmap.GetSubjectRoadmap(ctx, util.Identity{}, "math")
	requireCode(t, err, util.CodeNotAuthenticated)
}

func TestCourseCompletionCascade(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	child := testutil.SeedChild(t, e.db, "mia")
	course := testutil.SeedCourse(t, e.db, "Counting", "math")
	quiz := testutil.SeedQuiz(t, e.db, "Check", "math", 2, testutil.InCourse(course, 2))
	lesson := testutil.SeedLesson(t, e.db, "Intro", "math", []string{"b1"}, testutil.InCourse(course, 1))

	res, err := e.progress.CompleteContent(ctx, identityOf(child), lesson.ID)
	require.NoError(t, err)
	assert.False(t, res.CourseCompleted)

	view, err := e.roadmap.GetCourseRoadmap(ctx, identityOf(child), course.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, lesson.ID, view.Items[0].ContentID)
	assert.Equal(t, []service.RoadmapStatus{service.RoadmapCompleted, service.RoadmapCurrent}, statusesOf(view.Items))
	require.NotNil(t, view.Progress)
	assert.Equal(t, 1, view.Progress.CompletedItems)
	assert.Equal(t, 2, view.Progress.TotalItems)
	require.NotNil(t, view.Progress.CurrentContentID)
	assert.Equal(t, quiz.ID, *view.Progress.CurrentContentID)
	assert.Nil(t, view.Progress.CompletedAt)

	qres, err := e.progress.SubmitQuiz(ctx, identityOf(child), quiz.ID, []int{0, 0})
	require.NoError(t, err)
	assert.True(t, qres.CourseCompleted)

	rp, err := e.roadmap.RoadmapRepo.Find(ctx, child.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rp.CompletedItems)
	assert.Nil(t, rp.CurrentContentID)
	require.NotNil(t, rp.CompletedAt)
	firstCompletion := *rp.CompletedAt

	e.clock.Advance(time.Hour)
	qres, err = e.progress.SubmitQuiz(ctx, identityOf(child), quiz.ID, []int{0, 0})
	require.NoError(t, err)
	assert.False(t, qres.CourseCompleted)

	rp, err = e.roadmap.RoadmapRepo.Find(ctx, child.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, rp.CompletedAt.Equal(firstCompletion))
}

func TestCourseCompletionCountsItemsFinishedOutOfOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	child := testutil.SeedChild(t, e.db, "mia")
	course := testutil.SeedCourse(t, e.db, "Letters", "reading")
	l1 := testutil.SeedLesson(t, e.db, "A", "reading", []string{"a"}, testutil.InCourse(course, 1))
	l2 := testutil.SeedLesson(t, e.db, "B", "reading", []string{"b"}, testutil.InCourse(course, 2))
	l3 := testutil.SeedLesson(t, e.db, "C", "reading", []string{"c"}, testutil.InCourse(course, 3))

	for _, lesson := range []*model.LearningContent{l3, l2} {
		res, err := e.progress.CompleteContent(ctx, identityOf(child), lesson.ID)
		require.NoError(t, err)
		assert.False(t, res.CourseCompleted)
	}

	rp, err := e.roadmap.RoadmapRepo.Find(ctx, child.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rp.CompletedItems)
	assert.Equal(t, 3, rp.TotalItems)
	require.NotNil(t, rp.CurrentContentID)
	assert.Equal(t, l1.ID, *rp.CurrentContentID)
	assert.Nil(t, rp.CompletedAt)

	res, err := e.progress.CompleteContent(ctx, identityOf(child), l1.ID)
	require.NoError(t, err)
	assert.True(t, res.CourseCompleted)

	rp, err = e.roadmap.RoadmapRepo.Find(ctx, child.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rp.CompletedItems)
	assert.Nil(t, rp.CurrentContentID)
	assert.NotNil(t, rp.CompletedAt)
}

func TestGetCourseRoadmapRejectsNonCourse(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	child := testutil.SeedChild(t, e.db, "mia")
	story := testutil.SeedStory(t, e.db, "S", "reading", 1)

	_, err := e.roadmap.GetCourseRoadmap(ctx, identityOf(child), story.ID)
	requireCode(t, err, util.CodeValidationFailed)

	_, err = e.roadmap.GetCourseRoadmap(ctx, identityOf(child), "missing")
	requireCode(t, err, util.CodeNotFound)
}
