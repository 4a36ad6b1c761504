package service_test

import (
	"context"
	"testing"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/testutil"
	"kidquest_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentHidesQuizAnswers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	quiz := testutil.SeedQuiz(t, e.db, "Sums", "math", 2)
	story := testutil.SeedStory(t, e.db, "Owls", "reading", 2)

	detail, err := e.content.GetContent(ctx, quiz.ID)
	require.NoError(t, err)
	view, ok := detail.Payload.(service.QuizView)
	require.True(t, ok)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, []string{"right", "wrong"}, view.Questions[0].Options)

	detail, err = e.content.GetContent(ctx, story.ID)
	require.NoError(t, err)
	pages, ok := detail.Payload.(model.StoryPayload)
	require.True(t, ok)
	assert.Len(t, pages.Pages, 2)

	_, err = e.content.GetContent(ctx, "missing")
	requireCode(t, err, util.CodeNotFound)
}

func TestListContent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	testutil.SeedQuiz(t, e.db, "Sums", "math", 2)
	testutil.SeedStory(t, e.db, "Owls", "reading", 2)
	testutil.SeedStory(t, e.db, "Bats", "reading", 2)

	items, total, err := e.content.ListContent(ctx, repository.ContentFilter{ContentType: model.ContentStory}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Owls", items[0].Title)
	assert.Nil(t, items[0].Payload)

	_, _, err = e.content.ListContent(ctx, repository.ContentFilter{ContentType: "VIDEO"}, 1, 10)
	requireCode(t, err, util.CodeValidationFailed)

	subjects, err := e.content.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "reading"}, subjects)
}
