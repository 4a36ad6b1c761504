package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodePayloadByContentType(t *testing.T) {
	story := &LearningContent{ContentType: ContentStory, Payload: datatypes.JSON(`{"pages":[{"text":"Once"},{"text":"upon"}]}`)}
	p, err := story.DecodePayload()
	require.NoError(t, err)
	sp, ok := p.(StoryPayload)
	require.True(t, ok)
	assert.Len(t, sp.Pages, 2)
	assert.Equal(t, []string{"page-1", "page-2"}, p.BlockIDs())

	lesson := &LearningContent{ContentType: ContentLesson, Payload: datatypes.JSON(`{"sections":[{"title":"A","blocks":[{"id":"b1","kind":"text"},{"id":"b2","kind":"video"}]}]}`)}
	p, err = lesson.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, ContentLesson, p.Type())
	assert.Equal(t, []string{"b1", "b2"}, p.BlockIDs())
}

func TestDecodePayloadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content LearningContent
	}{
		{"story without pages", LearningContent{ContentType: ContentStory, Payload: datatypes.JSON(`{"pages":[]}`)}},
		{"quiz with bad answer", LearningContent{ContentType: ContentQuiz, Payload: datatypes.JSON(`{"questions":[{"prompt":"?","options":["a","b"],"correctIndex":5}]}`)}},
		{"lesson duplicate block", LearningContent{ContentType: ContentLesson, Payload: datatypes.JSON(`{"sections":[{"blocks":[{"id":"x"},{"id":"x"}]}]}`)}},
		{"not json", LearningContent{ContentType: ContentGame, Payload: datatypes.JSON(`nope`)}},
		{"unknown type", LearningContent{ContentType: "VIDEO", Payload: datatypes.JSON(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.content.DecodePayload()
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestEncodePayloadSetsType(t *testing.T) {
	var c LearningContent
	err := c.EncodePayload(QuizPayload{
		Questions: []QuizQuestion{{Prompt: "2+2", Options: []string{"3", "4"}, CorrectIndex: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, ContentQuiz, c.ContentType)

	p, err := c.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, 1, p.(QuizPayload).Questions[0].CorrectIndex)
}

func TestOnRoadmap(t *testing.T) {
	assert.True(t, ContentStory.OnRoadmap())
	assert.True(t, ContentQuiz.OnRoadmap())
	assert.True(t, ContentLesson.OnRoadmap())
	assert.False(t, ContentGame.OnRoadmap())
	assert.False(t, ContentCourse.OnRoadmap())
}
