package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentStory  ContentType = "STORY"
	ContentQuiz   ContentType = "QUIZ"
	ContentLesson ContentType = "LESSON"
	ContentCourse ContentType = "COURSE"
	ContentGame   ContentType = "GAME"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentStory, ContentQuiz, ContentLesson, ContentCourse, ContentGame:
		return true
	}
	return false
}

// RoadmapTypes are the content types that appear on a learner roadmap.
var RoadmapTypes = []ContentType{ContentStory, ContentQuiz, ContentLesson}

func (t ContentType) OnRoadmap() bool {
	for _, rt := range RoadmapTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// LearningContent is read-only from the learner side.
type LearningContent struct {
	UUIDBase
	ContentType   ContentType    `gorm:"size:16;index;not null" json:"contentType"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Subject       string         `gorm:"size:100;index" json:"subject"`
	CourseID      *string        `gorm:"type:varchar(36);index" json:"courseId,omitempty"`
	OrderInCourse int            `gorm:"default:0" json:"orderInCourse"`
	Payload       datatypes.JSON `json:"payload"`
}

func (LearningContent) TableName() string {
	return "learning_contents"
}

var ErrInvalidPayload = errors.New("invalid content payload")

// ContentPayload is the tagged variant stored in LearningContent.Payload.
type ContentPayload interface {
	Type() ContentType
	Validate() error
	// BlockIDs lists the partial-completion markers a learner can record.
	BlockIDs() []string
}

type StoryPage struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type StoryPayload struct {
	Pages []StoryPage `json:"pages"`
}

func (StoryPayload) Type() ContentType { return ContentStory }

func (p StoryPayload) Validate() error {
	if len(p.Pages) == 0 {
		return fmt.Errorf("%w: story has no pages", ErrInvalidPayload)
	}
	return nil
}

func (p StoryPayload) BlockIDs() []string {
	ids := make([]string, len(p.Pages))
	for i := range p.Pages {
		ids[i] = StoryPageBlock(i + 1)
	}
	return ids
}

// StoryPageBlock is the block id recorded when page n (1-based) is finished.
func StoryPageBlock(n int) string {
	return "page-" + strconv.Itoa(n)
}

type QuizQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type QuizPayload struct {
	Questions []QuizQuestion `json:"questions"`
	// PassPercent overrides the configured pass mark when > 0.
	PassPercent int `json:"passPercent,omitempty"`
}

func (QuizPayload) Type() ContentType { return ContentQuiz }

func (p QuizPayload) Validate() error {
	if len(p.Questions) == 0 {
		return fmt.Errorf("%w: quiz has no questions", ErrInvalidPayload)
	}
	for i, q := range p.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidPayload, i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d has no valid answer", ErrInvalidPayload, i+1)
		}
	}
	if p.PassPercent < 0 || p.PassPercent > 100 {
		return fmt.Errorf("%w: pass percent %d", ErrInvalidPayload, p.PassPercent)
	}
	return nil
}

func (QuizPayload) BlockIDs() []string { return nil }

type LessonBlock struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Body string `json:"body,omitempty"`
}

type LessonSection struct {
	Title  string        `json:"title"`
	Blocks []LessonBlock `json:"blocks"`
}

type LessonPayload struct {
	Sections []LessonSection `json:"sections"`
}

func (LessonPayload) Type() ContentType { return ContentLesson }

func (p LessonPayload) Validate() error {
	seen := make(map[string]bool)
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			if b.ID == "" {
				return fmt.Errorf("%w: lesson block without id in section %q", ErrInvalidPayload, s.Title)
			}
			if seen[b.ID] {
				return fmt.Errorf("%w: duplicate lesson block %q", ErrInvalidPayload, b.ID)
			}
			seen[b.ID] = true
		}
	}
	if len(seen) == 0 {
		return fmt.Errorf("%w: lesson has no blocks", ErrInvalidPayload)
	}
	return nil
}

func (p LessonPayload) BlockIDs() []string {
	var ids []string
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

type CoursePayload struct {
	Description string `json:"description"`
}

func (CoursePayload) Type() ContentType { return ContentCourse }
func (CoursePayload) Validate() error { return nil }
func (CoursePayload) BlockIDs() []string { return nil }

type GamePayload struct {
	URL string `json:"url"`
}

func (GamePayload) Type() ContentType { return ContentGame }

func (p GamePayload) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("%w: game has no url", ErrInvalidPayload)
	}
	return nil
}

func (GamePayload) BlockIDs() []string { return nil }

// DecodePayload decodes the JSON payload into the variant matching ContentType.
func (c *LearningContent) DecodePayload() (ContentPayload, error) {
	var p ContentPayload
	switch c.ContentType {
	case ContentStory:
		var v StoryPayload
		if err := decodeInto(c.Payload, &v); err != nil {
			return nil, err
		}
		p = v
	case ContentQuiz:
		var v QuizPayload
		if err := decodeInto(c.Payload, &v); err != nil {
			return nil, err
		}
		p = v
	case ContentLesson:
		var v LessonPayload
		if err := decodeInto(c.Payload, &v); err != nil {
			return nil, err
		}
		p = v
	case ContentCourse:
		var v CoursePayload
		if err := decodeInto(c.Payload, &v); err != nil {
			return nil, err
		}
		p = v
	case ContentGame:
		var v GamePayload
		if err := decodeInto(c.Payload, &v); err != nil {
			return nil, err
		}
		p = v
	default:
		return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidPayload, c.ContentType)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePayload validates p and stores it with its content type.
func (c *LearningContent) EncodePayload(p ContentPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	c.ContentType = p.Type()
	c.Payload = datatypes.JSON(raw)
	return nil
}

func decodeInto(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		raw = datatypes.JSON("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
