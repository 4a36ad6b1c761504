package testutil

import (
	"fmt"
	"testing"
	"time"

	"kidquest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Epoch is the fixed start of fixture timestamps.
var Epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

var stamp = NewClock(Epoch)

// nextStamp hands out strictly increasing creation times so fixture order is stable.
func nextStamp() time.Time {
	return stamp.Advance(time.Second)
}

func SeedUser(tb testing.TB, db *gorm.DB, username string, role model.UserRole) *model.User {
	tb.Helper()
	now := nextStamp()
	u := &model.User{
		Username:    username,
		DisplayName: username,
		Role:        role,
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedParent(tb testing.TB, db *gorm.DB, username string) *model.User {
	tb.Helper()
	return SeedUser(tb, db, username, model.Parent)
}

// SeedChild creates a child and links it to the given parents.
func SeedChild(tb testing.TB, db *gorm.DB, username string, parents ...*model.User) *model.User {
	tb.Helper()
	child := SeedUser(tb, db, username, model.Child)
	for _, p := range parents {
		SeedLink(tb, db, p, child)
	}
	return child
}

func SeedLink(tb testing.TB, db *gorm.DB, parent, child *model.User) {
	tb.Helper()
	link := &model.ParentChildLink{ParentID: parent.ID, ChildID: child.ID}
	if err := db.Create(link).Error; err != nil {
		tb.Fatalf("seed link: %v", err)
	}
}

// SetPoints overwrites a user's balance.
func SetPoints(tb testing.TB, db *gorm.DB, user *model.User, points int) {
	tb.Helper()
	if err := db.Model(&model.User{}).Where("id = ?", user.ID).Update("points", points).Error; err != nil {
		tb.Fatalf("set points: %v", err)
	}
	user.Points = points
}

// ContentOption adjusts a content fixture before insert.
type ContentOption func(c *model.LearningContent)

// InCourse places the item in course at the given position.
func InCourse(course *model.LearningContent, order int) ContentOption {
	return func(c *model.LearningContent) {
		id := course.ID
		c.CourseID = &id
		c.OrderInCourse = order
	}
}

func SeedContent(tb testing.TB, db *gorm.DB, title, subject string, payload model.ContentPayload, opts ...ContentOption) *model.LearningContent {
	tb.Helper()
	now := nextStamp()
	c := &model.LearningContent{Title: title, Subject: subject}
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := c.EncodePayload(payload); err != nil {
		tb.Fatalf("encode payload: %v", err)
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return c
}

func SeedStory(tb testing.TB, db *gorm.DB, title, subject string, pages int, opts ...ContentOption) *model.LearningContent {
	tb.Helper()
	p := model.StoryPayload{}
	for i := 1; i <= pages; i++ {
		p.Pages = append(p.Pages, model.StoryPage{Text: fmt.Sprintf("%s page %d", title, i)})
	}
	return SeedContent(tb, db, title, subject, p, opts...)
}

// SeedQuiz creates a quiz whose correct answer is always option 0.
func SeedQuiz(tb testing.TB, db *gorm.DB, title, subject string, questions int, opts ...ContentOption) *model.LearningContent {
	tb.Helper()
	p := model.QuizPayload{}
	for i := 1; i <= questions; i++ {
		p.Questions = append(p.Questions, model.QuizQuestion{
			Prompt:       fmt.Sprintf("question %d", i),
			Options:      []string{"right", "wrong"},
			CorrectIndex: 0,
		})
	}
	return SeedContent(tb, db, title, subject, p, opts...)
}

func SeedLesson(tb testing.TB, db *gorm.DB, title, subject string, blockIDs []string, opts ...ContentOption) *model.LearningContent {
	tb.Helper()
	section := model.LessonSection{Title: title}
	for _, id := range blockIDs {
		section.Blocks = append(section.Blocks, model.LessonBlock{ID: id, Kind: "text"})
	}
	return SeedContent(tb, db, title, subject, model.LessonPayload{Sections: []model.LessonSection{section}}, opts...)
}

func SeedGame(tb testing.TB, db *gorm.DB, title, subject string, opts ...ContentOption) *model.LearningContent {
	tb.Helper()
	return SeedContent(tb, db, title, subject, model.GamePayload{URL: "https://games.example/" + title}, opts...)
}

func SeedCourse(tb testing.TB, db *gorm.DB, title, subject string) *model.LearningContent {
	tb.Helper()
	return SeedContent(tb, db, title, subject, model.CoursePayload{Description: title})
}

// SeedProgress writes a ledger row directly.
func SeedProgress(tb testing.TB, db *gorm.DB, user *model.User, content *model.LearningContent, status model.ProgressStatus, score *int, at time.Time) *model.UserLearningProgress {
	tb.Helper()
	p := &model.UserLearningProgress{
		UserID:       user.ID,
		ContentID:    content.ID,
		Status:       status,
		Score:        score,
		StartedAt:    at,
		LastAccessed: at,
	}
	if status.Terminal() {
		completedAt := at
		p.CompletedAt = &completedAt
	}
	if err := db.Omit(clause.Associations).Create(p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

func IntPtr(v int) *int { return &v }
