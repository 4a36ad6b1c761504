package model

import "time"

// BadgeMetric names the ledger aggregate a badge threshold is compared against.
type BadgeMetric string

const (
	MetricStoriesCompleted BadgeMetric = "stories_completed"
	MetricQuizzesPassed    BadgeMetric = "quizzes_passed"
	MetricLessonsCompleted BadgeMetric = "lessons_completed"
	MetricGamesCompleted   BadgeMetric = "games_completed"
)

type Badge struct {
	BaseModel
	Name        string      `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string      `gorm:"size:255" json:"description"`
	Icon        string      `gorm:"size:255" json:"icon"`
	Criteria    string      `gorm:"size:255" json:"criteria"`
	Metric      BadgeMetric `gorm:"size:32;not null" json:"metric"`
	Threshold   int         `gorm:"not null" json:"threshold"`
}

func (Badge) TableName() string {
	return "badges"
}

type UserBadge struct {
	BaseModel
	UserID   uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"userId"`
	BadgeID  uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

// DefaultBadges is the seeded catalog.
func DefaultBadges() []Badge {
	return []Badge{
		{Name: "Story Novice", Description: "Finished your very first story", Icon: "badges/story-novice.svg", Criteria: "Complete 1 story", Metric: MetricStoriesCompleted, Threshold: 1},
		{Name: "Lesson Starter", Description: "Worked all the way through a lesson", Icon: "badges/lesson-starter.svg", Criteria: "Complete 1 lesson", Metric: MetricLessonsCompleted, Threshold: 1},
		{Name: "Game On", Description: "Finished a learning game", Icon: "badges/game-on.svg", Criteria: "Complete 1 game", Metric: MetricGamesCompleted, Threshold: 1},
		{Name: "Puzzle Pro", Description: "Passed three quizzes", Icon: "badges/puzzle-pro.svg", Criteria: "Pass 3 quizzes", Metric: MetricQuizzesPassed, Threshold: 3},
		{Name: "Story Explorer", Description: "Five stories read to the end", Icon: "badges/story-explorer.svg", Criteria: "Complete 5 stories", Metric: MetricStoriesCompleted, Threshold: 5},
		{Name: "Lesson Climber", Description: "Five lessons completed", Icon: "badges/lesson-climber.svg", Criteria: "Complete 5 lessons", Metric: MetricLessonsCompleted, Threshold: 5},
		{Name: "Quiz Master", Description: "Passed ten quizzes", Icon: "badges/quiz-master.svg", Criteria: "Pass 10 quizzes", Metric: MetricQuizzesPassed, Threshold: 10},
		{Name: "Bookworm", Description: "Twenty stories completed", Icon: "badges/bookworm.svg", Criteria: "Complete 20 stories", Metric: MetricStoriesCompleted, Threshold: 20},
	}
}
