package model

import (
	"fmt"
	"time"
)

type ItemType string

const (
	Vocabulary ItemType = "vocabulary"
	Sentence   ItemType = "sentence"
)

func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case Vocabulary, Sentence:
		return ItemType(s), nil
	}

	return "", fmt.Errorf("unknown item type %q", s)
}

// State is the lifecycle stage of a review record.
type State string

const (
	StateNew      State = "new"
	StateLearning State = "learning"
	StateReview   State = "review"
	StateLapsed   State = "lapsed"
)

// Grade is the user's answer quality for a single review. It is the sole
// input driving a record transition and is never persisted on its own.
type Grade string

const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

func ParseGrade(s string) (Grade, error) {
	switch Grade(s) {
	case GradeAgain, GradeHard, GradeGood, GradeEasy:
		return Grade(s), nil
	}

	return "", fmt.Errorf("unknown grade %q", s)
}

// ReviewItem is a content unit owned by the catalog service. The scheduler
// never mutates it.
type ReviewItem struct {
	ID         int64
	Type       ItemType
	CategoryID int64
}

// ReviewRecord is the per (user, item) scheduling state. One record exists per
// pair once the item has been introduced; absence means "never seen".
type ReviewRecord struct {
	UserID          string
	ItemID          int64
	ItemType        ItemType
	State           State
	IntervalDays    float64
	EaseFactor      float64
	RepetitionCount int
	LapseCount      int
	DueAt           time.Time
	LastReviewedAt  *time.Time
	CreatedAt       time.Time
}

// ReviewSession is in-memory only; its effects live in the ReviewRecord
// updates committed while it ran.
type ReviewSession struct {
	ID                 string
	UserID             string
	Queue              []ReviewRecord
	NewItemsIntroduced int
	StartedAt          time.Time
}
