// Package srs implements the spaced-repetition scheduling algorithm (SM-2
// family). It is pure computation: no I/O, no clocks, no shared state. Callers
// pass the current record, the grade, and the current time, and persist the
// returned record themselves.
package srs

import (
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
)

// Params holds the tunables of the scheduler. They are passed explicitly into
// every call so the engine stays reentrant across users and trivially testable.
type Params struct {
	// EaseFloor is the minimum ease factor. 1.3 is the classic SM-2 floor.
	EaseFloor float64
	// EaseBonus is added to the ease factor on an "easy" grade.
	EaseBonus float64
	// EasePenalty is subtracted from the ease factor on a "hard" grade.
	EasePenalty float64
	// LapsePenalty is subtracted from the ease factor on an "again" grade.
	LapsePenalty float64
	// FirstIntervalDays and SecondIntervalDays are the fixed steps for the
	// first two successful repetitions. From the third on the interval grows
	// multiplicatively by the ease factor.
	FirstIntervalDays  float64
	SecondIntervalDays float64
	// MaxIntervalDays caps interval growth so repeated "easy" grades cannot
	// push an item years into the future.
	MaxIntervalDays float64
	// RelearnStep is how soon a lapsed item resurfaces.
	RelearnStep time.Duration
	// InitialEase is the ease factor assigned to brand-new records.
	InitialEase float64
}

func DefaultParams() Params {
	return Params{
		EaseFloor:          1.3,
		EaseBonus:          0.15,
		EasePenalty:        0.15,
		LapsePenalty:       0.2,
		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		MaxIntervalDays:    365,
		RelearnStep:        10 * time.Minute,
		InitialEase:        2.5,
	}
}

// NewRecord returns the default record for an item the user has never seen.
// It is due immediately so it can be graded within the session that admits it.
func NewRecord(userID string, item model.ReviewItem, now time.Time) model.ReviewRecord {
	return model.ReviewRecord{
		UserID:       userID,
		ItemID:       item.ID,
		ItemType:     item.Type,
		State:        model.StateNew,
		IntervalDays: 0,
		EaseFactor:   DefaultParams().InitialEase,
		DueAt:        now,
		CreatedAt:    now,
	}
}

// Schedule computes the next state of a record after a single graded review.
// It never mutates its input and is total over valid grades; grade validation
// belongs to the caller's boundary.
func (p Params) Schedule(rec model.ReviewRecord, grade model.Grade, now time.Time) model.ReviewRecord {
	next := rec

	// Tolerate corrupt storage rather than propagate it.
	if next.IntervalDays < 0 {
		next.IntervalDays = 0
	}
	if next.EaseFactor < p.EaseFloor {
		next.EaseFactor = p.EaseFloor
	}

	if grade == model.GradeAgain {
		next.State = model.StateLapsed
		next.LapseCount++
		next.RepetitionCount = 0
		next.EaseFactor = clampEase(next.EaseFactor-p.LapsePenalty, p.EaseFloor)
		next.IntervalDays = 0
		next.DueAt = now.Add(p.RelearnStep)
	} else {
		next.RepetitionCount++

		switch grade {
		case model.GradeHard:
			next.EaseFactor = clampEase(next.EaseFactor-p.EasePenalty, p.EaseFloor)
		case model.GradeEasy:
			next.EaseFactor = clampEase(next.EaseFactor+p.EaseBonus, p.EaseFloor)
		}

		switch {
		case next.RepetitionCount == 1:
			next.IntervalDays = p.FirstIntervalDays
		case next.RepetitionCount == 2:
			next.IntervalDays = p.SecondIntervalDays
		default:
			next.IntervalDays = next.IntervalDays * next.EaseFactor
		}

		if next.IntervalDays > p.MaxIntervalDays {
			next.IntervalDays = p.MaxIntervalDays
		}

		if next.RepetitionCount < 2 {
			next.State = model.StateLearning
		} else {
			next.State = model.StateReview
		}

		next.DueAt = now.Add(days(next.IntervalDays))
	}

	reviewedAt := now
	next.LastReviewedAt = &reviewedAt

	return next
}

func clampEase(ease, floor float64) float64 {
	if ease < floor {
		return floor
	}
	return ease
}

func days(d float64) time.Duration {
	return time.Duration(d * 24 * float64(time.Hour))
}
