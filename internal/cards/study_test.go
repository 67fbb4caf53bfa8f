package cards

import (
	"testing"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/internal/models"
)

func TestScheduleStartsAtFirstCard(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSchedule(3, now)
	assert.Equal(t, 3, s.Len())

	item, ok := s.Next(now)
	require.True(t, ok)
	assert.Equal(t, 0, item.Index)
	assert.Equal(t, 1, item.Number)
	assert.True(t, item.DueNow)
	assert.Equal(t, "new", item.State)
}

func TestScheduleReviewMovesCardBack(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSchedule(2, now)

	item, err := s.Review(0, fsrs.Good, now)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Reps)
	assert.True(t, item.Due.After(now))

	next, ok := s.Next(now)
	require.True(t, ok)
	assert.Equal(t, 1, next.Index)
}

func TestScheduleAgainSoonerThanEasy(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSchedule(2, now)

	again, err := s.Review(0, fsrs.Again, now)
	require.NoError(t, err)
	easy, err := s.Review(1, fsrs.Easy, now)
	require.NoError(t, err)

	assert.True(t, again.Due.Before(easy.Due))
	next, ok := s.Next(now)
	require.True(t, ok)
	assert.Equal(t, 0, next.Index)
}

func TestScheduleReviewOutOfRange(t *testing.T) {
	s := NewSchedule(1, time.Now())
	_, err := s.Review(1, fsrs.Good, time.Now())
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = s.Review(-1, fsrs.Good, time.Now())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestScheduleEmpty(t *testing.T) {
	_, ok := NewSchedule(0, time.Now()).Next(time.Now())
	assert.False(t, ok)
}

func TestParseRating(t *testing.T) {
	cases := map[string]fsrs.Rating{
		"again": fsrs.Again,
		"Hard":  fsrs.Hard,
		" good": fsrs.Good,
		"EASY":  fsrs.Easy,
	}
	for raw, want := range cases {
		got, err := ParseRating(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRating("meh")
	assert.ErrorIs(t, err, models.ErrValidation)
}
