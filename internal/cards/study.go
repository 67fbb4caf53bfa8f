package cards

import (
	"fmt"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"cardgen/internal/models"
)

// Schedule is an in-memory FSRS queue with one scheduling card per flashcard
// index of the loaded set. It is not safe for concurrent use.
type Schedule struct {
	params fsrs.Parameters
	cards  []fsrs.Card
}

// StudyItem describes the scheduling state of one flashcard.
type StudyItem struct {
	Index  int       `json:"-"`
	Number int       `json:"number"`
	Due    time.Time `json:"due"`
	DueNow bool      `json:"dueNow"`
	State  string    `json:"state"`
	Reps   int       `json:"reps"`
	Lapses int       `json:"lapses"`
}

// NewSchedule starts every card as new and due at now.
func NewSchedule(n int, now time.Time) *Schedule {
	cards := make([]fsrs.Card, n)
	for i := range cards {
		cards[i] = fsrs.Card{Due: now}
	}
	return &Schedule{params: fsrs.DefaultParam(), cards: cards}
}

func (s *Schedule) Len() int {
	return len(s.cards)
}

// Next returns the card with the earliest due time; ties go to the lower
// canonical index. ok is false only for an empty schedule.
func (s *Schedule) Next(now time.Time) (StudyItem, bool) {
	best := -1
	for i, card := range s.cards {
		if best == -1 || card.Due.Before(s.cards[best].Due) {
			best = i
		}
	}
	if best == -1 {
		return StudyItem{}, false
	}
	return s.item(best, now), true
}

// Review applies a rating to the card at index and returns its new state.
func (s *Schedule) Review(index int, rating fsrs.Rating, now time.Time) (StudyItem, error) {
	if index < 0 || index >= len(s.cards) {
		return StudyItem{}, fmt.Errorf("%w: card %d does not exist", models.ErrValidation, index+1)
	}
	scheduling := s.params.Repeat(s.cards[index], now)
	info, ok := scheduling[rating]
	if !ok {
		return StudyItem{}, fmt.Errorf("%w: rating %d not supported", models.ErrValidation, rating)
	}
	s.cards[index] = info.Card
	return s.item(index, now), nil
}

func (s *Schedule) item(index int, now time.Time) StudyItem {
	card := s.cards[index]
	return StudyItem{
		Index:  index,
		Number: index + 1,
		Due:    card.Due,
		DueNow: !card.Due.After(now),
		State:  stateName(card.State),
		Reps:   int(card.Reps),
		Lapses: int(card.Lapses),
	}
}

func stateName(state fsrs.State) string {
	switch state {
	case fsrs.New:
		return "new"
	case fsrs.Learning:
		return "learning"
	case fsrs.Review:
		return "review"
	case fsrs.Relearning:
		return "relearning"
	default:
		return "unknown"
	}
}

// ParseRating maps again/hard/good/easy onto FSRS ratings.
func ParseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("%w: unknown rating %q", models.ErrValidation, raw)
	}
}
