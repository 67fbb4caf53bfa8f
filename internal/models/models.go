package models

import (
	"fmt"
	"strings"
)

const (
	MinCardCount     = 10
	MaxCardCount     = 20
	DefaultCardCount = 10
)

// AnswerLength is the target length band for generated answers.
type AnswerLength string

const (
	AnswerShort  AnswerLength = "short"
	AnswerMedium AnswerLength = "medium"
	AnswerLong   AnswerLength = "long"
)

// DefaultAnswerLength is used when a request omits the band.
const DefaultAnswerLength = AnswerMedium

var answerLengthLabels = map[AnswerLength]string{
	AnswerShort:  "20-50 words",
	AnswerMedium: "50-100 words",
	AnswerLong:   "100-150 words",
}

// ParseAnswerLength accepts "short", "medium" or "long" in any case.
func ParseAnswerLength(raw string) (AnswerLength, error) {
	band := AnswerLength(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := answerLengthLabels[band]; !ok {
		return "", fmt.Errorf("%w: unknown answer length %q", ErrValidation, raw)
	}
	return band, nil
}

// Label returns the word range communicated to the model, e.g. "50-100 words".
func (a AnswerLength) Label() string {
	return answerLengthLabels[a]
}

func (a AnswerLength) Valid() bool {
	_, ok := answerLengthLabels[a]
	return ok
}

// FlashcardRequest is one stateless generation request.
type FlashcardRequest struct {
	RawText      string
	CardCount    int
	AnswerLength AnswerLength
}

// Validate rejects requests that must never reach the generation service.
func (r FlashcardRequest) Validate() error {
	if strings.TrimSpace(r.RawText) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	if r.CardCount < MinCardCount || r.CardCount > MaxCardCount {
		return fmt.Errorf("%w: card count must be between %d and %d, got %d",
			ErrValidation, MinCardCount, MaxCardCount, r.CardCount)
	}
	if !r.AnswerLength.Valid() {
		return fmt.Errorf("%w: unknown answer length %q", ErrValidation, r.AnswerLength)
	}
	return nil
}

// Flashcard is a single question/answer study unit.
type Flashcard struct {
	Question string `json:"Question" validate:"required,notblank"`
	Answer   string `json:"Answer" validate:"required,notblank"`
}

// FlashcardSet is ordered in canonical order: the order the service returned.
type FlashcardSet []Flashcard

// Clone returns an independent copy so callers cannot reach the stored slice.
func (s FlashcardSet) Clone() FlashcardSet {
	if s == nil {
		return nil
	}
	out := make(FlashcardSet, len(s))
	copy(out, s)
	return out
}

// DisplaySettings is ephemeral view state, reset whenever a new set is loaded.
type DisplaySettings struct {
	ShowAllExpanded bool `json:"showAllExpanded"`
	Reversed        bool `json:"reversed"`
}

// ProjectedCard is one entry of a display projection. Number is always the
// card's 1-based position in canonical order.
type ProjectedCard struct {
	Number   int    `json:"number"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Expanded bool   `json:"expanded"`
}

// ActionKind names a display-settings transition.
type ActionKind string

const (
	ActionToggleShowAll ActionKind = "toggle_show_all"
	ActionToggleReverse ActionKind = "toggle_reverse"
	ActionSetShowAll    ActionKind = "set_show_all"
	ActionSetReversed   ActionKind = "set_reversed"
	ActionReset         ActionKind = "reset"
)

// Action is an input to the settings reducer. Value is only read by the Set* kinds.
type Action struct {
	Kind  ActionKind
	Value bool
}

// ParseActionKind validates a client-supplied action name.
func ParseActionKind(raw string) (ActionKind, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case ActionToggleShowAll, ActionToggleReverse, ActionSetShowAll, ActionSetReversed, ActionReset:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrValidation, raw)
	}
}
