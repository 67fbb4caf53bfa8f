package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashcardRequestValidate(t *testing.T) {
	valid := FlashcardRequest{
		RawText:      "Photosynthesis converts light into chemical energy.",
		CardCount:    10,
		AnswerLength: AnswerMedium,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *FlashcardRequest)
	}{
		{"empty text", func(r *FlashcardRequest) { r.RawText = "" }},
		{"whitespace text", func(r *FlashcardRequest) { r.RawText = " \n\t " }},
		{"count below range", func(r *FlashcardRequest) { r.CardCount = 9 }},
		{"count above range", func(r *FlashcardRequest) { r.CardCount = 21 }},
		{"unknown band", func(r *FlashcardRequest) { r.AnswerLength = "huge" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	edge := valid
	edge.CardCount = MaxCardCount
	assert.NoError(t, edge.Validate())
}

func TestParseAnswerLength(t *testing.T) {
	band, err := ParseAnswerLength(" Long ")
	require.NoError(t, err)
	assert.Equal(t, AnswerLong, band)
	assert.Equal(t, "100-150 words", band.Label())
	assert.Equal(t, "50-100 words", AnswerMedium.Label())
	assert.Equal(t, "20-50 words", AnswerShort.Label())

	_, err = ParseAnswerLength("epic")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFlashcardSetClone(t *testing.T) {
	set := FlashcardSet{{Question: "Q1", Answer: "A1"}}
	clone := set.Clone()
	clone[0].Question = "changed"
	assert.Equal(t, "Q1", set[0].Question)
	assert.Nil(t, FlashcardSet(nil).Clone())
}

func TestParseActionKind(t *testing.T) {
	kind, err := ParseActionKind("TOGGLE_REVERSE")
	require.NoError(t, err)
	assert.Equal(t, ActionToggleReverse, kind)

	_, err = ParseActionKind("shuffle")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryTransport, CategoryOf(ErrTransport))
	assert.Equal(t, CategoryMalformedResponse, CategoryOf(ErrMalformedResponse))
	assert.Equal(t, CategoryValidation, CategoryOf(ErrValidation))
	assert.Equal(t, CategoryConfiguration, CategoryOf(ErrConfiguration))
	assert.Equal(t, CategoryInternal, CategoryOf(assert.AnError))
}
