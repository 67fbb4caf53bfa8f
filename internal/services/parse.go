package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"cardgen/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// extractJSON removes markdown code block formatting if present and trims the
// content to the outermost JSON object or array.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		start := 3
		// skip the language identifier line, e.g. ```json
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	content = strings.TrimSpace(content)

	startIdx := strings.IndexAny(content, "{[")
	if startIdx == -1 {
		return content
	}
	closer := "}"
	if content[startIdx] == '[' {
		closer = "]"
	}
	if endIdx := strings.LastIndex(content, closer); endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	return strings.TrimSpace(content)
}

// ParseFlashcards validates a model reply against the flashcard schema. The
// reply may be a bare array of entries or an object that holds the entries
// under "flashcards" or under its only array-valued field. Every entry must
// carry exactly a non-blank Question and Answer.
func ParseFlashcards(raw string) (models.FlashcardSet, error) {
	content := extractJSON(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty payload", models.ErrMalformedResponse)
	}

	var entries json.RawMessage
	switch content[0] {
	case '[':
		entries = json.RawMessage(content)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
		}
		found, err := collectionField(obj)
		if err != nil {
			return nil, err
		}
		entries = found
	default:
		return nil, fmt.Errorf("%w: payload is not a JSON object or array", models.ErrMalformedResponse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(entries, &items); err != nil {
		return nil, fmt.Errorf("%w: flashcards are not an array: %v", models.ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no flashcards in payload", models.ErrMalformedResponse)
	}

	set := make(models.FlashcardSet, 0, len(items))
	for i, item := range items {
		card, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", models.ErrMalformedResponse, i+1, err)
		}
		set = append(set, card)
	}
	return set, nil
}

func collectionField(obj map[string]json.RawMessage) (json.RawMessage, error) {
	for key, value := range obj {
		if strings.EqualFold(key, "flashcards") {
			return value, nil
		}
	}

	var arrays []json.RawMessage
	for _, value := range obj {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			arrays = append(arrays, trimmed)
		}
	}
	if len(arrays) != 1 {
		return nil, fmt.Errorf("%w: expected one flashcard collection, found %d", models.ErrMalformedResponse, len(arrays))
	}
	return arrays[0], nil
}

func decodeEntry(item json.RawMessage) (models.Flashcard, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Flashcard{}, errors.New("not an object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var card models.Flashcard
	if err := dec.Decode(&card); err != nil {
		return models.Flashcard{}, err
	}
	if err := validate.Struct(card); err != nil {
		return models.Flashcard{}, fmt.Errorf("missing or blank Question/Answer: %v", err)
	}
	return card, nil
}
