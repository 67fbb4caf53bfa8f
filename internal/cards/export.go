package cards

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cardgen/internal/models"
)

var csvHeader = []string{"Number", "Question", "Answer"}

// ErrInvalidExport is returned when an export document cannot be read back.
var ErrInvalidExport = errors.New("invalid export document")

type jsonDocument struct {
	Flashcards models.FlashcardSet `json:"flashcards"`
}

// NumberedCard is one CSV row after parsing.
type NumberedCard struct {
	Number int
	models.Flashcard
}

// ExportJSON encodes the set in canonical order as {"flashcards": [...]}.
func ExportJSON(set models.FlashcardSet) ([]byte, error) {
	doc := jsonDocument{Flashcards: set}
	if doc.Flashcards == nil {
		doc.Flashcards = models.FlashcardSet{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode flashcards json: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseJSON reads a document produced by ExportJSON. A bare array of cards is
// accepted too.
func ParseJSON(data []byte) (models.FlashcardSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var set models.FlashcardSet
		if err := json.Unmarshal(trimmed, &set); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
		}
		return set, nil
	}

	var doc jsonDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	return doc.Flashcards, nil
}

// ExportCSV writes a header row and one row per card numbered 1..N in
// canonical order. Display settings never affect the output.
func ExportCSV(set models.FlashcardSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, card := range set {
		if err := w.Write([]string{strconv.Itoa(i + 1), card.Question, card.Answer}); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCSV reads a document produced by ExportCSV and checks the numbering.
func ParseCSV(data []byte) ([]NumberedCard, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidExport, err)
	}
	if strings.Join(header, ",") != strings.Join(csvHeader, ",") {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrInvalidExport, header)
	}

	var out []NumberedCard
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
		}
		number, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad number %q", ErrInvalidExport, len(out)+1, record[0])
		}
		if number != len(out)+1 {
			return nil, fmt.Errorf("%w: row %d numbered %d", ErrInvalidExport, len(out)+1, number)
		}
		out = append(out, NumberedCard{
			Number:    number,
			Flashcard: models.Flashcard{Question: record[1], Answer: record[2]},
		})
	}
	return out, nil
}
