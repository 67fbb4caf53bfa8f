package services

import (
	"fmt"
	"strings"

	"cardgen/internal/models"
)

const systemPersona = "You are an expert educator who turns study material into question and answer flashcards for active recall."

// BuildSystemPrompt renders the system instruction for one request.
func BuildSystemPrompt(count int, band models.AnswerLength) string {
	var builder strings.Builder
	builder.WriteString(systemPersona)
	builder.WriteString("\n\n")
	builder.WriteString(fmt.Sprintf("Create at least %d flashcards from the text the user provides.\n", count))
	builder.WriteString(fmt.Sprintf("Each answer must be %s long.\n", band.Label()))
	builder.WriteString("Cover the most important facts and concepts, one idea per card, and keep questions unambiguous.\n")
	builder.WriteString(`Respond with a JSON object only, exactly in this shape: {"flashcards":[{"Question":"...","Answer":"..."}]}.`)
	builder.WriteString("\nDo not add other keys, Markdown fences or commentary.")
	return builder.String()
}
