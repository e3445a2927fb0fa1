// Package prompts builds the system prompts used for paper generation and
// tutoring.
package prompts

import (
	"fmt"
	"strings"
)

// Variant selects how demanding generated papers should be.
type Variant string

const (
	// VariantEasy generates approachable warm-up papers.
	VariantEasy Variant = "easy"
	// VariantStandard is the default exam-level variant.
	VariantStandard Variant = "standard"
	// VariantHard generates papers above exam level.
	VariantHard Variant = "hard"
)

var validVariants = map[Variant]bool{
	VariantEasy:     true,
	VariantStandard: true,
	VariantHard:     true,
}

// IsValidVariant checks if a variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// Generation builds the system prompt for generating a mock-test paper.
func Generation(subject, topic string, count int, v Variant) string {
	var sb strings.Builder
	sb.WriteString("You are an exam author preparing a multiple-choice mock test.\n\n")
	sb.WriteString("SUBJECT: " + subject + "\n")
	if topic != "" {
		sb.WriteString("TOPIC: " + topic + "\n")
	}
	sb.WriteString(fmt.Sprintf("NUMBER OF QUESTIONS: %d\n\n", count))

	switch v {
	case VariantEasy:
		sb.WriteString("Target level: introductory. Favor recall and single-step reasoning.\n")
	case VariantHard:
		sb.WriteString("Target level: above exam standard. Favor multi-step reasoning and common traps.\n")
	default:
		sb.WriteString("Target level: real exam standard for this subject.\n")
	}

	sb.WriteString("\nRULES:\n")
	sb.WriteString("- Each question has exactly 4 options and exactly one correct option.\n")
	sb.WriteString("- Options must be plausible; no 'all of the above'.\n")
	sb.WriteString("- Use LaTeX inline (e.g. $x^2$) where mathematical notation is needed.\n")
	sb.WriteString("- Set 'topic' to a short label for the concept tested.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"questions": [{"question": "<text>", "options": ["<a>","<b>","<c>","<d>"], "answer": <0-3>, "topic": "<label>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// Tutor builds the system prompt for the tutoring chat.
func Tutor(subject string) string {
	var sb strings.Builder
	sb.WriteString("You are a patient exam-preparation tutor.\n")
	if subject != "" {
		sb.WriteString("The student is studying: " + subject + ".\n")
	}
	sb.WriteString("Explain step by step, keep answers short, and end with one check-understanding question.\n")
	return sb.String()
}
