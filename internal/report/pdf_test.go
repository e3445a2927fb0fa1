package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/model"
)

func reportCtx(t *testing.T) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	return appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
}

func samplePaper(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Subject: "math",
			PaperID: "2024-1",
			Text:    "What is the derivative of x^2?",
			Options: []string{"2x", "x", "x^2/2", "2"},
			Answer:  0,
		}
	}
	return qs
}

func TestFilename(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Math", "math_mock_test_report.pdf"},
		{"Further Mathematics", "further_mathematics_mock_test_report.pdf"},
		{"  ", "paper_mock_test_report.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.subject); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestResultReport(t *testing.T) {
	ctx := reportCtx(t)
	e := NewExporter("PrepDeck", "", nil)
	e.compress = false

	questions := samplePaper(10)
	answers := make([]int, 10)
	for i := range answers {
		answers[i] = 0
	}
	answers[3] = model.AnswerSkipped
	answers[7] = model.AnswerSkipped

	result := model.QuizResult{
		Subject:   "math",
		PaperID:   "2024-1",
		Score:     8,
		Total:     10,
		Answers:   answers,
		Timestamp: 1700000000000,
		TimeSpent: 550,
	}

	var buf bytes.Buffer
	if err := e.ResultReport(ctx, &buf, result, questions, "Alice"); err != nil {
		t.Fatalf("ResultReport: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Errorf("output does not start with a PDF header")
	}
	if buf.Len() < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", buf.Len())
	}
	// Exactly the two unanswered questions show the literal skip marker.
	if got := strings.Count(buf.String(), "SKIP"); got != 2 {
		t.Errorf("SKIP markers = %d, want 2", got)
	}
}

func TestResultReportCountMismatch(t *testing.T) {
	ctx := reportCtx(t)
	e := NewExporter("PrepDeck", "", nil)

	result := model.QuizResult{Subject: "math", Total: 5, Answers: make([]int, 5)}
	var buf bytes.Buffer
	if err := e.ResultReport(ctx, &buf, result, samplePaper(3), "Alice"); err == nil {
		t.Fatal("expected error when question count does not match the result")
	}
}

func TestResultReportMultiPage(t *testing.T) {
	ctx := reportCtx(t)
	e := NewExporter("PrepDeck", "", nil)

	n := 60
	questions := samplePaper(n)
	answers := make([]int, n)
	result := model.QuizResult{
		Subject: "math",
		PaperID: "2024-1",
		Score:   n,
		Total:   n,
		Answers: answers,
	}

	var buf bytes.Buffer
	if err := e.ResultReport(ctx, &buf, result, questions, "Alice"); err != nil {
		t.Fatalf("ResultReport: %v", err)
	}
	// 60 rows cannot fit one A4 page; expect multiple page objects.
	if pages := strings.Count(buf.String(), "/Type /Page"); pages < 2 {
		t.Errorf("expected a multi-page document, found %d page markers", pages)
	}
}

func TestBlankPaper(t *testing.T) {
	ctx := reportCtx(t)
	e := NewExporter("PrepDeck", "", nil)

	var buf bytes.Buffer
	if err := e.BlankPaper(ctx, &buf, "math", "2024-1", samplePaper(5)); err != nil {
		t.Fatalf("BlankPaper: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Errorf("output does not start with a PDF header")
	}
}

func TestMissingLogoDegrades(t *testing.T) {
	ctx := reportCtx(t)
	// Nonexistent path must not break construction or rendering.
	e := NewExporter("PrepDeck", "/nonexistent/logo.png", nil)

	var buf bytes.Buffer
	result := model.QuizResult{Subject: "math", Total: 1, Answers: []int{0}, Score: 1}
	if err := e.ResultReport(ctx, &buf, result, samplePaper(1), "Alice"); err != nil {
		t.Fatalf("ResultReport without logo: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty output")
	}
}
