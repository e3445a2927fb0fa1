package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "report.title")
	if got != "Mock Test Report" {
		t.Errorf("T(report.title) = %q, want 'Mock Test Report'", got)
	}

	got = T(ctx, "report.col_your_answer")
	if got != "Your answer" {
		t.Errorf("T(report.col_your_answer) = %q, want 'Your answer'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "report.col_question")
	if got != "Вопрос" {
		t.Errorf("T(report.col_question) = %q, want 'Вопрос'", got)
	}
}

func TestTemplateTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ResultSaved", map[string]any{"Score": 7, "Total": 10})
	if got != "Your result has been saved: 7/10." {
		t.Errorf("Td(ResultSaved) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsInPaper", 1)
	if got1 != "1 question in this paper." {
		t.Errorf("Tp(QuestionsInPaper, 1) = %q", got1)
	}

	got5 := Tp(ctx, "QuestionsInPaper", 5)
	if got5 != "5 questions in this paper." {
		t.Errorf("Tp(QuestionsInPaper, 5) = %q", got5)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want fallback to key", got)
	}
}
