// Package report renders quiz results and blank papers into paginated PDF
// documents with a branding watermark pass.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/model"
)

const (
	pageMargin  = 12.0
	rowPadding  = 2.0
	lineHeight  = 5.0
	colIndex    = 10.0
	colQuestion = 92.0
	colAnswer   = 42.0
)

// Exporter renders PDF reports. The watermark logo is fetched once at
// construction; if the asset cannot be loaded the exporter still works and
// produces unwatermarked documents.
type Exporter struct {
	brand    string
	logo     []byte
	compress bool // tests disable stream compression to inspect page content
}

// NewExporter builds an exporter for the given brand name. logoRef is a
// file path or an http(s) URL to a PNG; an empty ref or a failed fetch
// degrades to unwatermarked output.
func NewExporter(brand, logoRef string, client *http.Client) *Exporter {
	e := &Exporter{brand: brand, compress: true}
	if logoRef == "" {
		return e
	}
	logo, err := loadAsset(logoRef, client)
	if err != nil {
		slog.Warn("watermark asset unavailable, reports will be unwatermarked",
			"ref", logoRef, "error", err)
		return e
	}
	e.logo = logo
	return e
}

func loadAsset(ref string, client *http.Client) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(ref)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch logo: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(ref)
}

// Filename returns the deterministic download name for a subject's report.
func Filename(subject string) string {
	slug := strings.ToLower(strings.TrimSpace(subject))
	slug = strings.ReplaceAll(slug, " ", "_")
	if slug == "" {
		slug = "paper"
	}
	return slug + "_mock_test_report.pdf"
}

// ResultReport renders a submitted result with its originating questions:
// one table row per question showing the question text, the chosen option
// (literal "SKIP" when unanswered) and the correct option.
func (e *Exporter) ResultReport(ctx context.Context, w io.Writer, result model.QuizResult, questions []model.Question, studentName string) error {
	if len(questions) != result.Total {
		return fmt.Errorf("result has %d answers but %d questions resolved", result.Total, len(questions))
	}

	pdf, tr := e.newDoc()
	pdf.AddPage()

	e.titleBlock(pdf, tr, appI18n.T(ctx, "report.title"), result.Subject, result.PaperID)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", appI18n.T(ctx, "report.student"), studentName)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %d / %d", appI18n.T(ctx, "report.score"), result.Score, result.Total)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", appI18n.T(ctx, "report.date"), result.Time().Format("Jan 2, 2006 15:04"))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %s", appI18n.T(ctx, "report.time_spent"), formatDuration(result.TimeSpent))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	e.tableHeader(pdf, tr, ctx, true)
	for i, q := range questions {
		chosen := "SKIP"
		if a := result.Answers[i]; a != model.AnswerSkipped && a >= 0 && a < len(q.Options) {
			chosen = q.Options[a]
		}
		correct := ""
		if q.Answer >= 0 && q.Answer < len(q.Options) {
			correct = q.Options[q.Answer]
		}
		e.tableRow(pdf, tr, ctx, i+1, q.Text, chosen, correct)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// BlankPaper renders the paper without any answers, for offline practice.
func (e *Exporter) BlankPaper(ctx context.Context, w io.Writer, subject, paperID string, questions []model.Question) error {
	pdf, tr := e.newDoc()
	pdf.AddPage()

	e.titleBlock(pdf, tr, appI18n.T(ctx, "report.blank_title"), subject, paperID)

	pdf.SetFont("Helvetica", "", 11)
	for i, q := range questions {
		e.ensureRoom(pdf, float64(2+len(q.Options))*lineHeight+6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%d. %s", i+1, q.Text)), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for j, opt := range q.Options {
			pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("   %c) %s", 'A'+j, opt)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render blank paper: %w", err)
	}
	return nil
}

// newDoc creates the document and registers the watermark pass. gofpdf
// applies page decorations through a per-page hook, so the hook is the
// uniform pass over every page.
func (e *Exporter) newDoc() (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetMargins(pageMargin, pageMargin+6, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+8)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	watermarked := len(e.logo) > 0
	if watermarked {
		pdf.RegisterImageOptionsReader("brand-logo",
			gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(e.logo))
	}

	pdf.SetHeaderFunc(func() {
		if !watermarked {
			return
		}
		pageW, pageH := pdf.GetPageSize()

		// Semi-transparent centered logo.
		pdf.SetAlpha(0.08, "Normal")
		logoW := pageW * 0.5
		pdf.ImageOptions("brand-logo", (pageW-logoW)/2, (pageH-logoW)/2, logoW, 0,
			false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

		// Diagonal brand text across the page.
		pdf.SetFont("Helvetica", "B", 48)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetAlpha(0.10, "Normal")
		pdf.TransformBegin()
		pdf.TransformRotate(45, pageW/2, pageH/2)
		pdf.Text(pageW/2-pdf.GetStringWidth(e.brand)/2, pageH/2, tr(e.brand))
		pdf.TransformEnd()

		// Small corner logo.
		pdf.SetAlpha(0.9, "Normal")
		pdf.ImageOptions("brand-logo", pageW-pageMargin-14, pageH-pageMargin-10, 12, 0,
			false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

		pdf.SetAlpha(1.0, "Normal")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s - %d", tr(e.brand), pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	return pdf, tr
}

func (e *Exporter) titleBlock(pdf *gofpdf.Fpdf, tr func(string) string, title, subject, paperID string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(e.brand), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s - %s (%s)", title, subject, paperID)), "", 1, "C", false, 0, "")
	pdf.Ln(2)
}

func (e *Exporter) tableHeader(pdf *gofpdf.Fpdf, tr func(string) string, ctx context.Context, withAnswers bool) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colIndex, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colQuestion, 7, tr(appI18n.T(ctx, "report.col_question")), "1", 0, "L", true, 0, "")
	if withAnswers {
		pdf.CellFormat(colAnswer, 7, tr(appI18n.T(ctx, "report.col_your_answer")), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colAnswer, 7, tr(appI18n.T(ctx, "report.col_correct")), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func (e *Exporter) tableRow(pdf *gofpdf.Fpdf, tr func(string) string, ctx context.Context, n int, question, chosen, correct string) {
	pdf.SetFont("Helvetica", "", 9)

	qLines := pdf.SplitText(tr(question), colQuestion-2*rowPadding)
	cLines := pdf.SplitText(tr(chosen), colAnswer-2*rowPadding)
	kLines := pdf.SplitText(tr(correct), colAnswer-2*rowPadding)
	lines := len(qLines)
	if len(cLines) > lines {
		lines = len(cLines)
	}
	if len(kLines) > lines {
		lines = len(kLines)
	}
	rowH := float64(lines)*lineHeight + 2*rowPadding

	if e.ensureRoom(pdf, rowH) {
		e.tableHeader(pdf, tr, ctx, true)
		pdf.SetFont("Helvetica", "", 9)
	}

	x, y := pdf.GetXY()
	pdf.Rect(x, y, colIndex, rowH, "D")
	pdf.Rect(x+colIndex, y, colQuestion, rowH, "D")
	pdf.Rect(x+colIndex+colQuestion, y, colAnswer, rowH, "D")
	pdf.Rect(x+colIndex+colQuestion+colAnswer, y, colAnswer, rowH, "D")

	pdf.SetXY(x, y+rowPadding)
	pdf.CellFormat(colIndex, lineHeight, fmt.Sprintf("%d", n), "", 0, "C", false, 0, "")
	writeLines(pdf, x+colIndex+rowPadding, y+rowPadding, qLines)
	writeLines(pdf, x+colIndex+colQuestion+rowPadding, y+rowPadding, cLines)
	writeLines(pdf, x+colIndex+colQuestion+colAnswer+rowPadding, y+rowPadding, kLines)

	pdf.SetXY(x, y+rowH)
}

func writeLines(pdf *gofpdf.Fpdf, x, y float64, lines []string) {
	for i, line := range lines {
		pdf.Text(x, y+float64(i+1)*lineHeight-1, line)
	}
}

// ensureRoom starts a new page when fewer than h millimeters remain.
// Reports whether a page break happened.
func (e *Exporter) ensureRoom(pdf *gofpdf.Fpdf, h float64) bool {
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+h > pageH-pageMargin-10 {
		pdf.AddPage()
		return true
	}
	return false
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	m := int(d.Minutes())
	s := seconds % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
