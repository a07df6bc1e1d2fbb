package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf/v2"
)

// Settings records how the Goblin King was configured for a run.
type Settings struct {
	Engine        string `json:"engine"`
	Model         string `json:"model"`
	RuleInjection string `json:"rule_injection"`
	SceneIndex    int    `json:"scene_index"`
	ConcatPolicy  string `json:"concat_policy"`
	MaxTurns      int    `json:"max_turns"`
	Summarization bool   `json:"summarization"`
	SummPeriod    int    `json:"summ_period"`
	ClearRawLogs  bool   `json:"clear_raw_logs"`
}

// Report is the result of one evaluation run.
type Report struct {
	ID        uuid.UUID `json:"id"`
	EvalName  string    `json:"eval_name"`
	Settings  Settings  `json:"settings"`
	Scores    []Score   `json:"scores"`
	Mean      float64   `json:"mean"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReport(evalName string, settings Settings, scores []Score, now time.Time) *Report {
	r := &Report{
		ID:        uuid.New(),
		EvalName:  evalName,
		Settings:  settings,
		Scores:    scores,
		CreatedAt: now,
	}
	r.Mean = Mean(scores)
	return r
}

// Mean averages the scores; errored items count as zero.
func Mean(scores []Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report json: %w", err)
	}
	return nil
}

// WritePDF renders the report as a printable score sheet.
func (r *Report) WritePDF(w io.Writer) error {
	const (
		margin = 40.0
		lineH  = 14.0
	)
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	textW := pageW - 2*margin
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(latin1(s)) }

	pdf.SetTextColor(80, 50, 30)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(textW, 24, fmt.Sprintf("Goblin King evaluation: %s", r.EvalName), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	s := r.Settings
	for _, line := range []string{
		fmt.Sprintf("Run %s, %s", r.ID, r.CreatedAt.Format(time.RFC1123)),
		fmt.Sprintf("Engine: %s  Model: %s  Rule injection: %s", s.Engine, s.Model, orNone(s.RuleInjection)),
		fmt.Sprintf("Concat policy: %s  Max turns: %d  Summarization: %t (period %d, clear raw logs %t)",
			s.ConcatPolicy, s.MaxTurns, s.Summarization, s.SummPeriod, s.ClearRawLogs),
	} {
		pdf.CellFormat(textW, lineH, line, "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(textW, 18, fmt.Sprintf("Mean score: %.3f over %d items", r.Mean, len(r.Scores)), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(80, 50, 30)
	pdf.Line(margin, pdf.GetY()+2, pageW-margin, pdf.GetY()+2)
	pdf.Ln(8)

	for _, sc := range r.Scores {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(textW, lineH, text(fmt.Sprintf("%s  [%.1f] %s", sc.Item, sc.Score, sc.Description)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		if sc.Prompt != "" {
			pdf.MultiCell(textW, 12, text("Q: "+sc.Prompt), "", "L", false)
		}
		if sc.Response != "" {
			pdf.MultiCell(textW, 12, text("A: "+sc.Response), "", "L", false)
		}
		if sc.Error != "" {
			pdf.SetTextColor(180, 40, 40)
			pdf.MultiCell(textW, 12, text("Error: "+sc.Error), "", "L", false)
			pdf.SetTextColor(80, 50, 30)
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report pdf: %w", err)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// latin1 replaces runes outside the core PDF fonts' code page.
func latin1(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r == '‘' || r == '’':
			out[i] = '\''
		case r == '“' || r == '”':
			out[i] = '"'
		case r == '–' || r == '—':
			out[i] = '-'
		case r > 0xff:
			out[i] = '?'
		}
	}
	return string(out)
}
