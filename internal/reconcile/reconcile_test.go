package reconcile

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

func span(text string, x, y, w, h float64) models.TextSpan {
	return models.TextSpan{Text: text, Box: models.BoundingBox{X: x, Y: y, Width: w, Height: h}}
}

// pageFromSpans builds a page whose Text is the span texts joined by
// newlines, matching extractor output.
func pageFromSpans(number int, spans ...models.TextSpan) models.Page {
	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	return models.Page{Number: number, Text: strings.Join(texts, "\n"), Spans: spans}
}

func testReconciler() *Reconciler {
	return NewReconciler(0, logger.NewNoOpLogger())
}

func TestReconcileExactMatchSingleSpan(t *testing.T) {
	page := pageFromSpans(1,
		span("The sample size was 12 participants,", 72, 700, 300, 12),
		span("which is far too small for inference.", 72, 686, 310, 12),
	)
	f := models.Finding{
		Quote:    "sample size was 12 participants",
		Severity: models.SeverityMajor,
		Comment:  "Increase the sample.",
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(res.Reports))
	}

	rep := res.Reports[0]
	if !rep.Matched || rep.PageNumber != 1 || rep.Similarity != 1 {
		t.Errorf("report = %+v, want matched on page 1 with similarity 1", rep)
	}
	if len(res.Marks) != 1 {
		t.Fatalf("got %d marks, want 1", len(res.Marks))
	}

	mark := res.Marks[0]
	if mark.PageNumber != 1 {
		t.Errorf("mark.PageNumber = %d, want 1", mark.PageNumber)
	}
	if mark.Box != page.Spans[0].Box {
		t.Errorf("mark.Box = %+v, want first span box %+v", mark.Box, page.Spans[0].Box)
	}
	if mark.Color != models.HighlightColor(models.SeverityMajor) {
		t.Errorf("mark.Color = %+v, want major highlight", mark.Color)
	}
	if mark.Note != "[MAJOR] Increase the sample." {
		t.Errorf("mark.Note = %q", mark.Note)
	}
}

func TestReconcileMatchAcrossSpans(t *testing.T) {
	page := pageFromSpans(1,
		span("The sample size was 12 participants,", 72, 700, 300, 12),
		span("which is far too small for inference.", 72, 686, 310, 12),
	)
	f := models.Finding{
		Quote:    "12 participants, which is far too small",
		Severity: models.SeverityCritical,
		Comment:  "Underpowered design.",
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Marks) != 2 {
		t.Fatalf("got %d marks, want 2 (one per overlapped span)", len(res.Marks))
	}

	first, second := res.Marks[0], res.Marks[1]
	if first.Box != page.Spans[0].Box || second.Box != page.Spans[1].Box {
		t.Errorf("mark boxes = %+v, %+v, want the two span boxes in order", first.Box, second.Box)
	}
	if first.Note == "" {
		t.Error("first mark of the group should carry the note")
	}
	if second.Note != "" {
		t.Errorf("second mark should carry no note, got %q", second.Note)
	}
	want := models.HighlightColor(models.SeverityCritical)
	if first.Color != want || second.Color != want {
		t.Error("both marks should use the critical highlight color")
	}
}

func TestReconcileToleratesWhitespaceAndCase(t *testing.T) {
	page := pageFromSpans(3,
		span("Results were statistically significant across conditions.", 72, 500, 400, 12),
	)
	f := models.Finding{
		Quote:    "results  were\nstatistically   SIGNIFICANT",
		Severity: models.SeverityMinor,
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	rep := res.Reports[0]
	if !rep.Matched || rep.PageNumber != 3 || rep.Similarity != 1 {
		t.Errorf("report = %+v, want exact match on page 3", rep)
	}
}

func TestReconcileFoldsTypographicPunctuation(t *testing.T) {
	page := pageFromSpans(2,
		span("Participants reported “significant improvement” after the intervention—despite attrition.", 72, 500, 450, 12),
	)
	f := models.Finding{
		Quote:    `reported "significant improvement" after the intervention`,
		Severity: models.SeverityMajor,
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rep := res.Reports[0]; !rep.Matched || rep.Similarity != 1 {
		t.Errorf("report = %+v, want exact match through punctuation folding", rep)
	}
}

func TestReconcileFuzzyMatchAboveThreshold(t *testing.T) {
	page := pageFromSpans(1,
		span("The control group received no intervention during the study period.", 72, 500, 420, 12),
	)
	f := models.Finding{
		Quote:    "control group recieved no intervention during the study",
		Severity: models.SeverityMajor,
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	rep := res.Reports[0]
	if !rep.Matched {
		t.Fatal("want fuzzy match for a near-identical quote")
	}
	if rep.Similarity < 0.8 || rep.Similarity >= 1 {
		t.Errorf("similarity = %v, want in [0.8, 1)", rep.Similarity)
	}
	if len(res.Marks) == 0 {
		t.Error("matched finding should produce marks")
	}
}

func TestReconcileNoMatchIsReportedNotFatal(t *testing.T) {
	page := pageFromSpans(1,
		span("The sample size was 12 participants in total.", 72, 700, 300, 12),
	)
	findings := []models.Finding{
		{Quote: "zzzz qqqq xxxx yyyy wwww", Severity: models.SeverityMajor},
		{Quote: "sample size was 12 participants", Severity: models.SeverityMajor},
	}

	res, err := testReconciler().Reconcile(context.Background(), findings, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(res.Reports))
	}
	if rep := res.Reports[0]; rep.Matched || rep.PageNumber != 0 {
		t.Errorf("unmatched report = %+v, want Matched=false with zero page", rep)
	}
	if rep := res.Reports[1]; !rep.Matched || rep.PageNumber != 1 {
		t.Errorf("matched report = %+v, want page 1", rep)
	}
	if got := res.MatchedCount(); got != 1 {
		t.Errorf("MatchedCount() = %d, want 1", got)
	}
	if len(res.Marks) != 1 {
		t.Errorf("got %d marks, want 1 from the matched finding only", len(res.Marks))
	}
}

func TestReconcilePageHint(t *testing.T) {
	sentence := "Attrition rates were not reported for either cohort."
	pages := []models.Page{
		pageFromSpans(1, span(sentence, 72, 700, 380, 12)),
		pageFromSpans(2, span("Chapter two reviews the literature.", 72, 700, 250, 12)),
		pageFromSpans(3, span("Chapter three describes the methods.", 72, 700, 260, 12)),
		pageFromSpans(4, span("Chapter four presents the results.", 72, 700, 240, 12)),
		pageFromSpans(5, span(sentence, 72, 300, 380, 12)),
	}

	t.Run("hint window searched first", func(t *testing.T) {
		f := models.Finding{Quote: sentence, Severity: models.SeverityMajor, PageHint: 5}
		res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, pages)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if rep := res.Reports[0]; rep.PageNumber != 5 {
			t.Errorf("matched page = %d, want 5 from the hint window", rep.PageNumber)
		}
	})

	t.Run("no hint prefers earliest page", func(t *testing.T) {
		f := models.Finding{Quote: sentence, Severity: models.SeverityMajor}
		res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, pages)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if rep := res.Reports[0]; rep.PageNumber != 1 {
			t.Errorf("matched page = %d, want earliest page 1", rep.PageNumber)
		}
	})

	t.Run("hint miss falls back to whole document", func(t *testing.T) {
		f := models.Finding{Quote: "chapter two reviews the literature", Severity: models.SeverityMinor, PageHint: 5}
		res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, pages)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if rep := res.Reports[0]; !rep.Matched || rep.PageNumber != 2 {
			t.Errorf("report = %+v, want fallback match on page 2", rep)
		}
	})
}

func TestReconcileSpanlessPageGetsFallbackMark(t *testing.T) {
	page := models.Page{Number: 2, Text: "The questionnaire omitted demographic items entirely."}
	f := models.Finding{
		Quote:    "questionnaire omitted demographic items",
		Severity: models.SeverityMinor,
		Comment:  "Add demographics.",
	}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Marks) != 1 {
		t.Fatalf("got %d marks, want 1 fallback mark", len(res.Marks))
	}

	mark := res.Marks[0]
	if mark.Box != fallbackBox {
		t.Errorf("mark.Box = %+v, want fallback geometry %+v", mark.Box, fallbackBox)
	}
	if mark.PageNumber != 2 || mark.Note == "" {
		t.Errorf("mark = %+v, want note on page 2", mark)
	}
}

func TestReconcileLongQuoteAnchorsOnHead(t *testing.T) {
	sentence := "This chapter has outlined the methodological approach adopted for the present study, " +
		"including the sampling strategy, the survey instruments, and the procedures used to collect and analyse the data."
	page := pageFromSpans(7, span(sentence, 72, 500, 460, 12))
	f := models.Finding{Quote: sentence, Severity: models.SeverityMinor}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rep := res.Reports[0]; !rep.Matched || rep.Similarity != 1 {
		t.Errorf("report = %+v, want exact match via truncated search key", rep)
	}
}

func TestReconcileEmptyQuoteUnmatched(t *testing.T) {
	page := pageFromSpans(1, span("Some ordinary page text here.", 72, 700, 200, 12))
	f := models.Finding{Quote: "   ", Severity: models.SeverityMajor}

	res, err := testReconciler().Reconcile(context.Background(), []models.Finding{f}, []models.Page{page})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rep := res.Reports[0]; rep.Matched {
		t.Errorf("report = %+v, want unmatched for blank quote", rep)
	}
	if len(res.Marks) != 0 {
		t.Errorf("got %d marks, want none", len(res.Marks))
	}
}

func TestReconcileEmptyFindings(t *testing.T) {
	res, err := testReconciler().Reconcile(context.Background(), nil, []models.Page{{Number: 1, Text: "text"}})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Marks) != 0 || len(res.Reports) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestReconcileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := pageFromSpans(1, span("Some page text for matching.", 72, 700, 200, 12))
	f := models.Finding{Quote: "some page text", Severity: models.SeverityMinor}

	_, err := testReconciler().Reconcile(ctx, []models.Finding{f}, []models.Page{page})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Reconcile() error = %v, want context.Canceled", err)
	}
}

func TestReconcileDeterministicAcrossRuns(t *testing.T) {
	pages := []models.Page{
		pageFromSpans(1,
			span("The sample size was 12 participants,", 72, 700, 300, 12),
			span("which is far too small for inference.", 72, 686, 310, 12),
		),
		pageFromSpans(2,
			span("Results were statistically significant (p < 0.05).", 72, 700, 350, 12),
		),
	}
	findings := []models.Finding{
		{Quote: "sample size was 12 participants", Severity: models.SeverityMajor, Comment: "Small sample."},
		{Quote: "statistically significant (p < 0.05)", Severity: models.SeverityMinor, PageHint: 2},
		{Quote: "zzzz qqqq xxxx yyyy wwww", Severity: models.SeverityCritical},
		{Quote: "12 participants, which is far too small", Severity: models.SeverityCritical, Comment: "Underpowered."},
	}

	r := testReconciler()
	first, err := r.Reconcile(context.Background(), findings, pages)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	for range 10 {
		again, err := r.Reconcile(context.Background(), findings, pages)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("results differ across runs with identical input")
		}
	}

	for i, rep := range first.Reports {
		if rep.Finding.Quote != findings[i].Quote {
			t.Errorf("Reports[%d] is for %q, want input order %q", i, rep.Finding.Quote, findings[i].Quote)
		}
	}
}
