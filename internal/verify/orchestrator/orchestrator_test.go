package orchestrator

import (
	"testing"

	"github.com/loanverify/docverify/internal/config"
	"github.com/loanverify/docverify/internal/verify/model"
)

func TestOverlaps(t *testing.T) {
	a := model.Box{X: 100, Y: 100}
	near := model.Box{X: 130, Y: 120}
	far := model.Box{X: 300, Y: 100}
	if !overlaps(a, near, 50, 30) {
		t.Errorf("expected boxes within the overlap window to overlap")
	}
	if overlaps(a, far, 50, 30) {
		t.Errorf("expected boxes far outside the overlap window not to overlap")
	}
}

func TestMergeEnhancedPrefersHigherConfidenceOnOverlap(t *testing.T) {
	existing := []model.Box{{Text: "R9O640.57", X: 100, Y: 100, Confidence: 0.4}}
	fresh := []model.Box{{Text: "R90640.57", X: 105, Y: 102, Confidence: 0.9}}
	out := mergeEnhanced(existing, fresh)
	if len(out) != 1 {
		t.Fatalf("expected overlapping boxes to merge into 1, got %d", len(out))
	}
	if out[0].Text != "R90640.57" {
		t.Errorf("expected the higher-confidence reading to win, got %q", out[0].Text)
	}
}

func TestMergeEnhancedKeepsLowerConfidenceWhenFreshIsWorse(t *testing.T) {
	existing := []model.Box{{Text: "R90640.57", X: 100, Y: 100, Confidence: 0.9}}
	fresh := []model.Box{{Text: "garbage", X: 105, Y: 102, Confidence: 0.2}}
	out := mergeEnhanced(existing, fresh)
	if len(out) != 1 || out[0].Text != "R90640.57" {
		t.Errorf("expected the existing higher-confidence box to survive, got %+v", out)
	}
}

func TestMergeEnhancedAddsNonOverlappingBoxes(t *testing.T) {
	existing := []model.Box{{Text: "A", X: 0, Y: 0, Confidence: 0.5}}
	fresh := []model.Box{{Text: "B", X: 500, Y: 500, Confidence: 0.5}}
	out := mergeEnhanced(existing, fresh)
	if len(out) != 2 {
		t.Errorf("expected 2 distinct boxes, got %d", len(out))
	}
}

func TestNeedsEnhancement(t *testing.T) {
	cfg := config.Config{EnhancementConfidence: 0.75}
	lowConf := model.PageContent{Boxes: []model.Box{{Confidence: 0.3}}}
	highConf := model.PageContent{Boxes: []model.Box{{Confidence: 0.95}}}
	if !needsEnhancement(lowConf, cfg) {
		t.Errorf("expected low median confidence to trigger enhancement")
	}
	if needsEnhancement(highConf, cfg) {
		t.Errorf("expected high median confidence not to trigger enhancement")
	}
}

func TestFieldStatus(t *testing.T) {
	cases := []struct {
		name string
		r    model.FieldResult
		want string
	}{
		{"not found", model.FieldResult{Found: nil}, "not_found"},
		{"matched", model.FieldResult{Found: "x", Valid: true}, "matched"},
		{"mismatch", model.FieldResult{Found: "x", Valid: false}, "mismatch"},
	}
	for _, c := range cases {
		if got := fieldStatus(c.r); got != c.want {
			t.Errorf("%s: fieldStatus() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestZoneStatus(t *testing.T) {
	if got := zoneStatus(model.ZoneReport{Marked: true}); got != "marked" {
		t.Errorf("zoneStatus(marked) = %q", got)
	}
	if got := zoneStatus(model.ZoneReport{Marked: false}); got != "unmarked" {
		t.Errorf("zoneStatus(unmarked) = %q", got)
	}
}

func TestOverallConfidenceAveragesFieldsAndZones(t *testing.T) {
	fields := map[string]model.FieldResult{
		"a": {Confidence: 1.0},
		"b": {Confidence: 0.5},
	}
	zones := []model.ZoneReport{{Confidence: 0.5}}
	got := overallConfidence(fields, zones)
	want := (1.0 + 0.5 + 0.5) / 3
	if got != want {
		t.Errorf("overallConfidence() = %v, want %v", got, want)
	}
}

func TestOverallConfidenceEmptyIsZero(t *testing.T) {
	if got := overallConfidence(nil, nil); got != 0 {
		t.Errorf("expected 0 for no fields/zones, got %v", got)
	}
}

func TestAssembleReportAllValidIsOverallValid(t *testing.T) {
	// Invariant 6 (spec.md §8): born-digital, all fields matching exactly
	// => overallConfidence == 1.0 and status == VALID.
	fields := []model.FieldSpec{{Name: "loanAmount", Required: true}}
	fieldResults := map[string]model.FieldResult{
		"loanAmount": {Name: "loanAmount", Found: 90640.57, Valid: true, Confidence: 1.0},
	}
	report := assembleReport(fields, fieldResults, nil, nil)
	if report.Status != model.StatusValid {
		t.Errorf("Status = %v, want %v", report.Status, model.StatusValid)
	}
	if report.OverallConfidence != 1.0 {
		t.Errorf("OverallConfidence = %v, want 1.0", report.OverallConfidence)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected no issues, got %v", report.Issues)
	}
}

func TestAssembleReportMissingRequiredFieldIsInvalid(t *testing.T) {
	fields := []model.FieldSpec{{Name: "loanAmount", Required: true}}
	fieldResults := map[string]model.FieldResult{
		"loanAmount": {Name: "loanAmount", Expected: 90640.57, Found: nil, Valid: false},
	}
	report := assembleReport(fields, fieldResults, nil, nil)
	if report.Status != model.StatusInvalid {
		t.Errorf("Status = %v, want %v", report.Status, model.StatusInvalid)
	}
	if len(report.Issues) != 1 || report.Issues[0] != "field_not_found:loanAmount" {
		t.Errorf("expected a field_not_found issue, got %v", report.Issues)
	}
}

func TestAssembleReportMissingSignatureIsInvalid(t *testing.T) {
	zones := []model.ZoneReport{{Zone: "clientSignature_page5", Marked: false}}
	report := assembleReport(nil, map[string]model.FieldResult{}, zones, nil)
	if report.Status != model.StatusInvalid {
		t.Errorf("Status = %v, want %v", report.Status, model.StatusInvalid)
	}
	found := false
	for _, iss := range report.Issues {
		if iss == "signature_missing:clientSignature_page5" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a signature_missing issue, got %v", report.Issues)
	}
}

func TestLocateAcrossPagesReturnsFirstValidMatch(t *testing.T) {
	pages := []model.PageContent{
		{PageW: 612, PageH: 792, IsDigital: true},
		{
			PageW: 612, PageH: 792, IsDigital: true,
			Boxes: []model.Box{
				{Text: "Loan Amount", X: 50, Y: 100, W: 80, H: 12, Source: model.SourceDigital, Confidence: 1.0},
				{Text: "R90640.57", X: 140, Y: 100, W: 60, H: 12, Source: model.SourceDigital, Confidence: 1.0},
			},
		},
	}
	spec := model.FieldSpec{Name: "loanAmount", Labels: []string{"Loan Amount"}, Type: model.TypeCurrency}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"loanAmount": 90640.57}}

	result := locateAcrossPages(spec, pages, caseModel)
	if !result.Valid {
		t.Errorf("expected a valid match found on the second page, got %+v", result)
	}
}

func TestErrorReportCarriesMessage(t *testing.T) {
	report := errorReport(errTest{"boom"})
	if report.Status != model.StatusError {
		t.Errorf("Status = %v, want %v", report.Status, model.StatusError)
	}
	if len(report.Issues) != 1 || report.Issues[0] != "boom" {
		t.Errorf("Issues = %v, want [boom]", report.Issues)
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
