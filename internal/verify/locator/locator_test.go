package locator

import (
	"testing"

	"github.com/loanverify/docverify/internal/verify/model"
)

func digitalBox(text string, x, y, w, h float64) model.Box {
	return model.Box{Text: text, X: x, Y: y, W: w, H: h, PageW: 612, PageH: 792, Source: model.SourceDigital, Confidence: 1.0}
}

func TestLocateDirectMatchFirst(t *testing.T) {
	// Two currency-looking numbers sit near the label; only the one matching
	// the case model's expected value should be picked, never the nearer
	// wrong one — "direct-value match first" (spec.md §9).
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{
			digitalBox("Loan Amount", 50, 100, 80, 12),
			digitalBox("R12345.00", 140, 100, 60, 12),
			digitalBox("R90640.57", 140, 120, 60, 12),
		},
	}
	spec := model.FieldSpec{Name: "loanAmount", Labels: []string{"Loan Amount"}, Type: model.TypeCurrency}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"loanAmount": 90640.57}}

	result := Locate(spec, page, caseModel, nil)
	if !result.Valid {
		t.Fatalf("expected a valid match, got %+v", result)
	}
	found, ok := result.Found.(float64)
	if !ok || found != 90640.57 {
		t.Errorf("expected the field to land on 90640.57, got %v", result.Found)
	}
}

func TestLocateFieldNotFoundWhenNoLabelPresent(t *testing.T) {
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{digitalBox("Unrelated text", 50, 100, 80, 12)},
	}
	spec := model.FieldSpec{Name: "loanAmount", Labels: []string{"Loan Amount"}, Type: model.TypeCurrency, Required: true}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"loanAmount": 90640.57}}

	result := Locate(spec, page, caseModel, nil)
	if result.Valid {
		t.Errorf("expected no match without a label present, got %+v", result)
	}
}

func TestLocateIsDeterministic(t *testing.T) {
	// Invariant 5 (spec.md §8): same PageContent + same FieldSpec => same
	// FieldResult, regardless of how many times it's run.
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{
			digitalBox("Interest Rate", 50, 100, 80, 12),
			digitalBox("29.25%", 140, 100, 50, 12),
		},
	}
	spec := model.FieldSpec{Name: "interestRate", Labels: []string{"Interest Rate"}, Type: model.TypePercentage}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"interestRate": 29.25}}

	first := Locate(spec, page, caseModel, nil)
	for i := 0; i < 5; i++ {
		again := Locate(spec, page, caseModel, nil)
		if again.Valid != first.Valid || again.Found != first.Found || again.Confidence != first.Confidence {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestLocateMultiTableStaffPicksMatchingRate(t *testing.T) {
	// Scenario 5 (spec.md §8): both staff (29.25%) and standard (31.50%)
	// rate tables are present; the case model names 29.25, so the locator
	// must return that one, never the other, never neither.
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{
			digitalBox("Interest Rate", 50, 100, 80, 12),
			digitalBox("29.25%", 140, 100, 50, 12),
			digitalBox("Interest Rate", 50, 200, 80, 12),
			digitalBox("31.50%", 140, 200, 50, 12),
		},
	}
	spec := model.FieldSpec{Name: "instalment", Labels: []string{"Interest Rate"}, Type: model.TypePercentage}
	caseModel := model.CaseModel{Fields: map[string]interface{}{
		"instalment":    29.25,
		"clientIsStaff": true,
	}}

	result := Locate(spec, page, caseModel, nil)
	if !result.Valid {
		t.Fatalf("expected a valid multi-table match, got %+v", result)
	}
	if found, _ := result.Found.(float64); found != 29.25 {
		t.Errorf("expected the staff rate 29.25 to be selected, got %v", result.Found)
	}
	if result.Method != model.MethodMultiExact {
		t.Errorf("expected method multi_table_exact for an exact multi-table hit, got %v", result.Method)
	}
}

func TestLocateZoneFallback(t *testing.T) {
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{
			digitalBox("R90640.57", 300, 300, 60, 12),
		},
	}
	spec := model.FieldSpec{Name: "loanAmount", Labels: []string{"Loan Amount"}, Type: model.TypeCurrency}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"loanAmount": 90640.57}}
	zone := &ZoneRect{X: 250, Y: 250, W: 200, H: 100}

	result := Locate(spec, page, caseModel, zone)
	if !result.Valid || result.Method != model.MethodZoneFallback {
		t.Errorf("expected a zone-fallback match, got %+v", result)
	}
}

func TestLocateCaseIDVerbatimMatch(t *testing.T) {
	page := model.PageContent{
		PageW: 612, PageH: 792, IsDigital: true,
		Boxes: []model.Box{digitalBox("10016998899", 50, 50, 80, 12)},
	}
	spec := model.FieldSpec{Name: "caseId", Type: model.TypeText}
	caseModel := model.CaseModel{Fields: map[string]interface{}{"caseId": "10016998899"}}

	result := Locate(spec, page, caseModel, nil)
	if !result.Valid || result.Confidence != 1.0 {
		t.Errorf("expected a verbatim case ID match, got %+v", result)
	}
}

func TestFieldNotFoundIssueFormat(t *testing.T) {
	if got := FieldNotFoundIssue("loanAmount"); got != "field_not_found:loanAmount" {
		t.Errorf("FieldNotFoundIssue = %q", got)
	}
}

func TestMismatchIssueFormat(t *testing.T) {
	got := MismatchIssue("loanAmount", 90640.57, 12345.0)
	want := "mismatch:loanAmount:expected=90640.57,found=12345"
	if got != want {
		t.Errorf("MismatchIssue = %q, want %q", got, want)
	}
}
