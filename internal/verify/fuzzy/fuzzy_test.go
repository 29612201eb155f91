package fuzzy

import "testing"

func TestScoreExactMatch(t *testing.T) {
	if got := Score("Loan Amount", "loan amount"); got != 1.00 {
		t.Errorf("case-insensitive exact match = %v, want 1.00", got)
	}
}

func TestScoreContainsMatch(t *testing.T) {
	got := Score("Total Loan Amount", "Loan Amount")
	if got < 0.85 || got > 0.95 {
		t.Errorf("contains match score = %v, want in [0.85, 0.95]", got)
	}
}

func TestScoreOCRSubstitution(t *testing.T) {
	// "rn" commonly OCR'd in place of "m" and vice versa.
	got := Score("Loan Arnount", "Loan Amount")
	if got <= 0 {
		t.Errorf("expected a nonzero word-set score via substitution, got %v", got)
	}
	if got > 0.80 {
		t.Errorf("word-set match must be capped at 0.80, got %v", got)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	if got := Score("", "Loan Amount"); got != 0 {
		t.Errorf("empty candidate should score 0, got %v", got)
	}
	if got := Score("Loan Amount", ""); got != 0 {
		t.Errorf("empty label should score 0, got %v", got)
	}
}

func TestScoreNoMatch(t *testing.T) {
	got := Score("Instalment", "Interest Rate")
	if got != 0 {
		t.Errorf("unrelated strings should score 0, got %v", got)
	}
}

func TestAcceptThresholdOrdering(t *testing.T) {
	// OCR pages are more tolerant (lower threshold) than digital pages
	// (stricter, since OCR noise shouldn't be present on clean text).
	if AcceptThreshold(false) >= AcceptThreshold(true) {
		t.Errorf("OCR threshold (%v) should be lower than digital threshold (%v)", AcceptThreshold(false), AcceptThreshold(true))
	}
}
