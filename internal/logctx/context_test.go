package logctx

import (
	"errors"
	"testing"
)

func TestNewGeneratesCaseIDWhenEmpty(t *testing.T) {
	d := New("")
	if d.CaseID == "" {
		t.Errorf("expected New(\"\") to generate a case ID")
	}
}

func TestNewKeepsSuppliedCaseID(t *testing.T) {
	d := New("case-123")
	if d.CaseID != "case-123" {
		t.Errorf("CaseID = %q, want %q", d.CaseID, "case-123")
	}
}

func TestStartEndStageRecordsStage(t *testing.T) {
	d := New("case-1")
	d.StartStage("Acquisition")
	d.EndStage("ok", nil)

	if len(d.Stages) != 1 {
		t.Fatalf("expected 1 recorded stage, got %d", len(d.Stages))
	}
	if d.Stages[0].Stage != "Acquisition" {
		t.Errorf("Stage = %q, want %q", d.Stages[0].Stage, "Acquisition")
	}
	if d.Stages[0].Status != "ok" {
		t.Errorf("Status = %q, want %q", d.Stages[0].Status, "ok")
	}
	if d.Stages[0].Err != nil {
		t.Errorf("Err = %v, want nil", d.Stages[0].Err)
	}
}

func TestEndStageRecordsError(t *testing.T) {
	d := New("case-1")
	d.StartStage("OCR Adapter")
	wantErr := errors.New("tesseract not found")
	d.EndStage("error", wantErr)

	if d.Stages[0].Err != wantErr {
		t.Errorf("Err = %v, want %v", d.Stages[0].Err, wantErr)
	}
}

func TestMultipleStagesAccumulate(t *testing.T) {
	d := New("case-1")
	d.StartStage("Acquisition")
	d.EndStage("ok", nil)
	d.StartStage("Preprocessor")
	d.EndStage("ok", nil)

	if len(d.Stages) != 2 {
		t.Fatalf("expected 2 recorded stages, got %d", len(d.Stages))
	}
}

func TestTotalDurationIsNonNegative(t *testing.T) {
	d := New("case-1")
	if d.TotalDuration() < 0 {
		t.Errorf("TotalDuration should never be negative")
	}
}
