// Package logctx provides per-document, per-stage timed logging, following
// the pipeline the verification engine drives: Acquisition, Preprocessor,
// OCR Adapter, Normalizer, Field Locator, Signature Zone Engine, Validator.
//
// Grounded on bosocmputer-account_ocr_gemini/internal/common/
// request_context.go's RequestContext: a request ID, per-step timers, and
// LogInfo/LogWarning/LogError helpers that prefix every line with the
// request ID and elapsed time. Token/cost accounting from that source is
// dropped (there is no LLM billing concern here); stage timing is kept and
// generalized to the eight pipeline components.
package logctx

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// StageLog records the timing and outcome of one pipeline stage.
type StageLog struct {
	Stage    string
	Status   string
	Duration time.Duration
	Err      error
}

// DocContext tracks one document's progress through the pipeline.
type DocContext struct {
	CaseID string
	Start  time.Time

	Stages []StageLog

	currentStage string
	stageStart   time.Time
}

// New creates a DocContext, generating a case ID via google/uuid when the
// caller doesn't have an upstream-supplied one.
func New(caseID string) *DocContext {
	if caseID == "" {
		caseID = uuid.NewString()
	}
	return &DocContext{CaseID: caseID, Start: time.Now()}
}

// StartStage begins timing a pipeline stage.
func (d *DocContext) StartStage(name string) {
	d.currentStage = name
	d.stageStart = time.Now()
	d.LogInfo("starting %s", name)
}

// EndStage closes out the current stage, recording its duration and
// outcome.
func (d *DocContext) EndStage(status string, err error) {
	dur := time.Since(d.stageStart)
	d.Stages = append(d.Stages, StageLog{Stage: d.currentStage, Status: status, Duration: dur, Err: err})
	if err != nil {
		d.LogWarning("%s finished as %s after %s: %v", d.currentStage, status, dur, err)
		return
	}
	d.LogInfo("%s finished as %s after %s", d.currentStage, status, dur)
}

func (d *DocContext) prefix() string {
	return fmt.Sprintf("[case=%s +%s]", d.CaseID, time.Since(d.Start).Round(time.Millisecond))
}

// LogInfo logs an info-level line prefixed with the case ID and elapsed
// time since the document started.
func (d *DocContext) LogInfo(format string, args ...interface{}) {
	log.Printf("%s "+format, append([]interface{}{d.prefix()}, args...)...)
}

// LogWarning logs a warning-level line with the same prefix.
func (d *DocContext) LogWarning(format string, args ...interface{}) {
	log.Printf("%s WARN "+format, append([]interface{}{d.prefix()}, args...)...)
}

// LogError logs an error-level line with the same prefix.
func (d *DocContext) LogError(format string, args ...interface{}) {
	log.Printf("%s ERROR "+format, append([]interface{}{d.prefix()}, args...)...)
}

// TotalDuration is the elapsed wall-clock time since the document started.
func (d *DocContext) TotalDuration() time.Duration {
	return time.Since(d.Start)
}
