// Package orchestrator drives the full verification pipeline: it chooses
// the digital or scanned path per page, runs the locator across every
// required field, triggers the enhancement retry loop on low-confidence or
// missing-field outcomes, derives and scores signature zones, and
// assembles the final report.
//
// Concurrency is grounded on the teacher's page-level independence (each
// PDF page is self-contained once AnalyzePageCapabilities/
// ExtractTextPositions has classified it) generalized into a bounded
// worker pool, in the manner bosocmputer-account_ocr_gemini's
// RequestContext treats one document as a single timed unit of work with
// internal sub-steps.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/loanverify/docverify/internal/config"
	"github.com/loanverify/docverify/internal/logctx"
	"github.com/loanverify/docverify/internal/metrics"
	"github.com/loanverify/docverify/internal/verify/acquisition"
	"github.com/loanverify/docverify/internal/verify/boxes"
	"github.com/loanverify/docverify/internal/verify/locator"
	"github.com/loanverify/docverify/internal/verify/model"
	"github.com/loanverify/docverify/internal/verify/ocradapter"
	"github.com/loanverify/docverify/internal/verify/preprocess"
	"github.com/loanverify/docverify/internal/verify/signature"
)

// pageOutcome is the buffered per-page result the fan-out stage produces;
// the orchestrator re-sorts these into page-index order before assembling
// the final report, satisfying the "deterministic regardless of completion
// order" requirement.
type pageOutcome struct {
	index       int
	content     model.PageContent
	rasterImage image.Image
	degraded    bool
	err         error
}

// Manifest is the _extract/<caseId>/manifest.json shape.
type Manifest struct {
	CaseID string         `json:"caseId"`
	Scale  int            `json:"scale"`
	Pages  []ManifestPage `json:"pages"`
	Zones  []ManifestZone `json:"zones"`
}

type ManifestPage struct {
	Index  int    `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	File   string `json:"file"`
}

type ManifestZone struct {
	Name   string             `json:"name"`
	Page   int                `json:"page"`
	Bounds ManifestZoneBounds `json:"bounds"`
	Type   string             `json:"type"`
}

type ManifestZoneBounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Run executes the whole pipeline for one PDF against one case model and
// returns the final VerificationReport plus the manifest written to
// <cfg.ExtractDir>/<caseId>/.
func Run(ctx context.Context, cfg config.Config, pdfPath string, caseModel model.CaseModel, fields []model.FieldSpec) (model.VerificationReport, Manifest, error) {
	dctx := logctx.New(caseModel.CaseID)
	start := time.Now()
	defer func() {
		metrics.VerificationLatency.Observe(time.Since(start).Seconds())
	}()
	metrics.DocumentsProcessed.Inc()

	dctx.StartStage("acquisition")
	tmpDir, err := os.MkdirTemp(cfg.TempDir, "docverify-")
	if err != nil {
		dctx.EndStage("error", err)
		return errorReport(err), Manifest{}, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	results, err := acquisition.Acquire(pdfPath, tmpDir, cfg.RenderScale)
	if err != nil {
		dctx.EndStage("error", err)
		return errorReport(err), Manifest{}, err
	}
	dctx.EndStage("ok", nil)

	outcomes := processPages(ctx, dctx, cfg, results, pdfPath, tmpDir)

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	var issues []string
	select {
	case <-ctx.Done():
		return model.VerificationReport{Status: model.StatusError, Issues: []string{"cancelled"}}, Manifest{}, ctx.Err()
	default:
	}

	pages := make([]model.PageContent, len(outcomes))
	for i, o := range outcomes {
		pages[i] = o.content
		if o.content.AcquisitionFailed {
			issues = append(issues, fmt.Sprintf("acquisition_failed:page%d", o.index))
		}
		if o.degraded {
			issues = append(issues, fmt.Sprintf("timeout:page%d", o.index))
		}
	}

	dctx.StartStage("field_locator")
	fieldResults := make(map[string]model.FieldResult, len(fields))
	for _, f := range fields {
		fieldResults[f.Name] = locateAcrossPages(f, pages, caseModel)
	}
	dctx.EndStage("ok", nil)

	dctx.StartStage("signature_zone_engine")
	zoneReports, manifestZones := runSignatureEngine(cfg, caseModel, outcomes)
	dctx.EndStage("ok", nil)

	report := assembleReport(fields, fieldResults, zoneReports, issues)

	manifest := writeManifest(cfg, caseModel.CaseID, outcomes, manifestZones)

	return report, manifest, nil
}

// processPages fans pages out across a bounded worker pool, each worker
// owning its own OCR adapter instance (the adapter is stateless per call
// since it shells out fresh every time, but the pool bound still caps
// concurrent pdftoppm/tesseract subprocesses).
func processPages(ctx context.Context, dctx *logctx.DocContext, cfg config.Config, results []acquisition.Result, pdfPath, tmpDir string) []pageOutcome {
	fanout := cfg.MaxPageFanout
	if fanout <= 0 {
		fanout = 4
	}
	if fanout > len(results) {
		fanout = len(results)
	}
	if fanout == 0 {
		return nil
	}

	sem := make(chan struct{}, fanout)
	var wg sync.WaitGroup
	outcomes := make([]pageOutcome, len(results))

	for i, res := range results {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, res acquisition.Result) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = processOnePage(ctx, dctx, cfg, res, pdfPath, tmpDir)
		}(i, res)
	}
	wg.Wait()
	return outcomes
}

func processOnePage(ctx context.Context, dctx *logctx.DocContext, cfg config.Config, res acquisition.Result, pdfPath, tmpDir string) pageOutcome {
	timeout := time.Duration(cfg.PageSoftTimeoutSec) * time.Second
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content := res.Page
	out := pageOutcome{index: res.Page.PageIndex, content: content}

	if content.AcquisitionFailed {
		return out
	}

	if content.IsDigital {
		if boxes.ShouldMergeCharacters(content.Boxes) {
			lineSpacing := boxes.MedianLineSpacing(content.Boxes)
			content.Boxes = boxes.MergeCharacters(content.Boxes, lineSpacing)
		} else {
			lineSpacing := boxes.MedianLineSpacing(content.Boxes)
			content.Boxes = boxes.Merge(content.Boxes, lineSpacing)
		}
		out.content = content
		out.rasterImage = loadRasterBestEffort(pdfPath, tmpDir, content.PageIndex+1, cfg.RenderScale)
		return out
	}

	// Scanned path: load the raster, preprocess, OCR, enhancement loop.
	img, err := loadRaster(res.RasterPath)
	if err != nil {
		out.content.AcquisitionFailed = true
		out.err = err
		return out
	}
	skew := preprocess.DetectSkewAngle(img)
	img = preprocess.Pipeline(img, skew)
	out.rasterImage = img

	adapter, err := ocradapter.New()
	if err != nil {
		out.content.AcquisitionFailed = true
		out.err = err
		return out
	}

	settings := ocradapter.DefaultSettings()
	settings.Language = cfg.OCRLanguage
	ocrBoxes, err := adapter.ExtractWords(pdfPath, content.PageIndex+1, content.PageW, content.PageH, cfg.RenderScale, settings)
	metrics.OCRInvocations.Inc()
	if err != nil {
		out.content.AcquisitionFailed = true
		out.err = err
		return out
	}
	lineSpacing := boxes.MedianLineSpacing(ocrBoxes)
	ocrBoxes = boxes.Merge(ocrBoxes, lineSpacing)
	content.Boxes = ocrBoxes

	passes := 0
	for passes < cfg.MaxEnhancementPasses && needsEnhancement(content, cfg) {
		select {
		case <-pageCtx.Done():
			out.degraded = true
			out.content = content
			return out
		default:
		}
		enhanced, err := enhancementPass(adapter, pdfPath, content, cfg)
		passes++
		metrics.EnhancementRetries.Inc()
		if err != nil {
			break
		}
		content.Boxes = mergeEnhanced(content.Boxes, enhanced)
	}

	select {
	case <-pageCtx.Done():
		out.degraded = true
	default:
	}
	out.content = content
	return out
}

func loadRaster(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

// loadRasterBestEffort rasterizes a digital page (which otherwise has no
// PNG on disk) so the signature zone engine always has pixels to crop
// from, regardless of which text-extraction path the page took.
func loadRasterBestEffort(pdfPath, tmpDir string, pageNum, scale int) image.Image {
	path, err := acquisition.RasterizePage(pdfPath, tmpDir, pageNum, scale)
	if err != nil {
		return nil
	}
	img, err := loadRaster(path)
	if err != nil {
		return nil
	}
	return img
}

// needsEnhancement implements the orchestrator's enhancement trigger: a
// required financial field missing (checked later in the field loop, so
// here we use the cheaper proxy of low median confidence) OR median box
// confidence below the configured threshold.
func needsEnhancement(content model.PageContent, cfg config.Config) bool {
	return ocradapter.MedianConfidence(content.Boxes) < cfg.EnhancementConfidence
}

// enhancementPass re-rasterizes and re-OCRs the whole page at three times
// the configured render scale, with sparse-text segmentation and the
// digits-and-currency whitelist. The page is not cropped to a financial
// region and not binarized before this pass.
func enhancementPass(adapter *ocradapter.Adapter, pdfPath string, content model.PageContent, cfg config.Config) ([]model.Box, error) {
	settings := ocradapter.Settings{
		Language:      cfg.OCRLanguage,
		Segmentation:  ocradapter.ModeSparseText,
		CharWhitelist: ocradapter.FinancialWhitelist,
	}
	return adapter.ExtractWords(pdfPath, content.PageIndex+1, content.PageW, content.PageH, cfg.RenderScale*3, settings)
}

// mergeEnhanced folds newly OCR'd boxes into the page, preferring the
// higher-confidence box on positional overlap within 50x30px.
func mergeEnhanced(existing, fresh []model.Box) []model.Box {
	out := make([]model.Box, len(existing))
	copy(out, existing)
	for _, nb := range fresh {
		replaced := false
		for i, eb := range out {
			if overlaps(eb, nb, 50, 30) {
				if nb.Confidence > eb.Confidence {
					out[i] = nb
				}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, nb)
		}
	}
	return out
}

func overlaps(a, b model.Box, dxMax, dyMax float64) bool {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= dxMax && dy <= dyMax
}

// locateAcrossPages runs the Field Locator over every page in order and
// returns the first valid result. No template zone is passed to the
// locator, so its zone fallback does not run here; when no page yields a
// valid result, the first page's result is returned.
func locateAcrossPages(f model.FieldSpec, pages []model.PageContent, caseModel model.CaseModel) model.FieldResult {
	var best model.FieldResult
	for _, p := range pages {
		r := locator.Locate(f, p, caseModel, nil)
		if r.Valid {
			return r
		}
		if best.Name == "" {
			best = r
		}
	}
	return best
}

// runSignatureEngine derives and scores every page's signature/initial
// zones: an initial zone per page 0..N-2, and the final-page signature
// zone.
func runSignatureEngine(cfg config.Config, caseModel model.CaseModel, outcomes []pageOutcome) ([]model.ZoneReport, []model.SignatureZone) {
	var reports []model.ZoneReport
	var zones []model.SignatureZone
	n := len(outcomes)
	for i, o := range outcomes {
		if o.content.AcquisitionFailed {
			continue
		}
		if i < n-1 {
			name := fmt.Sprintf("clientInitial_page%d", i)
			if zone, ok := signature.DeriveInitialZone(o.content, name); ok {
				zone.Required = true
				zones = append(zones, zone)
				reports = append(reports, scoreOrMissing(zone, o.rasterImage))
			}
		} else {
			name := fmt.Sprintf("clientSignature_page%d", i)
			if zone, ok := signature.DeriveSignatureZone(o.content, name, cfg.SignatureProximityPx); ok {
				zone.Required = true
				zones = append(zones, zone)
				reports = append(reports, scoreOrMissing(zone, o.rasterImage))
			}
		}
	}
	return reports, zones
}

func scoreOrMissing(zone model.SignatureZone, img image.Image) model.ZoneReport {
	if img == nil {
		return model.ZoneReport{Zone: zone.Name, Marked: false, Confidence: 0}
	}
	return signature.ScoreZone(img, zone)
}

func assembleReport(fields []model.FieldSpec, fieldResults map[string]model.FieldResult, zones []model.ZoneReport, issues []string) model.VerificationReport {
	status := model.StatusValid
	var sum model.Summary
	for _, f := range fields {
		r := fieldResults[f.Name]
		metrics.FieldResults.WithLabelValues(fieldStatus(r)).Inc()
		if f.Required {
			sum.FieldsRequired++
			if r.Valid {
				sum.FieldsValid++
			} else {
				status = model.StatusInvalid
				if r.Found == nil {
					issues = append(issues, locator.FieldNotFoundIssue(f.Name))
				} else {
					issues = append(issues, locator.MismatchIssue(f.Name, r.Expected, r.Found))
				}
			}
		}
	}
	for _, z := range zones {
		metrics.ZoneResults.WithLabelValues(zoneStatus(z)).Inc()
		sum.ZonesRequired++
		if z.Marked {
			sum.ZonesMarked++
		} else {
			status = model.StatusInvalid
			issues = append(issues, fmt.Sprintf("signature_missing:%s", z.Zone))
		}
	}

	overall := overallConfidence(fieldResults, zones)
	return model.VerificationReport{
		Status:            status,
		OverallConfidence: overall,
		Fields:            fieldResults,
		Zones:             zones,
		Issues:            issues,
		Summary:           sum,
	}
}

func fieldStatus(r model.FieldResult) string {
	switch {
	case r.Found == nil:
		return "not_found"
	case r.Valid:
		return "matched"
	default:
		return "mismatch"
	}
}

func zoneStatus(z model.ZoneReport) string {
	if z.Marked {
		return "marked"
	}
	return "unmarked"
}

func overallConfidence(fields map[string]model.FieldResult, zones []model.ZoneReport) float64 {
	total := 0.0
	n := 0
	for _, r := range fields {
		total += r.Confidence
		n++
	}
	for _, z := range zones {
		total += z.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func errorReport(err error) model.VerificationReport {
	return model.VerificationReport{Status: model.StatusError, Issues: []string{err.Error()}}
}

func writeManifest(cfg config.Config, caseID string, outcomes []pageOutcome, zones []model.SignatureZone) Manifest {
	dir := filepath.Join(cfg.ExtractDir, caseID)
	_ = os.MkdirAll(dir, 0o755)

	m := Manifest{CaseID: caseID, Scale: cfg.RenderScale}
	for _, o := range outcomes {
		file := fmt.Sprintf("page%d_scale%d.png", o.index, cfg.RenderScale)
		w, h := 0, 0
		if o.rasterImage != nil {
			b := o.rasterImage.Bounds()
			w, h = b.Dx(), b.Dy()
			savePNG(filepath.Join(dir, file), o.rasterImage)
		}
		m.Pages = append(m.Pages, ManifestPage{Index: o.index, Width: w, Height: h, File: file})
	}
	for _, z := range zones {
		m.Zones = append(m.Zones, ManifestZone{
			Name: z.Name, Page: z.Page, Type: string(z.Type),
			Bounds: ManifestZoneBounds{X: z.X, Y: z.Y, W: z.W, H: z.H},
		})
	}
	if data, err := json.MarshalIndent(m, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644)
	}
	return m
}

func savePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	_ = png.Encode(f, img)
}
