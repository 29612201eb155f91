// Package acquisition implements Image Acquisition: it turns a PDF path
// into either a sequence of per-page text-box collections (digital path)
// or a sequence of per-page raster images (scanned path).
//
// Grounded directly on internal/pdf/redact.Redactor: GetPageInfo and
// AnalyzePageCapabilities already classify a page as text/image_only/mixed
// by scanning its content stream for BT/Tj/TJ operators, and
// ExtractTextPositions already walks the content-stream text-show
// operators into positioned text runs. This package wraps that machinery,
// adds the hasValidDigitalContent item-count/watermark heuristic the
// design specifies (the teacher's boolean hasText is necessary but not
// sufficient), and drives pdftoppm rasterization for pages that fail it.
package acquisition

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/loanverify/docverify/internal/pdf/redact"
	"github.com/loanverify/docverify/internal/verify/model"
)

// MinContentItems and MinNonWhitespaceChars implement the
// hasValidDigitalContent heuristic: a page has valid digital text iff it
// has at least ten content items and at least one item with >=4
// non-whitespace characters that is not a watermark.
const (
	MinContentItems       = 10
	MinNonWhitespaceChars = 4
)

var watermarkPattern = regexp.MustCompile(`(?i)WATERMARK|DRAFT|COPY`)

// DefaultRenderScale is the default render scale for rasterized pages (3x).
const DefaultRenderScale = 3

// Result is the per-page acquisition outcome: either populated Boxes
// (digital path) or a path to a rasterized PNG (scanned path) for the OCR
// adapter to consume.
type Result struct {
	Page          model.PageContent
	RasterPath    string // set only when the scanned path was taken
	AcquisitionOK bool
}

// Acquire reads pdfPath, classifies every page, extracts digital boxes
// where possible, and rasterizes the rest into tmpDir.
func Acquire(pdfPath string, tmpDir string, renderScale int) ([]Result, error) {
	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("unreadable pdf: %w", err)
	}
	r, err := redact.NewRedactor(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("unreadable pdf: %w", err)
	}
	info, err := r.GetPageInfo()
	if err != nil {
		return nil, fmt.Errorf("unreadable pdf: %w", err)
	}
	caps, err := r.AnalyzePageCapabilities()
	if err != nil {
		return nil, fmt.Errorf("unreadable pdf: %w", err)
	}

	capByPage := make(map[int]string, len(caps))
	for _, c := range caps {
		capByPage[c.PageNum] = c.Type
	}

	results := make([]Result, 0, info.TotalPages)
	for i := 1; i <= info.TotalPages; i++ {
		dim := info.Pages[i-1]
		pageIdx := i - 1

		// A page the capability scan already classified as image-only
		// has no content stream text at all, so skip straight to
		// rasterization instead of paying for a doomed extraction pass.
		skipDigital := capByPage[i] == "image_only"
		digital, boxes := false, []model.Box(nil)
		var err error
		if !skipDigital {
			digital, boxes, err = tryDigital(r, i, dim.Width, dim.Height)
		}
		if err == nil && digital {
			results = append(results, Result{
				Page: model.PageContent{
					PageIndex: pageIdx,
					PageW:     dim.Width,
					PageH:     dim.Height,
					Boxes:     boxes,
					IsDigital: true,
				},
				AcquisitionOK: true,
			})
			continue
		}

		// Scanned or exotic-font path: rasterize at the requested scale.
		rasterPath, rerr := RasterizePage(pdfPath, tmpDir, i, renderScale)
		if rerr != nil {
			results = append(results, Result{
				Page: model.PageContent{
					PageIndex:         pageIdx,
					PageW:             dim.Width,
					PageH:             dim.Height,
					IsDigital:         false,
					AcquisitionFailed: true,
				},
				AcquisitionOK: false,
			})
			continue
		}
		results = append(results, Result{
			Page: model.PageContent{
				PageIndex: pageIdx,
				PageW:     dim.Width,
				PageH:     dim.Height,
				IsDigital: false,
			},
			RasterPath:    rasterPath,
			AcquisitionOK: true,
		})
	}
	return results, nil
}

// tryDigital extracts text positions for a page and applies
// hasValidDigitalContent; it returns digital=false (not an error) when the
// heuristic fails, signaling the caller to fall back to rasterization.
func tryDigital(r *redact.Redactor, pageNum int, pageW, pageH float64) (bool, []model.Box, error) {
	positions, err := r.ExtractTextPositions(pageNum)
	if err != nil {
		return false, nil, err
	}
	texts := make([]string, len(positions))
	for i, p := range positions {
		texts[i] = p.Text
	}
	if !hasValidDigitalContentPositions(texts) {
		return false, nil, nil
	}
	boxes := make([]model.Box, 0, len(positions))
	for _, p := range positions {
		boxes = append(boxes, model.Box{
			Text:       p.Text,
			X:          p.X,
			Y:          pageH - p.Y - p.Height, // PDF bottom-up -> top-down
			W:          p.Width,
			H:          p.Height,
			Page:       pageNum - 1,
			PageW:      pageW,
			PageH:      pageH,
			Source:     model.SourceDigital,
			Confidence: 1.0,
		})
	}
	return true, boxes, nil
}

// hasValidDigitalContentPositions implements the design's heuristic: at
// least ten content items, and at least one with >=4 non-whitespace
// characters that isn't a watermark token.
func hasValidDigitalContentPositions(texts []string) bool {
	if len(texts) < MinContentItems {
		return false
	}
	for _, t := range texts {
		if countNonWhitespace(t) >= MinNonWhitespaceChars && !watermarkPattern.MatchString(t) {
			return true
		}
	}
	return false
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}

// RasterizePage rasterizes a single 1-based page to a PNG under tmpDir at
// the given scale, for callers that need a page image independent of the
// digital/scanned extraction decision (e.g. the signature zone engine,
// which crops marks from every page regardless of path).
func RasterizePage(pdfPath, tmpDir string, pageNum, scale int) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", errors.New("pdftoppm command not found for rasterization")
	}
	imgBase := tmpDir + "/" + fmt.Sprintf("page-%d", pageNum)
	cmd := exec.Command("pdftoppm",
		"-f", strconv.Itoa(pageNum), "-l", strconv.Itoa(pageNum),
		"-r", strconv.Itoa(scale*72), "-singlefile", "-png", pdfPath, imgBase,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed on page %d: %w (%s)", pageNum, err, string(out))
	}
	return imgBase + ".png", nil
}
