package signature

import (
	"image"
	"image/color"
	"testing"

	"github.com/loanverify/docverify/internal/verify/model"
)

func blankZone() model.SignatureZone {
	return model.SignatureZone{Name: "clientSignature", Page: 5, X: 0, Y: 0, W: 200, H: 80, Type: model.ZoneSignature}
}

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, white)
		}
	}
	return img
}

func TestScoreZoneAllWhiteIsUnmarked(t *testing.T) {
	// spec.md §8 boundary test: mark detection on an all-white zone returns
	// marked=false with confidence 0.
	img := whiteImage(200, 80)
	report := ScoreZone(img, blankZone())
	if report.Marked {
		t.Errorf("expected an all-white zone to be unmarked, got %+v", report)
	}
	if report.Confidence != 0 {
		t.Errorf("expected confidence 0 for an unmarked zone, got %v", report.Confidence)
	}
}

func TestQualifiesAcceptsAPlausibleSignatureContour(t *testing.T) {
	// A moderately complex, non-solid, roughly landscape blob sized well
	// within a typical zone — representative of a scribble or stamp.
	c := contour{area: 500, perimeter: 300, minX: 0, minY: 0, maxX: 29, maxY: 19}
	if !qualifies(c, 16000) {
		t.Errorf("expected a plausible scribble-shaped contour to qualify as a mark")
	}
}

func TestQualifiesRejectsTooSmallArea(t *testing.T) {
	c := contour{area: 10, perimeter: 40, minX: 0, minY: 0, maxX: 9, maxY: 9}
	if qualifies(c, 16000) {
		t.Errorf("a speck smaller than the minimum area should not qualify")
	}
}

func TestQualifiesRejectsTooLargeArea(t *testing.T) {
	// Larger than 0.1 * zoneArea — likely a scan artifact or solid fill,
	// not a handwritten mark.
	c := contour{area: 2000, perimeter: 400, minX: 0, minY: 0, maxX: 49, maxY: 49}
	if qualifies(c, 16000) {
		t.Errorf("a blob larger than 10%% of the zone area should not qualify")
	}
}

func TestQualifiesRejectsLowComplexity(t *testing.T) {
	// A perfect square has low perimeter^2/area, like a filled rectangle
	// (e.g. a solid printed box) rather than handwriting.
	c := contour{area: 400, perimeter: 80, minX: 0, minY: 0, maxX: 19, maxY: 19}
	if qualifies(c, 16000) {
		t.Errorf("a low-complexity solid shape should not qualify")
	}
}

func TestQualifiesRejectsExtremeAspectRatio(t *testing.T) {
	// A thin line artifact (e.g. a ruled margin line), not a mark.
	c := contour{area: 200, perimeter: 300, minX: 0, minY: 0, maxX: 199, maxY: 1}
	if qualifies(c, 16000) {
		t.Errorf("an extreme-aspect-ratio sliver should not qualify")
	}
}

func TestFindContoursEmptyBinaryYieldsNoContours(t *testing.T) {
	binary := [][]bool{{false, false}, {false, false}}
	if got := findContours(binary); len(got) != 0 {
		t.Errorf("expected no contours in an all-false mask, got %d", len(got))
	}
}

func TestFindContoursSingleBlobIsOneContour(t *testing.T) {
	binary := [][]bool{
		{false, false, false},
		{false, true, true},
		{false, true, false},
	}
	got := findContours(binary)
	if len(got) != 1 {
		t.Fatalf("expected a single 4-connected component, got %d", len(got))
	}
	if got[0].area != 3 {
		t.Errorf("expected area 3, got %d", got[0].area)
	}
}

func TestFindContoursDisconnectedBlobsAreSeparate(t *testing.T) {
	binary := [][]bool{
		{true, false, true},
		{false, false, false},
		{true, false, true},
	}
	got := findContours(binary)
	if len(got) != 4 {
		t.Errorf("expected 4 isolated single-pixel components, got %d", len(got))
	}
}

func TestContourMeasurements(t *testing.T) {
	c := contour{area: 100, perimeter: 40, minX: 0, minY: 0, maxX: 9, maxY: 9}
	if c.width() != 10 || c.height() != 10 {
		t.Errorf("width/height = %v/%v, want 10/10", c.width(), c.height())
	}
	if c.solidity() != 1.0 {
		t.Errorf("solidity = %v, want 1.0 for a filled bounding box", c.solidity())
	}
	if c.aspectRatio() != 1.0 {
		t.Errorf("aspectRatio = %v, want 1.0", c.aspectRatio())
	}
}
