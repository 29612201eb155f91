package preprocess

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAssessUniformWhiteImage(t *testing.T) {
	img := solidImage(100, 100, color.White)
	m := Assess(img)
	if m.Brightness < 0.95 {
		t.Errorf("expected near-1.0 brightness on a white image, got %v", m.Brightness)
	}
	if m.Contrast != 0 {
		t.Errorf("expected zero contrast on a uniform image, got %v", m.Contrast)
	}
	if m.Noise != 0 {
		t.Errorf("expected zero noise on a uniform image, got %v", m.Noise)
	}
}

func TestNeedsEnhancementTrigger(t *testing.T) {
	cases := []struct {
		name string
		m    Metrics
		want bool
	}{
		{"within all bounds", Metrics{Brightness: 0.5, Contrast: 0.5, Noise: 0.05, Sharpness: 0.1}, false},
		{"too dark", Metrics{Brightness: 0.1, Contrast: 0.5, Noise: 0.05, Sharpness: 0.1}, true},
		{"too bright", Metrics{Brightness: 0.99, Contrast: 0.5, Noise: 0.05, Sharpness: 0.1}, true},
		{"low contrast", Metrics{Brightness: 0.5, Contrast: 0.1, Noise: 0.05, Sharpness: 0.1}, true},
		{"high noise", Metrics{Brightness: 0.5, Contrast: 0.5, Noise: 0.5, Sharpness: 0.1}, true},
		{"negative sharpness", Metrics{Brightness: 0.5, Contrast: 0.5, Noise: 0.05, Sharpness: -0.1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.m.NeedsEnhancement(); got != c.want {
				t.Errorf("NeedsEnhancement() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestShouldInvert(t *testing.T) {
	if ShouldInvert(Metrics{Brightness: 0.5}) {
		t.Errorf("bright page should not be flagged for inversion")
	}
	if !ShouldInvert(Metrics{Brightness: 0.1}) {
		t.Errorf("dark page (likely white-on-dark) should be flagged for inversion")
	}
}

func TestDetectSkewAngleOnUniformImageIsStable(t *testing.T) {
	// A blank page has no dominant text-row orientation: every candidate
	// angle scores the same (zero row-variance), so the scan is expected to
	// settle on its first candidate deterministically rather than panic or
	// vary across runs.
	img := solidImage(200, 200, color.White)
	first := DetectSkewAngle(img)
	second := DetectSkewAngle(img)
	if first != second {
		t.Errorf("expected DetectSkewAngle to be deterministic, got %v then %v", first, second)
	}
}

func TestPipelineReturnsAnImageOfExpectedDimensions(t *testing.T) {
	img := solidImage(300, 200, color.White)
	out := Pipeline(img, 0)
	b := out.Bounds()
	if b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("expected pipeline to preserve dimensions under the rescale bound, got %dx%d", b.Dx(), b.Dy())
	}
}
