package boxes

import (
	"testing"

	"github.com/loanverify/docverify/internal/verify/model"
)

func charBox(x float64, text string) model.Box {
	return model.Box{Text: text, X: x, Y: 100, W: 5, H: 10, PageW: 612, PageH: 792, Source: model.SourceDigital, Confidence: 1.0}
}

func TestMergeJoinsSameLineAdjacentBoxes(t *testing.T) {
	input := []model.Box{charBox(0, "Hello"), charBox(10, "World")}
	out := Merge(input, 20)
	if len(out) != 1 {
		t.Fatalf("expected boxes on the same line within gap to merge into 1, got %d", len(out))
	}
	if out[0].Text != "Hello World" {
		t.Errorf("merged text = %q, want %q", out[0].Text, "Hello World")
	}
}

func TestMergeNeverCrossesLineBreak(t *testing.T) {
	lineSpacing := 20.0
	a := model.Box{Text: "Line1", X: 0, Y: 0, W: 30, H: 10}
	b := model.Box{Text: "Line2", X: 0, Y: 0 + 1.5*lineSpacing + 5, W: 30, H: 10}
	out := Merge([]model.Box{a, b}, lineSpacing)
	if len(out) != 2 {
		t.Fatalf("boxes separated by more than 1.5x line spacing must not merge, got %d boxes", len(out))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	// Invariant 2 (spec.md §8): merging a merged sequence yields the same sequence.
	input := []model.Box{charBox(0, "Hello"), charBox(10, "World"), charBox(200, "Elsewhere")}
	once := Merge(input, 20)
	twice := Merge(once, 20)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d boxes then %d boxes", len(once), len(twice))
	}
	for i := range once {
		if once[i].Text != twice[i].Text {
			t.Errorf("merge not idempotent at box %d: %q vs %q", i, once[i].Text, twice[i].Text)
		}
	}
}

func TestShouldMergeCharacters(t *testing.T) {
	narrow := []model.Box{charBox(0, "H"), charBox(5, "e")}
	if !ShouldMergeCharacters(narrow) {
		t.Errorf("narrow per-character boxes should trigger the character-merge pass")
	}

	wide := []model.Box{
		{W: 50}, {W: 60},
	}
	if ShouldMergeCharacters(wide) {
		t.Errorf("wide word-level boxes should not trigger the character-merge pass")
	}
}

func TestMergeCharactersRespectsGlyphGap(t *testing.T) {
	input := []model.Box{
		{Text: "H", X: 0, Y: 0, W: 5, H: 10},
		{Text: "i", X: 5, Y: 0, W: 4, H: 10},
		{Text: "X", X: 100, Y: 0, W: 5, H: 10},
	}
	out := MergeCharacters(input, 20)
	if len(out) != 2 {
		t.Fatalf("expected adjacent glyphs to merge and the far one to stay separate, got %d boxes", len(out))
	}
}

func TestMedianLineSpacingFallback(t *testing.T) {
	if got := MedianLineSpacing(nil); got != 20 {
		t.Errorf("empty input should fall back to 20, got %v", got)
	}
	single := []model.Box{{Y: 10}}
	if got := MedianLineSpacing(single); got != 20 {
		t.Errorf("single box should fall back to 20, got %v", got)
	}
}

func TestAssignQuality(t *testing.T) {
	cases := []struct {
		name string
		box  model.Box
		want model.BoxQuality
	}{
		{"digital always good", model.Box{Source: model.SourceDigital, Confidence: 0.1}, model.QualityGood},
		{"high confidence ocr", model.Box{Source: model.SourceOCR, Confidence: 0.9}, model.QualityGood},
		{"mid confidence ocr", model.Box{Source: model.SourceOCR, Confidence: 0.7}, model.QualityFair},
		{"low confidence ocr", model.Box{Source: model.SourceOCR, Confidence: 0.3}, model.QualityPoor},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := AssignQuality(c.box); got != c.want {
				t.Errorf("AssignQuality() = %v, want %v", got, c.want)
			}
		})
	}
}
