package ocradapter

import (
	"testing"

	"github.com/loanverify/docverify/internal/verify/model"
)

func sampleTSV() []byte {
	header := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"
	row1 := "5\t1\t1\t1\t1\t1\t100\t200\t80\t20\t95.5\tLoan\n"
	row2 := "5\t1\t1\t1\t1\t2\t190\t200\t30\t20\t-1\t \n" // blank text, should be skipped
	row3 := "5\t1\t1\t1\t1\t3\t220\t200\t90\t20\t40.0\tAmount\n"
	return []byte(header + row1 + row2 + row3)
}

func TestParseTSVSkipsHeaderAndBlankText(t *testing.T) {
	boxes, err := parseTSV(sampleTSV(), 1, 612, 792, 1, 1, 0)
	if err != nil {
		t.Fatalf("parseTSV failed: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("expected 2 words (header and blank-text row skipped), got %d", len(boxes))
	}
	if boxes[0].Text != "Loan" || boxes[1].Text != "Amount" {
		t.Errorf("unexpected texts: %q, %q", boxes[0].Text, boxes[1].Text)
	}
}

func TestParseTSVAppliesMinConfidence(t *testing.T) {
	boxes, err := parseTSV(sampleTSV(), 1, 612, 792, 1, 1, 0.5)
	if err != nil {
		t.Fatalf("parseTSV failed: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("expected only the high-confidence word to survive a 0.5 minimum, got %d", len(boxes))
	}
	if boxes[0].Text != "Loan" {
		t.Errorf("expected the surviving word to be %q, got %q", "Loan", boxes[0].Text)
	}
}

func TestParseTSVAppliesScaleAndSource(t *testing.T) {
	boxes, err := parseTSV(sampleTSV(), 1, 612, 792, 0.5, 2.0, 0)
	if err != nil {
		t.Fatalf("parseTSV failed: %v", err)
	}
	if len(boxes) == 0 {
		t.Fatalf("expected at least one box")
	}
	b := boxes[0]
	if b.X != 50 || b.Y != 400 {
		t.Errorf("expected scale applied (X=50,Y=400), got X=%v Y=%v", b.X, b.Y)
	}
	if b.Source != "ocr" {
		t.Errorf("expected source=ocr, got %v", b.Source)
	}
	if b.Confidence != 0.955 {
		t.Errorf("expected confidence 0.955 from conf=95.5, got %v", b.Confidence)
	}
}

func TestSegmentationModePSM(t *testing.T) {
	cases := []struct {
		mode SegmentationMode
		want string
	}{
		{ModeUniformBlock, "3"},
		{ModeSparseText, "11"},
		{ModeSingleLine, "7"},
	}
	for _, c := range cases {
		if got := c.mode.psm(); got != c.want {
			t.Errorf("%v.psm() = %q, want %q", c.mode, got, c.want)
		}
	}
}

func TestDefaultLangFallback(t *testing.T) {
	if got := defaultLang(""); got != "eng" {
		t.Errorf("expected empty language to fall back to eng, got %q", got)
	}
	if got := defaultLang("afr"); got != "afr" {
		t.Errorf("expected an explicit language to pass through unchanged, got %q", got)
	}
}

func TestMedianConfidenceOddCount(t *testing.T) {
	boxes := []model.Box{{Confidence: 0.2}, {Confidence: 0.8}, {Confidence: 0.5}}
	if got := MedianConfidence(boxes); got != 0.5 {
		t.Errorf("expected median 0.5, got %v", got)
	}
}

func TestMedianConfidenceEvenCount(t *testing.T) {
	boxes := []model.Box{{Confidence: 0.2}, {Confidence: 0.4}, {Confidence: 0.6}, {Confidence: 0.8}}
	if got := MedianConfidence(boxes); got != 0.5 {
		t.Errorf("expected median of middle pair (0.4+0.6)/2=0.5, got %v", got)
	}
}

func TestMedianConfidenceEmptyIsZero(t *testing.T) {
	if got := MedianConfidence(nil); got != 0 {
		t.Errorf("expected 0 for an empty box slice, got %v", got)
	}
}
