// Package boxes normalizes engine-native bounding boxes (whichever corner
// convention the source uses) into the canonical model.Box shape and merges
// adjacent text fragments into words/lines.
//
// The line-grouping and greedy left-to-right merge policy is grounded on
// internal/pdf/redact/search.go's findAllCombinedMatchRects, which already
// groups text positions into visual lines by Y-proximity (within
// lineH*0.75) before scanning for cross-fragment matches. This package
// generalizes that same grouping into a general-purpose merge pass instead
// of a search-only one.
package boxes

import (
	"sort"
	"strings"

	"github.com/loanverify/docverify/internal/verify/model"
)

// NormalizeRect converts an engine-native rectangle into {x,y,w,h}. Some
// engines (tesseract TSV) already hand back left/top/width/height; others
// (PDF content-stream extraction) hand back two corners. isCorner=false
// returns the values unchanged as width/height; isCorner=true treats the
// last two arguments as the right/bottom corner.
func NormalizeRect(left, top, rightOrWidth, bottomOrHeight float64, isCorner bool) (x, y, w, h float64) {
	if !isCorner {
		return left, top, rightOrWidth, bottomOrHeight
	}
	x = left
	y = top
	w = rightOrWidth - left
	h = bottomOrHeight - top
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return
}

// AssignQuality buckets a box's trustworthiness from its source and
// confidence, used downstream by the locator's ranking step.
func AssignQuality(b model.Box) model.BoxQuality {
	if b.Source == model.SourceDigital {
		return model.QualityGood
	}
	switch {
	case b.Confidence >= 0.85:
		return model.QualityGood
	case b.Confidence >= 0.65:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}

// sameLine and horizontalGapOK implement the merge policy: two boxes
// merge if they sit within max(0.5*h, 5px) vertically and <= 2*h, 20px
// horizontally.
func sameLine(a, b model.Box) bool {
	threshold := 0.5 * a.H
	if threshold < 5 {
		threshold = 5
	}
	dy := a.CenterY() - b.CenterY()
	if dy < 0 {
		dy = -dy
	}
	return dy <= threshold
}

func horizontalGapOK(a, b model.Box) bool {
	gap := b.X - a.Right()
	maxGap := 2 * a.H
	if maxGap < 20 {
		maxGap = 20
	}
	return gap <= maxGap
}

// largeVerticalGap reports a gap that should never be bridged by a merge,
// per the "never cross line-spacing * 1.5" rule.
func largeVerticalGap(a, b model.Box, lineSpacing float64) bool {
	dy := b.Y - a.Bottom()
	return dy > 1.5*lineSpacing
}

// Merge runs the default (word-level) merge pass: sort by y then x, then
// greedily merge left-to-right boxes that satisfy the same-line and
// horizontal-gap tests. OCR boxes whose text already contains a space are
// never merge targets (merging would duplicate words the engine already
// joined).
func Merge(input []model.Box, lineSpacing float64) []model.Box {
	if len(input) == 0 {
		return nil
	}
	sorted := make([]model.Box, len(input))
	copy(sorted, input)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var out []model.Box
	i := 0
	for i < len(sorted) {
		cur := sorted[i]
		j := i + 1
		for j < len(sorted) {
			cand := sorted[j]
			if (sorted[i].Source == model.SourceOCR && strings.Contains(strings.TrimSpace(sorted[i].Text), " ")) ||
				(cand.Source == model.SourceOCR && strings.Contains(strings.TrimSpace(cand.Text), " ")) {
				break
			}
			if largeVerticalGap(cur, cand, lineSpacing) {
				break
			}
			if !sameLine(cur, cand) || !horizontalGapOK(cur, cand) {
				break
			}
			cur = unionBox(cur, cand)
			j++
		}
		out = append(out, cur)
		i = j
	}
	return out
}

// MergeCharacters runs the opt-in second pass for per-character digital PDF
// boxes: the same algorithm with the horizontal gap threshold reduced to
// 1.2x the average glyph width. Callers decide to invoke this by checking
// AverageWidth against a glyph threshold first (see ShouldMergeCharacters).
func MergeCharacters(input []model.Box, lineSpacing float64) []model.Box {
	avgW := AverageWidth(input)
	gap := avgW * 1.2
	if len(input) == 0 {
		return nil
	}
	sorted := make([]model.Box, len(input))
	copy(sorted, input)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var out []model.Box
	i := 0
	for i < len(sorted) {
		cur := sorted[i]
		j := i + 1
		for j < len(sorted) {
			cand := sorted[j]
			if largeVerticalGap(cur, cand, lineSpacing) {
				break
			}
			if !sameLine(cur, cand) || cand.X-cur.Right() > gap {
				break
			}
			cur = unionBox(cur, cand)
			j++
		}
		out = append(out, cur)
		i = j
	}
	return out
}

// GlyphWidthThreshold is the average-box-width cutoff below which a page is
// assumed to be emitting one Box per character, making it eligible for the
// character-merge pass.
const GlyphWidthThreshold = 6.0

// ShouldMergeCharacters decides whether a page's boxes look
// character-fragmented and should get the second merge pass.
func ShouldMergeCharacters(boxes []model.Box) bool {
	return AverageWidth(boxes) < GlyphWidthThreshold
}

// AverageWidth returns the mean box width, used both to decide on the
// character-merge pass and to size its gap threshold.
func AverageWidth(boxes []model.Box) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.W
	}
	return sum / float64(len(boxes))
}

// MedianLineSpacing computes the median of consecutive-y gaps on a page,
// falling back to 20 when too few boxes exist to measure a gap. Used both
// by the merger's large-gap guard and the locator's focused search window.
func MedianLineSpacing(pageBoxes []model.Box) float64 {
	if len(pageBoxes) < 2 {
		return 20
	}
	ys := make([]float64, len(pageBoxes))
	for i, b := range pageBoxes {
		ys[i] = b.Y
	}
	sort.Float64s(ys)
	var gaps []float64
	for i := 1; i < len(ys); i++ {
		g := ys[i] - ys[i-1]
		if g > 0.5 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 20
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 0 {
		return (gaps[mid-1] + gaps[mid]) / 2
	}
	return gaps[mid]
}

func unionBox(a, b model.Box) model.Box {
	x := minF(a.X, b.X)
	y := minF(a.Y, b.Y)
	right := maxF(a.Right(), b.Right())
	bottom := maxF(a.Bottom(), b.Bottom())
	merged := a
	merged.X = x
	merged.Y = y
	merged.W = right - x
	merged.H = bottom - y
	merged.Text = strings.TrimSpace(a.Text + " " + b.Text)
	if b.Confidence < merged.Confidence {
		merged.Confidence = b.Confidence
	}
	return merged
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
