// Package locator implements the Field Locator: given a field specification
// and a page's normalized boxes, it returns the best-matching value box.
//
// "Direct-value match first" is the governing design rule (see §4.5 of the
// engine's design notes, reproduced in this module's doc comments): label
// matching only qualifies candidates, the expected case-model value decides
// which candidate is correct. This inverts the naive "extract then compare"
// OCR pipeline order and eliminates false positives when several numbers
// sit near a label.
//
// Grounded on internal/pdf/redact/search.go's spatial-window and
// line-grouping approach (buildSubstringRects, findAllCombinedMatchRects),
// generalized from text-search to typed-value search.
package locator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loanverify/docverify/internal/verify/boxes"
	"github.com/loanverify/docverify/internal/verify/fuzzy"
	"github.com/loanverify/docverify/internal/verify/model"
	"github.com/loanverify/docverify/internal/verify/valuenorm"
)

// labelCandidate is a box that plausibly carries one of a FieldSpec's
// labels, together with the score that qualified it.
type labelCandidate struct {
	box   model.Box
	score float64
}

// valueCandidate is an extracted, tolerance-tested value near a label.
type valueCandidate struct {
	box        model.Box
	label      model.Box
	parsedNum  float64
	parsedStr  string
	valid      bool
	confidence float64
	sameLine   bool
	rightOf    bool
	distance   float64
}

// Locate runs the full Field Locator algorithm (Steps A-D) for one field
// against one page's boxes and returns a FieldResult. zoneRect is an
// optional per-page fixed rectangle used by the Step C zone fallback; pass
// a nil *ZoneRect when no template zone is configured for this field.
func Locate(spec model.FieldSpec, page model.PageContent, caseModel model.CaseModel, zoneRect *ZoneRect) model.FieldResult {
	expected, hasExpected := caseModel.Fields[spec.Name]
	result := model.FieldResult{Name: spec.Name, Expected: expected}
	if !hasExpected {
		return result
	}

	// Edge case (a): case ID appears verbatim anywhere on the page.
	if spec.Name == "caseId" {
		if s, ok := expected.(string); ok {
			for i := range page.Boxes {
				if strings.TrimSpace(page.Boxes[i].Text) == s {
					b := page.Boxes[i]
					result.Found = s
					result.Valid = true
					result.Confidence = 1.0
					result.Method = model.MethodDirectMatch
					result.ValueBox = &b
					return result
				}
			}
		}
	}

	labels := stepA(spec, page)
	if len(labels) == 0 {
		if zoneRect != nil {
			return stepC(spec, page, expected, *zoneRect)
		}
		return result
	}

	lineSpacing := boxes.MedianLineSpacing(page.Boxes)

	if caseModel.IsStaff() && (spec.Name == "instalment" || spec.Name == "insurancePremium") {
		if r, ok := stepD(spec, page, expected, labels, lineSpacing); ok {
			return r
		}
	}

	candidates := stepB(spec, page, expected, labels, lineSpacing)
	if best, ok := rankCandidates(candidates); ok {
		result.Found = numOrStr(best)
		result.Valid = best.valid
		result.Confidence = best.confidence
		result.Method = chooseMethod(labels, best)
		lb := best.label
		vb := best.box
		result.LabelBox = &lb
		result.ValueBox = &vb
		return result
	}

	if zoneRect != nil {
		return stepC(spec, page, expected, *zoneRect)
	}
	return result
}

// chooseMethod tags a Step B match as single_table when exactly one label
// candidate qualified (the common case: one occurrence of the label, one
// nearby value), versus multi_table_exact when several label occurrences
// forced rankCandidates to disambiguate between them. Reserved separately
// from MethodDirectMatch, which only tags the verbatim case-ID match at the
// top of Locate and never runs stepB's label/value extraction at all.
func chooseMethod(labels []labelCandidate, best valueCandidate) model.LocatorMethod {
	if len(labels) > 1 {
		return model.MethodMultiExact
	}
	return model.MethodSingleTable
}

func numOrStr(v valueCandidate) interface{} {
	if v.parsedStr != "" {
		return v.parsedStr
	}
	return v.parsedNum
}

// stepA scores every box on the page against every label string in
// spec.Labels and retains all matches above the OCR/digital threshold, per
// "Retain all matches (not just the best) to support multi-table
// documents."
func stepA(spec model.FieldSpec, page model.PageContent) []labelCandidate {
	threshold := fuzzy.AcceptThreshold(page.IsDigital)
	var out []labelCandidate
	for _, b := range page.Boxes {
		best := 0.0
		for _, label := range spec.Labels {
			if s := fuzzy.Score(b.Text, label); s > best {
				best = s
			}
		}
		if best >= threshold {
			out = append(out, labelCandidate{box: b, score: best})
		}
	}
	return out
}

// stepB computes a focused window per label candidate, extracts
// type-specific values inside it, tests each against the expected value,
// and collects every match (ranking happens in rankCandidates).
func stepB(spec model.FieldSpec, page model.PageContent, expected interface{}, labels []labelCandidate, lineSpacing float64) []valueCandidate {
	var out []valueCandidate
	for _, lc := range labels {
		window := focusedWindow(lc.box, lineSpacing)
		for _, vb := range page.Boxes {
			if !inWindow(vb, window) {
				continue
			}
			if cand, ok := extractAndValidate(spec, expected, vb, lc.box, page.IsDigital); ok {
				out = append(out, cand)
			}
		}
	}
	return out
}

type window struct{ top, bottom, left, right float64 }

func focusedWindow(label model.Box, lineSpacing float64) window {
	return window{
		top:    label.Y - 8*lineSpacing,
		bottom: label.Bottom() + 8*lineSpacing,
		left:   label.X - 50,
		right:  label.Right() + 400,
	}
}

func inWindow(b model.Box, w window) bool {
	return b.Y >= w.top && b.Bottom() <= w.bottom && b.X >= w.left && b.X <= w.right
}

// extractAndValidate attempts a type-specific parse of vb.Text and, on
// success, validates it against expected under the type's tolerance.
// Returns ok=false when the box doesn't parse as this field's type at all
// (not merely "doesn't match") so unrelated boxes are never candidates.
func extractAndValidate(spec model.FieldSpec, expected interface{}, vb, label model.Box, pageIsDigital bool) (valueCandidate, bool) {
	cand := valueCandidate{box: vb, label: label}
	cand.sameLine = sameLineAsLabel(vb, label)
	cand.rightOf = vb.X >= label.Right()
	cand.distance = edgeDistance(vb, label)

	switch spec.Type {
	case model.TypeCurrency:
		v, ok := valuenorm.ParseCurrency(vb.Text)
		if !ok || !isReasonableCurrency(v, expected) {
			return cand, false
		}
		exp, eok := toFloat(expected)
		if !eok {
			return cand, false
		}
		valid, conf := valuenorm.ValidateCurrency(v, exp)
		cand.parsedNum, cand.valid, cand.confidence = v, valid, conf
		return cand, true
	case model.TypePercentage:
		v, ok := valuenorm.ParsePercentage(vb.Text)
		if !ok || v < 0 || v > 200 {
			return cand, false
		}
		exp, eok := toFloat(expected)
		if !eok {
			return cand, false
		}
		valid, conf := valuenorm.ValidatePercentage(v, exp)
		cand.parsedNum, cand.valid, cand.confidence = v, valid, conf
		return cand, true
	case model.TypeReference:
		s, ok := valuenorm.ParseReference(vb.Text)
		if !ok {
			return cand, false
		}
		exp, _ := expected.(string)
		valid, conf := valuenorm.ValidateReference(s, exp)
		cand.parsedStr, cand.valid, cand.confidence = s, valid, conf
		return cand, true
	case model.TypeAccount:
		if len(digitsOnly(vb.Text)) <= 2 {
			return cand, false
		}
		s, ok := valuenorm.ParseAccount(vb.Text)
		if !ok {
			return cand, false
		}
		exp, _ := expected.(string)
		valid, conf := valuenorm.ValidateAccount(s, exp, vb.Source != model.SourceDigital)
		cand.parsedStr, cand.valid, cand.confidence = s, valid, conf
		return cand, true
	default: // text
		exp, _ := expected.(string)
		valid, conf := valuenorm.ValidateReference(vb.Text, exp)
		cand.parsedStr, cand.valid, cand.confidence = vb.Text, valid, conf
		return cand, true
	}
}

// isReasonableCurrency rejects tiny magnitudes (<R100) unless the expected
// value itself is that small — edge case (b).
func isReasonableCurrency(v float64, expected interface{}) bool {
	if v >= 100 {
		return true
	}
	exp, ok := toFloat(expected)
	return ok && exp < 100
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func sameLineAsLabel(vb, label model.Box) bool {
	threshold := label.H
	if threshold < 5 {
		threshold = 5
	}
	dy := vb.CenterY() - label.CenterY()
	if dy < 0 {
		dy = -dy
	}
	return dy <= threshold
}

func edgeDistance(vb, label model.Box) float64 {
	dx := vb.X - label.Right()
	if dx < 0 {
		dx = label.X - vb.Right()
	}
	dy := vb.Y - label.Bottom()
	if dy < 0 {
		dy = label.Y - vb.Bottom()
	}
	if dx < 0 {
		dx = 0
	}
	if dy < 0 {
		dy = 0
	}
	return dx + dy
}

// rankCandidates applies Step B's ranking rule: same-line over
// different-line, right-of over below, higher confidence, closer distance.
func rankCandidates(cands []valueCandidate) (valueCandidate, bool) {
	var valid []valueCandidate
	for _, c := range cands {
		if c.valid {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return valueCandidate{}, false
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if a.sameLine != b.sameLine {
			return a.sameLine
		}
		if a.rightOf != b.rightOf {
			return a.rightOf
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		return a.distance < b.distance
	})
	return valid[0], true
}

// ZoneRect is a per-page, per-field fixed rectangle derived from the
// document template, used by the Step C zone fallback.
type ZoneRect struct {
	X, Y, W, H float64
}

func (z ZoneRect) contains(b model.Box) bool {
	return b.X >= z.X && b.Y >= z.Y && b.Right() <= z.X+z.W && b.Bottom() <= z.Y+z.H
}

// stepC applies the coordinate-zone fallback: extract values inside the
// template zone, combine adjacent currency fragments on the same line
// within 30px, and re-run the tolerance test, tagging the result
// zone_fallback.
func stepC(spec model.FieldSpec, page model.PageContent, expected interface{}, zone ZoneRect) model.FieldResult {
	result := model.FieldResult{Name: spec.Name, Expected: expected}
	var inZone []model.Box
	for _, b := range page.Boxes {
		if zone.contains(b) {
			inZone = append(inZone, b)
		}
	}
	if spec.Type == model.TypeCurrency {
		inZone = combineCurrencyFragments(inZone)
	}
	for _, b := range inZone {
		cand, ok := extractAndValidate(spec, expected, b, b, page.IsDigital)
		if ok && cand.valid {
			vb := b
			result.Found = numOrStr(cand)
			result.Valid = true
			result.Confidence = cand.confidence
			result.Method = model.MethodZoneFallback
			result.ValueBox = &vb
			return result
		}
	}
	return result
}

func combineCurrencyFragments(bs []model.Box) []model.Box {
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].Y != bs[j].Y {
			return bs[i].Y < bs[j].Y
		}
		return bs[i].X < bs[j].X
	})
	var out []model.Box
	i := 0
	for i < len(bs) {
		cur := bs[i]
		j := i + 1
		for j < len(bs) {
			next := bs[j]
			if sameLineAsLabel(next, cur) && next.X-cur.Right() <= 30 {
				cur.Text = valuenorm.CombineCurrencyFragments(cur.Text, next.Text)
				cur.W = next.Right() - cur.X
				j++
				continue
			}
			break
		}
		out = append(out, cur)
		i = j
	}
	return out
}

// stepD applies the multi-table staff-rate rule. It enumerates all label
// instances already found by Step A, extracts candidates under each,
// prefers an exact tolerance match across any table, and otherwise accepts
// the most plausible same-line/right-of candidate with a reasonable
// magnitude, tagging it multi_table_staff at confidence 0.85.
func stepD(spec model.FieldSpec, page model.PageContent, expected interface{}, labels []labelCandidate, lineSpacing float64) (model.FieldResult, bool) {
	var allValid []valueCandidate
	var plausible []valueCandidate
	for _, lc := range labels {
		w := focusedWindow(lc.box, lineSpacing)
		for _, vb := range page.Boxes {
			if !inWindow(vb, w) {
				continue
			}
			cand, ok := extractAndValidate(spec, expected, vb, lc.box, page.IsDigital)
			if !ok {
				continue
			}
			if cand.valid {
				allValid = append(allValid, cand)
			} else if isPlausibleStaffCandidate(spec, cand) {
				plausible = append(plausible, cand)
			}
		}
	}
	if best, ok := rankCandidates(allValid); ok {
		lb, vb := best.label, best.box
		return model.FieldResult{
			Name: spec.Name, Expected: expected, Found: numOrStr(best),
			Valid: true, Confidence: best.confidence, Method: model.MethodMultiExact,
			LabelBox: &lb, ValueBox: &vb,
		}, true
	}
	if len(plausible) == 0 {
		return model.FieldResult{}, false
	}
	sort.SliceStable(plausible, func(i, j int) bool {
		a, b := plausible[i], plausible[j]
		if a.sameLine != b.sameLine {
			return a.sameLine
		}
		if a.rightOf != b.rightOf {
			return a.rightOf
		}
		return a.distance < b.distance
	})
	best := plausible[0]
	lb, vb := best.label, best.box
	return model.FieldResult{
		Name: spec.Name, Expected: expected, Found: numOrStr(best),
		Valid: true, Confidence: 0.85, Method: model.MethodMultiStaff,
		LabelBox: &lb, ValueBox: &vb,
	}, true
}

func isPlausibleStaffCandidate(spec model.FieldSpec, cand valueCandidate) bool {
	if spec.Type == model.TypeCurrency && cand.parsedNum < 100 {
		return false
	}
	if spec.Type == model.TypeCurrency && looksLikePercentage(cand.box.Text) {
		return false
	}
	return cand.sameLine || cand.rightOf
}

func looksLikePercentage(s string) bool {
	return strings.Contains(s, "%")
}

// FieldNotFoundIssue formats the issue string used when no candidate
// satisfied a required field.
func FieldNotFoundIssue(name string) string {
	return fmt.Sprintf("field_not_found:%s", name)
}

// MismatchIssue formats the issue string for a candidate that failed
// tolerance.
func MismatchIssue(name string, expected, found interface{}) string {
	return fmt.Sprintf("mismatch:%s:expected=%v,found=%v", name, expected, found)
}
