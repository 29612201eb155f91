// Package signature derives per-page initial/signature rectangles from
// landmark text boxes and scores each cropped zone for the presence of a
// human mark.
//
// Zone derivation is grounded on internal/pdf/signature/context.go's
// PageDimensions/PageMargins shape (adapted here to describe a *detected*
// layout rather than one being authored) and on the landmark-search pattern
// already used for label matching in internal/verify/fuzzy.
package signature

import (
	"github.com/loanverify/docverify/internal/verify/fuzzy"
	"github.com/loanverify/docverify/internal/verify/model"
)

// LandmarkThreshold is the minimum fuzzy score a box must clear to be
// accepted as a zone-deriving landmark.
const LandmarkThreshold = 0.6

// findLandmark returns the box on the page whose text scores highest
// against the given landmark label, provided that score is at or above
// LandmarkThreshold; on equal scores the earliest box wins.
func findLandmark(page model.PageContent, label string) (model.Box, bool) {
	best := model.Box{}
	bestScore := 0.0
	found := false
	for _, b := range page.Boxes {
		if s := fuzzy.Score(b.Text, label); s >= LandmarkThreshold && s > bestScore {
			best, bestScore, found = b, s, true
		}
	}
	return best, found
}

// DeriveInitialZone builds the initial-mark rectangle for a non-final page
// from the "Case reference no", "Client initial", and "Merchant/Consultant
// no" landmarks. Returns ok=false when any landmark can't be located; no
// fixed template zone is substituted, and runSignatureEngine then reports
// no initial zone for that page.
func DeriveInitialZone(page model.PageContent, zoneName string) (model.SignatureZone, bool) {
	caseRef, ok1 := findLandmark(page, "Case reference no")
	clientInitial, ok2 := findLandmark(page, "Client initial")
	merchant, ok3 := findLandmark(page, "Merchant/Consultant no")
	if !ok1 || !ok2 || !ok3 {
		return model.SignatureZone{}, false
	}
	zone := model.SignatureZone{
		Name: zoneName,
		Page: page.PageIndex,
		X:    caseRef.X,
		Y:    caseRef.Y,
		W:    merchant.X - caseRef.X,
		H:    (clientInitial.Y + clientInitial.H) - caseRef.Y,
		Type: model.ZoneInitial,
		DerivedFrom: []string{
			"Case reference no", "Client initial", "Merchant/Consultant no",
		},
	}
	return zone, zone.W > 0 && zone.H > 0
}

// DeriveSignatureZone builds the final-page signature rectangle below the
// located "Client Signature" landmark box. When a "Place" landmark is also
// present on the page, the signature box must sit within proximityPx of it
// (per the form's layout convention, Place and Client Signature are always
// printed together) — this rejects a stray same-text match elsewhere on a
// busy final page before it produces a wrongly-positioned zone.
func DeriveSignatureZone(page model.PageContent, zoneName string, proximityPx float64) (model.SignatureZone, bool) {
	sig, ok := findLandmark(page, "Client Signature")
	if !ok {
		return model.SignatureZone{}, false
	}
	if place, found := findLandmark(page, "Place"); found && !WithinProximity(sig, place, proximityPx) {
		return model.SignatureZone{}, false
	}
	zone := model.SignatureZone{
		Name: zoneName,
		Page: page.PageIndex,
		X:    sig.X,
		Y:    sig.Y + sig.H + 10,
		W:    page.PageW / 2,
		H:    0.12 * page.PageH,
		Type: model.ZoneSignature,
		DerivedFrom: []string{"Client Signature"},
	}
	return zone, true
}

// WithinProximity checks the optional proximity constraint some landmark
// pairs carry, e.g. "Client Signature" must sit within 200px of "Place".
func WithinProximity(a, b model.Box, maxDistance float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx+dy*dy <= maxDistance*maxDistance
}
