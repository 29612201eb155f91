package signature

import (
	"testing"

	"github.com/loanverify/docverify/internal/verify/model"
)

func landmarkBox(text string, x, y, w, h float64) model.Box {
	return model.Box{Text: text, X: x, Y: y, W: w, H: h, Source: model.SourceDigital, Confidence: 1.0}
}

func TestDeriveInitialZoneRequiresAllLandmarks(t *testing.T) {
	page := model.PageContent{
		PageIndex: 2,
		Boxes: []model.Box{
			landmarkBox("Case reference no", 50, 100, 80, 12),
			landmarkBox("Client initial", 50, 130, 80, 12),
		},
	}
	_, ok := DeriveInitialZone(page, "clientInitial_page2")
	if ok {
		t.Errorf("expected derivation to fail when the merchant landmark is missing")
	}
}

func TestDeriveInitialZoneSucceedsWithAllLandmarks(t *testing.T) {
	page := model.PageContent{
		PageIndex: 2,
		Boxes: []model.Box{
			landmarkBox("Case reference no", 50, 100, 80, 12),
			landmarkBox("Client initial", 50, 130, 80, 12),
			landmarkBox("Merchant/Consultant no", 400, 100, 80, 12),
		},
	}
	zone, ok := DeriveInitialZone(page, "clientInitial_page2")
	if !ok {
		t.Fatalf("expected derivation to succeed with all three landmarks present")
	}
	if zone.W <= 0 || zone.H <= 0 {
		t.Errorf("expected a nonzero-area zone, got W=%v H=%v", zone.W, zone.H)
	}
	if zone.Type != model.ZoneInitial {
		t.Errorf("expected zone type %v, got %v", model.ZoneInitial, zone.Type)
	}
}

func TestDeriveSignatureZoneBelowLandmark(t *testing.T) {
	page := model.PageContent{
		PageIndex: 5,
		PageW:     612, PageH: 792,
		Boxes: []model.Box{
			landmarkBox("Client Signature", 50, 700, 100, 12),
		},
	}
	zone, ok := DeriveSignatureZone(page, "clientSignature_page5", 200)
	if !ok {
		t.Fatalf("expected the signature zone to derive from the landmark")
	}
	if zone.Y <= 700+12 {
		t.Errorf("expected the zone to sit below the landmark box, got Y=%v", zone.Y)
	}
	if zone.Type != model.ZoneSignature {
		t.Errorf("expected zone type %v, got %v", model.ZoneSignature, zone.Type)
	}
}

func TestDeriveSignatureZoneMissingLandmark(t *testing.T) {
	page := model.PageContent{PageIndex: 5, PageW: 612, PageH: 792}
	_, ok := DeriveSignatureZone(page, "clientSignature_page5", 200)
	if ok {
		t.Errorf("expected derivation to fail with no landmark present")
	}
}

func TestDeriveSignatureZoneRejectsOutOfProximityPlace(t *testing.T) {
	page := model.PageContent{
		PageIndex: 5,
		PageW:     612, PageH: 792,
		Boxes: []model.Box{
			landmarkBox("Client Signature", 50, 700, 100, 12),
			landmarkBox("Place", 500, 100, 60, 12),
		},
	}
	_, ok := DeriveSignatureZone(page, "clientSignature_page5", 200)
	if ok {
		t.Errorf("expected derivation to fail when Place sits far outside the proximity bound")
	}
}

func TestDeriveSignatureZoneAcceptsNearbyPlace(t *testing.T) {
	page := model.PageContent{
		PageIndex: 5,
		PageW:     612, PageH: 792,
		Boxes: []model.Box{
			landmarkBox("Client Signature", 50, 700, 100, 12),
			landmarkBox("Place", 100, 700, 60, 12),
		},
	}
	zone, ok := DeriveSignatureZone(page, "clientSignature_page5", 200)
	if !ok {
		t.Fatalf("expected derivation to succeed when Place sits within the proximity bound")
	}
	if zone.Type != model.ZoneSignature {
		t.Errorf("expected zone type %v, got %v", model.ZoneSignature, zone.Type)
	}
}

func TestWithinProximity(t *testing.T) {
	a := model.Box{X: 0, Y: 0}
	near := model.Box{X: 100, Y: 0}
	far := model.Box{X: 300, Y: 0}
	if !WithinProximity(a, near, 200) {
		t.Errorf("expected a box 100px away to be within a 200px proximity bound")
	}
	if WithinProximity(a, far, 200) {
		t.Errorf("expected a box 300px away to fail a 200px proximity bound")
	}
}
