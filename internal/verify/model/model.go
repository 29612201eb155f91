// Package model holds the data shapes shared by every stage of the
// verification pipeline: canonical text boxes, the case model supplied by
// the upstream workflow, field specifications, and the reports produced at
// the end of a run.
package model

// BoxSource identifies which extraction path produced a Box.
type BoxSource string

const (
	SourceDigital     BoxSource = "digital"
	SourceOCR         BoxSource = "ocr"
	SourceEnhancedOCR BoxSource = "enhanced_ocr"
)

// BoxQuality is an optional hint about how trustworthy a box's text is.
type BoxQuality string

const (
	QualityGood       BoxQuality = "good"
	QualityFair       BoxQuality = "fair"
	QualityPoor       BoxQuality = "poor"
	QualityMixedChars BoxQuality = "mixed_chars"
)

// Box is the canonical bounding box shape every extraction path normalizes
// into. Coordinates are in page points with the origin at the page's
// top-left corner, Y increasing downward (matches the OCR word-box
// convention the adapter produces; digital extraction is rescaled to match).
//
// Invariant: 0 <= X <= X+W <= PageW and 0 <= Y <= Y+H <= PageH.
// Invariant: Confidence == 1.0 iff Source == SourceDigital.
type Box struct {
	Text       string
	X, Y       float64
	W, H       float64
	Page       int
	PageW      float64
	PageH      float64
	Source     BoxSource
	Confidence float64
	Quality    BoxQuality
}

// Right and Bottom are convenience accessors used throughout the locator
// and merger, where "edge" math recurs constantly.
func (b Box) Right() float64  { return b.X + b.W }
func (b Box) Bottom() float64 { return b.Y + b.H }

// CenterY is used by line-grouping logic in the box merger and the
// signature-zone landmark search.
func (b Box) CenterY() float64 { return b.Y + b.H/2 }

// Valid checks the Box invariant. Only this package's tests call it; the
// pipeline does not re-check it when boxes are used.
func (b Box) Valid() bool {
	if b.W < 0 || b.H < 0 {
		return false
	}
	if b.X < 0 || b.Right() > b.PageW+0.01 {
		return false
	}
	if b.Y < 0 || b.Bottom() > b.PageH+0.01 {
		return false
	}
	if b.Source == SourceDigital && b.Confidence != 1.0 {
		return false
	}
	return true
}

// PageContent is the frozen, per-page output of Image Acquisition (and,
// after OCR, of the Box Normalizer). It is owned by the Orchestrator for
// the duration of one document.
type PageContent struct {
	PageIndex int
	PageW     float64
	PageH     float64
	Boxes     []Box
	IsDigital bool
	// AcquisitionFailed is set when per-page rasterization failed; the
	// page is still carried so the document-level pipeline can continue.
	AcquisitionFailed bool
	// Degraded is set when the page exceeded its soft processing timeout.
	Degraded bool
}

// FieldType controls which value grammar the normalizer/validator applies.
type FieldType string

const (
	TypeCurrency   FieldType = "currency"
	TypePercentage FieldType = "percentage"
	TypeReference  FieldType = "reference"
	TypeAccount    FieldType = "account"
	TypeText       FieldType = "text"
)

// SearchStrategy hints the Field Locator where to prefer looking for a
// field's value relative to its label.
type SearchStrategy string

const (
	StrategyRight SearchStrategy = "right"
	StrategyBelow SearchStrategy = "below"
	StrategyAny   SearchStrategy = "any"
)

// FieldSpec describes one field a CaseModel is expected to carry and how to
// locate its value in a document.
type FieldSpec struct {
	Name           string
	Labels         []string
	Type           FieldType
	Required       bool
	SearchStrategy SearchStrategy
}

// CaseModel is the structured, authoritative record retrieved from the
// upstream workflow system. Values are untyped at this layer (the caller
// supplies strings/numbers as JSON-decoded into interface{}); FieldSpec.Type
// governs how each is parsed and compared.
type CaseModel struct {
	CaseID string
	// Fields holds every case-model value keyed by field name, including
	// the required keys (caseId, loanAmount, instalment, interestRate,
	// insurancePremium, collectionAccountNo) and the product-dependent
	// ones (initiationFee, serviceFee, collectionBank,
	// disbursementAccountNo, clientIsStaff).
	Fields map[string]interface{}
}

// IsStaff reports the clientIsStaff flag, defaulting to false when absent.
func (c CaseModel) IsStaff() bool {
	v, ok := c.Fields["clientIsStaff"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// LocatorMethod records which Field Locator rule produced a FieldResult.
type LocatorMethod string

const (
	MethodDirectMatch    LocatorMethod = "direct_match"
	MethodMultiExact     LocatorMethod = "multi_table_exact"
	MethodMultiStaff     LocatorMethod = "multi_table_staff"
	MethodZoneFallback   LocatorMethod = "zone_fallback"
	MethodSingleTable    LocatorMethod = "single_table"
)

// FieldResult is the per-field outcome of the Field Locator + Validator.
type FieldResult struct {
	Name       string        `json:"-"`
	Expected   interface{}   `json:"expected"`
	Found      interface{}   `json:"found"`
	Valid      bool          `json:"valid"`
	Confidence float64       `json:"confidence"`
	Method     LocatorMethod `json:"method,omitempty"`
	LabelBox   *Box          `json:"-"`
	ValueBox   *Box          `json:"-"`
}

// ZoneType distinguishes the two kinds of signature zones the engine
// derives: a short initial mark versus a full signature block.
type ZoneType string

const (
	ZoneInitial   ZoneType = "initial"
	ZoneSignature ZoneType = "signature"
)

// SignatureZone is a derived rectangle on a page where a human mark is
// expected.
type SignatureZone struct {
	Name         string
	Page         int
	X, Y, W, H   float64
	Type         ZoneType
	DerivedFrom  []string
	Required     bool
}

// ZoneFeatures captures the contour-analysis measurements behind a mark
// decision, surfaced for debugging and audit.
type ZoneFeatures struct {
	ContourCount    int
	Area            float64
	StrokeComplexity float64
	Density         float64
}

// ZoneReport is the per-zone outcome of the Signature Zone Engine.
type ZoneReport struct {
	Zone       string       `json:"name"`
	Marked     bool         `json:"marked"`
	Confidence float64      `json:"confidence"`
	Features   ZoneFeatures `json:"features,omitempty"`
}

// ReportStatus is the final verdict of a verification run.
type ReportStatus string

const (
	StatusValid   ReportStatus = "VALID"
	StatusInvalid ReportStatus = "INVALID"
	StatusError   ReportStatus = "ERROR"
)

// Summary carries the headline counts surfaced alongside the report.
type Summary struct {
	FieldsRequired int `json:"fieldsRequired"`
	FieldsValid    int `json:"fieldsValid"`
	ZonesRequired  int `json:"zonesRequired"`
	ZonesMarked    int `json:"zonesMarked"`
}

// VerificationReport is the final output of the Verification Orchestrator.
type VerificationReport struct {
	Status            ReportStatus           `json:"status"`
	OverallConfidence float64                `json:"overallConfidence"`
	Fields            map[string]FieldResult `json:"fields"`
	Zones             []ZoneReport           `json:"zones"`
	Issues            []string               `json:"issues"`
	Summary           Summary                `json:"summary"`
}
