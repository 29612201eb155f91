package models

// PageDetail represents the dimensions of a single PDF page with its number
type PageDetail struct {
	PageNum int     `json:"pageNum"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// PageInfo contains metadata about PDF pages
type PageInfo struct {
	TotalPages int          `json:"totalPages"`
	Pages      []PageDetail `json:"pages"`
}

// TextPosition represents the position of text on a page
type TextPosition struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RedactionRect represents a region to redact
type RedactionRect struct {
	PageNum int     `json:"pageNum"` // 1-based
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// RedactionTextQuery describes text-based redaction criteria.
type RedactionTextQuery struct {
	Text string `json:"text"`
}

// PageCapability describes whether a page contains text or image-like content.
type PageCapability struct {
	PageNum   int    `json:"pageNum"`
	Type      string `json:"type"` // text | image_only | mixed | unknown
	HasText   bool   `json:"hasText"`
	HasImage  bool   `json:"hasImage"`
	OCREnable bool   `json:"ocrEnabled"`
	Note      string `json:"note,omitempty"`
}
