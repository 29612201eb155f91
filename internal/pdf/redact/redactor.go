package redact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/loanverify/docverify/internal/models"
)

// Redactor provides an object-oriented interface for inspecting a PDF's
// pages and text (page info, page capabilities, text positions, text
// search), caching the parsed PDF structure to avoid redundant processing.
type Redactor struct {
	pdfBytes []byte
	objMap   map[string][]byte
	info     *models.PageInfo
}

// NewRedactor initializes a new Redactor with the given PDF bytes.
// It parses the PDF into an object map and retrieves page information.
func NewRedactor(pdfBytes []byte) (*Redactor, error) {
	if len(pdfBytes) == 0 {
		return nil, errors.New("empty pdf bytes")
	}

	if trailerHasEncrypt(pdfBytes) {
		return nil, errors.New("encrypted PDFs are not supported")
	}

	// Create an empty objMap first, some operations only need pdfBytes
	r := &Redactor{
		pdfBytes: pdfBytes,
	}

	// Try to build the map, but don't fail immediately if it's just meant for GetPageInfo error handling
	objMap, err := buildObjectMap(pdfBytes)
	if err == nil {
		r.objMap = objMap

		info, err := r.GetPageInfo()
		if err == nil {
			r.info = &info
		}
	}

	// We return the redactor even if object map building failed,
	// as functions like GetPageInfo handle their own errors.
	return r, nil
}

// GetPageInfo extracts page count and dimensions from a PDF
func (r *Redactor) GetPageInfo() (models.PageInfo, error) {
	if len(r.pdfBytes) == 0 {
		return models.PageInfo{}, errors.New("empty pdf bytes")
	}

	if trailerHasEncrypt(r.pdfBytes) {
		return models.PageInfo{}, errors.New("encrypted PDFs are not supported")
	}

	rootRef, ok := findRootRef(r.pdfBytes)
	if !ok {
		return models.PageInfo{}, errors.New("could not find PDF root object")
	}

	// Use cached objMap if available, else build
	objMap := r.objMap
	var err error
	if objMap == nil {
		objMap, err = buildObjectMap(r.pdfBytes)
		if err != nil {
			return models.PageInfo{}, err
		}
	}

	rootBody, ok := objMap[rootRef]
	if !ok {
		return models.PageInfo{}, errors.New("root object not found in map")
	}

	pagesRefRe := regexp.MustCompile(`/Pages\s+(\d+)\s+(\d+)\s+R`)
	pm := pagesRefRe.FindSubmatch(rootBody)
	if pm == nil {
		return models.PageInfo{}, errors.New("no /Pages reference in Root")
	}
	pagesKey := string(pm[1]) + " " + string(pm[2])

	var pageDims []models.PageDetail
	if err := traversePages(pagesKey, objMap, &pageDims); err != nil {
		return models.PageInfo{}, fmt.Errorf("error traversing page tree: %w", err)
	}

	return models.PageInfo{
		TotalPages: len(pageDims),
		Pages:      pageDims,
	}, nil
}

// AnalyzePageCapabilities classifies each page for text/image redaction capability.
func (r *Redactor) AnalyzePageCapabilities() ([]models.PageCapability, error) {
	objMap := r.objMap
	var err error
	if objMap == nil {
		objMap, err = buildObjectMap(r.pdfBytes)
		if err != nil {
			return nil, err
		}
	}

	info := r.info
	if info == nil {
		inf, err := r.GetPageInfo()
		if err != nil {
			return nil, err
		}
		info = &inf
	}

	caps := make([]models.PageCapability, 0, info.TotalPages)
	for i := 1; i <= info.TotalPages; i++ {
		pageRef, err := findPageObject(objMap, r.pdfBytes, i)
		if err != nil {
			caps = append(caps, models.PageCapability{PageNum: i, Type: "unknown", Note: err.Error()})
			continue
		}
		body := objMap[pageRef]
		keys := extractContentKeys(body)
		hasText := false
		hasImage := false
		for _, key := range keys {
			objBody, ok := objMap[key]
			if !ok {
				continue
			}
			rawStream, decStream, _ := inspectStream(objBody)
			combined := append(rawStream, decStream...) //nolint:gocritic
			s := string(combined)
			if strings.Contains(s, "BT") && (strings.Contains(s, "Tj") || strings.Contains(s, "TJ")) {
				hasText = true
			}
			if strings.Contains(s, " Do") || bytesIndex(objBody, []byte("/Image")) >= 0 {
				hasImage = true
			}
		}
		if len(keys) == 0 {
			content, _ := extractPageContent(body, objMap)
			s := string(content)
			hasText = strings.Contains(s, "BT") && (strings.Contains(s, "Tj") || strings.Contains(s, "TJ"))
			hasImage = strings.Contains(s, " Do") || bytesIndex(body, []byte("/Image")) >= 0
		}
		typeName := "unknown"
		switch {
		case hasText && hasImage:
			typeName = "mixed"
		case hasText:
			typeName = "text"
		case hasImage:
			typeName = "image_only"
		}
		capability := models.PageCapability{PageNum: i, Type: typeName, HasText: hasText, HasImage: hasImage}
		if typeName == "image_only" {
			capability.Note = "text search requires OCR for image-only content"
		}
		caps = append(caps, capability)
	}
	return caps, nil
}
