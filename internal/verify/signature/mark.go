package signature

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/loanverify/docverify/internal/verify/model"
)

// No library in the retrieved example pack performs contour/blob detection
// (OpenCV-equivalent); disintegration/imaging, the pack's one image
// library, only offers filters/transforms. Binarization and connected
// components are therefore implemented directly against image.Image —
// a deliberate, documented exception to "never fall back to stdlib where
// the corpus shows a library", justified in DESIGN.md.

// blockSize and cConstant are the adaptive-threshold parameters from the
// scoring rule: block 11, C=2.
const (
	blockSize = 11
	cConstant = 2
)

// contour is a connected component of "ink" pixels found in a binarized
// zone crop, carrying the measurements the marked-zone decision needs.
type contour struct {
	area      int
	perimeter int
	minX, minY, maxX, maxY int
}

func (c contour) width() float64  { return float64(c.maxX - c.minX + 1) }
func (c contour) height() float64 { return float64(c.maxY - c.minY + 1) }

func (c contour) complexity() float64 {
	if c.area == 0 {
		return 0
	}
	return float64(c.perimeter*c.perimeter) / float64(c.area)
}

func (c contour) solidity() float64 {
	hullArea := c.width() * c.height()
	if hullArea == 0 {
		return 0
	}
	return float64(c.area) / hullArea
}

func (c contour) aspectRatio() float64 {
	if c.height() == 0 {
		return 0
	}
	return c.width() / c.height()
}

// ScoreZone crops, binarizes, and runs connected-component analysis over a
// signature/initial zone, returning whether it's marked plus the feature
// measurements behind the decision.
func ScoreZone(pageImage image.Image, zone model.SignatureZone) model.ZoneReport {
	crop := imaging.Crop(pageImage, image.Rect(
		int(zone.X), int(zone.Y), int(zone.X+zone.W), int(zone.Y+zone.H),
	))
	gray := imaging.Grayscale(crop)
	binary := adaptiveThreshold(gray, blockSize, cConstant)
	contours := findContours(binary)

	zoneArea := zone.W * zone.H
	var best *contour
	totalInk := 0
	for i := range contours {
		totalInk += contours[i].area
		if qualifies(contours[i], zoneArea) {
			if best == nil || contours[i].area > best.area {
				best = &contours[i]
			}
		}
	}

	bounds := binary.Bounds()
	density := 0.0
	if totalPixels := bounds.Dx() * bounds.Dy(); totalPixels > 0 {
		density = float64(totalInk) / float64(totalPixels)
	}

	report := model.ZoneReport{
		Zone: zone.Name,
		Features: model.ZoneFeatures{
			ContourCount: len(contours),
			Density:      density,
		},
	}
	if best == nil {
		report.Marked = false
		report.Confidence = 0
		return report
	}
	report.Marked = true
	report.Features.Area = float64(best.area)
	report.Features.StrokeComplexity = best.complexity()
	complexityTerm := math.Min(best.complexity()/200, 1)
	solidityTerm := 1 - math.Abs(best.solidity()-0.5)*2
	report.Confidence = 0.7*complexityTerm + 0.3*solidityTerm
	if report.Confidence < 0 {
		report.Confidence = 0
	}
	return report
}

// qualifies applies the marked-zone acceptance rule: area within
// [100, 0.1*zoneArea], complexity > 50, solidity in [0.2,0.9], aspect ratio
// in [0.2,5.0].
func qualifies(c contour, zoneArea float64) bool {
	if float64(c.area) < 100 || float64(c.area) > 0.1*zoneArea {
		return false
	}
	if c.complexity() <= 50 {
		return false
	}
	s := c.solidity()
	if s < 0.2 || s > 0.9 {
		return false
	}
	ar := c.aspectRatio()
	return ar >= 0.2 && ar <= 5.0
}

// adaptiveThreshold implements a mean-based local threshold: a pixel is
// "ink" (true) when it is darker than its blockSize neighborhood mean minus
// cConstant. This mirrors OpenCV's ADAPTIVE_THRESH_MEAN_C without requiring
// a CV binding.
func adaptiveThreshold(gray *image.NRGBA, block, c int) [][]bool {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([][]bool, h)
	for y := range out {
		out[y] = make([]bool, w)
	}
	half := block / 2
	// integral image for O(1) window-sum queries.
	integral := make([][]int, h+1)
	for y := range integral {
		integral[y] = make([]int, w+1)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := gray.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := int(r >> 8)
			integral[y+1][x+1] = lum + integral[y][x+1] + integral[y+1][x] - integral[y][x]
		}
	}
	sumWindow := func(x0, y0, x1, y1 int) int {
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		if x1 > w {
			x1 = w
		}
		if y1 > h {
			y1 = h
		}
		if x1 <= x0 || y1 <= y0 {
			return 0
		}
		return integral[y1][x1] - integral[y0][x1] - integral[y1][x0] + integral[y0][x0]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0, x1, y1 := x-half, y-half, x+half+1, y+half+1
			count := (min(x1, w) - max(x0, 0)) * (min(y1, h) - max(y0, 0))
			if count <= 0 {
				continue
			}
			mean := sumWindow(x0, y0, x1, y1) / count
			r, _, _, _ := gray.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := int(r >> 8)
			out[y][x] = lum < mean-c
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// findContours runs a 4-connected flood fill over the binary mask and
// returns one contour per connected component, with perimeter approximated
// as the count of boundary pixels (pixels with at least one non-ink
// 4-neighbor).
func findContours(binary [][]bool) []contour {
	if len(binary) == 0 {
		return nil
	}
	h := len(binary)
	w := len(binary[0])
	visited := make([][]bool, h)
	for y := range visited {
		visited[y] = make([]bool, w)
	}
	var out []contour
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !binary[y][x] || visited[y][x] {
				continue
			}
			out = append(out, floodFill(binary, visited, x, y, w, h))
		}
	}
	return out
}

func floodFill(binary, visited [][]bool, sx, sy, w, h int) contour {
	c := contour{minX: sx, minY: sy, maxX: sx, maxY: sy}
	stack := [][2]int{{sx, sy}}
	visited[sy][sx] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := p[0], p[1]
		c.area++
		if x < c.minX {
			c.minX = x
		}
		if x > c.maxX {
			c.maxX = x
		}
		if y < c.minY {
			c.minY = y
		}
		if y > c.maxY {
			c.maxY = y
		}
		boundary := false
		neighbors := [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}}
		for _, n := range neighbors {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h || !binary[ny][nx] {
				boundary = true
				continue
			}
			if !visited[ny][nx] {
				visited[ny][nx] = true
				stack = append(stack, [2]int{nx, ny})
			}
		}
		if boundary {
			c.perimeter++
		}
	}
	return c
}
