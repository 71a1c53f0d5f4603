package vastu

import (
	"regexp"
	"strings"
)

const (
	// MinConfidence is exclusive: a detection at exactly 0.4 is dropped.
	MinConfidence = 0.4
	minCleanLen   = 2
)

var nonLetters = regexp.MustCompile(`[^a-zA-Z\s]`)

// stair direction markers drawn on plans
var stairMarkers = map[string]bool{"up": true, "dn": true}

const stairLabel = "staircase"

// Box is an axis-aligned rectangle in processed-image pixels.
type Box struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// BoxFromCorners truncates float corners the way the detector reports them:
// origin from the top-left corner, size from the corner deltas.
func BoxFromCorners(x0, y0, x1, y1 float64) Box {
	return Box{X: int(x0), Y: int(y0), W: int(x1 - x0), H: int(y1 - y0)}
}

func (b Box) Center() (float64, float64) {
	return float64(b.X) + float64(b.W)/2, float64(b.Y) + float64(b.H)/2
}

// Detection is a single OCR hit.
type Detection struct {
	Text       string
	Confidence float64
	Box        Box
}

type MatchedRoom struct {
	Label string `json:"label" yaml:"label"`
	Box   Box    `json:"bbox" yaml:"bbox"`
}

// CleanText keeps ASCII letters and whitespace, lower-cases and trims.
func CleanText(raw string) string {
	return strings.TrimSpace(strings.ToLower(nonLetters.ReplaceAllString(raw, "")))
}

// Match resolves raw OCR text to a canonical label. Fallback matching
// returns the first rule, in declaration order, whose every word occurs
// as a substring of the cleaned text.
func (c *Catalog) Match(raw string, confidence float64) (string, bool) {
	if confidence <= MinConfidence {
		return "", false
	}
	text := CleanText(raw)
	if len(text) < minCleanLen {
		return "", false
	}
	if stairMarkers[text] {
		text = stairLabel
	}
	if _, ok := c.index[text]; ok {
		return text, true
	}
	for _, r := range c.rules {
		if containsAllWords(text, r.Label) {
			return r.Label, true
		}
	}
	return "", false
}

func containsAllWords(text, label string) bool {
	for _, w := range strings.Fields(label) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// MatchDetections keeps detection order; unmatched detections are dropped.
func (c *Catalog) MatchDetections(dets []Detection) []MatchedRoom {
	out := make([]MatchedRoom, 0, len(dets))
	for _, d := range dets {
		label, ok := c.Match(d.Text, d.Confidence)
		if !ok {
			continue
		}
		out = append(out, MatchedRoom{Label: label, Box: d.Box})
	}
	return out
}
