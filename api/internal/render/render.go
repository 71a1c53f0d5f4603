// Package render formats compliance reports for people: a Markdown table,
// an HTML page built from it, and YAML for the command line.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"vastu-check/api/internal/vastu"
)

var statusMark = map[vastu.Status]string{
	vastu.StatusVerified:    "✅",
	vastu.StatusNotVerified: "❌",
	vastu.StatusUnknown:     "❔",
}

// Markdown writes the summary line and a GFM table with one row per room.
func Markdown(rep vastu.Report) string {
	var b strings.Builder
	s := rep.Summary
	fmt.Fprintf(&b, "## Vastu compliance\n\n")
	fmt.Fprintf(&b, "**%d** rooms analyzed: **%d** verified, **%d** not verified.\n\n",
		s.TotalRoomsAnalyzed, s.VerifiedPlacements, s.NotVerifiedPlacements)
	b.WriteString("| Room | Location | Status | Ideal | Note |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, d := range rep.Details {
		fmt.Fprintf(&b, "| %s | %s | %s %s | %s | %s |\n",
			cell(d.RoomName), d.DetectedLocation, statusMark[d.Status], d.Status,
			cell(d.IdealLocations), cell(d.Message))
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the Markdown report as a standalone page. When image is a
// data URL it is embedded above the table.
func HTML(rep vastu.Report, image string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rep)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>Vastu compliance</title></head><body>\n")
	if image != "" {
		fmt.Fprintf(&out, "<img alt=\"annotated plan\" style=\"max-width:100%%\" src=\"%s\">\n", html.EscapeString(image))
	}
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

func YAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("render yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
