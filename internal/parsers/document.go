package parsers

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// CharDump is the character-position export of a statement PDF
type CharDump struct {
	Pages []Page `json:"pages"`
}

// Page holds the glyphs of one page and, optionally, its extracted text
type Page struct {
	Number int    `json:"number"`
	Chars  []Char `json:"chars"`
	Text   string `json:"text,omitempty"`
}

// Char is one glyph with its left edge and top coordinate in points
type Char struct {
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Top  float64 `json:"top"`
}

// textLine is one reconstructed line. Zones is only filled on the
// positional path.
type textLine struct {
	Page   int
	Number int
	Text   string
	Zones  [zoneCount]string
}

// decodeCharDump reads a JSON character dump. It returns false for content
// that is not a dump, which is then treated as plain text.
func decodeCharDump(content []byte) (*CharDump, bool) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var dump CharDump
	if err := json.Unmarshal(trimmed, &dump); err != nil || len(dump.Pages) == 0 {
		return nil, false
	}
	return &dump, true
}

// hasChars reports whether any page carries position data
func (d *CharDump) hasChars() bool {
	for _, p := range d.Pages {
		if len(p.Chars) > 0 {
			return true
		}
	}
	return false
}

// text joins the per-page text for the fallback path
func (d *CharDump) text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

type charGroup struct {
	page  int
	chars []Char
}

// reconstructLines sorts each page's characters by top and starts a new
// line whenever a character sits more than YTolerance below the first
// character of the current line. Each line is then ordered by x and split
// into zones. The number of text runs that contributed to a line does not
// matter.
func reconstructLines(dump *CharDump, layout *StatementLayout) []textLine {
	type numberedPage struct {
		number int
		chars  []Char
	}
	pages := make([]numberedPage, 0, len(dump.Pages))
	for i, page := range dump.Pages {
		number := page.Number
		if number == 0 {
			number = i + 1
		}
		pages = append(pages, numberedPage{number: number, chars: page.Chars})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].number < pages[j].number })

	var groups []charGroup
	for _, page := range pages {
		chars := append([]Char(nil), page.chars...)
		sort.SliceStable(chars, func(i, j int) bool { return chars[i].Top < chars[j].Top })

		anchor := math.Inf(-1)
		for _, c := range chars {
			if len(groups) == 0 || groups[len(groups)-1].page != page.number || c.Top-anchor > layout.YTolerance {
				groups = append(groups, charGroup{page: page.number})
				anchor = c.Top
			}
			last := &groups[len(groups)-1]
			last.chars = append(last.chars, c)
		}
	}

	lines := make([]textLine, 0, len(groups))
	for n, group := range groups {
		chars := group.chars
		sort.SliceStable(chars, func(i, j int) bool { return chars[i].X0 < chars[j].X0 })

		var zones [zoneCount]strings.Builder
		var full strings.Builder
		lastX := make([]float64, zoneCount)
		prevX := math.Inf(-1)

		for _, c := range chars {
			z := layout.ZoneFor(c.X0)
			if zones[z].Len() > 0 && c.X0-lastX[z] > layout.WordGap {
				zones[z].WriteByte(' ')
			}
			zones[z].WriteString(c.Text)
			lastX[z] = c.X0

			if full.Len() > 0 && c.X0-prevX > layout.WordGap {
				full.WriteByte(' ')
			}
			full.WriteString(c.Text)
			prevX = c.X0
		}

		line := textLine{Page: group.page, Number: n + 1, Text: collapse(full.String())}
		for z := range zones {
			line.Zones[z] = collapse(zones[z].String())
		}
		lines = append(lines, line)
	}
	return lines
}

// splitLines turns plain text into numbered lines for the fallback path.
// Leading whitespace is kept so column offsets survive.
func splitLines(text string) []textLine {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]textLine, 0, len(raw))
	for i, r := range raw {
		r = strings.TrimRight(r, " \t")
		if strings.TrimSpace(r) == "" {
			continue
		}
		lines = append(lines, textLine{Number: i + 1, Text: r})
	}
	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
