// Package extract parses reference mentions out of raw document text.
package extract

import (
	"regexp"
	"strings"
)

// Heading pattern for locating the references section, tolerant of the
// common language variants seen in practice.
var refsHeadingRE = regexp.MustCompile(
	`(?i)\n[ \t]*(References|Bibliography|References and Notes|参考文献|Références|Literatur)[ \t]*\n`)

// Per-entry split patterns, tried in priority order.
var (
	refSplitBracketRE = regexp.MustCompile(`(?m)^[ \t]*\[(\d+)\][ \t]*`)
	// Matches "12. A..." including the capital so entry start can be
	// recovered without lookahead.
	refSplitNumberedRE = regexp.MustCompile(`(?m)^[ \t]*(\d+)\.[ \t]+[A-Z]`)
	refSplitBlankRE    = regexp.MustCompile(`\n{2,}`)
)

// Identifier patterns.
var (
	doiRE        = regexp.MustCompile(`10\.\d{4,}/[^\s,;}\]]+`)
	arxivRE      = regexp.MustCompile(`\b(\d{4}\.\d{4,5})\b`)
	aclIDRE      = regexp.MustCompile(`\b([A-Z]\d{2}-\d{4})\b`)
	aclIDNewRE   = regexp.MustCompile(`\b(\d{4}\.[a-z]+-[a-z]+\.\d+)\b`)
	openReviewRE = regexp.MustCompile(`forum\?id=([A-Za-z0-9_-]+)`)
	urlRE        = regexp.MustCompile(`https?://[^\s,;}\]]+`)
	isbnRE       = regexp.MustCompile(`ISBN[:\s]*([\dX\-]+)`)

	// Title guess: first capitalized span ending in sentence punctuation.
	titleGuessRE = regexp.MustCompile(`[A-Z][^.?!]{10,200}[.?!]`)

	// Tail fallback acceptance: a bracketed numeral or "1. A" pattern.
	refListMarkerRE = regexp.MustCompile(`\[1\]|\b1\.\s+[A-Z]`)
)

// minFragmentLen discards blank-line-split fragments shorter than this.
const minFragmentLen = 20

// Entry is a single parsed reference mention.
type Entry struct {
	Raw          string `json:"raw"`
	DOI          string `json:"doi,omitempty"`
	ArXiv        string `json:"arxiv,omitempty"`
	ACLID        string `json:"acl_id,omitempty"`
	OpenReviewID string `json:"openreview_id,omitempty"`
	URL          string `json:"url,omitempty"`
	ISBN         string `json:"isbn,omitempty"`
	TitleGuess   string `json:"title_guess,omitempty"`
}

// BestKey returns the best-guess destination key for the entry, preferring
// DOI, then arXiv, then anthology ID.
func (e *Entry) BestKey() string {
	switch {
	case e.DOI != "":
		return e.DOI
	case e.ArXiv != "":
		return e.ArXiv
	case e.ACLID != "":
		return e.ACLID
	}
	return ""
}

// Result holds the located references section and its parsed entries.
type Result struct {
	RawSection string  `json:"raw_section"`
	Entries    []Entry `json:"entries"`
}

// ExtractReferences finds the references section of a document and parses it
// into individual entries. A document with no recognizable section yields an
// empty entry list, not an error.
func ExtractReferences(text string) Result {
	section := findSection(text)
	if section == "" {
		return Result{}
	}

	return Result{
		RawSection: section,
		Entries:    splitEntries(section),
	}
}

// findSection locates the references section by heading, falling back to the
// final 20% of the text when that visibly resembles a reference list.
func findSection(text string) string {
	if loc := refsHeadingRE.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}

	tail := text[len(text)*8/10:]
	if refListMarkerRE.MatchString(tail) {
		return tail
	}
	return ""
}

// splitEntries splits a references section into individual entries, trying
// bracket markers, then numbered-dot markers, then blank-line paragraphs.
func splitEntries(section string) []Entry {
	if entries := splitByMarkers(section, refSplitBracketRE, 0); len(entries) > 0 {
		return entries
	}
	// Numbered-dot matches include the leading capital; back up one byte so
	// the entry text keeps it.
	if entries := splitByMarkers(section, refSplitNumberedRE, 1); len(entries) > 0 {
		return entries
	}

	var entries []Entry
	for _, chunk := range refSplitBlankRE.Split(section, -1) {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) > minFragmentLen {
			entries = append(entries, parseEntry(chunk))
		}
	}
	return entries
}

// splitByMarkers slices the section at each marker match. Each entry spans
// from (match end - backup) to the start of the next match.
func splitByMarkers(section string, re *regexp.Regexp, backup int) []Entry {
	locs := re.FindAllStringIndex(section, -1)
	if len(locs) == 0 {
		return nil
	}

	var entries []Entry
	for i, loc := range locs {
		start := loc[1] - backup
		end := len(section)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		raw := strings.TrimSpace(section[start:end])
		if raw != "" {
			entries = append(entries, parseEntry(raw))
		}
	}
	return entries
}

// parseEntry runs every identifier extractor over a single raw mention.
func parseEntry(raw string) Entry {
	e := Entry{Raw: raw}

	if m := doiRE.FindString(raw); m != "" {
		e.DOI = strings.TrimRight(m, ".")
	}
	if m := arxivRE.FindStringSubmatch(raw); m != nil {
		e.ArXiv = m[1]
	}
	if m := aclIDRE.FindStringSubmatch(raw); m != nil {
		e.ACLID = m[1]
	} else if m := aclIDNewRE.FindStringSubmatch(raw); m != nil {
		e.ACLID = m[1]
	}
	if m := openReviewRE.FindStringSubmatch(raw); m != nil {
		e.OpenReviewID = m[1]
	}
	if m := urlRE.FindString(raw); m != "" {
		e.URL = strings.TrimRight(m, ".)")
	}
	if m := isbnRE.FindStringSubmatch(raw); m != nil {
		e.ISBN = m[1]
	}
	if m := titleGuessRE.FindString(raw); m != "" {
		e.TitleGuess = strings.TrimRight(m, ".")
	}

	return e
}

// ParseIdentifiers extracts identifiers from a single raw mention without
// section detection. The resolver uses it on stored edge text.
func ParseIdentifiers(raw string) Entry {
	return parseEntry(raw)
}
