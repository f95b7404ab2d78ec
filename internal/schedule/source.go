package schedule

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// The default schedule sheet is reproducible from its public edit link; the
// document ID and worksheet tab are kept as constants so the CSV export URL
// can always be rebuilt.
const (
	DefaultSheetID  = "1Gb0zwlzL-CGf9QP3iuY1oD-dhaUEowhUz4EFgTXg1I8"
	DefaultSheetGID = "250902752"
)

var (
	defaultSheetEditURL = fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%s", DefaultSheetID, DefaultSheetGID)
	defaultSheetCSVURL  = fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", DefaultSheetID, DefaultSheetGID)
)

type normalizedSheetURL struct {
	csvURL       string
	sheetID      string
	gid          string
	wasConverted bool
	notes        []string
}

// ResolveSource determines the effective CSV URL. A configured URL is
// normalized to its CSV-export form; an empty one falls back to the built-in
// default sheet. The returned metadata records how the URL was derived.
func ResolveSource(rawURL string) SourceInfo {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed != "" {
		normalized := normalizeSheetURL(trimmed)
		return SourceInfo{
			Source:       SourceEnv,
			OriginURL:    trimmed,
			CSVURL:       normalized.csvURL,
			SheetID:      normalized.sheetID,
			GID:          normalized.gid,
			WasConverted: normalized.wasConverted,
			Notes:        normalized.notes,
		}
	}

	normalized := normalizeSheetURL(defaultSheetEditURL)
	info := SourceInfo{
		Source:       SourceDefault,
		OriginURL:    defaultSheetEditURL,
		CSVURL:       normalized.csvURL,
		SheetID:      normalized.sheetID,
		GID:          normalized.gid,
		WasConverted: normalized.wasConverted,
		Notes:        append([]string{"used-default-fallback"}, normalized.notes...),
	}
	if info.CSVURL == "" {
		info.CSVURL = defaultSheetCSVURL
	}
	if info.SheetID == "" {
		info.SheetID = DefaultSheetID
	}
	if info.GID == "" {
		info.GID = DefaultSheetGID
	}
	return info
}

var (
	sheetIDRe = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)
	hashGIDRe = regexp.MustCompile(`gid=([0-9]+)`)
)

// normalizeSheetURL unifies Google Sheets share links (edit/view/export)
// into a CSV export URL.
//
// Rules:
//   - Anything not hosted on docs.google.com under /spreadsheets/ passes
//     through untouched.
//   - An /export URL keeps its shape; a non-csv format parameter is
//     rewritten to csv.
//   - Edit/view URLs are rebuilt as /export?format=csv with the gid (taken
//     from the query or the #gid= fragment) propagated.
//   - Unparseable URLs or ones without an extractable document ID are
//     returned unchanged with a diagnostic note; never an error.
func normalizeSheetURL(raw string) normalizedSheetURL {
	var notes []string

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		notes = append(notes, "url-parse-error")
		return normalizedSheetURL{csvURL: raw, notes: notes}
	}

	isGoogleSheets := strings.Contains(parsed.Hostname(), "docs.google.com") &&
		strings.Contains(parsed.Path, "/spreadsheets/")
	if !isGoogleSheets {
		notes = append(notes, "non-google-sheets-url")
		return normalizedSheetURL{csvURL: raw, notes: notes}
	}

	sheetID := ""
	if m := sheetIDRe.FindStringSubmatch(parsed.Path); m != nil {
		sheetID = m[1]
	}
	gid := parsed.Query().Get("gid")
	if gid == "" && parsed.Fragment != "" {
		// Some share links carry the worksheet tab as #gid=.
		if m := hashGIDRe.FindStringSubmatch(parsed.Fragment); m != nil {
			gid = m[1]
		}
	}

	if strings.Contains(parsed.Path, "/export") {
		query := parsed.Query()
		if strings.EqualFold(query.Get("format"), "csv") {
			notes = append(notes, "already-export-csv")
			return normalizedSheetURL{
				csvURL:  parsed.String(),
				sheetID: sheetID,
				gid:     gid,
				notes:   notes,
			}
		}
		query.Set("format", "csv")
		parsed.RawQuery = query.Encode()
		notes = append(notes, "export-format-adjusted")
		return normalizedSheetURL{
			csvURL:       parsed.String(),
			sheetID:      sheetID,
			gid:          gid,
			wasConverted: true,
			notes:        notes,
		}
	}

	if sheetID == "" {
		notes = append(notes, "missing-sheet-id")
		return normalizedSheetURL{csvURL: raw, notes: notes}
	}

	exportURL := url.URL{
		Scheme: "https",
		Host:   "docs.google.com",
		Path:   fmt.Sprintf("/spreadsheets/d/%s/export", sheetID),
	}
	query := url.Values{}
	query.Set("format", "csv")
	if gid != "" {
		query.Set("gid", gid)
	}
	exportURL.RawQuery = query.Encode()
	notes = append(notes, "converted-from-edit-url")

	return normalizedSheetURL{
		csvURL:       exportURL.String(),
		sheetID:      sheetID,
		gid:          gid,
		wasConverted: true,
		notes:        notes,
	}
}
