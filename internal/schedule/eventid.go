package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStripRe = regexp.MustCompile(`[^a-zA-Z0-9가-힣]+`)

// stripMarks decomposes to NFKD, drops combining marks and recomposes, so
// accented Latin titles slugify to plain ASCII while Hangul syllables come
// back intact.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EventID derives a deterministic event identifier from the start
// timestamp, a slug of the title and the event's ordinal index. IDs are
// stable and unique within one parse, not across parses.
func EventID(startISO, title string, index int) string {
	slug := slugify(title)
	if slug == "" {
		slug = "event"
	}
	return fmt.Sprintf("%s-%s-%d", startISO, slug, index)
}

func slugify(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	slug := slugStripRe.ReplaceAllString(folded, "-")
	slug = strings.Trim(slug, "-")
	return strings.ToLower(slug)
}
