package preview

import (
	"regexp"
	"strconv"
	"strings"
)

// Quotation mark varieties stripped from title edges. Covers ASCII quotes,
// guillemets and the Unicode curly/angle quote family.
const quoteChars = "\"'`«»“”‘’‚‛„‟‹›"

var (
	reOnInstagram  = regexp.MustCompile(`(?i)\s*on Instagram:?\s*`)
	reDashSuffix   = regexp.MustCompile(`(?i)\s*-\s*(@\w+|Instagram).*$`)
	reBulletSuffix = regexp.MustCompile(`(?i)\s*•\s*(likes?|comments?|@\w+|Instagram).*$`)
	reLeadingAt    = regexp.MustCompile(`^@\w+\s*`)
	reTrailingAt   = regexp.MustCompile(`\s*@\w+$`)
	reInlineAt     = regexp.MustCompile(`\s+@\w+\s+`)
	reWhitespace   = regexp.MustCompile(`\s+`)

	reHexEntity = regexp.MustCompile(`&#x([0-9a-fA-F]+);`)
	reDecEntity = regexp.MustCompile(`&#(\d+);`)
)

// CleanTitle strips platform boilerplate from a scraped title: "on Instagram"
// phrases, trailing "- @handle" and "• N likes" segments, surrounding
// quotation marks, @mentions and repeated whitespace. Cleaning runs to a
// fixpoint, so cleaning an already-clean title is a no-op.
func CleanTitle(title string) string {
	for {
		next := cleanPass(title)
		if next == title {
			return next
		}
		title = next
	}
}

func cleanPass(title string) string {
	s := reOnInstagram.ReplaceAllString(title, " ")
	s = reDashSuffix.ReplaceAllString(s, "")
	s = reBulletSuffix.ReplaceAllString(s, "")
	s = strings.Trim(s, quoteChars)
	s = reLeadingAt.ReplaceAllString(s, "")
	s = reTrailingAt.ReplaceAllString(s, "")
	s = reInlineAt.ReplaceAllString(s, " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DecodeEntities decodes numeric character references and the five standard
// named HTML entities in text extracted from meta tags.
func DecodeEntities(text string) string {
	if text == "" {
		return text
	}
	s := reHexEntity.ReplaceAllStringFunc(text, func(m string) string {
		hex := reHexEntity.FindStringSubmatch(m)[1]
		n, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
	s = reDecEntity.ReplaceAllStringFunc(s, func(m string) string {
		dec := reDecEntity.FindStringSubmatch(m)[1]
		n, err := strconv.ParseInt(dec, 10, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&apos;", "'")
	return s
}
