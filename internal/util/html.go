package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Match any HTML tag
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// Match <a href="..."> to extract URLs
	anchorRe = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>`)

	// Match closing </a>
	anchorCloseRe = regexp.MustCompile(`(?i)</a\s*>`)

	// Collapse runs of blank lines into at most two newlines (one blank line)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)

	// Collapse runs of spaces (not newlines) into one
	spacesRe = regexp.MustCompile(`[^\S\n]+`)

	// <br> variants
	brRe = regexp.MustCompile(`(?i)<br\s*/?\s*>`)

	// Closing block tags that produce paragraph breaks
	blockCloseRe = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|blockquote|pre|table|tr)\s*>`)

	// Opening block tags
	blockOpenRe = regexp.MustCompile(`(?i)<(?:p|div|h[1-6]|blockquote|pre|table|tr)(?:\s[^>]*)?\s*>`)

	// List item open/close
	liOpenRe  = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?\s*>`)
	liCloseRe = regexp.MustCompile(`(?i)</li\s*>`)

	// List wrappers (strip silently, <li> handles the structure)
	listWrapRe = regexp.MustCompile(`(?i)</?(?:ul|ol)(?:\s[^>]*)?\s*>`)

	// Blank lines before a bullet (block breaks stack with the bullet's own
	// newline; a list should hug the text that introduces it)
	bulletGapRe = regexp.MustCompile(`\n{2,}(  • )`)
)

// HTMLToText converts an HTML event body to plain text safe to carry in a
// description field. Links become "text (url)"; redirect wrappers are
// unwrapped first. Link URLs longer than width are truncated with "…";
// pass width <= 0 to skip truncation.
func HTMLToText(s string, width int) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	// Block-level elements become newlines
	s = brRe.ReplaceAllString(s, "\n")
	s = blockCloseRe.ReplaceAllString(s, "\n\n")
	s = blockOpenRe.ReplaceAllString(s, "\n")

	// Lists: strip wrappers, bullet each item
	s = listWrapRe.ReplaceAllString(s, "")
	s = liOpenRe.ReplaceAllString(s, "\n  • ")
	s = liCloseRe.ReplaceAllString(s, "")

	s = convertLinks(s, width)

	// Strip remaining tags, then decode entities
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	s = spacesRe.ReplaceAllString(s, " ")

	// Trim each line but keep bullet indentation
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.TrimLeft(line, " "), "• ") {
			lines[i] = "  • " + strings.TrimPrefix(trimmed, "• ")
		} else {
			lines[i] = trimmed
		}
	}
	s = strings.Join(lines, "\n")

	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	s = bulletGapRe.ReplaceAllString(s, "\n$1")

	return strings.TrimSpace(s)
}

// convertLinks replaces <a href="url">text</a> with "text (url)". When the
// link text already is the URL, only the URL is kept.
func convertLinks(s string, maxWidth int) string {
	for {
		aLoc := anchorRe.FindStringSubmatchIndex(s)
		if aLoc == nil {
			break
		}

		href := s[aLoc[2]:aLoc[3]]
		afterOpen := s[aLoc[1]:]

		closeLoc := anchorCloseRe.FindStringIndex(afterOpen)
		if closeLoc == nil {
			// Malformed: strip the opening tag and move on
			s = s[:aLoc[0]] + s[aLoc[1]:]
			continue
		}

		linkText := afterOpen[:closeLoc[0]]
		linkText = tagRe.ReplaceAllString(linkText, "")
		linkText = strings.TrimSpace(linkText)

		href = unwrapRedirect(href)
		if maxWidth > 0 {
			href = TruncateText(href, maxWidth)
		}

		replacement := href
		if linkText != "" && linkText != href {
			replacement = linkText + " (" + href + ")"
		}

		s = s[:aLoc[0]] + replacement + afterOpen[closeLoc[1]:]
	}
	return s
}

// unwrapRedirect extracts the real target from Google redirect wrappers
// (www.google.com/url?q=...) and Outlook Safe Links
// (*.safelinks.protection.outlook.com/?url=...).
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	if u.Host == "www.google.com" && u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	if strings.HasSuffix(u.Host, ".safelinks.protection.outlook.com") {
		if target := u.Query().Get("url"); target != "" {
			return target
		}
	}

	return rawURL
}
