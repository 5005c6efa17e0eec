package telegram

import (
	"regexp"
	"strconv"
	"strings"
)

// Telegram only accepts a small HTML subset, so replies written in
// Markdown are converted before sending. The bot's reply vocabulary is
// bold, italic, inline code and links; anything else passes through as
// escaped text.

var (
	// Inline code is protected first so its contents are never styled.
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// MarkdownToTelegramHTML converts Markdown reply text to Telegram's HTML
// subset.
func MarkdownToTelegramHTML(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = convertLine(line)
	}
	return strings.Join(lines, "\n")
}

func convertLine(line string) string {
	type codeSpan struct {
		placeholder string
		html        string
	}
	var spans []codeSpan

	line = reInlineCode.ReplaceAllStringFunc(line, func(match string) string {
		inner := reInlineCode.FindStringSubmatch(match)[1]
		placeholder := "\x00" + strconv.Itoa(len(spans)) + "\x00"
		spans = append(spans, codeSpan{
			placeholder: placeholder,
			html:        "<code>" + escapeHTML(inner) + "</code>",
		})
		return placeholder
	})

	line = escapeHTML(line)

	// Bold before italic, so ** is consumed before *.
	line = reBold.ReplaceAllString(line, "<b>$1</b>")
	line = reItalic.ReplaceAllString(line, "<i>$1</i>")
	line = reLink.ReplaceAllString(line, `<a href="$2">$1</a>`)

	for _, s := range spans {
		line = strings.Replace(line, s.placeholder, s.html, 1)
	}
	return line
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// StripMarkdown removes Markdown formatting, returning plain text. Used
// as the fallback when Telegram rejects the HTML variant.
func StripMarkdown(md string) string {
	result := reInlineCode.ReplaceAllString(md, "$1")
	result = reBold.ReplaceAllString(result, "$1")
	result = reItalic.ReplaceAllString(result, "$1")
	result = reLink.ReplaceAllString(result, "$1 ($2)")
	return result
}
