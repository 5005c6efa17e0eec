package slackconn

import (
	"fmt"
	"strings"
)

// MarkdownToMrkdwn converts the bot's Markdown replies to Slack's mrkdwn
// format: **bold** becomes *bold*, *italic* becomes _italic_, and
// [text](url) becomes <url|text>.
func MarkdownToMrkdwn(md string) string {
	result := convertEmphasis(md)
	result = strings.ReplaceAll(result, "~~", "~")
	return convertLinks(result)
}

// convertEmphasis handles bold and italic in a single pass so ** is never
// misread as two italic markers. Emphasis inside backticks is left alone.
func convertEmphasis(s string) string {
	var b strings.Builder
	inCode := false
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '`':
			inCode = !inCode
			b.WriteByte(ch)
			i++
		case ch == '*' && !inCode:
			if i+1 < len(s) && s[i+1] == '*' {
				b.WriteByte('*')
				i += 2
			} else {
				b.WriteByte('_')
				i++
			}
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// convertLinks converts [text](url) to <url|text>.
func convertLinks(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '[' {
			b.WriteByte(s[i])
			i++
			continue
		}
		closeB := strings.Index(s[i:], "](")
		if closeB == -1 {
			b.WriteByte(s[i])
			i++
			continue
		}
		closeB += i
		closeP := strings.Index(s[closeB:], ")")
		if closeP == -1 {
			b.WriteByte(s[i])
			i++
			continue
		}
		closeP += closeB

		fmt.Fprintf(&b, "<%s|%s>", s[closeB+2:closeP], s[i+1:closeB])
		i = closeP + 1
	}
	return b.String()
}
