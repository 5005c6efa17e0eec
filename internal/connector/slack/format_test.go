package slackconn

import "testing"

func TestMarkdownToMrkdwn(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold", "This is **bold** text", "This is *bold* text"},
		{"italic", "This is *italic* text", "This is _italic_ text"},
		{"bold and italic", "**bold** and *italic*", "*bold* and _italic_"},
		{"strikethrough", "~~deleted~~ text", "~deleted~ text"},
		{"link", "Click [here](https://example.com) now", "Click <https://example.com|here> now"},
		{"code preserved", "Use `*not bold*` in code", "Use `*not bold*` in code"},
		{"plain", "Just plain text", "Just plain text"},
		{
			"ticket reply",
			"**Support Ticket Created Successfully!**\n- Ticket ID: #TKT-1",
			"*Support Ticket Created Successfully!*\n- Ticket ID: #TKT-1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MarkdownToMrkdwn(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		input string
		botID string
		want  string
	}{
		{"<@U123> hello", "U123", "hello"},
		{"hey <@U123> there", "U123", "hey  there"},
		{"no mention here", "U123", "no mention here"},
		{"<@U999> hello", "U123", "<@U999> hello"},
	}
	for _, tc := range tests {
		if got := StripMention(tc.input, tc.botID); got != tc.want {
			t.Errorf("StripMention(%q, %q) = %q, want %q", tc.input, tc.botID, got, tc.want)
		}
	}
}

func TestChatKey(t *testing.T) {
	if got := chatKey("C1", ""); got != "C1" {
		t.Errorf("chatKey = %q", got)
	}
	if got := chatKey("C1", "169.42"); got != "C1:169.42" {
		t.Errorf("chatKey = %q", got)
	}
}
