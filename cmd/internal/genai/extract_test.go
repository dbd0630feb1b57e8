package genai

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"calories": 420}`,
			want: `{"calories": 420}`,
		},
		{
			name: "fenced json",
			in:   "```json\n{\"calories\": 420}\n```",
			want: `{"calories": 420}`,
		},
		{
			name: "fenced without language tag",
			in:   "```\n{\"ok\": true}\n```",
			want: `{"ok": true}`,
		},
		{
			name: "prose around object",
			in:   "Here is your analysis: {\"calories\": 420} Enjoy!",
			want: `{"calories": 420}`,
		},
		{
			name: "no object falls back to wrapping",
			in:   "I cannot analyse that image.",
			want: `{"text":"I cannot analyse that image."}`,
		},
		{
			name: "broken braces fall back to wrapping",
			in:   "{not json}",
			want: `{"text":"{not json}"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractJSON(tc.in)
			if !json.Valid(got) {
				t.Fatalf("ExtractJSON produced invalid JSON: %s", got)
			}
			if string(got) != tc.want {
				t.Fatalf("ExtractJSON(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}
