package httpadapter

import "testing"

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"  Alice  ":                        "Alice",
		"<b>Bob</b>":                       "Bob",
		"<script>alert(1)</script>Carol":   "Carol",
		"O'Brien & Sons":                   "O'Brien & Sons",
		`<a href="javascript:x">Dave</a>`: "Dave",
	}
	for input, want := range cases {
		if got := plainText(input); got != want {
			t.Fatalf("plainText(%q) = %q, want %q", input, got, want)
		}
	}
}
