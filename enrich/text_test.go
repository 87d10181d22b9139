package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Bitcoin rallies", "Bitcoin rallies"},
		{"whitespace", "  Bitcoin \n\n rallies\t", "Bitcoin rallies"},
		{"entities", "Stocks &amp; bonds", "Stocks & bonds"},
		{"paragraphs", "<p>First.</p><p>Second.</p>", "First. Second."},
		{"inline markup", "A <b>bold</b> <a href=\"/x\">move</a>", "A bold move"},
		{"script removed", "<div>Text<script>alert(1)</script></div>", "Text"},
		{"truncation marker", "The market moved sharply on Monday… [+2314 chars]", "The market moved sharply on Monday"},
		{"ascii ellipsis marker", "Prices fell... [+87 chars]", "Prices fell"},
		{"markup and marker", "<ul><li>One</li><li>Two</li></ul> [+10 chars]", "One Two"},
		{"comparison is not markup", "a < b and c > d", "a < b and c > d"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
