package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_Render(t *testing.T) {
	renderer := NewRenderer()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:  "empty notes",
			input: "   \n",
		},
		{
			name:     "plain text becomes a paragraph",
			input:    "Welcome everyone",
			contains: []string{"<p>Welcome everyone</p>"},
		},
		{
			name:     "markdown list",
			input:    "- first point\n- second point",
			contains: []string{"<ul>", "<li>first point</li>", "<li>second point</li>"},
		},
		{
			name:     "carriage returns become line breaks",
			input:    "line one\rline two",
			contains: []string{"line one<br", "line two"},
		},
		{
			name:     "emphasis",
			input:    "**pause** here",
			contains: []string{"<strong>pause</strong>"},
		},
		{
			name:     "scripts are stripped",
			input:    "hello <script>alert(1)</script> world",
			contains: []string{"hello"},
			excludes: []string{"<script", "alert(1)</script>"},
		},
		{
			name:     "event handlers are stripped",
			input:    `<p onclick="steal()">click</p>`,
			excludes: []string{"onclick"},
		},
		{
			name:     "links get nofollow",
			input:    "[docs](https://example.com)",
			contains: []string{`href="https://example.com"`, `rel="nofollow`},
		},
		{
			name:     "javascript urls are dropped",
			input:    "[bad](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderer.Render(tt.input)

			if len(tt.contains) == 0 && len(tt.excludes) == 0 {
				assert.Empty(t, out)
				return
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestRenderer_RenderRepeated(t *testing.T) {
	renderer := NewRenderer()

	first := renderer.Render("Same notes")
	second := renderer.Render("Same notes")
	assert.Equal(t, first, second)

	other := renderer.Render("Different notes")
	assert.NotEqual(t, first, other)
	assert.Contains(t, other, "Different notes")
}
