package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppTypeForPath(t *testing.T) {
	tests := []struct {
		path     string
		expected AppType
		ok       bool
	}{
		{"/decks/a.key", AppTypeKeynote, true},
		{"/decks/b.pptx", AppTypePowerPoint, true},
		{"/decks/c.ppt", AppTypePowerPoint, true},
		{"/decks/D.PPTX", AppTypePowerPoint, true},
		{"/decks/show.ppsx", AppTypePowerPoint, true},
		{"/decks/notes.txt", "", false},
		{"/decks/noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := AppTypeForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsPresentationPath(t *testing.T) {
	assert.True(t, IsPresentationPath("/decks/talk.key"))
	assert.False(t, IsPresentationPath("/decks/.~lock.talk.pptx"))
	assert.False(t, IsPresentationPath("/decks/readme.md"))
}

func TestIsPackageDocument(t *testing.T) {
	assert.True(t, IsPackageDocument("/decks/talk.key"))
	assert.True(t, IsPackageDocument("/decks/TALK.KEY"))
	assert.False(t, IsPackageDocument("/decks/talk.pptx"))
}

func TestPlaceholderSlides(t *testing.T) {
	slides := PlaceholderSlides(3)

	assert.Equal(t, []SlideSummary{
		{Index: 1, Title: "Slide 1"},
		{Index: 2, Title: "Slide 2"},
		{Index: 3, Title: "Slide 3"},
	}, slides)
	assert.Empty(t, PlaceholderSlides(0))
}
