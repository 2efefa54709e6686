package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPageName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"page1.jpg", true},
		{"PAGE.JPG", true},
		{"dir/sub/001.jpeg", true},
		{"a.png", true},
		{"a.gif", true},
		{"a.bmp", true},
		{"a.WebP", true},
		{"notes.txt", false},
		{"README", false},
		{"cover.tiff", false},
		{"dir.png/readme", false},
		{"__MACOSX/page1.jpg", false},
		{"__MACOSX/dir/._page1.jpg", false},
		{"dir/._page1.jpg", false},
		{"._page1.jpg", false},
		{".DS_Store", false},
		{"dir/.DS_Store", false},
		{`dir\._page1.jpg`, false},
		{`dir\page1.jpg`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPageName(tt.name))
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.png":    "image/png",
		"a.PNG":    "image/png",
		"a.gif":    "image/gif",
		"a.bmp":    "image/bmp",
		"a.webp":   "image/webp",
		"a.jpg":    "image/jpeg",
		"PAGE.JPG": "image/jpeg",
		"a.jpeg":   "image/jpeg",
		"a.tiff":   DefaultContentType,
		"noext":    DefaultContentType,
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "p1.jpg", BaseName("p1.jpg"))
	assert.Equal(t, "p1.jpg", BaseName("vol1/ch1/p1.jpg"))
	assert.Equal(t, "p1.jpg", BaseName(`vol1\p1.jpg`))
	assert.Equal(t, "", BaseName("dir/"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Extension("a.b.JPG"))
	assert.Equal(t, "", Extension("noext"))
	assert.Equal(t, "", Extension("trailing."))
}
