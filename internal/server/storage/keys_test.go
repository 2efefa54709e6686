package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	id := "0b7e6c1c-2f7f-4a4b-9e4e-5a1d2f3c4b5a"

	assert.Equal(t, "manga-collections/"+id+"/", KeyPrefix(id))
	assert.Equal(t, "manga-collections/"+id+"/a.zip", ArchiveKey(id, "a.zip"))
	assert.Equal(t, "manga-collections/"+id+"/a.zip", ArchiveKey(id, `C:\books\a.zip`))
	assert.Equal(t, "manga-collections/"+id+"/a.zip", ArchiveKey(id, "../../a.zip"))
	assert.Equal(t, "manga-collections/"+id+"/thumbnail.jpg", ThumbnailKey(id, "JPG"))
	assert.Equal(t, "manga-collections/"+id+"/metadata.json", MetadataKey(id))
}

func TestIsMetadataKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{"manga-collections/abc/metadata.json", "abc", true},
		{"manga-collections/abc/a.zip", "", false},
		{"manga-collections/abc/nested/metadata.json", "", false},
		{"manga-collections//metadata.json", "", false},
		{"other/abc/metadata.json", "", false},
		{"manga-collections/abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := IsMetadataKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
