package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilterString(t *testing.T) {
	tests := []struct {
		filter string
		want   bool
	}{
		{"", true},
		{".jpeg,.png, .gif", true},
		{"image/*, video/*, .mp4, video/x-msvideo, application/vnd.amazon.ebook", true},
		{"application/vnd.amazon.ebook, audio/opus", true},

		{"*.notvalid, .png", false},
		{"test.png", false},
		{"application/*", false},
		{".png;.png,.jpg", false},
		{".png .jpg .gif", false},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFilterString(tt.filter))
		})
	}
}

func TestNormalizeFilterString(t *testing.T) {
	tests := []struct {
		filter string
		want   string
	}{
		{"", ""},
		{".jpeg,.png,.gif", ".jpeg,.png,.gif"},
		{".jpeg, .png,    .gif,", ".jpeg,.png,.gif"},
		{"jpg, *.gif", ".jpg,.gif"},
		{"video, image/", "video/*,image/*"},
		{"video/*", "video/*"},
		{"video/x-msvideo,.jpeg", "video/x-msvideo,.jpeg"},
		{".video", ".video"},
		{"png, .gif, .png,", ".png,.gif"},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFilterString(tt.filter))
		})
	}
}

func TestIsExtensionAllowed(t *testing.T) {
	tests := []struct {
		filter    string
		extension string
		want      bool
	}{
		{"", "txt", true},
		{"", "everything_should_match", true},

		{".jpg,.png", "jpg", true},
		{".jpg,.png", "png", true},
		{".jpg,.png", "txt", false},

		{"image/*", "jpeg", true},
		{"image/*", "png", true},
		{"image/*", "txt", false},

		{"application/pdf,.txt", "pdf", true},
		{"application/pdf,.txt", "txt", true},
		{"application/pdf,.txt", "jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.filter+"|"+tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExtensionAllowed(tt.filter, tt.extension))
		})
	}
}

func TestIsFilenameAllowed(t *testing.T) {
	assert.True(t, IsFilenameAllowed(".pdf", "datasheet.PDF"))
	assert.False(t, IsFilenameAllowed(".pdf", "README"))
	assert.True(t, IsFilenameAllowed("", "README"))
}
