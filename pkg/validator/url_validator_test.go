package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/path?q=1", false},
		{"http", "http://example.com", false},
		{"upper case scheme", "HTTPS://Example.com", false},
		{"empty", "", true},
		{"ftp", "ftp://example.com/file", true},
		{"javascript", "javascript:alert(1)", true},
		{"data", "data:text/html,hi", true},
		{"no scheme", "example.com", true},
		{"spaces", "https://exa mple.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateURL_TooLong(t *testing.T) {
	long := "https://example.com/"
	for len(long) <= maxURLLength {
		long += "aaaaaaaaaa"
	}
	assert.Error(t, ValidateURL(long))
}

func TestValidateShortCode(t *testing.T) {
	assert.True(t, ValidateShortCode("abc123"))
	assert.True(t, ValidateShortCode("my-link_2"))
	assert.False(t, ValidateShortCode("a"))
	assert.False(t, ValidateShortCode("has space"))
	assert.False(t, ValidateShortCode("slash/code"))
}

func TestIsReservedCode(t *testing.T) {
	assert.True(t, IsReservedCode("qr"))
	assert.True(t, IsReservedCode("Preview"))
	assert.False(t, IsReservedCode("promo"))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/Path", NormalizeURL("HTTPS://EXAMPLE.com/Path"))
}

func TestIsSafeURL(t *testing.T) {
	assert.True(t, IsSafeURL("https://example.com"))
	assert.True(t, IsSafeURL("http://example.com/x"))
	assert.False(t, IsSafeURL("javascript:alert(1)"))
	assert.False(t, IsSafeURL("data:text/html;base64,AAAA"))
	assert.False(t, IsSafeURL("ftp://example.com"))
	assert.False(t, IsSafeURL("https://"))
	assert.False(t, IsSafeURL("::not a url"))
}

func TestScreenResolution(t *testing.T) {
	assert.Equal(t, "1920x1080", ScreenResolution("1920x1080"))
	assert.Equal(t, "390x844", ScreenResolution(" 390X844 "))
	assert.Empty(t, ScreenResolution(""))
	assert.Empty(t, ScreenResolution("1920*1080"))
	assert.Empty(t, ScreenResolution("123456x1080"))
	assert.Empty(t, ScreenResolution(strings.Repeat("9", 500)))
}
