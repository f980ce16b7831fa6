package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkgate/internal/domain"
)

const (
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	iPadUA    = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	galaxyTab = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	botUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassify_DeviceTypes(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"iphone", iPhoneUA, domain.DeviceMobile},
		{"android phone", androidUA, domain.DeviceMobile},
		{"ipad", iPadUA, domain.DeviceTablet},
		{"android tablet", galaxyTab, domain.DeviceTablet},
		{"windows chrome", desktopUA, domain.DeviceDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.ua).Type)
		})
	}
}

func TestClassify_Labels(t *testing.T) {
	info := NewClassifier().Classify(desktopUA)

	assert.Equal(t, "Chrome", info.Browser)
	assert.Equal(t, "Windows", info.OS)
	assert.False(t, info.Bot)
}

func TestClassify_Bot(t *testing.T) {
	assert.True(t, NewClassifier().Classify(botUA).Bot)
}

func TestClassify_EmptyUserAgentIsUnknown(t *testing.T) {
	info := NewClassifier().Classify("   ")

	assert.Equal(t, domain.DeviceInfo{}, info)
}
