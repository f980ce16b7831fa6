package device

import (
	"strings"

	"github.com/mssola/useragent"

	"linkgate/internal/domain"
)

// Classifier turns user-agent strings into device classes and labels.
type Classifier struct{}

// NewClassifier creates a user-agent classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify parses ua. An empty user agent yields an empty device type, which
// the device restriction treats as unknown.
func (c *Classifier) Classify(ua string) domain.DeviceInfo {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return domain.DeviceInfo{}
	}

	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	info := domain.DeviceInfo{
		Type:    domain.DeviceDesktop,
		Browser: browser,
		OS:      parsed.OSInfo().Name,
		Bot:     parsed.Bot(),
	}

	switch {
	case isTablet(ua):
		info.Type = domain.DeviceTablet
	case parsed.Mobile():
		info.Type = domain.DeviceMobile
	}

	return info
}

// isTablet covers the agents useragent reports as mobile or desktop even
// though they are tablets.
func isTablet(ua string) bool {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "kindle"),
		strings.Contains(lower, "silk/"):
		return true
	case strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return true
	}
	return false
}
