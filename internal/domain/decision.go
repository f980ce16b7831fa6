package domain

// DenyReason is the machine-readable cause of a refused visit.
type DenyReason string

const (
	ReasonNone              DenyReason = ""
	ReasonNotFound          DenyReason = "NOT_FOUND"
	ReasonExpired           DenyReason = "EXPIRED"
	ReasonDeactivated       DenyReason = "DEACTIVATED"
	ReasonUnsafeTarget      DenyReason = "UNSAFE_TARGET"
	ReasonQuotaExceeded     DenyReason = "QUOTA_EXCEEDED"
	ReasonGeoBlocked        DenyReason = "GEO_BLOCKED"
	ReasonDeviceBlocked     DenyReason = "DEVICE_BLOCKED"
	ReasonPasswordRequired  DenyReason = "PASSWORD_REQUIRED"
	ReasonPasswordIncorrect DenyReason = "PASSWORD_INCORRECT"
)

// IsPasswordChallenge reports whether the visitor should be asked for a password.
func (r DenyReason) IsPasswordChallenge() bool {
	return r == ReasonPasswordRequired || r == ReasonPasswordIncorrect
}

// IsUnavailable reports whether the link should look absent to the visitor.
func (r DenyReason) IsUnavailable() bool {
	switch r {
	case ReasonNotFound, ReasonExpired, ReasonDeactivated, ReasonUnsafeTarget:
		return true
	}
	return false
}

// Decision is the outcome of resolving a short code.
type Decision struct {
	Allowed        bool
	Reason         DenyReason
	TargetURL      string
	RedirectStatus int
	Fingerprint    string
}

// Allow builds an allowing decision.
func Allow(targetURL string, status int, fingerprint string) Decision {
	return Decision{Allowed: true, TargetURL: targetURL, RedirectStatus: status, Fingerprint: fingerprint}
}

// Deny builds a refusing decision.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Location is the coarse position of a client IP. Empty Country means unknown.
type Location struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// DeviceInfo is the parsed form of a user-agent string.
type DeviceInfo struct {
	Type    string `json:"type"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Bot     bool   `json:"bot,omitempty"`
}

// RequestContext carries everything the gateway extracted from a visit.
type RequestContext struct {
	ClientIP         string
	UserAgent        string
	Referrer         string
	Password         string
	ScreenResolution string
	CountryHint      string // CDN supplied country, used when geo lookup is inconclusive
	ViaQR            bool

	// Filled in by the resolver before restrictions are evaluated.
	Location Location
	Device   DeviceInfo
}

// Visit is what the click recorder needs about an accepted request.
type Visit struct {
	ClientIP         string
	UserAgent        string
	Referrer         string
	ScreenResolution string
	ViaQR            bool
	Location         Location
	Device           DeviceInfo
}

// Visit projects the request context onto the recorder's input.
func (rc *RequestContext) Visit() Visit {
	return Visit{
		ClientIP:         rc.ClientIP,
		UserAgent:        rc.UserAgent,
		Referrer:         rc.Referrer,
		ScreenResolution: rc.ScreenResolution,
		ViaQR:            rc.ViaQR,
		Location:         rc.Location,
		Device:           rc.Device,
	}
}
