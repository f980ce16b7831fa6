// Package restriction decides whether a visit passes a link's restriction
// policy. Everything here is pure: no I/O, no clocks, no shared state.
package restriction

import (
	"golang.org/x/crypto/bcrypt"

	"linkgate/internal/domain"
)

// Input is everything a check may look at.
type Input struct {
	Policy     domain.RestrictionPolicy
	ClickCount int64
	Request    *domain.RequestContext
}

// Result is Allow or Deny(reason).
type Result struct {
	Allowed bool
	Reason  domain.DenyReason
}

// Allowed is the passing result.
var Allowed = Result{Allowed: true}

// Denied builds a failing result.
func Denied(reason domain.DenyReason) Result {
	return Result{Reason: reason}
}

// Check is a single restriction. It returns Allowed when the restriction does
// not apply.
type Check func(in Input) Result

// DefaultChecks is the evaluation order: quota, geography, device, password.
var DefaultChecks = []Check{
	CheckQuota,
	CheckGeography,
	CheckDevice,
	CheckPassword,
}

// Evaluator runs checks in order and stops at the first denial.
type Evaluator struct {
	checks []Check
}

// NewEvaluator creates an evaluator with the default check order.
func NewEvaluator() *Evaluator {
	return &Evaluator{checks: DefaultChecks}
}

// NewEvaluatorWithChecks creates an evaluator running the given checks.
func NewEvaluatorWithChecks(checks ...Check) *Evaluator {
	return &Evaluator{checks: checks}
}

// Evaluate returns the first denial or Allowed.
func (e *Evaluator) Evaluate(policy domain.RestrictionPolicy, clickCount int64, req *domain.RequestContext) Result {
	if req == nil {
		req = &domain.RequestContext{}
	}
	in := Input{Policy: policy, ClickCount: clickCount, Request: req}
	for _, check := range e.checks {
		if res := check(in); !res.Allowed {
			return res
		}
	}
	return Allowed
}

// CheckQuota denies once the click count has reached max_clicks.
func CheckQuota(in Input) Result {
	if in.Policy.MaxClicks == nil {
		return Allowed
	}
	if in.ClickCount >= *in.Policy.MaxClicks {
		return Denied(domain.ReasonQuotaExceeded)
	}
	return Allowed
}

// CheckGeography applies the allow-list first, then the block-list.
// An unknown country passes both.
func CheckGeography(in Input) Result {
	country := in.Request.Location.Country
	if country == "" {
		return Allowed
	}
	if len(in.Policy.AllowedCountries) > 0 {
		if in.Policy.AllowedCountries.Contains(country) {
			return Allowed
		}
		return Denied(domain.ReasonGeoBlocked)
	}
	if len(in.Policy.BlockedCountries) > 0 && in.Policy.BlockedCountries.Contains(country) {
		return Denied(domain.ReasonGeoBlocked)
	}
	return Allowed
}

// CheckDevice denies device classes missing from the allow-list.
func CheckDevice(in Input) Result {
	if len(in.Policy.AllowedDevices) == 0 {
		return Allowed
	}
	device := in.Request.Device.Type
	if device == "" {
		return Allowed
	}
	if in.Policy.AllowedDevices.Contains(device) {
		return Allowed
	}
	return Denied(domain.ReasonDeviceBlocked)
}

// CheckPassword distinguishes a missing password from a wrong one.
func CheckPassword(in Input) Result {
	if !in.Policy.HasPassword() {
		return Allowed
	}
	if in.Request.Password == "" {
		return Denied(domain.ReasonPasswordRequired)
	}
	if bcrypt.CompareHashAndPassword([]byte(in.Policy.PasswordHash), []byte(in.Request.Password)) != nil {
		return Denied(domain.ReasonPasswordIncorrect)
	}
	return Allowed
}

// HashPassword produces the hash stored in RestrictionPolicy.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
