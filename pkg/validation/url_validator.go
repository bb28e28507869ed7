package validation

import (
	"net/netip"
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/note-inspector-go/internal/errors"
)

// MaxURLLength bounds candidate URLs accepted for fetching
const MaxURLLength = 2048

// URLValidator checks candidate image URLs before they are fetched
type URLValidator struct {
	schemes     []string
	hosts       []string // empty means any host
	denyPrivate bool
}

// URLOption customises a URLValidator
type URLOption func(*URLValidator)

// WithSchemes replaces the accepted schemes
func WithSchemes(schemes ...string) URLOption {
	return func(v *URLValidator) {
		v.schemes = lowerAll(schemes)
	}
}

// WithHosts restricts fetching to the given host names
func WithHosts(hosts ...string) URLOption {
	return func(v *URLValidator) {
		v.hosts = lowerAll(hosts)
	}
}

// DenyPrivateNetworks rejects loopback, private and link-local IP literals.
// Host names are not resolved.
func DenyPrivateNetworks() URLOption {
	return func(v *URLValidator) {
		v.denyPrivate = true
	}
}

// NewURLValidator accepts http and https URLs to any host unless options say otherwise
func NewURLValidator(opts ...URLOption) *URLValidator {
	v := &URLValidator{schemes: []string{"http", "https"}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateImageURL validates if the provided URL can be fetched as a candidate image
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}
	if len(imageURL) > MaxURLLength {
		return apperrors.NewValidationError("URL is too long", nil)
	}

	u, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !slices.Contains(v.schemes, strings.ToLower(u.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if u.Hostname() == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if u.User != nil {
		return apperrors.NewValidationError("URL must not embed credentials", nil)
	}
	if !v.hostAllowed(strings.ToLower(u.Hostname())) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

func (v *URLValidator) hostAllowed(host string) bool {
	if len(v.hosts) > 0 && !slices.Contains(v.hosts, host) {
		return false
	}
	if v.denyPrivate {
		if addr, err := netip.ParseAddr(host); err == nil {
			addr = addr.Unmap()
			if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
				return false
			}
		}
		if host == "localhost" {
			return false
		}
	}
	return true
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
