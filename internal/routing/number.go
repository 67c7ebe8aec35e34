package routing

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind classifies a dialed string by shape only; no numbering-plan
// validation is done.
type Kind int

const (
	KindOpaque Kind = iota
	KindExtension
	KindE164
	KindSIPURI
)

func (k Kind) String() string {
	switch k {
	case KindExtension:
		return "extension"
	case KindE164:
		return "e164"
	case KindSIPURI:
		return "sip_uri"
	default:
		return "opaque"
	}
}

var (
	e164Digits     = regexp.MustCompile(`^\d{6,15}$`)
	extensionShape = regexp.MustCompile(`^\d{2,6}$`)
	international  = regexp.MustCompile(`^00\d{6,15}$`)
	e164Shape      = regexp.MustCompile(`^\+?\d{6,15}$`)
)

// Destination is a dialed string after normalization.
type Destination struct {
	Raw   string
	Value string // Raw without any whitespace
	Kind  Kind

	// User and Domain are set for KindSIPURI.
	User   string
	Domain string
	// Digits is the number without its 00 or + prefix, set for KindE164.
	Digits string
}

// Normalize strips whitespace from raw and classifies it. Classification
// order is SIP URI, E.164-like, short extension, opaque.
func Normalize(raw string) Destination {
	v := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	d := Destination{Raw: raw, Value: v}

	if user, domain, ok := strings.Cut(v, "@"); ok {
		d.Kind = KindSIPURI
		d.User = user
		d.Domain = domain
		return d
	}

	digits := v
	switch {
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}
	if e164Digits.MatchString(digits) {
		d.Kind = KindE164
		d.Digits = digits
		return d
	}

	if extensionShape.MatchString(v) {
		d.Kind = KindExtension
		return d
	}

	d.Kind = KindOpaque
	return d
}

// ExtensionShaped reports whether the value looks like a short local
// extension, independent of the primary Kind (a six digit string is both).
func (d Destination) ExtensionShaped() bool {
	return extensionShape.MatchString(d.Value)
}
