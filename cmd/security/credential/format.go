package credential

import (
	"strings"
)

// LayeredTag is the fixed first field of the layered stored-hash format.
const LayeredTag = "scb"

// Kind identifies which persisted hash format a stored string decodes to.
type Kind int

const (
	// KindLegacyDigest is the single-layer scrypt format: <hex-digest>.<hex-salt>.
	KindLegacyDigest Kind = iota + 1
	// KindLegacyAdaptive is a plain bcrypt string carrying its own salt and cost.
	KindLegacyAdaptive
	// KindLayered is the current scb:<wrapped>:<salt>:<signature> format.
	KindLayered
)

// Stored is the decoded form of a persisted credential hash.
// Exactly the fields for its Kind are populated; everything else is zero.
type Stored struct {
	Kind Kind

	// KindLegacyDigest and KindLayered.
	Salt string // 32 hex chars

	// KindLegacyDigest.
	Digest string // 64 hex chars

	// KindLegacyAdaptive.
	Adaptive string // full bcrypt string

	// KindLayered.
	Wrapped   string // bcrypt string over the inner scrypt hex digest
	Signature string // 64 hex chars, HMAC over Wrapped
}

// ParseStored decodes a persisted hash string into its tagged form.
// It is a pure, total function over the three recognized shapes; anything else
// is ErrInvalidHash, never silently coerced into a neighboring format.
func ParseStored(s string) (Stored, error) {
	if strings.TrimSpace(s) == "" {
		return Stored{}, ErrInvalidHash
	}

	// Layered format first: the tag is the strongest marker.
	if strings.HasPrefix(s, LayeredTag+":") {
		parts := strings.Split(s, ":")
		if len(parts) != 4 || parts[0] != LayeredTag {
			return Stored{}, ErrInvalidHash
		}
		wrapped, salt, sig := parts[1], parts[2], parts[3]
		if !strings.HasPrefix(wrapped, "$2") {
			return Stored{}, ErrInvalidHash
		}
		if !isHexLen(salt, saltHexLen) || !isHexLen(sig, digestHexLen) {
			return Stored{}, ErrInvalidHash
		}
		return Stored{Kind: KindLayered, Wrapped: wrapped, Salt: salt, Signature: sig}, nil
	}

	// Legacy adaptive: bcrypt's own version marker.
	if strings.HasPrefix(s, "$2") {
		return Stored{Kind: KindLegacyAdaptive, Adaptive: s}, nil
	}

	// Legacy digest: dot-joined digest and salt, no colons anywhere.
	if strings.Contains(s, ".") && !strings.Contains(s, ":") {
		parts := strings.Split(s, ".")
		if len(parts) != 2 {
			return Stored{}, ErrInvalidHash
		}
		digest, salt := parts[0], parts[1]
		if !isHexLen(digest, digestHexLen) || !isHexLen(salt, saltHexLen) {
			return Stored{}, ErrInvalidHash
		}
		return Stored{Kind: KindLegacyDigest, Digest: digest, Salt: salt}, nil
	}

	return Stored{}, ErrInvalidHash
}

func isHexLen(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
