package reconcile

import "strings"

// IdentityStatus classifies how a sale's checkout identity relates to the
// requesting user.
type IdentityStatus int

const (
	// Unattested means the storefront collected no identity at checkout.
	Unattested IdentityStatus = iota
	Matched
	Mismatched
)

func (s IdentityStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	default:
		return "unattested"
	}
}

// Classify compares the identity a buyer attested at checkout against the
// requesting user's identity. An empty claimed identity means the storefront
// collected none.
func Classify(claimed, requesting string) IdentityStatus {
	if claimed == "" {
		return Unattested
	}
	if strings.EqualFold(claimed, requesting) {
		return Matched
	}
	return Mismatched
}

// Grants reports whether a candidate with this status is eligible for a
// grant. Unattested purchases grant; only an explicit mismatch denies.
func (s IdentityStatus) Grants() bool {
	return s != Mismatched
}
