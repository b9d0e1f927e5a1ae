package reconcile

import (
	"fmt"
	"strings"
)

// Report renders the final user-facing message for an outcome. Every decision
// was made upstream; this only selects a template.
func Report(outcome Outcome) string {
	switch outcome.Status {
	case StatusConfigurationError:
		return fmt.Sprintf("Sorry, %s is not supported.", outcome.Platform)

	case StatusUnverified:
		return "Sorry, I couldn't verify your purchase. Please check your email and try again."

	case StatusVerified:
		switch {
		case len(outcome.Granted) > 0:
			msg := fmt.Sprintf("Purchase verified! You've been assigned the following roles: %s.",
				roleNames(outcome.Granted))
			if outcome.BaseGrantWarning {
				msg += " The verified member role could not be applied; please contact an admin."
			}
			return msg

		case len(outcome.Denied) > 0:
			return fmt.Sprintf("Your username does not match the checkout username for: %s. Contact an admin.",
				roleNames(outcome.Denied))

		default:
			return "Purchase verified! However, no roles were assigned. Please contact an admin."
		}

	default:
		return "Sorry, I couldn't verify your purchase. Please contact an admin."
	}
}

func roleNames(grants []Grant) string {
	names := make([]string, 0, len(grants))
	for _, g := range grants {
		names = append(names, g.RoleName)
	}
	return strings.Join(names, ", ")
}
