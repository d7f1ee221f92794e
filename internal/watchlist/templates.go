package watchlist

import (
	"fmt"

	"github.com/wolfman30/gymguard-dashboard/internal/compliance"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
)

const (
	// DefaultSingleTemplate pre-fills the compose draft.
	DefaultSingleTemplate = "Hi {first_name}, just checking in on your fitness goals! " + compliance.OptOutNotice + "."
	// DefaultMassTemplate is sent when a mass confirmation carries no body.
	DefaultMassTemplate = "Hi from Gym! Checking in. " + compliance.OptOutNotice + "."
	// MassCriteria describes the server-side selection shown on confirmation.
	MassCriteria = "Score >= 70, not contacted in 24h, not opted out"

	emptyWatchlistMessage = "No high-risk members found requiring contact."
)

// DraftFor returns the default compose draft for m.
func DraftFor(m members.Member) string {
	return compliance.Personalize(DefaultSingleTemplate, m.FirstName)
}

// MassButtonLabel renders the mass action label for n eligible members.
func MassButtonLabel(n int) string {
	return fmt.Sprintf("Mass Message (%d)", n)
}

// CampaignProgressPath is where a client goes after a campaign starts.
func CampaignProgressPath(campaignID string) string {
	return "/campaigns/" + campaignID + "/progress"
}
