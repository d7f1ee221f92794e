package watchlist

import (
	"time"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
)

// MemberRow is one rendered watchlist row.
type MemberRow struct {
	members.Member
	Risk       members.RiskView `json:"risk"`
	CanMessage bool             `json:"can_message"`
}

// MassButton is the mass action control.
type MassButton struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// ComposeView is the single-send flow as rendered.
type ComposeView struct {
	State    ComposeState `json:"state"`
	MemberID string       `json:"member_id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Draft    string       `json:"draft,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// MassView is the mass confirmation as rendered.
type MassView struct {
	Confirming      bool   `json:"confirming"`
	EligibleCount   int    `json:"eligible_count,omitempty"`
	Criteria        string `json:"criteria,omitempty"`
	DefaultTemplate string `json:"default_template,omitempty"`
	Error           string `json:"error,omitempty"`
}

// View is the full watchlist page state.
type View struct {
	Stage         string        `json:"stage"`
	Role          accounts.Role `json:"role,omitempty"`
	IsAdmin       bool          `json:"is_admin"`
	GymID         string        `json:"gym_id,omitempty"`
	Members       []MemberRow   `json:"members"`
	EmptyMessage  string        `json:"empty_message,omitempty"`
	EligibleCount int           `json:"eligible_count"`
	MassButton    MassButton    `json:"mass_button"`
	Compose       ComposeView   `json:"compose"`
	Mass          MassView      `json:"mass"`
	LoadedAt      *time.Time    `json:"loaded_at,omitempty"`
	ActionPending bool          `json:"action_pending"`
}

// View snapshots the current state. The result shares nothing with the
// view model.
func (vm *ViewModel) View() View {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	v := View{
		Stage:         vm.stage.String(),
		Members:       make([]MemberRow, 0, len(vm.members)),
		EligibleCount: len(vm.members),
		Compose:       vm.composeViewLocked(),
		Mass:          vm.massViewLocked(),
		ActionPending: vm.inFlight,
	}
	if vm.stage >= StageProfiled && vm.profile != nil {
		v.Role = vm.profile.Role
		v.IsAdmin = vm.profile.IsAdmin()
		v.GymID = vm.profile.EffectiveGymID(vm.session.TargetGymID)
	}
	if vm.stage < StageLoaded {
		v.MassButton = MassButton{Label: MassButtonLabel(0), Disabled: true}
		return v
	}
	for _, m := range vm.members {
		v.Members = append(v.Members, MemberRow{
			Member:     m,
			Risk:       members.ViewFor(m.LastChurnScore),
			CanMessage: !m.SMSOptedOut,
		})
	}
	if len(v.Members) == 0 {
		v.EmptyMessage = emptyWatchlistMessage
	}
	v.MassButton = MassButton{
		Label:    MassButtonLabel(len(vm.members)),
		Disabled: len(vm.members) == 0 || vm.inFlight,
	}
	loadedAt := vm.loadedAt
	v.LoadedAt = &loadedAt
	return v
}

func (vm *ViewModel) composeViewLocked() ComposeView {
	c := vm.compose
	if c.state == ComposeIdle {
		return ComposeView{State: ComposeIdle}
	}
	return ComposeView{
		State:    c.state,
		MemberID: c.member.MemberID,
		Name:     c.member.FullName(),
		Draft:    c.draft,
		Error:    c.err,
	}
}

func (vm *ViewModel) massViewLocked() MassView {
	if !vm.mass.confirming {
		return MassView{}
	}
	return MassView{
		Confirming:      true,
		EligibleCount:   vm.mass.count,
		Criteria:        MassCriteria,
		DefaultTemplate: DefaultMassTemplate,
		Error:           vm.mass.err,
	}
}
