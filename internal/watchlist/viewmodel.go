package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/compliance"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
	"github.com/wolfman30/gymguard-dashboard/internal/observability/metrics"
	"github.com/wolfman30/gymguard-dashboard/internal/outreach"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

var (
	ErrUnauthenticated = errors.New("watchlist: no authenticated session")
	ErrNotInitialized  = errors.New("watchlist: view is not initialized")
	ErrNotComposing    = errors.New("watchlist: no message is being composed")
	ErrOptedOut        = errors.New("watchlist: member has opted out of SMS")
	ErrNoMassPending   = errors.New("watchlist: no mass message awaiting confirmation")
)

// ActionError is a failed outreach call. Message is what the user sees.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("watchlist: %s failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// MemberSource reads tenant-scoped member rows.
type MemberSource interface {
	ListWatchlist(ctx context.Context, gymID string, cutoff time.Time) ([]members.Member, error)
}

// ProfileSource resolves the signed-in user's gym and role.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*accounts.Profile, error)
}

// Outreach is the subset of the outreach API the view drives.
type Outreach interface {
	SendSMS(ctx context.Context, cred outreach.Credential, req outreach.SendSMSRequest) (*outreach.SendSMSResponse, error)
	StartMassOutreach(ctx context.Context, cred outreach.Credential, req outreach.StartMassOutreachRequest) (*outreach.MassOutreachResponse, error)
}

// Deps wires a ViewModel. Guard, Metrics, Logger and Now are optional.
type Deps struct {
	Members  MemberSource
	Profiles ProfileSource
	Outreach Outreach
	Guard    Guard
	Metrics  *metrics.DashboardMetrics
	Logger   *logging.Logger
	Now      func() time.Time
	Cooldown time.Duration
}

// Stage is how far initialization has progressed.
type Stage int

const (
	StageNew Stage = iota
	StageAuthenticated
	StageProfiled
	StageLoaded
)

func (s Stage) String() string {
	switch s {
	case StageAuthenticated:
		return "authenticated"
	case StageProfiled:
		return "profiled"
	case StageLoaded:
		return "loaded"
	default:
		return "new"
	}
}

// ComposeState is the single-send flow state.
type ComposeState string

const (
	ComposeIdle      ComposeState = "idle"
	ComposeComposing ComposeState = "composing"
	ComposeSending   ComposeState = "sending"
)

type composeSlot struct {
	state  ComposeState
	member members.Member
	draft  string
	err    string
}

type massSlot struct {
	confirming bool
	count      int
	err        string
}

// ViewModel is one user's watchlist view state. All methods are safe for
// concurrent use; the lock is never held across a network call.
type ViewModel struct {
	deps Deps

	mu       sync.Mutex
	stage    Stage
	session  tenancy.Session
	profile  *accounts.Profile
	members  []members.Member
	loadedAt time.Time
	compose  composeSlot
	mass     massSlot
	inFlight bool
}

func NewViewModel(deps Deps) *ViewModel {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Cooldown <= 0 {
		deps.Cooldown = DefaultCooldown
	}
	return &ViewModel{deps: deps, compose: composeSlot{state: ComposeIdle}}
}

// Initialize runs authenticate, profile and watchlist stages in order.
// Role-gated fields stay empty until the profile stage completes. It
// refuses to reset a view while an outreach call is in flight.
func (vm *ViewModel) Initialize(ctx context.Context, session tenancy.Session) error {
	if !session.Valid() {
		return ErrUnauthenticated
	}
	vm.mu.Lock()
	if vm.inFlight {
		vm.mu.Unlock()
		return ErrActionInFlight
	}
	vm.session = session
	vm.stage = StageAuthenticated
	vm.profile = nil
	vm.members = nil
	vm.compose = composeSlot{state: ComposeIdle}
	vm.mass = massSlot{}
	vm.mu.Unlock()

	profile, err := vm.deps.Profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("watchlist: load profile: %w", err)
	}

	vm.mu.Lock()
	vm.profile = profile
	vm.stage = StageProfiled
	vm.mu.Unlock()

	return vm.Load(ctx)
}

// RenewSession swaps in a fresh credential when the session is for the
// same user and resolves to the same gym. A target header that does not
// change scope, such as one sent by a gym owner, keeps the view.
func (vm *ViewModel) RenewSession(session tenancy.Session) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.session.UserID != session.UserID || vm.profile == nil {
		return false
	}
	if vm.profile.EffectiveGymID(vm.session.TargetGymID) != vm.profile.EffectiveGymID(session.TargetGymID) {
		return false
	}
	vm.session = session
	return true
}

// Stage reports initialization progress.
func (vm *ViewModel) Stage() Stage {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stage
}

// Load reads the watchlist for the session's gym. A read failure is
// logged and leaves an empty list; it is not retried or returned.
func (vm *ViewModel) Load(ctx context.Context) error {
	vm.mu.Lock()
	if vm.stage < StageProfiled {
		vm.mu.Unlock()
		return ErrNotInitialized
	}
	gymID := vm.profile.EffectiveGymID(vm.session.TargetGymID)
	vm.mu.Unlock()

	now := vm.deps.Now()
	rows, err := vm.deps.Members.ListWatchlist(ctx, gymID, now.Add(-vm.deps.Cooldown))
	var list []members.Member
	if err != nil {
		vm.deps.Logger.Error("watchlist: load failed", "gym_id", gymID, "error", err)
	} else {
		list = Filter(rows, now, vm.deps.Cooldown)
	}
	vm.deps.Metrics.ObserveWatchlistLoad(err, len(list))

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.members = list
	vm.loadedAt = now
	vm.stage = StageLoaded
	return nil
}

// EligibleCount is the advisory size of the mass send.
func (vm *ViewModel) EligibleCount() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.members)
}

// Select opens the compose flow for a member, keyed by member_id.
func (vm *ViewModel) Select(memberID string) (ComposeView, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.stage < StageLoaded {
		return ComposeView{}, ErrNotInitialized
	}
	if vm.compose.state == ComposeSending {
		return ComposeView{}, ErrActionInFlight
	}
	idx := vm.indexOf(func(m members.Member) bool { return m.MemberID == memberID })
	if idx < 0 {
		return ComposeView{}, members.ErrMemberNotFound
	}
	m := vm.members[idx]
	if m.SMSOptedOut {
		return ComposeView{}, ErrOptedOut
	}
	vm.compose = composeSlot{state: ComposeComposing, member: m, draft: DraftFor(m)}
	return vm.composeViewLocked(), nil
}

// EditDraft replaces the draft being composed.
func (vm *ViewModel) EditDraft(body string) (ComposeView, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	switch vm.compose.state {
	case ComposeSending:
		return ComposeView{}, ErrActionInFlight
	case ComposeIdle:
		return ComposeView{}, ErrNotComposing
	}
	vm.compose.draft = body
	vm.compose.err = ""
	return vm.composeViewLocked(), nil
}

// Cancel abandons the compose flow without any network call.
func (vm *ViewModel) Cancel() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	switch vm.compose.state {
	case ComposeSending:
		return ErrActionInFlight
	case ComposeIdle:
		return ErrNotComposing
	}
	vm.compose = composeSlot{state: ComposeIdle}
	return nil
}

// Confirm sends the current draft. On success the member leaves the
// local list only; on failure the draft is kept for another attempt.
func (vm *ViewModel) Confirm(ctx context.Context) error {
	vm.mu.Lock()
	switch vm.compose.state {
	case ComposeSending:
		vm.mu.Unlock()
		vm.deps.Metrics.ObserveInFlightRejection(actionSendSMS)
		return ErrActionInFlight
	case ComposeIdle:
		vm.mu.Unlock()
		return ErrNotComposing
	}
	target := vm.compose.member
	draft := vm.compose.draft
	if target.SMSOptedOut {
		vm.mu.Unlock()
		return ErrOptedOut
	}
	if err := compliance.ValidateBody(draft); err != nil {
		vm.mu.Unlock()
		return err
	}
	cred := vm.credentialLocked()
	if err := vm.takeSlotLocked(); err != nil {
		vm.mu.Unlock()
		vm.deps.Metrics.ObserveInFlightRejection(actionSendSMS)
		return err
	}
	vm.compose.state = ComposeSending
	vm.compose.err = ""
	vm.mu.Unlock()

	release, err := vm.acquireShared(ctx)
	if err != nil {
		vm.mu.Lock()
		vm.compose.state = ComposeComposing
		vm.inFlight = false
		vm.mu.Unlock()
		vm.deps.Metrics.ObserveInFlightRejection(actionSendSMS)
		return err
	}

	start := time.Now()
	_, err = vm.deps.Outreach.SendSMS(ctx, cred, outreach.SendSMSRequest{
		MemberID:    target.MemberID,
		MessageBody: strings.TrimSpace(draft),
	})
	release()
	vm.deps.Metrics.ObserveOutreach(actionSendSMS, err, time.Since(start))

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.inFlight = false
	if err != nil {
		msg := outreach.UserMessage(err)
		if vm.compose.state == ComposeSending && vm.compose.member.ID == target.ID {
			vm.compose.state = ComposeComposing
			vm.compose.err = msg
		} else {
			vm.compose = composeSlot{state: ComposeIdle}
		}
		vm.deps.Logger.Warn("watchlist: send sms failed", "member_id", target.MemberID, "error", err)
		return &ActionError{Action: actionSendSMS, Message: msg, Err: err}
	}
	if idx := vm.indexOf(func(m members.Member) bool { return m.ID == target.ID }); idx >= 0 {
		vm.members = append(vm.members[:idx], vm.members[idx+1:]...)
	}
	vm.compose = composeSlot{state: ComposeIdle}
	vm.deps.Logger.Info("watchlist: sms sent", "member_id", target.MemberID)
	return nil
}

// RequestMassSend opens the mass confirmation. An empty watchlist is
// refused before any network call.
func (vm *ViewModel) RequestMassSend() (MassView, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.stage < StageLoaded {
		return MassView{}, ErrNotInitialized
	}
	if vm.inFlight {
		return MassView{}, ErrActionInFlight
	}
	if len(vm.members) == 0 {
		return MassView{}, outreach.ErrNoEligibleMembers
	}
	vm.mass = massSlot{confirming: true, count: len(vm.members)}
	return vm.massViewLocked(), nil
}

// CancelMassSend closes the confirmation without a network call.
func (vm *ViewModel) CancelMassSend() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.inFlight && vm.mass.confirming {
		return ErrActionInFlight
	}
	if !vm.mass.confirming {
		return ErrNoMassPending
	}
	vm.mass = massSlot{}
	return nil
}

// MassResult is a started campaign and where to watch it.
type MassResult struct {
	CampaignID    string `json:"campaign_id"`
	EligibleCount int    `json:"eligible_count"`
	Redirect      string `json:"redirect"`
}

// ConfirmMassSend starts the campaign. A blank template falls back to
// DefaultMassTemplate; any template must carry the opt-out notice.
func (vm *ViewModel) ConfirmMassSend(ctx context.Context, template string) (*MassResult, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultMassTemplate
	}
	if err := compliance.ValidateTemplate(template); err != nil {
		return nil, err
	}

	vm.mu.Lock()
	if !vm.mass.confirming {
		vm.mu.Unlock()
		return nil, ErrNoMassPending
	}
	if len(vm.members) == 0 {
		vm.mass = massSlot{}
		vm.mu.Unlock()
		return nil, outreach.ErrNoEligibleMembers
	}
	cred := vm.credentialLocked()
	if err := vm.takeSlotLocked(); err != nil {
		vm.mu.Unlock()
		vm.deps.Metrics.ObserveInFlightRejection(actionStartMass)
		return nil, err
	}
	vm.mass.err = ""
	vm.mu.Unlock()

	release, err := vm.acquireShared(ctx)
	if err != nil {
		vm.mu.Lock()
		vm.inFlight = false
		vm.mu.Unlock()
		vm.deps.Metrics.ObserveInFlightRejection(actionStartMass)
		return nil, err
	}

	start := time.Now()
	resp, err := vm.deps.Outreach.StartMassOutreach(ctx, cred, outreach.StartMassOutreachRequest{
		MessageBody: strings.TrimSpace(template),
	})
	release()
	vm.deps.Metrics.ObserveOutreach(actionStartMass, err, time.Since(start))

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.inFlight = false
	switch {
	case errors.Is(err, outreach.ErrNoEligibleMembers):
		vm.mass = massSlot{}
		vm.deps.Logger.Info("watchlist: mass outreach found no eligible members")
		return nil, err
	case err != nil:
		msg := outreach.UserMessage(err)
		vm.mass.err = msg
		vm.deps.Logger.Warn("watchlist: start mass outreach failed", "error", err)
		return nil, &ActionError{Action: actionStartMass, Message: msg, Err: err}
	}
	vm.mass = massSlot{}
	vm.deps.Logger.Info("watchlist: campaign started", "campaign_id", resp.CampaignID, "eligible", resp.EligibleCount)
	return &MassResult{
		CampaignID:    resp.CampaignID,
		EligibleCount: resp.EligibleCount,
		Redirect:      CampaignProgressPath(resp.CampaignID),
	}, nil
}

const (
	actionSendSMS   = "send_sms"
	actionStartMass = "start_mass"
)

func (vm *ViewModel) indexOf(match func(members.Member) bool) int {
	for i, m := range vm.members {
		if match(m) {
			return i
		}
	}
	return -1
}

// takeSlotLocked claims the single local in-flight slot.
func (vm *ViewModel) takeSlotLocked() error {
	if vm.inFlight {
		return ErrActionInFlight
	}
	vm.inFlight = true
	return nil
}

func (vm *ViewModel) acquireShared(ctx context.Context) (func(), error) {
	if vm.deps.Guard == nil {
		return func() {}, nil
	}
	vm.mu.Lock()
	key := vm.session.UserID
	vm.mu.Unlock()
	return vm.deps.Guard.Acquire(ctx, key)
}

// credentialLocked builds the outreach credential. The target header is
// only sent when an admin acts on a gym other than their own.
func (vm *ViewModel) credentialLocked() outreach.Credential {
	cred := outreach.Credential{AccessToken: vm.session.AccessToken}
	if vm.profile != nil && vm.profile.IsAdmin() {
		if gym := vm.profile.EffectiveGymID(vm.session.TargetGymID); gym != vm.profile.GymID {
			cred.TargetGymID = gym
		}
	}
	return cred
}
