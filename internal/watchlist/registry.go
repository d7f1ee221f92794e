package watchlist

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
)

// Registry keeps one ViewModel per signed-in user, bounded by an LRU.
// Evicting a view only drops local state; the next request rebuilds it.
type Registry struct {
	cache   *lru.Cache[string, *ViewModel]
	inits   singleflight.Group
	newView func() *ViewModel
}

// NewRegistry builds a registry holding at most size views.
func NewRegistry(size int, deps Deps) (*Registry, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *ViewModel](size)
	if err != nil {
		return nil, fmt.Errorf("watchlist: create registry: %w", err)
	}
	return &Registry{
		cache:   cache,
		newView: func() *ViewModel { return NewViewModel(deps) },
	}, nil
}

// Get returns the caller's view, initializing it when it is new, when a
// previous initialization did not finish, or when an admin switched gyms.
// Concurrent initializations for one user are collapsed into one.
func (r *Registry) Get(ctx context.Context, session tenancy.Session) (*ViewModel, error) {
	if !session.Valid() {
		return nil, ErrUnauthenticated
	}
	for attempt := 0; attempt < 2; attempt++ {
		if vm, ok := r.reuse(session); ok {
			return vm, nil
		}
		v, err, _ := r.inits.Do(session.UserID, func() (any, error) {
			if vm, ok := r.reuse(session); ok {
				return vm, nil
			}
			return r.initialize(ctx, session)
		})
		if err != nil {
			return nil, err
		}
		// A shared result may have been built for another gym target.
		if vm := v.(*ViewModel); vm.RenewSession(session) {
			return vm, nil
		}
	}
	return nil, ErrActionInFlight
}

func (r *Registry) reuse(session tenancy.Session) (*ViewModel, bool) {
	vm, ok := r.cache.Get(session.UserID)
	if !ok || vm.Stage() < StageLoaded || !vm.RenewSession(session) {
		return nil, false
	}
	return vm, true
}

func (r *Registry) initialize(ctx context.Context, session tenancy.Session) (*ViewModel, error) {
	fresh := r.newView()
	vm, found, _ := r.cache.PeekOrAdd(session.UserID, fresh)
	if !found {
		vm = fresh
	}
	if err := vm.Initialize(ctx, session); err != nil {
		// A view busy with an outreach call keeps its state.
		if !errors.Is(err, ErrActionInFlight) {
			r.cache.Remove(session.UserID)
		}
		return nil, err
	}
	return vm, nil
}

// Drop forgets a user's view.
func (r *Registry) Drop(userID string) {
	r.cache.Remove(userID)
}

// Len reports how many views are held.
func (r *Registry) Len() int {
	return r.cache.Len()
}
