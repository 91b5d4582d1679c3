// Package profile implements the per-session store that keeps one user's
// profile and saved locations synchronized with the database.
//
// A Store is the single source of truth for its session: HTTP handlers only
// read snapshots and never mutate the collections directly. Local state is
// updated only after the corresponding remote write succeeded, so a reader
// never observes a location set the database has not confirmed.
package profile

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/errs"
	"github.com/i474232898/weather-dashboard/internal/model"
	"github.com/i474232898/weather-dashboard/internal/repository"
)

// State tracks the session lifecycle of a Store.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
)

// DuplicateTolerance is the coordinate distance (degrees, roughly 1 km) under
// which two locations count as the same place. Adding a near-duplicate promotes
// the existing row instead of inserting a new one.
const DuplicateTolerance = 0.01

// Store holds the in-memory view of a single user's profile and locations.
// A mutex serializes all operations, so two rapid main-location switches
// cannot interleave their remote writes.
type Store struct {
	mu  sync.Mutex
	log *zap.Logger

	profiles  repository.ProfileRepository
	locations repository.LocationRepository

	state   State
	userID  uuid.UUID
	profile *model.Profile
	locs    []model.Location // ordered by creation time ascending
}

// Snapshot is a read-only copy of the store's state handed to consumers.
type Snapshot struct {
	Profile      *model.Profile   `json:"profile"`
	Locations    []model.Location `json:"locations"`
	MainLocation *model.Location  `json:"main_location"`
	Loading      bool             `json:"loading"`
}

// NewStore creates a store for one user session in the unauthenticated state.
func NewStore(userID uuid.UUID, profiles repository.ProfileRepository, locations repository.LocationRepository, log *zap.Logger) *Store {
	return &Store{
		log:       log.With(zap.String("user_id", userID.String())),
		profiles:  profiles,
		locations: locations,
		userID:    userID,
	}
}

// SignIn loads the profile and locations for the session. Loading is
// fail-open: fetch errors are logged and leave the matching collection empty,
// and the store still becomes ready. Calling SignIn on a ready store is a
// no-op.
func (s *Store) SignIn(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnauthenticated {
		return
	}
	s.state = StateLoading

	var (
		wg      sync.WaitGroup
		prof    *model.Profile
		profErr error
		locs    []model.Location
		locsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		prof, profErr = s.profiles.Get(ctx, s.userID)
	}()
	go func() {
		defer wg.Done()
		locs, locsErr = s.locations.ListByUser(ctx, s.userID)
	}()
	wg.Wait()

	if profErr != nil {
		s.log.Error("load profile failed", zap.Error(profErr))
	} else {
		s.profile = prof
	}
	if locsErr != nil {
		s.log.Error("load locations failed", zap.Error(locsErr))
	} else {
		s.locs = locs
	}

	s.state = StateReady
}

// SignOut discards all in-memory state and returns to the unauthenticated state.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateUnauthenticated
	s.profile = nil
	s.locs = nil
}

// State returns the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether the initial fetch is still in progress.
func (s *Store) Loading() bool { return s.State() == StateLoading }

// Profile returns a copy of the current profile, or nil.
func (s *Store) Profile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.profile)
}

// Locations returns a copy of the saved locations in creation order.
func (s *Store) Locations() []model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Location(nil), s.locs...)
}

// MainLocation returns the user's main location: the one referenced by the
// profile, else the earliest-created, else nil. It is derived on every call
// and never stored, so it cannot drift from the canonical collections.
func (s *Store) MainLocation() *model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deriveMain(s.profile, s.locs)
}

// Snapshot returns a consistent copy of the whole read surface.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Profile:      copyProfile(s.profile),
		Locations:    append([]model.Location(nil), s.locs...),
		MainLocation: deriveMain(s.profile, s.locs),
		Loading:      s.state == StateLoading,
	}
}

// UpdateProfile applies a partial patch remotely and merges it locally only
// after the remote update succeeded.
func (s *Store) UpdateProfile(ctx context.Context, patch model.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}
	if patch.Empty() {
		return errs.ErrEmptyUpdate
	}

	updated, err := s.profiles.Update(ctx, s.userID, patch)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	s.profile = updated
	return nil
}

// AddLocation saves a new location for the user. If a saved location already
// sits within DuplicateTolerance of the given coordinates, no row is inserted;
// the existing location is promoted to main and returned instead. The first
// location a user ever adds is promoted to main automatically.
func (s *Store) AddLocation(ctx context.Context, in model.NewLocation) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return nil, err
	}

	if dup := s.findNearby(in.Lat, in.Lon); dup != nil {
		s.log.Info("near-duplicate location, promoting existing",
			zap.Int64("location_id", dup.ID), zap.String("name", dup.Name))
		if err := s.switchMain(ctx, dup.ID); err != nil {
			return nil, err
		}
		c := *dup
		c.IsMain = true
		return &c, nil
	}

	created, err := s.locations.Insert(ctx, s.userID, in)
	if err != nil {
		return nil, fmt.Errorf("add location: %w", err)
	}

	first := len(s.locs) == 0
	s.locs = append(s.locs, *created)

	if first {
		// Promotion failure is not fatal here: with a single location the
		// derived main already falls back to it, and the flags reconcile on
		// the next successful switch.
		if err := s.switchMain(ctx, created.ID); err != nil {
			s.log.Warn("promoting first location failed", zap.Int64("location_id", created.ID), zap.Error(err))
		}
	}

	if l := s.byID(created.ID); l != nil {
		c := *l
		return &c, nil
	}
	return created, nil
}

// DeleteLocation removes a saved location. The remote row is deleted first;
// the local entry stays if the remote delete fails. When the main location is
// deleted, the earliest remaining location is promoted.
func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}
	if s.byID(id) == nil {
		return errs.ErrNotFound
	}

	wasMain := false
	if m := deriveMain(s.profile, s.locs); m != nil && m.ID == id {
		wasMain = true
	}

	if err := s.locations.Delete(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}

	kept := s.locs[:0]
	for _, l := range s.locs {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	s.locs = kept

	if s.profile != nil && s.profile.MainLocationID != nil && *s.profile.MainLocationID == id {
		s.profile.MainLocationID = nil
	}

	if wasMain {
		if len(s.locs) > 0 {
			// Best effort: the derived main already falls back to the
			// earliest remaining location even if this write fails.
			if err := s.switchMain(ctx, s.locs[0].ID); err != nil {
				s.log.Warn("promoting replacement main failed", zap.Int64("location_id", s.locs[0].ID), zap.Error(err))
			}
		} else if err := s.profiles.SetMainLocationID(ctx, s.userID, nil); err != nil {
			s.log.Warn("clearing main location pointer failed", zap.Error(err))
		}
	}
	return nil
}

// SetMainLocation makes the given saved location the user's main one.
// Calling it with the current main is a no-op with no remote writes.
func (s *Store) SetMainLocation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}
	return s.switchMain(ctx, id)
}

// switchMain performs the two-phase main switch: mark the target, unmark the
// previous main, then repoint the profile. Local state is only updated after
// all remote writes succeeded. If unmarking the previous main fails, the
// unmark is retried once and then the target mark is reverted; when even the
// revert fails the remote state is left inconsistent and a MainSwitchError is
// returned so the caller can reload.
//
// Callers must hold s.mu.
func (s *Store) switchMain(ctx context.Context, targetID int64) error {
	target := s.byID(targetID)
	if target == nil {
		return errs.ErrNotFound
	}

	prev := s.currentMainFlagged()

	// Idempotence: switching to the current main must not issue remote writes.
	pointed := s.profile == nil ||
		(s.profile.MainLocationID != nil && *s.profile.MainLocationID == targetID)
	if target.IsMain && pointed {
		return nil
	}

	if err := s.locations.SetMainFlag(ctx, s.userID, targetID, true); err != nil {
		return fmt.Errorf("mark main location: %w", err)
	}

	var prevID int64
	if prev != nil && prev.ID != targetID {
		prevID = prev.ID
		err := s.locations.SetMainFlag(ctx, s.userID, prevID, false)
		if err != nil {
			// One retry, then compensate by reverting the target mark.
			err = s.locations.SetMainFlag(ctx, s.userID, prevID, false)
		}
		if err != nil {
			if revertErr := s.locations.SetMainFlag(ctx, s.userID, targetID, false); revertErr != nil {
				s.log.Error("main switch revert failed",
					zap.Int64("target_id", targetID), zap.Error(revertErr))
				return &errs.MainSwitchError{
					TargetID:   targetID,
					PreviousID: prevID,
					Phase:      errs.PhaseUnmarkPrev,
					Err:        err,
				}
			}
			return fmt.Errorf("unmark previous main location: %w", err)
		}
	}

	if s.profile != nil {
		if err := s.profiles.SetMainLocationID(ctx, s.userID, &targetID); err != nil {
			return &errs.MainSwitchError{
				TargetID:   targetID,
				PreviousID: prevID,
				Phase:      errs.PhaseUpdatePointer,
				Err:        err,
			}
		}
	}

	for i := range s.locs {
		s.locs[i].IsMain = s.locs[i].ID == targetID
	}
	if s.profile != nil {
		id := targetID
		s.profile.MainLocationID = &id
	}
	return nil
}

func (s *Store) requireReady() error {
	if s.state != StateReady {
		return errs.ErrUnauthenticated
	}
	return nil
}

func (s *Store) byID(id int64) *model.Location {
	for i := range s.locs {
		if s.locs[i].ID == id {
			return &s.locs[i]
		}
	}
	return nil
}

func (s *Store) currentMainFlagged() *model.Location {
	for i := range s.locs {
		if s.locs[i].IsMain {
			return &s.locs[i]
		}
	}
	return nil
}

func (s *Store) findNearby(lat, lon float64) *model.Location {
	for i := range s.locs {
		if math.Abs(s.locs[i].Lat-lat) < DuplicateTolerance &&
			math.Abs(s.locs[i].Lon-lon) < DuplicateTolerance {
			return &s.locs[i]
		}
	}
	return nil
}

func deriveMain(p *model.Profile, locs []model.Location) *model.Location {
	if p != nil && p.MainLocationID != nil {
		for i := range locs {
			if locs[i].ID == *p.MainLocationID {
				c := locs[i]
				return &c
			}
		}
	}
	if len(locs) > 0 {
		c := locs[0]
		return &c
	}
	return nil
}

func copyProfile(p *model.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.MainLocationID != nil {
		id := *p.MainLocationID
		c.MainLocationID = &id
	}
	return &c
}
