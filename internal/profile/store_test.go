package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/errs"
	"github.com/i474232898/weather-dashboard/internal/model"
)

type fakeProfileRepo struct {
	mu      sync.Mutex
	profile *model.Profile

	getErr       error
	updateErr    error
	setMainErr   error
	setMainCalls int
}

func (f *fakeProfileRepo) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.profile == nil || f.profile.ID != userID {
		return nil, errs.ErrNotFound
	}
	c := *f.profile
	return &c, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, userID uuid.UUID, patch model.ProfileUpdate) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.profile == nil || f.profile.ID != userID {
		return nil, errs.ErrNotFound
	}
	if patch.FullName != nil {
		f.profile.FullName = *patch.FullName
	}
	if patch.AvatarURL != nil {
		f.profile.AvatarURL = *patch.AvatarURL
	}
	if patch.TimeFormat != nil {
		f.profile.TimeFormat = *patch.TimeFormat
	}
	if patch.TemperatureUnit != nil {
		f.profile.TemperatureUnit = *patch.TemperatureUnit
	}
	if patch.Theme != nil {
		f.profile.Theme = *patch.Theme
	}
	if patch.Language != nil {
		f.profile.Language = *patch.Language
	}
	f.profile.UpdatedAt = time.Now()
	c := *f.profile
	return &c, nil
}

func (f *fakeProfileRepo) SetMainLocationID(_ context.Context, userID uuid.UUID, locationID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setMainCalls++
	if f.setMainErr != nil {
		return f.setMainErr
	}
	if f.profile == nil || f.profile.ID != userID {
		return errs.ErrNotFound
	}
	f.profile.MainLocationID = locationID
	return nil
}

type fakeLocationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Location

	listErr   error
	insertErr error
	deleteErr error

	// flagHook, when set, intercepts SetMainFlag calls.
	flagHook  func(id int64, isMain bool) error
	flagCalls int
}

func (f *fakeLocationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Location
	for _, l := range f.rows {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLocationRepo) Insert(_ context.Context, userID uuid.UUID, in model.NewLocation) (*model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	l := model.Location{
		ID:        f.nextID,
		UserID:    userID,
		Name:      in.Name,
		Country:   in.Country,
		Lat:       in.Lat,
		Lon:       in.Lon,
		CreatedAt: time.Now().Add(time.Duration(f.nextID) * time.Second),
	}
	f.rows = append(f.rows, l)
	c := l
	return &c, nil
}

func (f *fakeLocationRepo) Delete(_ context.Context, userID uuid.UUID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, l := range f.rows {
		if l.ID == id && l.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeLocationRepo) SetMainFlag(_ context.Context, userID uuid.UUID, id int64, isMain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flagCalls++
	if f.flagHook != nil {
		if err := f.flagHook(id, isMain); err != nil {
			return err
		}
	}
	for i, l := range f.rows {
		if l.ID == id && l.UserID == userID {
			f.rows[i].IsMain = isMain
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeLocationRepo) byID(id int64) *model.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			c := f.rows[i]
			return &c
		}
	}
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeProfileRepo, *fakeLocationRepo) {
	t.Helper()
	userID := uuid.New()
	profiles := &fakeProfileRepo{profile: &model.Profile{
		ID:              userID,
		TimeFormat:      "24h",
		TemperatureUnit: "celsius",
		Theme:           "system",
		Language:        "en",
	}}
	locations := &fakeLocationRepo{}

	s := NewStore(userID, profiles, locations, zap.NewNop())
	s.SignIn(context.Background())
	require.Equal(t, StateReady, s.State())
	return s, profiles, locations
}

func addLoc(t *testing.T, s *Store, name string, lat, lon float64) *model.Location {
	t.Helper()
	loc, err := s.AddLocation(context.Background(), model.NewLocation{
		Name: name, Country: "XX", Lat: lat, Lon: lon,
	})
	require.NoError(t, err)
	require.NotNil(t, loc)
	return loc
}

func TestFirstLocationBecomesMain(t *testing.T) {
	s, profiles, locations := newTestStore(t)

	istanbul := addLoc(t, s, "Istanbul", 41.0151, 28.9795)
	require.NotZero(t, istanbul.ID)

	main := s.MainLocation()
	require.NotNil(t, main)
	require.Equal(t, istanbul.ID, main.ID)
	require.True(t, locations.byID(istanbul.ID).IsMain)
	require.NotNil(t, profiles.profile.MainLocationID)
	require.Equal(t, istanbul.ID, *profiles.profile.MainLocationID)

	// Further additions leave the main untouched.
	london := addLoc(t, s, "London", 51.5099, -0.1181)
	main = s.MainLocation()
	require.Equal(t, "Istanbul", main.Name)

	// An explicit switch moves it.
	require.NoError(t, s.SetMainLocation(context.Background(), london.ID))
	main = s.MainLocation()
	require.Equal(t, "London", main.Name)
	require.False(t, locations.byID(istanbul.ID).IsMain)
	require.True(t, locations.byID(london.ID).IsMain)
}

func TestExactlyOneMainAfterSwitch(t *testing.T) {
	s, _, _ := newTestStore(t)
	addLoc(t, s, "A", 10, 10)
	b := addLoc(t, s, "B", 20, 20)
	c := addLoc(t, s, "C", 30, 30)

	require.NoError(t, s.SetMainLocation(context.Background(), b.ID))
	require.NoError(t, s.SetMainLocation(context.Background(), c.ID))

	var mains int
	for _, l := range s.Locations() {
		if l.IsMain {
			mains++
			require.Equal(t, c.ID, l.ID)
		}
	}
	require.Equal(t, 1, mains)
	require.Equal(t, c.ID, s.MainLocation().ID)
}

func TestSetMainLocationIdempotent(t *testing.T) {
	s, profiles, locations := newTestStore(t)
	addLoc(t, s, "A", 10, 10)
	b := addLoc(t, s, "B", 20, 20)

	require.NoError(t, s.SetMainLocation(context.Background(), b.ID))

	flagCallsBefore := locations.flagCalls
	pointerCallsBefore := profiles.setMainCalls

	require.NoError(t, s.SetMainLocation(context.Background(), b.ID))

	require.Equal(t, flagCallsBefore, locations.flagCalls, "repeat switch must not write flags")
	require.Equal(t, pointerCallsBefore, profiles.setMainCalls, "repeat switch must not write pointer")
	require.Equal(t, b.ID, s.MainLocation().ID)
}

func TestSetMainLocationUnknownID(t *testing.T) {
	s, _, _ := newTestStore(t)
	addLoc(t, s, "A", 10, 10)

	err := s.SetMainLocation(context.Background(), 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteLocation(t *testing.T) {
	s, _, _ := newTestStore(t)
	a := addLoc(t, s, "A", 10, 10)
	b := addLoc(t, s, "B", 20, 20)

	// Deleting the non-main location leaves the main untouched.
	require.NoError(t, s.DeleteLocation(context.Background(), b.ID))
	require.Equal(t, a.ID, s.MainLocation().ID)

	c := addLoc(t, s, "C", 30, 30)

	// Deleting the main promotes the earliest remaining location.
	require.NoError(t, s.DeleteLocation(context.Background(), a.ID))
	main := s.MainLocation()
	require.NotNil(t, main)
	require.Equal(t, c.ID, main.ID)

	// Deleting the last location leaves no main.
	require.NoError(t, s.DeleteLocation(context.Background(), c.ID))
	require.Nil(t, s.MainLocation())
	require.Empty(t, s.Locations())
}

func TestDeleteLocationRemoteFailureKeepsLocalState(t *testing.T) {
	s, _, locations := newTestStore(t)
	a := addLoc(t, s, "A", 10, 10)

	locations.deleteErr = errors.New("boom")
	err := s.DeleteLocation(context.Background(), a.ID)
	require.Error(t, err)
	require.Len(t, s.Locations(), 1)
	require.Equal(t, a.ID, s.MainLocation().ID)
}

func TestUpdateProfile(t *testing.T) {
	s, _, _ := newTestStore(t)

	name := "X"
	require.NoError(t, s.UpdateProfile(context.Background(), model.ProfileUpdate{FullName: &name}))
	require.Equal(t, "X", s.Profile().FullName)
}

func TestUpdateProfileRemoteFailureLeavesLocalUnchanged(t *testing.T) {
	s, profiles, _ := newTestStore(t)

	name := "before"
	require.NoError(t, s.UpdateProfile(context.Background(), model.ProfileUpdate{FullName: &name}))

	profiles.updateErr = errors.New("boom")
	after := "after"
	err := s.UpdateProfile(context.Background(), model.ProfileUpdate{FullName: &after})
	require.Error(t, err)
	require.Equal(t, "before", s.Profile().FullName)
}

func TestUpdateProfileEmptyPatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	err := s.UpdateProfile(context.Background(), model.ProfileUpdate{})
	require.ErrorIs(t, err, errs.ErrEmptyUpdate)
}

func TestAddLocationMergesNearDuplicate(t *testing.T) {
	s, _, locations := newTestStore(t)
	addLoc(t, s, "Istanbul", 41.0151, 28.9795)
	london := addLoc(t, s, "London", 51.5099, -0.1181)
	require.NoError(t, s.SetMainLocation(context.Background(), london.ID))

	// Coordinates within the tolerance resolve to the saved Istanbul entry.
	got, err := s.AddLocation(context.Background(), model.NewLocation{
		Name: "Istanbul Again", Lat: 41.019, Lon: 28.975,
	})
	require.NoError(t, err)
	require.Equal(t, "Istanbul", got.Name)
	require.True(t, got.IsMain)
	require.Len(t, locations.rows, 2, "no duplicate row inserted")
	require.Equal(t, got.ID, s.MainLocation().ID)
}

func TestMutationsRequireSignIn(t *testing.T) {
	userID := uuid.New()
	s := NewStore(userID, &fakeProfileRepo{}, &fakeLocationRepo{}, zap.NewNop())

	name := "X"
	require.ErrorIs(t, s.UpdateProfile(context.Background(), model.ProfileUpdate{FullName: &name}), errs.ErrUnauthenticated)

	_, err := s.AddLocation(context.Background(), model.NewLocation{Name: "A"})
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	require.ErrorIs(t, s.DeleteLocation(context.Background(), 1), errs.ErrUnauthenticated)
	require.ErrorIs(t, s.SetMainLocation(context.Background(), 1), errs.ErrUnauthenticated)
}

func TestSignInFailOpen(t *testing.T) {
	userID := uuid.New()
	profiles := &fakeProfileRepo{getErr: errors.New("profile down")}
	locations := &fakeLocationRepo{listErr: errors.New("locations down")}

	s := NewStore(userID, profiles, locations, zap.NewNop())
	s.SignIn(context.Background())

	require.Equal(t, StateReady, s.State())
	require.Nil(t, s.Profile())
	require.Empty(t, s.Locations())
	require.Nil(t, s.MainLocation())
}

func TestSignOutDiscardsState(t *testing.T) {
	s, _, _ := newTestStore(t)
	addLoc(t, s, "A", 10, 10)

	s.SignOut()
	require.Equal(t, StateUnauthenticated, s.State())
	require.Nil(t, s.Profile())
	require.Empty(t, s.Locations())
}

func TestMainSwitchCompensatesOnUnmarkFailure(t *testing.T) {
	s, _, locations := newTestStore(t)
	a := addLoc(t, s, "A", 10, 10)
	b := addLoc(t, s, "B", 20, 20)

	// Unmarking A fails on both attempts; reverting B's mark succeeds.
	failures := 0
	locations.flagHook = func(id int64, isMain bool) error {
		if id == a.ID && !isMain && failures < 2 {
			failures++
			return errors.New("unmark failed")
		}
		return nil
	}

	err := s.SetMainLocation(context.Background(), b.ID)
	require.Error(t, err)
	var switchErr *errs.MainSwitchError
	require.False(t, errors.As(err, &switchErr), "successful revert is a clean failure")

	// Remote and local state both still point at A.
	require.True(t, locations.byID(a.ID).IsMain)
	require.False(t, locations.byID(b.ID).IsMain)
	require.Equal(t, a.ID, s.MainLocation().ID)
}

func TestMainSwitchPartialFailureSurfaced(t *testing.T) {
	s, _, locations := newTestStore(t)
	a := addLoc(t, s, "A", 10, 10)
	b := addLoc(t, s, "B", 20, 20)

	// Unmarking A keeps failing and so does the compensating revert of B.
	locations.flagHook = func(id int64, isMain bool) error {
		if id == a.ID && !isMain {
			return errors.New("unmark failed")
		}
		if id == b.ID && !isMain {
			return errors.New("revert failed")
		}
		return nil
	}

	err := s.SetMainLocation(context.Background(), b.ID)
	var switchErr *errs.MainSwitchError
	require.ErrorAs(t, err, &switchErr)
	require.Equal(t, b.ID, switchErr.TargetID)
	require.Equal(t, a.ID, switchErr.PreviousID)
	require.Equal(t, errs.PhaseUnmarkPrev, switchErr.Phase)

	// Local state was not updated; the derived main still resolves to A.
	require.Equal(t, a.ID, s.MainLocation().ID)
}
