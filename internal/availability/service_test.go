package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

const practitionerID = "3f1c2a7e-6b1d-4c52-9a0f-8d2e5b7c1a90"

type fakeRepo struct {
	rules     map[time.Weekday]scheduling.Rule
	overrides map[civil.Date]scheduling.Override
	failWith  error
	// afterUpsert runs once a rule row has been written.
	afterUpsert func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rules:     make(map[time.Weekday]scheduling.Rule),
		overrides: make(map[civil.Date]scheduling.Override),
	}
}

func (r *fakeRepo) UpsertRule(_ context.Context, rule scheduling.Rule) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.rules[rule.DayOfWeek] = rule
	if r.afterUpsert != nil {
		r.afterUpsert()
	}
	return nil
}

func (r *fakeRepo) DeleteRule(_ context.Context, _ string, day time.Weekday) error {
	if r.failWith != nil {
		return r.failWith
	}
	delete(r.rules, day)
	return nil
}

func (r *fakeRepo) UpsertOverride(_ context.Context, o scheduling.Override) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.overrides[o.Date] = o
	return nil
}

func (r *fakeRepo) DeleteOverride(_ context.Context, _ string, date civil.Date) error {
	if r.failWith != nil {
		return r.failWith
	}
	delete(r.overrides, date)
	return nil
}

func (r *fakeRepo) AllRules(context.Context) ([]scheduling.Rule, error) {
	var out []scheduling.Rule
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, r.failWith
}

func (r *fakeRepo) AllOverrides(context.Context) ([]scheduling.Override, error) {
	var out []scheduling.Override
	for _, o := range r.overrides {
		out = append(out, o)
	}
	return out, r.failWith
}

func newTestService(repo Repository) (Service, *scheduling.Engine) {
	engine := scheduling.NewEngine(scheduling.DefaultConfig())
	return NewService(repo, engine, zerolog.Nop()), engine
}

func hours(start, end int) scheduling.TimeWindow {
	return scheduling.TimeWindow{Start: time.Duration(start) * time.Hour, End: time.Duration(end) * time.Hour}
}

var monday = civil.Date{Year: 2024, Month: time.June, Day: 10}

func TestService_SetRuleAndOverride(t *testing.T) {
	repo := newFakeRepo()
	svc, engine := newTestService(repo)
	ctx := context.Background()

	rule, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(9, 12))
	require.NoError(t, err)
	assert.Equal(t, time.Monday, rule.DayOfWeek)
	assert.Contains(t, repo.rules, time.Monday)

	w, ok := engine.EffectiveWindow(practitionerID, monday)
	require.True(t, ok)
	assert.Equal(t, hours(9, 12), w)

	_, err = svc.SetOverride(ctx, practitionerID, monday, hours(13, 15))
	require.NoError(t, err)

	w, ok = svc.EffectiveWindow(ctx, practitionerID, monday)
	require.True(t, ok)
	assert.Equal(t, hours(13, 15), w)

	a, err := svc.Get(ctx, practitionerID)
	require.NoError(t, err)
	assert.Len(t, a.Rules, 1)
	assert.Len(t, a.Overrides, 1)
}

func TestService_InvalidWindow(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(12, 9))
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.ErrorIs(t, err, scheduling.ErrInvalidWindow)
	assert.Empty(t, repo.rules)

	_, err = svc.SetOverride(ctx, practitionerID, monday, hours(10, 10))
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Empty(t, repo.overrides)

	_, err = svc.SetOverride(ctx, practitionerID, civil.Date{Year: 2024, Month: time.February, Day: 30}, hours(9, 10))
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestService_RepositoryFailureLeavesEngineUntouched(t *testing.T) {
	repo := newFakeRepo()
	svc, engine := newTestService(repo)
	ctx := context.Background()

	repo.failWith = ErrPractitionerNotFound
	_, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(9, 12))
	assert.ErrorIs(t, err, ErrPractitionerNotFound)

	_, ok := engine.EffectiveWindow(practitionerID, monday)
	assert.False(t, ok)
}

func TestService_ConcurrentSetRuleMatchesRows(t *testing.T) {
	repo := newFakeRepo()
	svc, engine := newTestService(repo)
	ctx := context.Background()

	var writes atomic.Int32
	stored := make(chan struct{})
	proceed := make(chan struct{})
	repo.afterUpsert = func() {
		if writes.Add(1) == 1 {
			close(stored)
			<-proceed
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(9, 12))
		assert.NoError(t, err)
	}()
	<-stored
	go func() {
		defer wg.Done()
		_, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(13, 17))
		assert.NoError(t, err)
	}()

	// The second write waits until the first has reached the engine.
	assert.Never(t, func() bool { return writes.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	close(proceed)
	wg.Wait()

	w, ok := engine.EffectiveWindow(practitionerID, monday)
	require.True(t, ok)
	assert.Equal(t, repo.rules[time.Monday].Window, w)
	assert.Equal(t, hours(13, 17), w)
}

func TestService_RemoveIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc, engine := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SetRule(ctx, practitionerID, time.Monday, hours(9, 12))
	require.NoError(t, err)
	_, err = svc.SetOverride(ctx, practitionerID, monday, hours(13, 15))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveOverride(ctx, practitionerID, monday))
	require.NoError(t, svc.RemoveOverride(ctx, practitionerID, monday))

	w, ok := engine.EffectiveWindow(practitionerID, monday)
	require.True(t, ok)
	assert.Equal(t, hours(9, 12), w)

	require.NoError(t, svc.RemoveRule(ctx, practitionerID, time.Monday))
	require.NoError(t, svc.RemoveRule(ctx, practitionerID, time.Monday))

	_, ok = engine.EffectiveWindow(practitionerID, monday)
	assert.False(t, ok)
}

func TestService_Warm(t *testing.T) {
	repo := newFakeRepo()
	repo.rules[time.Monday] = scheduling.Rule{PractitionerID: practitionerID, DayOfWeek: time.Monday, Window: hours(9, 17)}
	repo.overrides[monday] = scheduling.Override{PractitionerID: practitionerID, Date: monday, Window: hours(10, 11)}

	svc, engine := newTestService(repo)
	require.NoError(t, svc.Warm(context.Background()))

	w, ok := engine.EffectiveWindow(practitionerID, monday)
	require.True(t, ok)
	assert.Equal(t, hours(10, 11), w)

	next := monday.AddDays(7)
	w, ok = engine.EffectiveWindow(practitionerID, next)
	require.True(t, ok)
	assert.Equal(t, hours(9, 17), w)
}

func TestService_WarmFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("connection refused")

	svc, _ := newTestService(repo)
	assert.Error(t, svc.Warm(context.Background()))
}
