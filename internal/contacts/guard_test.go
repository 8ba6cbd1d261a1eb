package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/audit"
	"github.com/posdenous/naviya-launcher-sub002/internal/behavior"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

type fakeRaiser struct {
	flags []*models.AbuseFlag
}

func (f *fakeRaiser) RaiseFlag(_ context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) (*models.AbuseFlag, error) {
	flag := &models.AbuseFlag{
		CaregiverID: caregiverID,
		FlagType:    flagType,
		Severity:    severity,
		Description: description,
		Evidence:    evidence,
	}
	f.flags = append(f.flags, flag)
	return flag, nil
}

type restriction struct {
	caregiverID string
	duration    time.Duration
}

type fakeRestrictor struct {
	calls []restriction
}

func (f *fakeRestrictor) RestrictTemporarily(_ context.Context, caregiverID string, d time.Duration, _ string) error {
	f.calls = append(f.calls, restriction{caregiverID, d})
	return nil
}

type testGuard struct {
	guard      *Guard
	mem        *repository.MemoryStore
	raiser     *fakeRaiser
	restrictor *fakeRestrictor
	now        time.Time
}

func setupGuard(t *testing.T) *testGuard {
	t.Helper()
	tg := &testGuard{
		mem:        repository.NewMemoryStore(),
		raiser:     &fakeRaiser{},
		restrictor: &fakeRestrictor{},
		now:        time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return tg.now }
	log := behavior.NewLog(tg.mem, zap.NewNop(), behavior.WithClock(clock))
	chain := audit.NewChain(tg.mem, zap.NewNop(), audit.WithClock(clock))
	tg.guard = NewGuard("elder", tg.mem.Store(), log, chain, tg.raiser, tg.restrictor, zap.NewNop(), WithClock(clock))

	require.NoError(t, tg.guard.EnsureSystemContacts(context.Background(), SystemContacts{
		AdvocateName:    "Elder Rights Line",
		AdvocatePhone:   "+49 800 1111",
		EmergencyNumber: "112",
	}))
	return tg
}

func (tg *testGuard) addCaregiver(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, tg.mem.CreateCaregiver(context.Background(), models.NewCaregiverPermissions(id, "Anna", "", nil, tg.now)))
}

func (tg *testGuard) contactByLevel(t *testing.T, level models.ProtectionLevel) *models.ProtectedContact {
	t.Helper()
	list, err := tg.guard.ListContacts(context.Background())
	require.NoError(t, err)
	for _, c := range list {
		if c.ProtectionLevel == level {
			return c
		}
	}
	t.Fatalf("no contact with protection level %s", level)
	return nil
}

func TestEnsureSystemContacts_Idempotent(t *testing.T) {
	tg := setupGuard(t)
	require.NoError(t, tg.guard.EnsureSystemContacts(context.Background(), SystemContacts{
		AdvocateName:    "Elder Rights Line",
		AdvocatePhone:   "+49 800 1111",
		EmergencyNumber: "112",
	}))

	list, err := tg.guard.ListContacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	emergency, err := tg.guard.EmergencyContacts(context.Background(), "elder")
	require.NoError(t, err)
	require.Len(t, emergency, 1)
	assert.Equal(t, "112", emergency[0].Phone)
}

func TestBlockContactRemoval_AlwaysBlocked(t *testing.T) {
	tg := setupGuard(t)
	contact := tg.contactByLevel(t, models.ProtectionEmergencyProtected)

	for _, cg := range []string{"cg-1", "cg-2", "unknown"} {
		d := tg.guard.BlockContactRemoval(context.Background(), cg, contact.ContactID)
		assert.Equal(t, models.OutcomeBlocked, d.Outcome)
		d = tg.guard.BlockContactBlocking(context.Background(), cg, contact.ContactID)
		assert.Equal(t, models.OutcomeBlocked, d.Outcome)
	}

	stored, err := tg.mem.GetContact(context.Background(), contact.ContactID)
	require.NoError(t, err)
	assert.Nil(t, stored.RemovedAt)

	n, err := tg.mem.CountActions(context.Background(), "cg-1",
		[]string{models.ActionContactRemovalBlocked, models.ActionContactBlockingBlocked}, tg.now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBlockedAttempts_FlagAtThreeRestrictAtFive(t *testing.T) {
	tg := setupGuard(t)
	contact := tg.contactByLevel(t, models.ProtectionAdvocateProtected)

	for i := 0; i < 2; i++ {
		tg.guard.BlockContactRemoval(context.Background(), "cg-1", contact.ContactID)
		tg.now = tg.now.Add(time.Minute)
	}
	assert.Empty(t, tg.raiser.flags)

	tg.guard.BlockContactBlocking(context.Background(), "cg-1", contact.ContactID)
	require.Len(t, tg.raiser.flags, 1)
	assert.Equal(t, models.SeverityMedium, tg.raiser.flags[0].Severity)
	assert.Equal(t, models.FlagSocialIsolation, tg.raiser.flags[0].FlagType)
	assert.Equal(t, 3, tg.raiser.flags[0].Evidence["attempts"])
	assert.Empty(t, tg.restrictor.calls)

	tg.guard.BlockContactRemoval(context.Background(), "cg-1", contact.ContactID)
	assert.Empty(t, tg.restrictor.calls)

	tg.guard.BlockContactRemoval(context.Background(), "cg-1", contact.ContactID)
	require.Len(t, tg.restrictor.calls, 1)
	assert.Equal(t, restriction{"cg-1", 24 * time.Hour}, tg.restrictor.calls[0])
	assert.Len(t, tg.raiser.flags, 1)
}

func TestBlockedAttempts_RollingWindow(t *testing.T) {
	tg := setupGuard(t)
	contact := tg.contactByLevel(t, models.ProtectionAdvocateProtected)

	// 40 minutes apart: never three inside one hour
	for i := 0; i < 6; i++ {
		tg.guard.BlockContactRemoval(context.Background(), "cg-1", contact.ContactID)
		tg.now = tg.now.Add(40 * time.Minute)
	}
	assert.Empty(t, tg.raiser.flags)
	assert.Empty(t, tg.restrictor.calls)
}

func TestRequestContactAddition_PendingUntilApproved(t *testing.T) {
	tg := setupGuard(t)
	tg.addCaregiver(t, "cg-1")

	d, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1",
		Name:        "Dr. Weber",
		Phone:       "+49 30 555",
		Reason:      "family doctor",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePendingApproval, d.Outcome)
	require.NotEmpty(t, d.ID)

	list, err := tg.guard.ListContacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	pending, err := tg.guard.ListPendingRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	d, err = tg.guard.RespondToPendingRequest(context.Background(), pending[0].RequestID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeGranted, d.Outcome)

	c, err := tg.mem.GetContact(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Weber", c.Name)
	assert.Equal(t, models.ProtectionUserControlled, c.ProtectionLevel)
	assert.Equal(t, "caregiver:cg-1", c.AddedBy)

	_, err = tg.guard.RespondToPendingRequest(context.Background(), pending[0].RequestID, true)
	assert.ErrorIs(t, err, models.ErrRequestNotPending)
}

func TestRequestContactAddition_Reject(t *testing.T) {
	tg := setupGuard(t)
	tg.addCaregiver(t, "cg-1")

	d, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "Stranger", Phone: "+1 555",
	})
	require.NoError(t, err)

	requestID := d.ID

	d, err = tg.guard.RespondToPendingRequest(context.Background(), requestID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, d.Outcome)

	r, err := tg.mem.GetRequest(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, r.Status)
	list, err := tg.guard.ListContacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRequestContactAddition_InactiveOrUnknownCaregiver(t *testing.T) {
	tg := setupGuard(t)

	_, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "missing", Name: "X", Phone: "1",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	tg.addCaregiver(t, "cg-1")
	cg, err := tg.mem.GetCaregiver(context.Background(), "cg-1")
	require.NoError(t, err)
	cg.Suspended = true
	require.NoError(t, tg.mem.UpdateCaregiver(context.Background(), cg))

	d, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "X", Phone: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, d.Outcome)

	_, err = tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{CaregiverID: "cg-1"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestCancelPendingRequest(t *testing.T) {
	tg := setupGuard(t)
	tg.addCaregiver(t, "cg-1")
	d, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "Neighbour", Phone: "+49 30 777",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, tg.guard.CancelPendingRequest(context.Background(), d.ID, "cg-2"), models.ErrInvalidArgument)
	require.NoError(t, tg.guard.CancelPendingRequest(context.Background(), d.ID, "cg-1"))

	r, err := tg.mem.GetRequest(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, r.Status)

	_, err = tg.guard.RespondToPendingRequest(context.Background(), d.ID, true)
	assert.ErrorIs(t, err, models.ErrRequestNotPending)
}

func TestExpirePendingRequests(t *testing.T) {
	tg := setupGuard(t)
	tg.addCaregiver(t, "cg-1")
	old, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "Old", Phone: "1",
	})
	require.NoError(t, err)

	tg.now = tg.now.Add(6 * 24 * time.Hour)
	fresh, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "Fresh", Phone: "2",
	})
	require.NoError(t, err)

	tg.now = tg.now.Add(24 * time.Hour)
	n, err := tg.guard.ExpirePendingRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := tg.mem.GetRequest(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, r.Status)

	_, err = tg.guard.RespondToPendingRequest(context.Background(), fresh.ID, true)
	require.NoError(t, err)
}

func TestRespondToPendingRequest_ExpiredOnResponse(t *testing.T) {
	tg := setupGuard(t)
	tg.addCaregiver(t, "cg-1")
	d, err := tg.guard.RequestContactAddition(context.Background(), ContactAdditionRequest{
		CaregiverID: "cg-1", Name: "Late", Phone: "1",
	})
	require.NoError(t, err)

	tg.now = tg.now.Add(RequestTTL)
	_, err = tg.guard.RespondToPendingRequest(context.Background(), d.ID, true)
	assert.ErrorIs(t, err, models.ErrRequestNotPending)

	r, err := tg.mem.GetRequest(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, r.Status)
}

func TestUserAddAndRemoveContact(t *testing.T) {
	tg := setupGuard(t)
	d, err := tg.guard.UserAddContact(context.Background(), UserContact{Name: "Grandson", Phone: "+49 170 1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllowed, d.Outcome)

	d, err = tg.guard.UserRemoveContact(context.Background(), d.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllowed, d.Outcome)

	d, err = tg.guard.UserRemoveContact(context.Background(), d.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllowed, d.Outcome)

	_, err = tg.guard.UserRemoveContact(context.Background(), "missing", true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRemoveContact_AdvocateNeedsConfirmation(t *testing.T) {
	tg := setupGuard(t)
	advocate := tg.contactByLevel(t, models.ProtectionAdvocateProtected)

	d, err := tg.guard.UserRemoveContact(context.Background(), advocate.ContactID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNeedsConfirmation, d.Outcome)

	stored, err := tg.mem.GetContact(context.Background(), advocate.ContactID)
	require.NoError(t, err)
	assert.Nil(t, stored.RemovedAt)

	d, err = tg.guard.UserRemoveContact(context.Background(), advocate.ContactID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllowed, d.Outcome)
}

func TestUserRemoveContact_LastEmergencyContact(t *testing.T) {
	tg := setupGuard(t)
	emergency := tg.contactByLevel(t, models.ProtectionEmergencyProtected)

	_, err := tg.guard.UserRemoveContact(context.Background(), emergency.ContactID, true)
	assert.ErrorIs(t, err, models.ErrLastEmergencyContact)

	_, err = tg.guard.UserAddContact(context.Background(), UserContact{Name: "Daughter", Phone: "+49 170 2", Emergency: true})
	require.NoError(t, err)

	d, err := tg.guard.UserRemoveContact(context.Background(), emergency.ContactID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllowed, d.Outcome)

	remaining, err := tg.guard.EmergencyContacts(context.Background(), "elder")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Daughter", remaining[0].Name)
}
