package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"echoloom-api/core/constants"
	appErrors "echoloom-api/core/errors"
	"echoloom-api/core/video"
	authEntity "echoloom-api/modules/auth/entity"
	authService "echoloom-api/modules/auth/service"
	"echoloom-api/modules/meeting/dto"
	"echoloom-api/modules/meeting/entity"
	"echoloom-api/modules/meeting/repository"
	notifService "echoloom-api/modules/notification/service"

	"github.com/google/uuid"
)

var testStart = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

// ===================== fakes =====================

type fakeMeetingRepo struct {
	meetings     map[uuid.UUID]*entity.Meeting
	participants map[uuid.UUID][]entity.Participant
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{
		meetings:     make(map[uuid.UUID]*entity.Meeting),
		participants: make(map[uuid.UUID][]entity.Participant),
	}
}

func (f *fakeMeetingRepo) CreateMeeting(_ context.Context, m *entity.Meeting) (*entity.Meeting, error) {
	clone := *m
	clone.ID = uuid.New()
	f.meetings[clone.ID] = &clone
	return &clone, nil
}

func (f *fakeMeetingRepo) GetMeetingByID(_ context.Context, id uuid.UUID) (*entity.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (f *fakeMeetingRepo) GetMeetingsByUserID(_ context.Context, userID uuid.UUID, scope repository.ListScope) ([]entity.Meeting, error) {
	var out []entity.Meeting
	for _, m := range f.meetings {
		if m.HostID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMeetingRepo) UpdateMeeting(_ context.Context, m *entity.Meeting) error {
	clone := *m
	f.meetings[m.ID] = &clone
	return nil
}

func (f *fakeMeetingRepo) DeleteMeeting(_ context.Context, id uuid.UUID) error {
	delete(f.meetings, id)
	delete(f.participants, id)
	return nil
}

func (f *fakeMeetingRepo) AddParticipant(_ context.Context, p *entity.Participant) error {
	for _, existing := range f.participants[p.MeetingID] {
		if existing.Email == p.Email {
			return nil // ON CONFLICT DO NOTHING
		}
	}
	f.participants[p.MeetingID] = append(f.participants[p.MeetingID], *p)
	return nil
}

func (f *fakeMeetingRepo) GetParticipants(_ context.Context, meetingID uuid.UUID) ([]entity.Participant, error) {
	return append([]entity.Participant(nil), f.participants[meetingID]...), nil
}

func (f *fakeMeetingRepo) GetParticipantByEmail(_ context.Context, meetingID uuid.UUID, email string) (*entity.Participant, error) {
	for _, p := range f.participants[meetingID] {
		if p.Email == email {
			clone := p
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeMeetingRepo) RemoveParticipant(_ context.Context, meetingID uuid.UUID, email string) error {
	roster := f.participants[meetingID]
	for i, p := range roster {
		if p.Email == email {
			f.participants[meetingID] = append(roster[:i], roster[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMeetingRepo) SetParticipantUser(_ context.Context, meetingID uuid.UUID, email string, userID uuid.UUID) error {
	roster := f.participants[meetingID]
	for i := range roster {
		if roster[i].Email == email && roster[i].UserID == nil {
			id := userID
			roster[i].UserID = &id
		}
	}
	return nil
}

func (f *fakeMeetingRepo) MarkJoined(_ context.Context, meetingID uuid.UUID, email string, at time.Time) error {
	roster := f.participants[meetingID]
	for i := range roster {
		if roster[i].Email == email {
			roster[i].Joined = true
			if roster[i].JoinedAt == nil {
				t := at
				roster[i].JoinedAt = &t
			}
		}
	}
	return nil
}

func (f *fakeMeetingRepo) GetEndedWithRoomBefore(_ context.Context, cutoff time.Time) ([]entity.Meeting, error) {
	var out []entity.Meeting
	for _, m := range f.meetings {
		if m.RoomName != "" && m.EndsAt().Before(cutoff) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMeetingRepo) ClearRoom(_ context.Context, meetingID uuid.UUID) error {
	if m, ok := f.meetings[meetingID]; ok {
		m.RoomName = ""
		m.RoomURL = ""
	}
	return nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*authEntity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*authEntity.User)}
}

func (f *fakeUserRepo) addUser(email, name string) *authEntity.User {
	u := &authEntity.User{Email: email, Name: name}
	u.ID = uuid.New()
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *authEntity.User) (*authEntity.User, error) {
	clone := *u
	clone.ID = uuid.New()
	f.users[clone.ID] = &clone
	return &clone, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*authEntity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*authEntity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdateUser(context.Context, *authEntity.User) error { return nil }

func (f *fakeUserRepo) AttachMeeting(_ context.Context, userID uuid.UUID, meetingID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	for _, id := range u.MeetingIDs {
		if id == meetingID.String() {
			return nil
		}
	}
	u.MeetingIDs = append(u.MeetingIDs, meetingID.String())
	return nil
}

func (f *fakeUserRepo) DetachMeeting(_ context.Context, userID uuid.UUID, meetingID uuid.UUID) error {
	u, ok := f.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	for i, id := range u.MeetingIDs {
		if id == meetingID.String() {
			u.MeetingIDs = append(u.MeetingIDs[:i], u.MeetingIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeAccounts implements only EnsureUser; the embedded interface panics on
// anything else, which is what we want in these tests.
type fakeAccounts struct {
	authService.AuthServiceInterface
	users *fakeUserRepo
}

func (f *fakeAccounts) EnsureUser(ctx context.Context, email, name string) (*authEntity.User, bool, *appErrors.AppError) {
	if existing, _ := f.users.GetUserByEmail(ctx, email); existing != nil {
		return existing, false, nil
	}
	return f.users.addUser(email, name), true, nil
}

type mailerCall struct {
	kind       string
	recipients []notifService.Recipient
	changed    []string
	reason     string
}

type fakeMailer struct {
	calls []mailerCall
}

func (f *fakeMailer) SendInvite(_ context.Context, r []notifService.Recipient, _ notifService.MeetingNotice) {
	f.calls = append(f.calls, mailerCall{kind: "invite", recipients: r})
}

func (f *fakeMailer) SendUpdate(_ context.Context, r []notifService.Recipient, _ notifService.MeetingNotice, changed []string) {
	f.calls = append(f.calls, mailerCall{kind: "update", recipients: r, changed: changed})
}

func (f *fakeMailer) SendCancellation(_ context.Context, r []notifService.Recipient, _ notifService.MeetingNotice, reason string) {
	f.calls = append(f.calls, mailerCall{kind: "cancel", recipients: r, reason: reason})
}

func (f *fakeMailer) SendWelcome(context.Context, string, string) {}

func (f *fakeMailer) callsOfKind(kind string) []mailerCall {
	var out []mailerCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeProvider struct {
	createErr error
	deleted   []string
	deleteErr map[string]error
	tokens    int
}

func (f *fakeProvider) CreateRoom(_ context.Context, name string, _ time.Time) (*video.Room, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &video.Room{Name: name, URL: "https://rooms.example/" + name}, nil
}

func (f *fakeProvider) DeleteRoom(_ context.Context, name string) error {
	if err, ok := f.deleteErr[name]; ok {
		return err
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeProvider) CreateMeetingToken(_ context.Context, roomName, _, _ string, isOwner bool) (string, error) {
	f.tokens++
	if isOwner {
		return "owner-token", nil
	}
	return "member-token", nil
}

type fakeCache struct {
	store   map[string]string
	deleted []string
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.store[key], nil
}

func (f *fakeCache) SetWithTTL(_ context.Context, key, value string, _ time.Duration) error {
	f.store[key] = value
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.store, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeCache) Expire(context.Context, string, time.Duration) error { return nil }

func (f *fakeCache) AddToTokenBlacklist(context.Context, string) error { return nil }

func (f *fakeCache) IsTokenBlacklisted(context.Context, string) (bool, error) { return false, nil }

// ===================== fixture =====================

type fixture struct {
	svc      *MeetingService
	repo     *fakeMeetingRepo
	users    *fakeUserRepo
	mailer   *fakeMailer
	provider *fakeProvider
	cache    *fakeCache
	clock    time.Time
	host     *authEntity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeMeetingRepo()
	users := newFakeUserRepo()
	mailer := &fakeMailer{}
	provider := &fakeProvider{}
	c := newFakeCache()

	f := &fixture{
		repo:     repo,
		users:    users,
		mailer:   mailer,
		provider: provider,
		cache:    c,
		clock:    testStart,
	}
	f.host = users.addUser("host@example.com", "Hana Host")

	f.svc = &MeetingService{
		repo:     repo,
		users:    users,
		accounts: &fakeAccounts{users: users},
		mailer:   mailer,
		provider: provider,
		cache:    c,
		now:      func() time.Time { return f.clock },
	}
	return f
}

func (f *fixture) createMeeting(t *testing.T, req *dto.CreateMeetingRequest) *dto.MeetingResponse {
	t.Helper()
	resp, appErr := f.svc.CreateMeeting(context.Background(), f.host.ID, req)
	if appErr != nil {
		t.Fatalf("CreateMeeting failed: %v", appErr)
	}
	return resp
}

func scheduledReq(offset time.Duration, invitees ...dto.InviteeDTO) *dto.CreateMeetingRequest {
	return &dto.CreateMeetingRequest{
		Title:           "Weekly sync",
		ScheduledAt:     testStart.Add(offset).Format(time.RFC3339),
		DurationMinutes: 60,
		Participants:    invitees,
	}
}

// ===================== create =====================

func TestCreateMeetingInstant(t *testing.T) {
	f := newFixture(t)

	resp := f.createMeeting(t, &dto.CreateMeetingRequest{Title: "Quick chat", DurationMinutes: 30})

	if resp.Status != string(entity.StatusLive) {
		t.Fatalf("instant meeting status = %q, want live", resp.Status)
	}
	if resp.RoomURL == "" {
		t.Fatal("expected a room URL")
	}
	if len(resp.Participants) != 1 || resp.Participants[0].Email != f.host.Email {
		t.Fatalf("expected host as sole participant, got %+v", resp.Participants)
	}
}

func TestCreateMeetingProviderFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.provider.createErr = errors.New("daily is down")

	_, appErr := f.svc.CreateMeeting(context.Background(), f.host.ID, scheduledReq(time.Hour))
	if appErr == nil || appErr.Code != appErrors.ErrUpstreamFailure {
		t.Fatalf("expected ErrUpstreamFailure, got %v", appErr)
	}
	if len(f.repo.meetings) != 0 {
		t.Fatal("no meeting row should exist after a provider failure")
	}
}

func TestCreateMeetingInvitesAndAttaches(t *testing.T) {
	f := newFixture(t)

	resp := f.createMeeting(t, scheduledReq(time.Hour,
		dto.InviteeDTO{Email: "ana@example.com", Name: "Ana"},
		dto.InviteeDTO{Email: "ben@example.com"},
	))

	if len(resp.Participants) != 3 {
		t.Fatalf("expected host + 2 invitees, got %d", len(resp.Participants))
	}

	invites := f.mailer.callsOfKind("invite")
	if len(invites) != 1 || len(invites[0].recipients) != 2 {
		t.Fatalf("expected one invite batch with 2 recipients, got %+v", invites)
	}

	// Invitees get accounts on the spot and the meeting in their history.
	ana, _ := f.users.GetUserByEmail(context.Background(), "ana@example.com")
	if ana == nil || len(ana.MeetingIDs) != 1 {
		t.Fatalf("invitee account not provisioned or meeting not attached: %+v", ana)
	}
}

func TestCreateMeetingRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  *dto.CreateMeetingRequest
	}{
		{"empty title", &dto.CreateMeetingRequest{Title: "  ", DurationMinutes: 30}},
		{"zero duration", &dto.CreateMeetingRequest{Title: "x", DurationMinutes: 0}},
		{"excessive duration", &dto.CreateMeetingRequest{Title: "x", DurationMinutes: 9999}},
		{"garbage time", &dto.CreateMeetingRequest{Title: "x", DurationMinutes: 30, ScheduledAt: "tomorrow-ish"}},
		{"past time", &dto.CreateMeetingRequest{Title: "x", DurationMinutes: 30, ScheduledAt: testStart.Add(-2 * time.Hour).Format(time.RFC3339)}},
		{"bad invitee email", &dto.CreateMeetingRequest{Title: "x", DurationMinutes: 30, Participants: []dto.InviteeDTO{{Email: "not-an-email"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, appErr := f.svc.CreateMeeting(context.Background(), f.host.ID, tc.req)
			if appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
				t.Fatalf("expected ErrInvalidInput, got %v", appErr)
			}
		})
	}
}

// ===================== read =====================

func TestGetMeetingForbiddenForOutsiders(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour))

	outsider := f.users.addUser("outsider@example.com", "Olli")
	meetingID := uuid.MustParse(resp.ID)

	_, appErr := f.svc.GetMeeting(context.Background(), outsider.ID, meetingID)
	if appErr == nil || appErr.Code != appErrors.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", appErr)
	}
}

func TestListMyMeetingsCachesWithoutStatus(t *testing.T) {
	f := newFixture(t)
	f.createMeeting(t, scheduledReq(time.Hour))
	f.cache.deleted = nil

	items, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, constants.MeetingListScopeUpcoming)
	if appErr != nil {
		t.Fatalf("ListMyMeetings failed: %v", appErr)
	}
	if len(items) != 1 || items[0].Status != string(entity.StatusUpcoming) {
		t.Fatalf("expected one upcoming item, got %+v", items)
	}

	// The cached payload must not carry a status.
	key := constants.RedisKeyMeetingList + f.host.ID.String() + ":" + constants.MeetingListScopeUpcoming
	raw, ok := f.cache.store[key]
	if !ok {
		t.Fatal("expected list to be cached")
	}
	var cached []map[string]any
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("cached payload is not JSON: %v", err)
	}
	if _, present := cached[0]["status"]; present {
		t.Fatal("cached items must not store a status")
	}
}

func TestListMyMeetingsClassifiesAfterCacheHit(t *testing.T) {
	f := newFixture(t)
	f.createMeeting(t, scheduledReq(30*time.Minute))

	if _, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, constants.MeetingListScopeUpcoming); appErr != nil {
		t.Fatalf("warm-up list failed: %v", appErr)
	}

	// Move the clock into the meeting window; the cache entry is unchanged
	// but the served status must be.
	f.clock = testStart.Add(45 * time.Minute)

	items, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, constants.MeetingListScopeUpcoming)
	if appErr != nil {
		t.Fatalf("ListMyMeetings failed: %v", appErr)
	}
	if items[0].Status != string(entity.StatusLive) {
		t.Fatalf("cache hit served stale status %q, want live", items[0].Status)
	}
}

func TestListMyMeetingsSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t)
	f.createMeeting(t, scheduledReq(time.Hour))
	f.cache.getErr = errors.New("redis down")

	items, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, constants.MeetingListScopeUpcoming)
	if appErr != nil {
		t.Fatalf("cache outage must not fail the list: %v", appErr)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item from the store, got %d", len(items))
	}
}

func TestListMyMeetingsRejectsUnknownScope(t *testing.T) {
	f := newFixture(t)

	_, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, "someday")
	if appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", appErr)
	}
}

// ===================== update =====================

func TestUpdateMeetingRejectedAfterStart(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour))
	meetingID := uuid.MustParse(resp.ID)

	f.clock = testStart.Add(time.Hour) // exactly at start

	title := "Renamed"
	_, appErr := f.svc.UpdateMeeting(context.Background(), f.host.ID, meetingID, &dto.UpdateMeetingRequest{Title: &title})
	if appErr == nil || appErr.Code != appErrors.ErrMeetingStarted {
		t.Fatalf("expected ErrMeetingStarted, got %v", appErr)
	}
}

func TestUpdateMeetingHostOnly(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour))
	meetingID := uuid.MustParse(resp.ID)

	other := f.users.addUser("other@example.com", "Otto")
	title := "Hijacked"
	_, appErr := f.svc.UpdateMeeting(context.Background(), other.ID, meetingID, &dto.UpdateMeetingRequest{Title: &title})
	if appErr == nil || appErr.Code != appErrors.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", appErr)
	}
}

func TestUpdateMeetingReplacesRoster(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour,
		dto.InviteeDTO{Email: "keep@example.com", Name: "Kei"},
		dto.InviteeDTO{Email: "drop@example.com", Name: "Dee"},
	))
	meetingID := uuid.MustParse(resp.ID)
	f.mailer.calls = nil

	newTime := testStart.Add(2 * time.Hour).Format(time.RFC3339)
	roster := []dto.InviteeDTO{
		{Email: "keep@example.com", Name: "Kei"},
		{Email: "new@example.com", Name: "Nia"},
	}
	updated, appErr := f.svc.UpdateMeeting(context.Background(), f.host.ID, meetingID, &dto.UpdateMeetingRequest{
		ScheduledAt:  &newTime,
		Participants: &roster,
	})
	if appErr != nil {
		t.Fatalf("UpdateMeeting failed: %v", appErr)
	}

	emails := make(map[string]bool)
	for _, p := range updated.Participants {
		emails[p.Email] = true
	}
	if !emails["keep@example.com"] || !emails["new@example.com"] || emails["drop@example.com"] {
		t.Fatalf("roster not replaced as requested: %+v", updated.Participants)
	}
	if !emails[f.host.Email] {
		t.Fatal("host must survive a roster replace")
	}

	// Removed gets a cancellation, added an invite, kept an update notice.
	if got := f.mailer.callsOfKind("cancel"); len(got) != 1 || got[0].recipients[0].Email != "drop@example.com" {
		t.Fatalf("cancellation calls: %+v", got)
	}
	if got := f.mailer.callsOfKind("invite"); len(got) != 1 || got[0].recipients[0].Email != "new@example.com" {
		t.Fatalf("invite calls: %+v", got)
	}
	updates := f.mailer.callsOfKind("update")
	if len(updates) != 1 || updates[0].recipients[0].Email != "keep@example.com" {
		t.Fatalf("update calls: %+v", updates)
	}
	if len(updates[0].changed) != 1 || updates[0].changed[0] != "scheduled_at" {
		t.Fatalf("changed fields = %v, want [scheduled_at]", updates[0].changed)
	}

	// The dropped participant loses the meeting from their history.
	dropped, _ := f.users.GetUserByEmail(context.Background(), "drop@example.com")
	if len(dropped.MeetingIDs) != 0 {
		t.Fatalf("removed participant still holds the meeting: %v", dropped.MeetingIDs)
	}
}

func TestUpdateMeetingNoDetailChangeSendsNoUpdateNotice(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour, dto.InviteeDTO{Email: "kei@example.com", Name: "Kei"}))
	meetingID := uuid.MustParse(resp.ID)
	f.mailer.calls = nil

	roster := []dto.InviteeDTO{{Email: "kei@example.com", Name: "Kei"}}
	if _, appErr := f.svc.UpdateMeeting(context.Background(), f.host.ID, meetingID, &dto.UpdateMeetingRequest{Participants: &roster}); appErr != nil {
		t.Fatalf("UpdateMeeting failed: %v", appErr)
	}

	if got := f.mailer.callsOfKind("update"); len(got) != 0 {
		t.Fatalf("unchanged details must not notify kept participants: %+v", got)
	}
}

func TestUpdateMeetingInvalidatesCaches(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour))
	meetingID := uuid.MustParse(resp.ID)

	if _, appErr := f.svc.ListMyMeetings(context.Background(), f.host.ID, constants.MeetingListScopeUpcoming); appErr != nil {
		t.Fatalf("warm-up list failed: %v", appErr)
	}
	key := constants.RedisKeyMeetingList + f.host.ID.String() + ":" + constants.MeetingListScopeUpcoming
	if _, ok := f.cache.store[key]; !ok {
		t.Fatal("expected warm cache before the edit")
	}

	title := "Renamed"
	if _, appErr := f.svc.UpdateMeeting(context.Background(), f.host.ID, meetingID, &dto.UpdateMeetingRequest{Title: &title}); appErr != nil {
		t.Fatalf("UpdateMeeting failed: %v", appErr)
	}

	if _, ok := f.cache.store[key]; ok {
		t.Fatal("edit must invalidate the host's cached lists")
	}
}

// ===================== delete =====================

func TestDeleteMeetingNotifiesAndDetaches(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour, dto.InviteeDTO{Email: "ana@example.com", Name: "Ana"}))
	meetingID := uuid.MustParse(resp.ID)
	f.mailer.calls = nil

	if appErr := f.svc.DeleteMeeting(context.Background(), f.host.ID, meetingID); appErr != nil {
		t.Fatalf("DeleteMeeting failed: %v", appErr)
	}

	if _, ok := f.repo.meetings[meetingID]; ok {
		t.Fatal("meeting row should be gone")
	}
	if got := f.mailer.callsOfKind("cancel"); len(got) != 1 || got[0].recipients[0].Email != "ana@example.com" {
		t.Fatalf("cancellation calls: %+v", got)
	}
	ana, _ := f.users.GetUserByEmail(context.Background(), "ana@example.com")
	if len(ana.MeetingIDs) != 0 {
		t.Fatalf("participant history not detached: %v", ana.MeetingIDs)
	}
}

// ===================== invite / remove =====================

func TestInviteParticipantsIdempotent(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour, dto.InviteeDTO{Email: "ana@example.com", Name: "Ana"}))
	meetingID := uuid.MustParse(resp.ID)
	f.mailer.calls = nil

	updated, appErr := f.svc.InviteParticipants(context.Background(), f.host.ID, meetingID, []dto.InviteeDTO{
		{Email: "ana@example.com", Name: "Ana"}, // already present
		{Email: "ben@example.com", Name: "Ben"},
	})
	if appErr != nil {
		t.Fatalf("InviteParticipants failed: %v", appErr)
	}
	if len(updated.Participants) != 3 {
		t.Fatalf("expected 3 participants after idempotent invite, got %d", len(updated.Participants))
	}

	invites := f.mailer.callsOfKind("invite")
	if len(invites) != 1 || len(invites[0].recipients) != 1 || invites[0].recipients[0].Email != "ben@example.com" {
		t.Fatalf("only the new invitee gets an invite, got %+v", invites)
	}
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour, dto.InviteeDTO{Email: "ana@example.com", Name: "Ana"}))
	meetingID := uuid.MustParse(resp.ID)

	if appErr := f.svc.RemoveParticipant(context.Background(), f.host.ID, meetingID, "ana@example.com"); appErr != nil {
		t.Fatalf("RemoveParticipant failed: %v", appErr)
	}

	if appErr := f.svc.RemoveParticipant(context.Background(), f.host.ID, meetingID, "ana@example.com"); appErr == nil || appErr.Code != appErrors.ErrNotFound {
		t.Fatalf("removing an absent participant: expected ErrNotFound, got %v", appErr)
	}

	if appErr := f.svc.RemoveParticipant(context.Background(), f.host.ID, meetingID, f.host.Email); appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
		t.Fatalf("removing the host: expected ErrInvalidInput, got %v", appErr)
	}
}

// ===================== join =====================

func TestJoinEndedMeetingIsGone(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour))
	meetingID := uuid.MustParse(resp.ID)

	f.clock = testStart.Add(3 * time.Hour)

	_, appErr := f.svc.Join(context.Background(), f.host.ID, meetingID)
	if appErr == nil || appErr.Code != appErrors.ErrMeetingEnded {
		t.Fatalf("expected ErrMeetingEnded, got %v", appErr)
	}
}

func TestJoinHostGetsOwnerToken(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(0))
	meetingID := uuid.MustParse(resp.ID)

	join, appErr := f.svc.Join(context.Background(), f.host.ID, meetingID)
	if appErr != nil {
		t.Fatalf("Join failed: %v", appErr)
	}
	if join.Token != "owner-token" {
		t.Fatalf("host token = %q, want owner-token", join.Token)
	}
	if join.Status != string(entity.StatusLive) {
		t.Fatalf("join status = %q, want live", join.Status)
	}
}

func TestJoinFirstJoinTimestampWins(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(0))
	meetingID := uuid.MustParse(resp.ID)

	if _, appErr := f.svc.Join(context.Background(), f.host.ID, meetingID); appErr != nil {
		t.Fatalf("first join failed: %v", appErr)
	}
	first := f.repo.participants[meetingID][0].JoinedAt

	f.clock = testStart.Add(10 * time.Minute)
	if _, appErr := f.svc.Join(context.Background(), f.host.ID, meetingID); appErr != nil {
		t.Fatalf("rejoin failed: %v", appErr)
	}

	second := f.repo.participants[meetingID][0].JoinedAt
	if !first.Equal(*second) {
		t.Fatalf("rejoin moved joined_at from %v to %v", first, second)
	}
}

func TestGuestJoin(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(0, dto.InviteeDTO{Email: "guest@example.com", Name: "Gus"}))
	meetingID := uuid.MustParse(resp.ID)

	join, appErr := f.svc.GuestJoin(context.Background(), meetingID, &dto.GuestJoinRequest{Email: "guest@example.com", Name: "Gus"})
	if appErr != nil {
		t.Fatalf("GuestJoin failed: %v", appErr)
	}
	if join.Token != "member-token" {
		t.Fatalf("guest token = %q, want member-token", join.Token)
	}
}

func TestGuestJoinUninvitedForbidden(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(0))
	meetingID := uuid.MustParse(resp.ID)

	_, appErr := f.svc.GuestJoin(context.Background(), meetingID, &dto.GuestJoinRequest{Email: "stranger@example.com", Name: "Sly"})
	if appErr == nil || appErr.Code != appErrors.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", appErr)
	}
}

func TestGuestJoinValidation(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(0))
	meetingID := uuid.MustParse(resp.ID)

	cases := []dto.GuestJoinRequest{
		{Email: "", Name: "NoEmail"},
		{Email: "not-an-email", Name: "Bad"},
		{Email: "ok@example.com", Name: "  "},
	}
	for _, req := range cases {
		if _, appErr := f.svc.GuestJoin(context.Background(), meetingID, &req); appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
			t.Fatalf("req %+v: expected ErrInvalidInput, got %v", req, appErr)
		}
	}
}

// ===================== history / sweep =====================

func TestDetachFromHistory(t *testing.T) {
	f := newFixture(t)
	resp := f.createMeeting(t, scheduledReq(time.Hour, dto.InviteeDTO{Email: "ana@example.com", Name: "Ana"}))
	meetingID := uuid.MustParse(resp.ID)

	ana, _ := f.users.GetUserByEmail(context.Background(), "ana@example.com")
	if appErr := f.svc.DetachFromHistory(context.Background(), ana.ID, meetingID); appErr != nil {
		t.Fatalf("DetachFromHistory failed: %v", appErr)
	}
	if len(ana.MeetingIDs) != 0 {
		t.Fatalf("meeting still in history: %v", ana.MeetingIDs)
	}

	// The roster row survives; only the list reference is gone.
	p, _ := f.repo.GetParticipantByEmail(context.Background(), meetingID, "ana@example.com")
	if p == nil {
		t.Fatal("detaching must not touch the roster")
	}

	if appErr := f.svc.DetachFromHistory(context.Background(), f.host.ID, meetingID); appErr == nil || appErr.Code != appErrors.ErrForbidden {
		t.Fatalf("host detach: expected ErrForbidden, got %v", appErr)
	}
}

func TestSweepExpiredRoomsRetriesFailedDeletes(t *testing.T) {
	f := newFixture(t)
	a := f.createMeeting(t, scheduledReq(time.Hour))
	b := f.createMeeting(t, &dto.CreateMeetingRequest{
		Title:           "Other",
		ScheduledAt:     testStart.Add(time.Hour).Format(time.RFC3339),
		DurationMinutes: 60,
	})

	_ = f.repo.meetings[uuid.MustParse(a.ID)].RoomName
	roomB := f.repo.meetings[uuid.MustParse(b.ID)].RoomName
	f.provider.deleteErr = map[string]error{roomB: errors.New("daily is down")}

	f.clock = testStart.Add(72 * time.Hour)
	if err := f.svc.SweepExpiredRooms(context.Background()); err != nil {
		t.Fatalf("SweepExpiredRooms failed: %v", err)
	}

	if got := f.repo.meetings[uuid.MustParse(a.ID)].RoomName; got != "" {
		t.Fatalf("swept meeting still holds room %q", got)
	}
	if got := f.repo.meetings[uuid.MustParse(b.ID)].RoomName; got != roomB {
		t.Fatal("failed delete must keep room_name so the next sweep retries")
	}

	// Sweeping again only sees the failed one.
	delete(f.provider.deleteErr, roomB)
	if err := f.svc.SweepExpiredRooms(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if got := f.repo.meetings[uuid.MustParse(b.ID)].RoomName; got != "" {
		t.Fatalf("retry did not clear room, still %q", got)
	}
	if len(f.provider.deleted) != 2 {
		t.Fatalf("expected 2 room deletes total, got %d", len(f.provider.deleted))
	}
}
