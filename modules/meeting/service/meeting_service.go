package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"echoloom-api/core/cache"
	"echoloom-api/core/constants"
	"echoloom-api/core/errors"
	"echoloom-api/core/logger"
	"echoloom-api/core/utils"
	"echoloom-api/core/video"
	authEntity "echoloom-api/modules/auth/entity"
	authRepo "echoloom-api/modules/auth/repository"
	authService "echoloom-api/modules/auth/service"
	"echoloom-api/modules/meeting/dto"
	"echoloom-api/modules/meeting/entity"
	"echoloom-api/modules/meeting/repository"
	notifService "echoloom-api/modules/notification/service"

	"github.com/google/uuid"
)

// MeetingService handles the meeting lifecycle: creation, host-only edits
// with roster replace-on-edit, join flows, deletion, and the per-user list
// cache kept consistent across all of them.
type MeetingService struct {
	repo     repository.MeetingRepositoryInterface
	users    authRepo.AuthRepositoryInterface
	accounts authService.AuthServiceInterface
	mailer   notifService.MailerInterface
	provider video.Provider
	cache    cache.Cache
	now      func() time.Time
}

// MeetingServiceInterface defines the service contract
type MeetingServiceInterface interface {
	CreateMeeting(ctx context.Context, hostID uuid.UUID, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, *errors.AppError)
	GetMeeting(ctx context.Context, callerID uuid.UUID, meetingID uuid.UUID) (*dto.MeetingResponse, *errors.AppError)
	ListMyMeetings(ctx context.Context, userID uuid.UUID, scope string) ([]dto.MeetingListItem, *errors.AppError)
	UpdateMeeting(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, req *dto.UpdateMeetingRequest) (*dto.MeetingResponse, *errors.AppError)
	DeleteMeeting(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID) *errors.AppError
	InviteParticipants(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, invitees []dto.InviteeDTO) (*dto.MeetingResponse, *errors.AppError)
	RemoveParticipant(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, email string) *errors.AppError
	Join(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) (*dto.JoinResponse, *errors.AppError)
	GuestJoin(ctx context.Context, meetingID uuid.UUID, req *dto.GuestJoinRequest) (*dto.JoinResponse, *errors.AppError)
	DetachFromHistory(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) *errors.AppError
	SweepExpiredRooms(ctx context.Context) error
}

func NewMeetingService(
	repo repository.MeetingRepositoryInterface,
	users authRepo.AuthRepositoryInterface,
	accounts authService.AuthServiceInterface,
	mailer notifService.MailerInterface,
	provider video.Provider,
	c cache.Cache,
) MeetingServiceInterface {
	return &MeetingService{
		repo:     repo,
		users:    users,
		accounts: accounts,
		mailer:   mailer,
		provider: provider,
		cache:    c,
		now:      time.Now,
	}
}

const maxDurationMinutes = 480

// CreateMeeting creates an instant or scheduled meeting. The provider room is
// created first; a provider failure aborts the whole operation.
func (s *MeetingService) CreateMeeting(ctx context.Context, hostID uuid.UUID, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, *errors.AppError) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Title is required", nil)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > maxDurationMinutes {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Duration must be between 1 and 480 minutes", nil)
	}

	now := s.now()
	scheduledAt := now
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "scheduled_at must be RFC3339", err)
		}
		if parsed.Before(now.Add(-time.Minute)) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "scheduled_at must not be in the past", nil)
		}
		scheduledAt = parsed
	}

	invitees, appErr := sanitizeInvitees(req.Participants)
	if appErr != nil {
		return nil, appErr
	}

	host, err := s.users.GetUserByID(ctx, hostID)
	if err != nil || host == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Host account not found", err)
	}

	endsAt := scheduledAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
	roomName := utils.GenerateRoomName(title)
	room, err := s.provider.CreateRoom(ctx, roomName, endsAt.Add(constants.RoomSweepGrace))
	if err != nil {
		logger.Error("MeetingService:CreateMeeting:CreateRoom:Error:", err)
		return nil, errors.NewAppError(errors.ErrUpstreamFailure, "Failed to create video room", err)
	}

	created, err := s.repo.CreateMeeting(ctx, &entity.Meeting{
		HostID:          hostID,
		Title:           title,
		RoomName:        room.Name,
		RoomURL:         room.URL,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create meeting", err)
	}

	// The host is the first roster entry.
	if err := s.repo.AddParticipant(ctx, &entity.Participant{
		MeetingID: created.ID,
		Email:     host.Email,
		Name:      host.Name,
		UserID:    &hostID,
	}); err != nil {
		logger.Error("MeetingService:CreateMeeting:AddHostParticipant:Error:", err)
	}
	if err := s.users.AttachMeeting(ctx, hostID, created.ID); err != nil {
		logger.Error("MeetingService:CreateMeeting:AttachMeeting:Error:", err)
	}

	affected := []uuid.UUID{hostID}
	var recipients []notifService.Recipient
	for _, inv := range invitees {
		if inv.Email == host.Email {
			continue
		}
		recipient, user := s.addInvitee(ctx, created, inv)
		if recipient == nil {
			continue
		}
		recipients = append(recipients, *recipient)
		if user != nil {
			affected = append(affected, user.ID)
		}
	}

	if len(recipients) > 0 {
		s.mailer.SendInvite(ctx, recipients, s.noticeFor(created, host.Name))
	}

	s.invalidateMeetingLists(ctx, affected...)

	participants, _ := s.repo.GetParticipants(ctx, created.ID)
	return dto.ToMeetingResponse(created, participants, s.now()), nil
}

// GetMeeting returns the meeting with its roster and freshly classified
// status. Only the host and rostered participants may read it.
func (s *MeetingService) GetMeeting(ctx context.Context, callerID uuid.UUID, meetingID uuid.UUID) (*dto.MeetingResponse, *errors.AppError) {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}

	participants, err := s.repo.GetParticipants(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participants", err)
	}

	if !s.isMember(meeting, participants, callerID) {
		return nil, errors.NewAppError(errors.ErrForbidden, "Not a participant of this meeting", nil)
	}

	return dto.ToMeetingResponse(meeting, participants, s.now()), nil
}

// ListMyMeetings serves past/upcoming lists through the per-user cache.
// Status is classified after the cache read, never from stored data.
func (s *MeetingService) ListMyMeetings(ctx context.Context, userID uuid.UUID, scope string) ([]dto.MeetingListItem, *errors.AppError) {
	listScope := repository.ScopeUpcoming
	if scope == constants.MeetingListScopePast {
		listScope = repository.ScopePast
	} else if scope != "" && scope != constants.MeetingListScopeUpcoming {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "scope must be past or upcoming", nil)
	}

	key := meetingListKey(userID, string(listScope))

	if raw, err := s.cache.Get(ctx, key); err != nil {
		logger.Error("MeetingService:ListMyMeetings:CacheGet:Error:", err)
	} else if raw != "" {
		var items []dto.MeetingListItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			logger.Error("MeetingService:ListMyMeetings:CacheDecode:Error:", err)
		} else {
			return s.classifyItems(items), nil
		}
	}

	meetings, err := s.repo.GetMeetingsByUserID(ctx, userID, listScope)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list meetings", err)
	}

	items := make([]dto.MeetingListItem, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, dto.ToMeetingListItem(&m))
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := s.cache.SetWithTTL(ctx, key, string(raw), constants.MeetingListCacheTTL); err != nil {
			logger.Error("MeetingService:ListMyMeetings:CacheSet:Error:", err)
		}
	}

	return s.classifyItems(items), nil
}

// UpdateMeeting applies host-only edits. Edits are rejected once the meeting
// has started. Storage is last-write-wins; concurrent host edits race.
func (s *MeetingService) UpdateMeeting(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, req *dto.UpdateMeetingRequest) (*dto.MeetingResponse, *errors.AppError) {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	if meeting.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Only the host can edit a meeting", nil)
	}

	now := s.now()
	if !now.Before(meeting.ScheduledAt) {
		return nil, errors.NewAppError(errors.ErrMeetingStarted, "Meeting has already started and can no longer be edited", nil)
	}

	host, err := s.users.GetUserByID(ctx, hostID)
	if err != nil || host == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load host account", err)
	}

	changedFields, appErr := s.applyUpdates(meeting, req, now)
	if appErr != nil {
		return nil, appErr
	}

	var desired []dto.InviteeDTO
	if req.Participants != nil {
		desired, appErr = sanitizeInvitees(*req.Participants)
		if appErr != nil {
			return nil, appErr
		}
	}

	if len(changedFields) > 0 {
		if err := s.repo.UpdateMeeting(ctx, meeting); err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update meeting", err)
		}
	}

	affected := []uuid.UUID{hostID}
	notice := s.noticeFor(meeting, host.Name)

	if req.Participants != nil {
		current, err := s.repo.GetParticipants(ctx, meetingID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participants", err)
		}

		diff := diffRoster(current, desired, host.Email)

		var cancelled []notifService.Recipient
		for _, p := range diff.removed {
			if err := s.repo.RemoveParticipant(ctx, meetingID, p.Email); err != nil {
				logger.Error("MeetingService:UpdateMeeting:RemoveParticipant:Error:", err)
				continue
			}
			if p.UserID != nil {
				if err := s.users.DetachMeeting(ctx, *p.UserID, meetingID); err != nil {
					logger.Error("MeetingService:UpdateMeeting:DetachMeeting:Error:", err)
				}
				affected = append(affected, *p.UserID)
			}
			cancelled = append(cancelled, recipientFor(p))
		}
		if len(cancelled) > 0 {
			s.mailer.SendCancellation(ctx, cancelled, notice, "You were removed from this meeting")
		}

		var invited []notifService.Recipient
		for _, inv := range diff.added {
			recipient, user := s.addInvitee(ctx, meeting, inv)
			if recipient == nil {
				continue
			}
			invited = append(invited, *recipient)
			if user != nil {
				affected = append(affected, user.ID)
			}
		}
		if len(invited) > 0 {
			s.mailer.SendInvite(ctx, invited, notice)
		}

		if len(changedFields) > 0 && len(diff.kept) > 0 {
			var updated []notifService.Recipient
			for _, p := range diff.kept {
				updated = append(updated, recipientFor(p))
				if p.UserID != nil {
					affected = append(affected, *p.UserID)
				}
			}
			s.mailer.SendUpdate(ctx, updated, notice, changedFields)
		}
	} else if len(changedFields) > 0 {
		current, err := s.repo.GetParticipants(ctx, meetingID)
		if err == nil {
			var updated []notifService.Recipient
			for _, p := range current {
				if p.Email == host.Email {
					continue
				}
				updated = append(updated, recipientFor(p))
				if p.UserID != nil {
					affected = append(affected, *p.UserID)
				}
			}
			if len(updated) > 0 {
				s.mailer.SendUpdate(ctx, updated, notice, changedFields)
			}
		}
	}

	s.invalidateMeetingLists(ctx, affected...)

	return s.GetMeeting(ctx, hostID, meetingID)
}

// DeleteMeeting removes the meeting, detaches it from every participant's
// history, and notifies them. The provider room delete is best-effort.
func (s *MeetingService) DeleteMeeting(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID) *errors.AppError {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	if meeting.HostID != hostID {
		return errors.NewAppError(errors.ErrForbidden, "Only the host can delete a meeting", nil)
	}

	host, err := s.users.GetUserByID(ctx, hostID)
	if err != nil || host == nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to load host account", err)
	}

	participants, err := s.repo.GetParticipants(ctx, meetingID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to get participants", err)
	}

	if meeting.RoomName != "" {
		if err := s.provider.DeleteRoom(ctx, meeting.RoomName); err != nil {
			logger.Error("MeetingService:DeleteMeeting:DeleteRoom:Error:", err)
		}
	}

	if err := s.repo.DeleteMeeting(ctx, meetingID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete meeting", err)
	}

	affected := []uuid.UUID{hostID}
	var cancelled []notifService.Recipient
	for _, p := range participants {
		if p.UserID != nil {
			if err := s.users.DetachMeeting(ctx, *p.UserID, meetingID); err != nil {
				logger.Error("MeetingService:DeleteMeeting:DetachMeeting:Error:", err)
			}
			affected = append(affected, *p.UserID)
		}
		if p.Email != host.Email {
			cancelled = append(cancelled, recipientFor(p))
		}
	}

	if len(cancelled) > 0 {
		s.mailer.SendCancellation(ctx, cancelled, s.noticeFor(meeting, host.Name), "The meeting was cancelled by the host")
	}

	s.invalidateMeetingLists(ctx, affected...)
	return nil
}

// InviteParticipants appends new roster entries, skipping emails already
// present. Inviting the same email twice is a no-op.
func (s *MeetingService) InviteParticipants(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, invitees []dto.InviteeDTO) (*dto.MeetingResponse, *errors.AppError) {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	if meeting.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Only the host can invite participants", nil)
	}

	clean, appErr := sanitizeInvitees(invitees)
	if appErr != nil {
		return nil, appErr
	}

	host, err := s.users.GetUserByID(ctx, hostID)
	if err != nil || host == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load host account", err)
	}

	current, err := s.repo.GetParticipants(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participants", err)
	}
	present := make(map[string]struct{}, len(current))
	for _, p := range current {
		present[p.Email] = struct{}{}
	}

	affected := []uuid.UUID{hostID}
	var recipients []notifService.Recipient
	for _, inv := range clean {
		if _, exists := present[inv.Email]; exists {
			continue
		}
		recipient, user := s.addInvitee(ctx, meeting, inv)
		if recipient == nil {
			continue
		}
		recipients = append(recipients, *recipient)
		if user != nil {
			affected = append(affected, user.ID)
		}
	}

	if len(recipients) > 0 {
		s.mailer.SendInvite(ctx, recipients, s.noticeFor(meeting, host.Name))
	}

	s.invalidateMeetingLists(ctx, affected...)

	participants, _ := s.repo.GetParticipants(ctx, meetingID)
	return dto.ToMeetingResponse(meeting, participants, s.now()), nil
}

// RemoveParticipant removes one roster entry and sends a cancellation notice.
func (s *MeetingService) RemoveParticipant(ctx context.Context, hostID uuid.UUID, meetingID uuid.UUID, email string) *errors.AppError {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	if meeting.HostID != hostID {
		return errors.NewAppError(errors.ErrForbidden, "Only the host can remove participants", nil)
	}

	host, err := s.users.GetUserByID(ctx, hostID)
	if err != nil || host == nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to load host account", err)
	}
	if email == host.Email {
		return errors.NewAppError(errors.ErrInvalidInput, "The host cannot be removed from their own meeting", nil)
	}

	participant, err := s.repo.GetParticipantByEmail(ctx, meetingID, email)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to get participant", err)
	}
	if participant == nil {
		return errors.NewAppError(errors.ErrNotFound, "Participant not found", nil)
	}

	if err := s.repo.RemoveParticipant(ctx, meetingID, email); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to remove participant", err)
	}

	affected := []uuid.UUID{hostID}
	if participant.UserID != nil {
		if err := s.users.DetachMeeting(ctx, *participant.UserID, meetingID); err != nil {
			logger.Error("MeetingService:RemoveParticipant:DetachMeeting:Error:", err)
		}
		affected = append(affected, *participant.UserID)
	}

	s.mailer.SendCancellation(ctx, []notifService.Recipient{recipientFor(*participant)},
		s.noticeFor(meeting, host.Name), "You were removed from this meeting")

	s.invalidateMeetingLists(ctx, affected...)
	return nil
}

// Join admits an authenticated caller into the room, marks them joined and
// issues a provider token. The host gets an owner token.
func (s *MeetingService) Join(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) (*dto.JoinResponse, *errors.AppError) {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Account not found", err)
	}

	isHost := meeting.HostID == userID
	participant, err := s.repo.GetParticipantByEmail(ctx, meetingID, user.Email)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participant", err)
	}
	if participant == nil && !isHost {
		return nil, errors.NewAppError(errors.ErrForbidden, "You are not a participant of this meeting", nil)
	}

	status := meeting.StatusAt(s.now())
	if status == entity.StatusEnded {
		return nil, errors.NewAppError(errors.ErrMeetingEnded, "Meeting has already ended", nil)
	}

	if err := s.repo.MarkJoined(ctx, meetingID, user.Email, s.now()); err != nil {
		logger.Error("MeetingService:Join:MarkJoined:Error:", err)
	}

	token, err := s.provider.CreateMeetingToken(ctx, meeting.RoomName, user.Name, user.Email, isHost)
	if err != nil {
		logger.Error("MeetingService:Join:CreateMeetingToken:Error:", err)
		return nil, errors.NewAppError(errors.ErrUpstreamFailure, "Failed to create room token", err)
	}

	return &dto.JoinResponse{
		RoomURL: meeting.RoomURL,
		Token:   token,
		Status:  string(status),
	}, nil
}

// GuestJoin admits an invited guest by email and name. The guest's account
// row is upserted and linked to the roster entry.
func (s *MeetingService) GuestJoin(ctx context.Context, meetingID uuid.UUID, req *dto.GuestJoinRequest) (*dto.JoinResponse, *errors.AppError) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if !utils.IsValidEmail(email) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "A valid email is required", nil)
	}
	if name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Name is required", nil)
	}

	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}

	status := meeting.StatusAt(s.now())
	if status == entity.StatusEnded {
		return nil, errors.NewAppError(errors.ErrMeetingEnded, "Meeting has already ended", nil)
	}

	participant, err := s.repo.GetParticipantByEmail(ctx, meetingID, email)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participant", err)
	}
	if participant == nil {
		return nil, errors.NewAppError(errors.ErrForbidden, "This email is not invited to the meeting", nil)
	}

	user, _, appErr := s.accounts.EnsureUser(ctx, email, name)
	if appErr != nil {
		return nil, appErr
	}

	if participant.UserID == nil {
		if err := s.repo.SetParticipantUser(ctx, meetingID, email, user.ID); err != nil {
			logger.Error("MeetingService:GuestJoin:SetParticipantUser:Error:", err)
		}
	}
	if err := s.users.AttachMeeting(ctx, user.ID, meetingID); err != nil {
		logger.Error("MeetingService:GuestJoin:AttachMeeting:Error:", err)
	}

	if err := s.repo.MarkJoined(ctx, meetingID, email, s.now()); err != nil {
		logger.Error("MeetingService:GuestJoin:MarkJoined:Error:", err)
	}

	token, err := s.provider.CreateMeetingToken(ctx, meeting.RoomName, name, email, false)
	if err != nil {
		logger.Error("MeetingService:GuestJoin:CreateMeetingToken:Error:", err)
		return nil, errors.NewAppError(errors.ErrUpstreamFailure, "Failed to create room token", err)
	}

	s.invalidateMeetingLists(ctx, user.ID)

	return &dto.JoinResponse{
		RoomURL: meeting.RoomURL,
		Token:   token,
		Status:  string(status),
	}, nil
}

// DetachFromHistory drops the meeting reference from the caller's own list.
// The meeting and its roster are untouched; the host deletes instead.
func (s *MeetingService) DetachFromHistory(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) *errors.AppError {
	meeting, err := s.repo.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}
	if meeting.HostID == userID {
		return errors.NewAppError(errors.ErrForbidden, "The host cannot detach their own meeting; delete it instead", nil)
	}

	if err := s.users.DetachMeeting(ctx, userID, meetingID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to detach meeting", err)
	}

	s.invalidateMeetingLists(ctx, userID)
	return nil
}

// SweepExpiredRooms deletes provider rooms for meetings that ended over a
// day ago. Idempotent; safe to retry.
func (s *MeetingService) SweepExpiredRooms(ctx context.Context) error {
	cutoff := s.now().Add(-constants.RoomSweepGrace)
	meetings, err := s.repo.GetEndedWithRoomBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, m := range meetings {
		if err := s.provider.DeleteRoom(ctx, m.RoomName); err != nil {
			// Keep room_name so the next sweep retries this one.
			logger.Error("MeetingService:SweepExpiredRooms:DeleteRoom:Error:", "meeting_id", m.ID.String(), "error", err)
			continue
		}
		if err := s.repo.ClearRoom(ctx, m.ID); err != nil {
			logger.Error("MeetingService:SweepExpiredRooms:ClearRoom:Error:", err)
		}
	}

	logger.Info("MeetingService:SweepExpiredRooms:Done", "swept", len(meetings))
	return nil
}

// ===================== helpers =====================

// addInvitee upserts the account row, attaches the meeting to it and appends
// the roster entry. A failure is logged and skips this invitee only.
func (s *MeetingService) addInvitee(ctx context.Context, meeting *entity.Meeting, inv dto.InviteeDTO) (*notifService.Recipient, *authEntity.User) {
	user, _, appErr := s.accounts.EnsureUser(ctx, inv.Email, inv.Name)
	if appErr != nil {
		logger.Error("MeetingService:addInvitee:EnsureUser:Error:", "email", inv.Email, "error", appErr)
		return nil, nil
	}

	if err := s.repo.AddParticipant(ctx, &entity.Participant{
		MeetingID: meeting.ID,
		Email:     inv.Email,
		Name:      inv.Name,
		UserID:    &user.ID,
	}); err != nil {
		logger.Error("MeetingService:addInvitee:AddParticipant:Error:", "email", inv.Email, "error", err)
		return nil, nil
	}

	if err := s.users.AttachMeeting(ctx, user.ID, meeting.ID); err != nil {
		logger.Error("MeetingService:addInvitee:AttachMeeting:Error:", "email", inv.Email, "error", err)
	}

	userID := user.ID
	return &notifService.Recipient{Email: inv.Email, Name: inv.Name, UserID: &userID}, user
}

func (s *MeetingService) applyUpdates(meeting *entity.Meeting, req *dto.UpdateMeetingRequest, now time.Time) ([]string, *errors.AppError) {
	var changed []string

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Title must not be empty", nil)
		}
		if title != meeting.Title {
			meeting.Title = title
			changed = append(changed, "title")
		}
	}

	if req.ScheduledAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "scheduled_at must be RFC3339", err)
		}
		if parsed.Before(now.Add(-time.Minute)) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "scheduled_at must not be in the past", nil)
		}
		if !parsed.Equal(meeting.ScheduledAt) {
			meeting.ScheduledAt = parsed
			changed = append(changed, "scheduled_at")
		}
	}

	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 || *req.DurationMinutes > maxDurationMinutes {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Duration must be between 1 and 480 minutes", nil)
		}
		if *req.DurationMinutes != meeting.DurationMinutes {
			meeting.DurationMinutes = *req.DurationMinutes
			changed = append(changed, "duration_minutes")
		}
	}

	return changed, nil
}

func (s *MeetingService) isMember(meeting *entity.Meeting, participants []entity.Participant, callerID uuid.UUID) bool {
	if meeting.HostID == callerID {
		return true
	}
	for _, p := range participants {
		if p.UserID != nil && *p.UserID == callerID {
			return true
		}
	}
	return false
}

func (s *MeetingService) classifyItems(items []dto.MeetingListItem) []dto.MeetingListItem {
	now := s.now()
	for i := range items {
		items[i].Status = string(entity.ClassifyStatus(now, items[i].ScheduledAt, items[i].DurationMinutes))
	}
	return items
}

func (s *MeetingService) noticeFor(meeting *entity.Meeting, hostName string) notifService.MeetingNotice {
	return notifService.MeetingNotice{
		MeetingID:       meeting.ID,
		Title:           meeting.Title,
		StartsAt:        meeting.ScheduledAt,
		DurationMinutes: meeting.DurationMinutes,
		HostName:        hostName,
		RoomURL:         meeting.RoomURL,
	}
}

// invalidateMeetingLists drops both cached scopes for every affected user.
// Cache failures are logged and swallowed; the store stays authoritative.
func (s *MeetingService) invalidateMeetingLists(ctx context.Context, userIDs ...uuid.UUID) {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	keys := make([]string, 0, len(userIDs)*2)
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys,
			meetingListKey(id, constants.MeetingListScopePast),
			meetingListKey(id, constants.MeetingListScopeUpcoming),
		)
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		logger.Error("MeetingService:invalidateMeetingLists:Error:", err)
	}
}

func meetingListKey(userID uuid.UUID, scope string) string {
	return constants.RedisKeyMeetingList + userID.String() + ":" + scope
}

func recipientFor(p entity.Participant) notifService.Recipient {
	r := notifService.Recipient{Email: p.Email, Name: p.Name}
	if p.UserID != nil {
		userID := *p.UserID
		r.UserID = &userID
	}
	return r
}
