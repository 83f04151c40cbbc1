package service

import (
	"context"
	"strings"
	"time"

	"echoloom-api/core/config"
	"echoloom-api/core/errors"
	"echoloom-api/core/logger"
	"echoloom-api/core/utils"
	authRepo "echoloom-api/modules/auth/repository"
	"echoloom-api/modules/chat/dto"
	"echoloom-api/modules/chat/entity"
	"echoloom-api/modules/chat/repository"
	meetingEntity "echoloom-api/modules/meeting/entity"
	meetingRepo "echoloom-api/modules/meeting/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	maxMessageLength    = 4000
	defaultPageSize     = 50
	maxPageSize         = 200
	attachmentURLExpiry = 15 * time.Minute
)

// ChatService stores and serves per-meeting chat. Attachments go to S3 via
// presigned PUT URLs so message bodies stay small.
type ChatService struct {
	repo     repository.ChatRepositoryInterface
	meetings meetingRepo.MeetingRepositoryInterface
	users    authRepo.AuthRepositoryInterface
	presign  Presigner
	bucket   string
}

// Presigner abstracts the S3 presign client for testing.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the fields of the SDK's presigned request that
// we actually consume.
type v4PresignedRequest struct {
	URL string
}

type sdkPresigner struct {
	client *s3.PresignClient
}

func (p *sdkPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	out, err := p.client.PresignPutObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: out.URL}, nil
}

type ChatServiceInterface interface {
	SendMessage(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, *errors.AppError)
	GetMessages(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, limit int, before *time.Time) ([]dto.ChatMessageResponse, *errors.AppError)
	CreateAttachmentURL(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, req *dto.AttachmentUploadRequest) (*dto.AttachmentUploadResponse, *errors.AppError)
}

func NewChatService(
	repo repository.ChatRepositoryInterface,
	meetings meetingRepo.MeetingRepositoryInterface,
	users authRepo.AuthRepositoryInterface,
	awsCfg config.AWSConfig,
) ChatServiceInterface {
	client := s3.NewFromConfig(aws.Config{
		Region:      awsCfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, ""),
	})
	return &ChatService{
		repo:     repo,
		meetings: meetings,
		users:    users,
		presign:  &sdkPresigner{client: s3.NewPresignClient(client)},
		bucket:   awsCfg.Bucket,
	}
}

// SendMessage appends one message to the meeting's chat. Only rostered
// participants and the host may post.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, *errors.AppError) {
	body := strings.TrimSpace(req.Body)
	if body == "" && req.AttachmentKey == nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Message body is required", nil)
	}
	if len(body) > maxMessageLength {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Message is too long", nil)
	}

	meeting, sender, appErr := s.requireMember(ctx, userID, meetingID)
	if appErr != nil {
		return nil, appErr
	}

	message := &entity.ChatMessage{
		MeetingID:     meeting.ID,
		SenderEmail:   sender.email,
		SenderName:    sender.name,
		Body:          body,
		AttachmentKey: req.AttachmentKey,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to send message", err)
	}

	return dto.ToChatMessageResponse(message), nil
}

// GetMessages pages backwards through a meeting's chat history.
func (s *ChatService) GetMessages(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, limit int, before *time.Time) ([]dto.ChatMessageResponse, *errors.AppError) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if _, _, appErr := s.requireMember(ctx, userID, meetingID); appErr != nil {
		return nil, appErr
	}

	messages, err := s.repo.GetMessages(ctx, meetingID, limit, before)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get messages", err)
	}

	responses := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *dto.ToChatMessageResponse(&messages[i]))
	}
	return responses, nil
}

// CreateAttachmentURL issues a short-lived presigned PUT URL under the
// meeting's attachment prefix.
func (s *ChatService) CreateAttachmentURL(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID, req *dto.AttachmentUploadRequest) (*dto.AttachmentUploadResponse, *errors.AppError) {
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "file_name is required", nil)
	}
	if req.ContentType == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "content_type is required", nil)
	}

	if _, _, appErr := s.requireMember(ctx, userID, meetingID); appErr != nil {
		return nil, appErr
	}

	key := "chat/" + meetingID.String() + "/" + utils.GenerateID() + "-" + sanitizeFileName(fileName)

	presigned, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, s3.WithPresignExpires(attachmentURLExpiry))
	if err != nil {
		logger.Error("ChatService:CreateAttachmentURL:Presign:Error:", err)
		return nil, errors.NewAppError(errors.ErrUpstreamFailure, "Failed to create upload URL", err)
	}

	return &dto.AttachmentUploadResponse{
		UploadURL: presigned.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(attachmentURLExpiry),
	}, nil
}

type senderIdentity struct {
	email string
	name  string
}

func (s *ChatService) requireMember(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) (*meetingEntity.Meeting, *senderIdentity, *errors.AppError) {
	meeting, err := s.meetings.GetMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get meeting", err)
	}
	if meeting == nil {
		return nil, nil, errors.NewAppError(errors.ErrNotFound, "Meeting not found", nil)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, nil, errors.NewAppError(errors.ErrUnauthorized, "Account not found", err)
	}

	if meeting.HostID != userID {
		participant, err := s.meetings.GetParticipantByEmail(ctx, meetingID, user.Email)
		if err != nil {
			return nil, nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participant", err)
		}
		if participant == nil {
			return nil, nil, errors.NewAppError(errors.ErrForbidden, "You are not a participant of this meeting", nil)
		}
	}

	return meeting, &senderIdentity{email: user.Email, name: user.Name}, nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}
