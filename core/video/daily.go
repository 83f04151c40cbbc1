package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"echoloom-api/core/config"
	"echoloom-api/core/logger"
)

// Room is the provider-side session container a meeting points at.
type Room struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Provider is the hosted video API surface the meeting service depends on.
// The transport itself (media, signalling) is entirely the provider's.
type Provider interface {
	CreateRoom(ctx context.Context, name string, expiry time.Time) (*Room, error)
	DeleteRoom(ctx context.Context, name string) error
	CreateMeetingToken(ctx context.Context, roomName, userName, email string, isOwner bool) (string, error)
}

type dailyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewDailyClient(cfg config.DailyConfig) Provider {
	return &dailyClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (d *dailyClient) CreateRoom(ctx context.Context, name string, expiry time.Time) (*Room, error) {
	payload := map[string]any{
		"name":    name,
		"privacy": "private",
		"properties": map[string]any{
			"exp":               expiry.Unix(),
			"enable_chat":       true,
			"enable_screenshare": true,
		},
	}

	var room Room
	if err := d.do(ctx, http.MethodPost, "/rooms", payload, &room); err != nil {
		logger.Error("DailyClient:CreateRoom:Error:", err)
		return nil, err
	}
	return &room, nil
}

func (d *dailyClient) DeleteRoom(ctx context.Context, name string) error {
	if err := d.do(ctx, http.MethodDelete, "/rooms/"+name, nil, nil); err != nil {
		logger.Error("DailyClient:DeleteRoom:Error:", err)
		return err
	}
	return nil
}

func (d *dailyClient) CreateMeetingToken(ctx context.Context, roomName, userName, email string, isOwner bool) (string, error) {
	payload := map[string]any{
		"properties": map[string]any{
			"room_name": roomName,
			"user_name": userName,
			"user_id":   email,
			"is_owner":  isOwner,
		},
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := d.do(ctx, http.MethodPost, "/meeting-tokens", payload, &resp); err != nil {
		logger.Error("DailyClient:CreateMeetingToken:Error:", err)
		return "", err
	}
	return resp.Token, nil
}

func (d *dailyClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("call video provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("video provider returned %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
