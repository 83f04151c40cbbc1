package constants

import "time"

// Context keys
const (
	ContextTokenData = "token_data"
)

// Database settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
)

// Token scopes
const (
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"
)

// Token lifetimes
const (
	AccessTokenDuration  = 1 * time.Hour
	RefreshTokenDuration = 7 * 24 * time.Hour
	BlacklistDuration    = 7 * 24 * time.Hour
)

// Redis key prefixes
const (
	RedisKeyTokenBlacklist = "token:blacklist:"
	RedisKeyMeetingList    = "meetings:"
)

// Meeting list cache
const (
	MeetingListScopePast     = "past"
	MeetingListScopeUpcoming = "upcoming"
	MeetingListCacheTTL      = 3 * time.Hour
)

// Meeting lifecycle
const (
	StartingSoonWindow = 15 * time.Minute
	RoomSweepGrace     = 24 * time.Hour
)
