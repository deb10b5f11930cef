package constants

import "time"

// Messages shown in the error region. They are fixed strings; the underlying
// cause is only logged.
var Messages = struct {
	EmptyQuery     string
	NetworkError   string
	RequestFailed  string
	NoDescription  string
	EmptyQueryAPI  string
	UserNotFound   string
	TooManyRequest string
}{
	EmptyQuery:     "Enter a username or user id.",
	NetworkError:   "Network error. Try again.",
	RequestFailed:  "Request failed.",
	NoDescription:  "No description.",
	EmptyQueryAPI:  "Query cannot be empty",
	UserNotFound:   "User not found",
	TooManyRequest: "Too many requests",
}

var DisplayLimits = struct {
	MaxListEntries int
}{
	MaxListEntries: 12, // groups and badges each
}

var CacheTTL = struct {
	Profile      time.Duration
	UsernameToID time.Duration
}{
	Profile:      5 * time.Minute,
	UsernameToID: 60 * time.Minute,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 5,                // 5회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // 재시도 대기 시간
}

var APIConfig = struct {
	UsersBaseURL      string
	FriendsBaseURL    string
	GroupsBaseURL     string
	BadgesBaseURL     string
	ThumbnailsBaseURL string
	LookupPath        string
	BadgesPageLimit   int
	AvatarSize        string
}{
	UsersBaseURL:      "https://users.roblox.com/v1",
	FriendsBaseURL:    "https://friends.roblox.com/v1",
	GroupsBaseURL:     "https://groups.roblox.com/v1",
	BadgesBaseURL:     "https://badges.roblox.com/v1",
	ThumbnailsBaseURL: "https://thumbnails.roblox.com/v1",
	LookupPath:        "/api/user",
	BadgesPageLimit:   100,
	AvatarSize:        "150x150",
}

var WebSocketConfig = struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingInterval time.Duration
	MaxMessage   int64
}{
	WriteTimeout: 10 * time.Second,
	PongTimeout:  60 * time.Second,
	PingInterval: 50 * time.Second,
	MaxMessage:   4096,
}

var HistoryConfig = struct {
	DefaultLimit int
	MaxLimit     int
}{
	DefaultLimit: 20,
	MaxLimit:     100,
}
