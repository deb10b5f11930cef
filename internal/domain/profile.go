package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProfileResult is the body returned by GET /api/user.
type ProfileResult struct {
	User      *User                        `json:"user"`
	Avatar    *string                      `json:"avatar"`
	Friends   *Count                       `json:"friends"`
	Followers *Count                       `json:"followers"`
	Following *Count                       `json:"following"`
	Groups    *Collection[GroupMembership] `json:"groups,omitempty"`
	Badges    *Collection[Badge]           `json:"badges,omitempty"`
}

// User mirrors the users.roblox.com user record.
type User struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	Description      string `json:"description,omitempty"`
	Created          string `json:"created,omitempty"`
	IsBanned         bool   `json:"isBanned,omitempty"`
	HasVerifiedBadge bool   `json:"hasVerifiedBadge,omitempty"`
}

// Count is the {"count": N} envelope used by the friends API.
type Count struct {
	Count int64 `json:"count"`
}

// GroupMembership pairs a group with the member's role in it.
type GroupMembership struct {
	Group Group `json:"group"`
	Role  Role  `json:"role"`
}

type Group struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	MemberCount      int64  `json:"memberCount,omitempty"`
	HasVerifiedBadge bool   `json:"hasVerifiedBadge,omitempty"`
}

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank,omitempty"`
}

type Badge struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created"`
	Updated     string `json:"updated,omitempty"`
}

// Collection is the {"data": [...]} page envelope of the Roblox APIs. A bare
// JSON array is accepted too.
type Collection[T any] struct {
	Data []T `json:"data"`
}

func (c *Collection[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		c.Data = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &c.Data)
	}

	var envelope struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	c.Data = envelope.Data
	return nil
}

// Len is safe on a nil collection.
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// Head returns at most n leading entries.
func (c *Collection[T]) Head(n int) []T {
	if c == nil || n <= 0 {
		return nil
	}
	return c.Data[:min(n, len(c.Data))]
}

// AvatarURL returns the avatar or "" when the backend sent none.
func (p *ProfileResult) AvatarURL() string {
	if p == nil || p.Avatar == nil {
		return ""
	}
	return *p.Avatar
}

// Validate checks the fields a renderer relies on. Counts are required, not
// defaulted.
func (p *ProfileResult) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("profile result is empty")
	case p.User == nil:
		return fmt.Errorf("profile result missing user")
	case p.Friends == nil:
		return fmt.Errorf("profile result missing friends count")
	case p.Followers == nil:
		return fmt.Errorf("profile result missing followers count")
	case p.Following == nil:
		return fmt.Errorf("profile result missing following count")
	}
	return nil
}
