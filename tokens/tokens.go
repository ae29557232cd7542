// Package tokens is the registry of push notification device tokens.
//
// It is a plain set of tokens keyed by the token string itself, available
// in memory, in Redis, or in a SQLite database.
package tokens

import (
	"context"
	"sort"
	"strings"
	"time"
)

// ExpoPrefix starts every valid Expo push token.
const ExpoPrefix = "ExponentPushToken["

// Platform is the device platform a token was registered from.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
	Unknown Platform = "unknown"
)

// ParsePlatform returns the platform named s, Unknown for anything else.
func ParsePlatform(s string) Platform {
	switch p := Platform(s); p {
	case IOS, Android:
		return p
	default:
		return Unknown
	}
}

// Token is a registered device token.
type Token struct {
	Token        string    `json:"token"`
	Platform     Platform  `json:"platform"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Valid returns true if token looks like an Expo push token.
func Valid(token string) bool {
	return strings.HasPrefix(token, ExpoPrefix)
}

// Registry stores device tokens. Adding a token twice replaces it.
type Registry interface {
	Add(ctx context.Context, t Token) error
	List(ctx context.Context) ([]Token, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, token string) error
	DeleteAll(ctx context.Context) error
}

// sortTokens orders tokens by registration time, then by token.
func sortTokens(list []Token) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].RegisteredAt.Equal(list[j].RegisteredAt) {
			return list[i].RegisteredAt.Before(list[j].RegisteredAt)
		}
		return list[i].Token < list[j].Token
	})
}
