package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	ChurchKeyPrefix      = "church:%s"
	ChurchListKey        = "churches:all"
	AuthContextKeyPrefix = "authctx:%d"
	LeaderboardKeyPrefix = "leaderboard:%d:%s:%s"
)

const (
	UserTTL        = 5 * time.Minute
	ChurchTTL      = 10 * time.Minute
	AuthContextTTL = 60 * time.Second
	LeaderboardTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ChurchKey(slug string) string {
	return fmt.Sprintf(ChurchKeyPrefix, slug)
}

// AuthContextKey caches a resolved permission set. Short TTL keeps revocation
// latency bounded.
func AuthContextKey(userID uint) string {
	return fmt.Sprintf(AuthContextKeyPrefix, userID)
}

func LeaderboardKey(churchID uint, from, to string) string {
	return fmt.Sprintf(LeaderboardKeyPrefix, churchID, from, to)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, AuthContextKey(userID))
}

func InvalidateChurch(ctx context.Context, slug string) {
	Invalidate(ctx, ChurchKey(slug))
	Invalidate(ctx, ChurchListKey)
}

// InvalidateAuthContext drops the cached permission set after any membership
// or approval change.
func InvalidateAuthContext(ctx context.Context, userID uint) {
	Invalidate(ctx, AuthContextKey(userID))
}
