package cache

import (
	"context"
	"fmt"
	"time"
)

const postKeyFormat = "post:%d"

// PostTTL bounds how long a cached post may be served after an out-of-band change.
const PostTTL = 10 * time.Minute

// PostKey is the cache key of a single post.
func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyFormat, postID)
}

// Invalidate deletes key. Failures are ignored; the TTL bounds staleness.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePost drops the cached copy of a post.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
