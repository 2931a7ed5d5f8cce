package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// releaseLua deletes a claim only while it still carries our token, so an
// expired claim that another replica re-took is left alone.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Claims implements domain.SignalClaimer with SET NX and a TTL shared by
// every replica using the same prefix.
type Claims struct {
	c         *Client
	releaseSc *redis.Script
	owner     string

	mu     sync.Mutex
	tokens map[string]string // key -> token we claimed it with
}

// NewClaims creates a Claims backed by c.
func NewClaims(c *Client) *Claims {
	return &Claims{
		c:         c,
		releaseSc: redis.NewScript(releaseLua),
		owner:     uuid.NewString(),
		tokens:    make(map[string]string),
	}
}

func (cl *Claims) redisKey(key string) string {
	return cl.c.Key("claim", key)
}

// Claim takes key for ttl. It returns false when another holder has it.
func (cl *Claims) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := cl.owner + ":" + uuid.NewString()
	ok, err := cl.c.rdb.SetNX(ctx, cl.redisKey(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: claim %s: %w", key, err)
	}
	if ok {
		cl.mu.Lock()
		cl.tokens[key] = token
		cl.mu.Unlock()
	}
	return ok, nil
}

// Release drops a claim this instance holds. Releasing a key claimed
// elsewhere is a no-op.
func (cl *Claims) Release(ctx context.Context, key string) error {
	cl.mu.Lock()
	token, ok := cl.tokens[key]
	delete(cl.tokens, key)
	cl.mu.Unlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := cl.releaseSc.Run(ctx, cl.c.rdb, []string{cl.redisKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("redis: release %s: %w", key, err)
	}
	return nil
}

var _ domain.SignalClaimer = (*Claims)(nil)
