package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/molfp/pkg/errors"
)

var ErrClaimNotHeld = errors.New(errors.ErrCodeConflict, "job claim not held")

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// JobClaims lets competing workers agree on who processes a descriptor job.
// A claim is a key set with NX holding the owner token; it expires on its own
// if the owner dies.
type JobClaims struct {
	client *Client
	prefix string
	owner  string
	ttl    time.Duration
}

// NewJobClaims returns claims owned by a fresh random token.
func NewJobClaims(client *Client, prefix string, ttl time.Duration) *JobClaims {
	if prefix == "" {
		prefix = "molfp:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JobClaims{client: client, prefix: prefix, owner: uuid.NewString(), ttl: ttl}
}

func (j *JobClaims) key(jobID string) string { return j.prefix + "claim:" + jobID }

// Owner is this instance's token.
func (j *JobClaims) Owner() string { return j.owner }

// Claim reports whether this instance now owns jobID.
func (j *JobClaims) Claim(ctx context.Context, jobID string) (bool, error) {
	if j.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := j.client.rdb.SetNX(ctx, j.key(jobID), j.owner, j.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "claim job")
	}
	return ok, nil
}

// Release drops a claim held by this instance.
func (j *JobClaims) Release(ctx context.Context, jobID string) error {
	res, err := releaseScript.Run(ctx, j.client.rdb, []string{j.key(jobID)}, j.owner).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "release job")
	}
	if res == 0 {
		return ErrClaimNotHeld
	}
	return nil
}

//Personal.AI order the ending
