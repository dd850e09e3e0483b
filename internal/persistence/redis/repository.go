// Package redis stores the activity directory in Redis so several API
// replicas can share one set of rosters.
//
// Layout per activity, under a configurable prefix:
//
//	<prefix>:activities                  list of activity names in seed order
//	<prefix>:activity:<name>             hash of description, schedule, max_participants
//	<prefix>:activity:<name>:roster      list of emails in signup order
//	<prefix>:activity:<name>:members     set of emails for duplicate checks
package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"example.com/extracurricular/internal/domain"
)

const (
	appendNotFound  = -1
	appendDuplicate = -2
	appendFull      = -3
)

// KEYS: hash, roster, members, index. ARGV: name, description, schedule, max, emails...
var seedScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'description', ARGV[2], 'schedule', ARGV[3], 'max_participants', ARGV[4])
for i = 5, #ARGV do
  if redis.call('SADD', KEYS[3], ARGV[i]) == 1 then
    redis.call('RPUSH', KEYS[2], ARGV[i])
  end
end
redis.call('RPUSH', KEYS[4], ARGV[1])
return 1
`)

// KEYS: hash, roster, members. ARGV: email, enforce ("1" or "0").
// On success returns {description, schedule, max_participants, roster...}
// as written, otherwise one of the negative status codes.
var appendScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('SISMEMBER', KEYS[3], ARGV[1]) == 1 then
  return -2
end
local meta = redis.call('HMGET', KEYS[1], 'description', 'schedule', 'max_participants')
if ARGV[2] == '1' then
  if redis.call('LLEN', KEYS[2]) >= tonumber(meta[3]) then
    return -3
  end
end
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('RPUSH', KEYS[2], ARGV[1])
local out = {meta[1] or '', meta[2] or '', meta[3] or ''}
for _, email in ipairs(redis.call('LRANGE', KEYS[2], 0, -1)) do
  out[#out + 1] = email
end
return out
`)

// Repository provides Redis-backed persistence for activities and rosters.
type Repository struct {
	client goredis.UniversalClient
	prefix string
}

// NewRepository constructs a Repository. An empty prefix defaults to "extracurricular".
func NewRepository(client goredis.UniversalClient, prefix string) *Repository {
	if prefix == "" {
		prefix = "extracurricular"
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) indexKey() string { return r.prefix + ":activities" }

func (r *Repository) activityKey(name string) string { return r.prefix + ":activity:" + name }

func (r *Repository) rosterKey(name string) string { return r.activityKey(name) + ":roster" }

func (r *Repository) membersKey(name string) string { return r.activityKey(name) + ":members" }

// Seed implements domain.Repository. Existing activities keep their rosters.
func (r *Repository) Seed(ctx context.Context, activities []domain.Activity) error {
	for _, a := range activities {
		keys := []string{r.activityKey(a.Name), r.rosterKey(a.Name), r.membersKey(a.Name), r.indexKey()}
		args := make([]interface{}, 0, 4+len(a.Participants))
		args = append(args, a.Name, a.Description, a.Schedule, a.MaxParticipants)
		for _, email := range a.Participants {
			args = append(args, email)
		}
		if err := seedScript.Run(ctx, r.client, keys, args...).Err(); err != nil {
			return fmt.Errorf("seed %q: %w", a.Name, err)
		}
	}
	return nil
}

// List implements domain.Repository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	names, err := r.client.LRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	type pending struct {
		meta   *goredis.MapStringStringCmd
		roster *goredis.StringSliceCmd
	}
	cmds := make([]pending, len(names))
	_, err = r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = pending{
				meta:   pipe.HGetAll(ctx, r.activityKey(name)),
				roster: pipe.LRange(ctx, r.rosterKey(name), 0, -1),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Activity, 0, len(names))
	for i, name := range names {
		activity, err := decodeActivity(name, cmds[i].meta.Val(), cmds[i].roster.Val())
		if err != nil {
			return nil, err
		}
		out = append(out, activity)
	}
	return out, nil
}

// AppendParticipant implements domain.Repository.
func (r *Repository) AppendParticipant(ctx context.Context, activityName, email string, opts domain.AppendOptions) (domain.Activity, error) {
	enforce := "0"
	if opts.EnforceCapacity {
		enforce = "1"
	}
	keys := []string{r.activityKey(activityName), r.rosterKey(activityName), r.membersKey(activityName)}
	result, err := appendScript.Run(ctx, r.client, keys, email, enforce).Result()
	if err != nil {
		return domain.Activity{}, err
	}

	switch v := result.(type) {
	case int64:
		switch v {
		case appendNotFound:
			return domain.Activity{}, domain.ErrActivityNotFound
		case appendDuplicate:
			return domain.Activity{}, domain.ErrAlreadySignedUp
		case appendFull:
			return domain.Activity{}, domain.ErrActivityFull
		}
		return domain.Activity{}, fmt.Errorf("append %q: unexpected status %d", activityName, v)
	case []interface{}:
		return decodeAppendResult(activityName, v)
	default:
		return domain.Activity{}, fmt.Errorf("append %q: unexpected reply %T", activityName, result)
	}
}

// decodeAppendResult converts the append script's reply, so the returned
// roster is exactly the one the script committed.
func decodeAppendResult(name string, reply []interface{}) (domain.Activity, error) {
	if len(reply) < 3 {
		return domain.Activity{}, fmt.Errorf("append %q: short reply", name)
	}
	values := make([]string, len(reply))
	for i, item := range reply {
		str, ok := item.(string)
		if !ok {
			return domain.Activity{}, fmt.Errorf("append %q: unexpected reply element %T", name, item)
		}
		values[i] = str
	}
	return decodeActivity(name, map[string]string{
		"description":      values[0],
		"schedule":         values[1],
		"max_participants": values[2],
	}, values[3:])
}

func decodeActivity(name string, fields map[string]string, roster []string) (domain.Activity, error) {
	capacity, err := strconv.Atoi(fields["max_participants"])
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %q: invalid max_participants: %w", name, err)
	}
	return domain.Activity{
		Name:            name,
		Description:     fields["description"],
		Schedule:        fields["schedule"],
		MaxParticipants: capacity,
		Participants:    append([]string{}, roster...),
	}, nil
}
