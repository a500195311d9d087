package slackbot

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const userCacheTTL = 5 * time.Minute

// UserLister is the part of the Slack client the directory needs.
type UserLister interface {
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
}

// Directory resolves configured team members (ids, handles or display
// names) to Slack user ids, caching the workspace user list.
type Directory struct {
	api    UserLister
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	users     []slack.User
	fetchedAt time.Time
}

func NewDirectory(api UserLister, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{api: api, logger: logger, now: time.Now}
}

func (d *Directory) cachedUsers(ctx context.Context) ([]slack.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.users != nil && d.now().Sub(d.fetchedAt) < userCacheTTL {
		return d.users, nil
	}
	users, err := d.api.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}
	d.users = users
	d.fetchedAt = d.now()
	return users, nil
}

// ResolveUserIDs returns the ids for identifiers plus the names it could not
// match. Identifiers that already look like user ids skip the lookup.
func (d *Directory) ResolveUserIDs(ctx context.Context, identifiers []string) ([]string, []string, error) {
	var ids, names []string
	for _, raw := range identifiers {
		val := strings.TrimPrefix(strings.TrimSpace(raw), "@")
		if val == "" {
			continue
		}
		if isLikelySlackID(val) {
			ids = append(ids, val)
		} else {
			names = append(names, val)
		}
	}
	if len(names) == 0 {
		return uniqueStrings(ids), nil, nil
	}

	users, err := d.cachedUsers(ctx)
	if err != nil {
		d.logger.Warn("slack resolve users", zap.Error(err))
		return uniqueStrings(ids), names, err
	}

	nameToID := make(map[string]string)
	for _, user := range users {
		if user.Deleted || user.IsBot {
			continue
		}
		for _, n := range []string{user.Name, user.RealName, user.Profile.DisplayName} {
			n = strings.ToLower(strings.TrimSpace(n))
			if _, exists := nameToID[n]; n != "" && !exists {
				nameToID[n] = user.ID
			}
		}
	}

	var unresolved []string
	for _, name := range names {
		if id, ok := nameToID[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}
	d.logger.Debug("slack resolve users", zap.Int("ids", len(ids)), zap.Int("unresolved", len(unresolved)))
	return uniqueStrings(ids), unresolved, nil
}

// Slack user ids: U or W followed by upper-case alphanumerics.
var slackUserIDRe = regexp.MustCompile(`^[UW][A-Z0-9]{8,}$`)

func isLikelySlackID(val string) bool {
	return slackUserIDRe.MatchString(val)
}

// uniqueStrings drops blanks and repeats, keeping first-seen order.
func uniqueStrings(vals []string) []string {
	out := vals[:0:0]
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if _, dup := seen[v]; dup || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
