// internal/infra/cache/directory.go
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"routine_notification_bot/internal/domain/directory"
	"routine_notification_bot/internal/infra/logger"

	"github.com/jellydator/ttlcache/v3"
)

const companiesKey = "all"

// Directory memoizes team member lookups of another directory. Entries live
// for a fixed ttl from the moment they were loaded; reads do not extend them.
// Single-user lookups are cheap and always go to the backing directory.
type Directory struct {
	next      directory.Directory
	members   *ttlcache.Cache[string, []*directory.User]
	companies *ttlcache.Cache[string, []directory.Team]
}

var _ directory.Directory = (*Directory)(nil)

func NewDirectory(next directory.Directory, ttl time.Duration) *Directory {
	return &Directory{
		next: next,
		members: ttlcache.New(
			ttlcache.WithTTL[string, []*directory.User](ttl),
			ttlcache.WithDisableTouchOnHit[string, []*directory.User](),
		),
		companies: ttlcache.New(
			ttlcache.WithTTL[string, []directory.Team](ttl),
			ttlcache.WithDisableTouchOnHit[string, []directory.Team](),
		),
	}
}

func membersKey(teamID string, opts directory.Options) string {
	return teamID + "|" + strconv.FormatBool(opts.ResolveSubteams)
}

func (d *Directory) UsersForTeam(ctx context.Context, teamID string, opts directory.Options) ([]*directory.User, error) {
	key := membersKey(teamID, opts)
	if item := d.members.Get(key); item != nil {
		return item.Value(), nil
	}
	users, err := d.next.UsersForTeam(ctx, teamID, opts)
	if err != nil {
		return nil, fmt.Errorf("loading members of team %s: %w", teamID, err)
	}
	d.members.Set(key, users, ttlcache.DefaultTTL)
	logger.Component("directory_cache").WithField("team_id", teamID).Debugf("Cached %d team members", len(users))
	return users, nil
}

func (d *Directory) GetUser(ctx context.Context, id string) (*directory.User, error) {
	return d.next.GetUser(ctx, id)
}

func (d *Directory) GetUserByTelegramID(ctx context.Context, telegramID int64) (*directory.User, error) {
	return d.next.GetUserByTelegramID(ctx, telegramID)
}

func (d *Directory) ListCompanies(ctx context.Context) ([]directory.Team, error) {
	if item := d.companies.Get(companiesKey); item != nil {
		return item.Value(), nil
	}
	companies, err := d.next.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	d.companies.Set(companiesKey, companies, ttlcache.DefaultTTL)
	return companies, nil
}

// Invalidate forgets every cached member list of teamID.
func (d *Directory) Invalidate(teamID string) {
	d.members.Delete(membersKey(teamID, directory.Options{}))
	d.members.Delete(membersKey(teamID, directory.Options{ResolveSubteams: true}))
}

// InvalidateMembers forgets every cached member list.
func (d *Directory) InvalidateMembers() {
	d.members.DeleteAll()
}

// Purge drops expired entries.
func (d *Directory) Purge() {
	d.members.DeleteExpired()
	d.companies.DeleteExpired()
}

// Len counts live cached lists.
func (d *Directory) Len() int {
	return d.members.Len() + d.companies.Len()
}

// Linker wraps l so that linking a Telegram account drops every cached member
// list. Lists resolved with subteams of any ancestor team may contain the
// user, so no narrower set of keys is safe.
func (d *Directory) Linker(l directory.Linker) directory.Linker {
	return &invalidatingLinker{next: l, dir: d}
}

type invalidatingLinker struct {
	next directory.Linker
	dir  *Directory
}

func (il *invalidatingLinker) LinkTelegram(ctx context.Context, userID string, telegramID int64) error {
	if err := il.next.LinkTelegram(ctx, userID, telegramID); err != nil {
		return err
	}
	il.dir.InvalidateMembers()
	return nil
}
