package directory

import "context"

// Options tune team member lookups.
type Options struct {
	ResolveSubteams bool
}

// Directory resolves users, teams and companies.
type Directory interface {
	UsersForTeam(ctx context.Context, teamID string, opts Options) ([]*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	ListCompanies(ctx context.Context) ([]Team, error)
}

// Linker binds directory users to Telegram accounts.
type Linker interface {
	LinkTelegram(ctx context.Context, userID string, telegramID int64) error
}
