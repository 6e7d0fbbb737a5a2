// internal/infra/database/postgres_directory_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"routine_notification_bot/internal/domain/directory"

	"github.com/lib/pq"
)

var ErrDuplicateTelegramID = fmt.Errorf("user with this Telegram ID already exists")

const userColumns = `u.id, u.first_name, u.last_name, u.picture, u.authz_sub, u.telegram_id`

type PostgresDirectoryRepository struct {
	db *sql.DB
}

func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*directory.User, error) {
	u := &directory.User{}
	var telegramID sql.NullInt64
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Picture, &u.AuthzSub, &telegramID); err != nil {
		return nil, err
	}
	if telegramID.Valid {
		u.TelegramID = telegramID.Int64
	}
	return u, nil
}

func (r *PostgresDirectoryRepository) UsersForTeam(ctx context.Context, teamID string, opts directory.Options) ([]*directory.User, error) {
	query := `SELECT ` + userColumns + `
               FROM users u JOIN team_members m ON m.user_id = u.id
               WHERE m.team_id = $1
               ORDER BY u.first_name, u.id`
	if opts.ResolveSubteams {
		query = `WITH RECURSIVE subtree AS (
                   SELECT id FROM teams WHERE id = $1
                   UNION
                   SELECT t.id FROM teams t JOIN subtree s ON t.parent_id = s.id
               )
               SELECT DISTINCT ` + userColumns + `
               FROM users u JOIN team_members m ON m.user_id = u.id
               WHERE m.team_id IN (SELECT id FROM subtree)
               ORDER BY u.first_name, u.id`
	}

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("error querying users of team %s: %w", teamID, err)
	}
	defer rows.Close()

	users := make([]*directory.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	if err := r.loadMemberships(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresDirectoryRepository) GetUser(ctx context.Context, id string) (*directory.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	if err := r.loadMemberships(ctx, []*directory.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresDirectoryRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*directory.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.telegram_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by Telegram ID: %w", err)
	}
	if err := r.loadMemberships(ctx, []*directory.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

// ListCompanies returns the root teams.
func (r *PostgresDirectoryRepository) ListCompanies(ctx context.Context) ([]directory.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM teams WHERE parent_id IS NULL ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying companies: %w", err)
	}
	defer rows.Close()

	companies := make([]directory.Team, 0)
	for rows.Next() {
		t := directory.Team{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("error scanning company row: %w", err)
		}
		companies = append(companies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company rows: %w", err)
	}
	return companies, nil
}

// LinkTelegram attaches a Telegram account to an existing user.
func (r *PostgresDirectoryRepository) LinkTelegram(ctx context.Context, userID string, telegramID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET telegram_id = $1 WHERE id = $2`, telegramID, userID)
	if err != nil {
		if isUniqueViolation(err, "users_telegram_id_key") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error linking Telegram ID to user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows for user %s: %w", userID, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// loadMemberships fills Teams and Companies of every user in place.
func (r *PostgresDirectoryRepository) loadMemberships(ctx context.Context, users []*directory.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[string]*directory.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	teamRows, err := r.db.QueryContext(ctx, `SELECT m.user_id, t.id, t.name, COALESCE(t.parent_id, '')
               FROM team_members m JOIN teams t ON t.id = m.team_id
               WHERE m.user_id = ANY($1)
               ORDER BY m.user_id, t.name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying team memberships: %w", err)
	}
	defer teamRows.Close()
	for teamRows.Next() {
		var userID string
		t := directory.Team{}
		if err := teamRows.Scan(&userID, &t.ID, &t.Name, &t.ParentID); err != nil {
			return fmt.Errorf("error scanning team membership row: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.Teams = append(u.Teams, t)
		}
	}
	if err := teamRows.Err(); err != nil {
		return fmt.Errorf("error iterating team membership rows: %w", err)
	}

	companyRows, err := r.db.QueryContext(ctx, `WITH RECURSIVE ancestry AS (
                   SELECT m.user_id, t.id, t.name, t.parent_id
                   FROM team_members m JOIN teams t ON t.id = m.team_id
                   WHERE m.user_id = ANY($1)
                   UNION
                   SELECT a.user_id, p.id, p.name, p.parent_id
                   FROM ancestry a JOIN teams p ON p.id = a.parent_id
               )
               SELECT DISTINCT user_id, id, name FROM ancestry
               WHERE parent_id IS NULL
               ORDER BY user_id, name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying user companies: %w", err)
	}
	defer companyRows.Close()
	for companyRows.Next() {
		var userID string
		t := directory.Team{}
		if err := companyRows.Scan(&userID, &t.ID, &t.Name); err != nil {
			return fmt.Errorf("error scanning company membership row: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.Companies = append(u.Companies, t)
		}
	}
	if err := companyRows.Err(); err != nil {
		return fmt.Errorf("error iterating company membership rows: %w", err)
	}
	return nil
}
