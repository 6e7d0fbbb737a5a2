// internal/infra/database/postgres_answer_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"routine_notification_bot/internal/domain/answer"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresAnswerRepository struct {
	db *sql.DB
}

func NewPostgresAnswerRepository(db *sql.DB) *PostgresAnswerRepository {
	return &PostgresAnswerRepository{db: db}
}

// CreateGroup inserts the group and its answers in one transaction.
// A repeated question inside the same group keeps the first value.
func (r *PostgresAnswerRepository) CreateGroup(ctx context.Context, g *answer.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Timestamp.IsZero() {
		g.Timestamp = time.Now().UTC()
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for answer group: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	_, err = txn.ExecContext(ctx, `INSERT INTO answer_groups (id, user_id, company_id, timestamp) VALUES ($1, $2, $3, $4)`,
		g.ID, g.UserID, g.CompanyID, g.Timestamp)
	if err != nil {
		return fmt.Errorf("error creating answer group for user %s: %w", g.UserID, err)
	}

	if len(g.Answers) > 0 {
		stmt, err := txn.PrepareContext(ctx, `INSERT INTO answers (id, answer_group_id, question_id, value)
                                             VALUES ($1, $2, $3, $4)
                                             ON CONFLICT (answer_group_id, question_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement for answers: %w", err)
		}
		defer stmt.Close()

		for _, a := range g.Answers {
			if a.ID == "" {
				a.ID = uuid.NewString()
			}
			a.AnswerGroupID = g.ID
			a.Timestamp = g.Timestamp
			a.UserID = g.UserID
			if _, err := stmt.ExecContext(ctx, a.ID, g.ID, a.QuestionID, nullableString(a.Value)); err != nil {
				return fmt.Errorf("error inserting answer for question %s (group %s): %w", a.QuestionID, g.ID, err)
			}
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit answer group %s: %w", g.ID, err)
	}
	return nil
}

func (r *PostgresAnswerRepository) GetGroup(ctx context.Context, id string) (*answer.Group, error) {
	query := `SELECT id, user_id, company_id, timestamp FROM answer_groups WHERE id = $1`
	g := answer.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.UserID, &g.CompanyID, &g.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAnswerGroupNotFound
		}
		return nil, fmt.Errorf("error getting answer group %s: %w", id, err)
	}
	answers, err := r.FindAnswers(ctx, answer.AnswerFilter{GroupIDs: []string{g.ID}})
	if err != nil {
		return nil, err
	}
	g.Answers = answers
	return &g, nil
}

func (r *PostgresAnswerRepository) LatestGroupFromUser(ctx context.Context, userID string) (*answer.Group, error) {
	query := `SELECT id, user_id, company_id, timestamp FROM answer_groups
               WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1`
	g := answer.Group{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&g.ID, &g.UserID, &g.CompanyID, &g.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAnswerGroupNotFound
		}
		return nil, fmt.Errorf("error getting latest answer group of user %s: %w", userID, err)
	}
	return &g, nil
}

// groupQuery builds the SELECT for a GroupFilter.
func groupQuery(filter answer.GroupFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.UserIDs) > 0 {
		conds = append(conds, "user_id = ANY("+arg(pq.Array(filter.UserIDs))+")")
	}
	if filter.CompanyID != "" {
		conds = append(conds, "company_id = "+arg(filter.CompanyID))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "timestamp >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "timestamp <= "+arg(filter.To))
	}
	if !filter.Before.IsZero() {
		conds = append(conds, "timestamp < "+arg(filter.Before))
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, user_id, company_id, timestamp FROM answer_groups")
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if filter.NewestFirst {
		sb.WriteString(" ORDER BY timestamp DESC, id")
	} else {
		sb.WriteString(" ORDER BY timestamp ASC, id")
	}
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	return sb.String(), args
}

func (r *PostgresAnswerRepository) FindGroups(ctx context.Context, filter answer.GroupFilter) ([]*answer.Group, error) {
	query, args := groupQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying answer groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*answer.Group, 0)
	byID := make(map[string]*answer.Group)
	for rows.Next() {
		g := answer.Group{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.CompanyID, &g.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning answer group row: %w", err)
		}
		groups = append(groups, &g)
		byID[g.ID] = &g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answer group rows: %w", err)
	}

	if len(filter.QuestionIDs) == 0 || len(groups) == 0 {
		return groups, nil
	}

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	answers, err := r.FindAnswers(ctx, answer.AnswerFilter{GroupIDs: ids, QuestionIDs: filter.QuestionIDs})
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		if g, ok := byID[a.AnswerGroupID]; ok {
			g.Answers = append(g.Answers, a)
		}
	}
	return groups, nil
}

func (r *PostgresAnswerRepository) FindAnswers(ctx context.Context, filter answer.AnswerFilter) ([]*answer.Answer, error) {
	query := `SELECT a.id, a.answer_group_id, a.question_id, a.value, g.timestamp, g.user_id
               FROM answers a JOIN answer_groups g ON g.id = a.answer_group_id
               WHERE a.answer_group_id = ANY($1)`
	args := []any{pq.Array(filter.GroupIDs)}
	if len(filter.QuestionIDs) > 0 {
		query += ` AND a.question_id = ANY($2)`
		args = append(args, pq.Array(filter.QuestionIDs))
	}
	query += ` ORDER BY g.timestamp ASC, a.question_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying answers: %w", err)
	}
	defer rows.Close()

	answers := make([]*answer.Answer, 0)
	for rows.Next() {
		a := answer.Answer{}
		var value sql.NullString
		if err := rows.Scan(&a.ID, &a.AnswerGroupID, &a.QuestionID, &value, &a.Timestamp, &a.UserID); err != nil {
			return nil, fmt.Errorf("error scanning answer row: %w", err)
		}
		if value.Valid {
			v := value.String
			a.Value = &v
		}
		answers = append(answers, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answer rows: %w", err)
	}
	return answers, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
