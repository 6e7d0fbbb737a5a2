package answer

import (
	"context"
	"time"
)

// GroupFilter narrows answer group lookups. Zero values mean "no constraint".
type GroupFilter struct {
	UserIDs   []string
	CompanyID string
	From      time.Time // inclusive
	To        time.Time // inclusive
	Before    time.Time // exclusive
	Limit     int
	// NewestFirst orders by timestamp descending; the default is ascending.
	NewestFirst bool
	// QuestionIDs, when set, loads the answers of those questions into each group.
	QuestionIDs []string
}

// AnswerFilter selects answers by group and question.
type AnswerFilter struct {
	GroupIDs    []string
	QuestionIDs []string
}

// Repository persists answer groups and their answers.
type Repository interface {
	// CreateGroup stores g and g.Answers atomically, filling ids and timestamp.
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	LatestGroupFromUser(ctx context.Context, userID string) (*Group, error)
	FindGroups(ctx context.Context, filter GroupFilter) ([]*Group, error)
	FindAnswers(ctx context.Context, filter AnswerFilter) ([]*Answer, error)
}
