// internal/domain/answer/answer.go
package answer

import "time"

// Group is one submission of the routine questionnaire.
// Corresponds to the 'answer_groups' table.
type Group struct {
	ID        string
	UserID    string
	CompanyID string
	Timestamp time.Time
	Answers   []*Answer // filled only by queries that ask for them
}

// Answer is a single question's value. Timestamp and UserID are copied from
// the owning group so an answer can be placed on a timeline on its own.
type Answer struct {
	ID            string
	AnswerGroupID string
	QuestionID    string
	Value         *string
	Timestamp     time.Time
	UserID        string
}

// Submission is what a user sends for one question.
type Submission struct {
	QuestionID string
	Value      string
	Hidden     bool // conditional question that was not shown
}
