package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Custom errors
var ErrSettingsNotFound = fmt.Errorf("routine settings not found")
var ErrAnswerGroupNotFound = fmt.Errorf("answer group not found")
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrDispatchNotFound = fmt.Errorf("routine dispatch not found")
var ErrDuplicateDispatch = fmt.Errorf("duplicate routine dispatch (company_id, window_start, kind)")

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}
