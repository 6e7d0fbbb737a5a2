package app

import "fmt"

var ErrMissingRequiredAnswers = fmt.Errorf("all required questions must be answered")
var ErrNotCompanyMember = fmt.Errorf("user is not a member of the company")
var ErrNotTeamMember = fmt.Errorf("user is not a member of the team")
var ErrNoCompany = fmt.Errorf("user does not belong to any company")
