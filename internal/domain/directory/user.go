// internal/domain/directory/user.go
package directory

// Team is a node of the company tree. Companies are root teams.
type Team struct {
	ID       string
	Name     string
	ParentID string
}

// User is a directory member as seen by the routine service.
type User struct {
	ID         string
	FirstName  string
	LastName   string
	Picture    string
	AuthzSub   string // identity-provider subject, used as notification recipient
	TelegramID int64  // 0 when the user never linked a Telegram account
	Teams      []Team
	Companies  []Team
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// TeamIDs lists the ids of the user's teams.
func (u *User) TeamIDs() []string {
	ids := make([]string, 0, len(u.Teams))
	for _, t := range u.Teams {
		ids = append(ids, t.ID)
	}
	return ids
}

// Company returns the user's primary company.
func (u *User) Company() (Team, bool) {
	if len(u.Companies) == 0 {
		return Team{}, false
	}
	return u.Companies[0], true
}

// BelongsToCompany reports whether companyID is one of the user's companies.
func (u *User) BelongsToCompany(companyID string) bool {
	for _, c := range u.Companies {
		if c.ID == companyID {
			return true
		}
	}
	return false
}

// BelongsToTeam reports whether teamID is one of the user's teams.
func (u *User) BelongsToTeam(teamID string) bool {
	for _, t := range u.Teams {
		if t.ID == teamID {
			return true
		}
	}
	return false
}
