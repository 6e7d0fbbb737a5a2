package routine

import "routine_notification_bot/internal/domain/directory"

// AllTeamsOptedOut reports whether every one of the user's teams disabled
// the routine. Users without teams are never considered opted out.
func AllTeamsOptedOut(disabledTeams, userTeamIDs []string) bool {
	if len(disabledTeams) == 0 || len(userTeamIDs) == 0 {
		return false
	}
	for _, id := range userTeamIDs {
		if !contains(disabledTeams, id) {
			return false
		}
	}
	return true
}

// TeamOptedOut reports whether teamID disabled the routine.
func TeamOptedOut(disabledTeams []string, teamID string) bool {
	return contains(disabledTeams, teamID)
}

// UserHasActiveTeam is the inverse of AllTeamsOptedOut for a directory user.
func UserHasActiveTeam(u *directory.User, disabledTeams []string) bool {
	return !AllTeamsOptedOut(disabledTeams, u.TeamIDs())
}

// RemoveDisabledTeams returns a copy of u restricted to teams that still run
// the routine.
func RemoveDisabledTeams(u *directory.User, disabledTeams []string) *directory.User {
	filtered := *u
	filtered.Teams = make([]directory.Team, 0, len(u.Teams))
	for _, t := range u.Teams {
		if !contains(disabledTeams, t.ID) {
			filtered.Teams = append(filtered.Teams, t)
		}
	}
	return &filtered
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
