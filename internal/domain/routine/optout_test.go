package routine

import (
	"testing"

	"routine_notification_bot/internal/domain/directory"
)

func TestAllTeamsOptedOut(t *testing.T) {
	tests := []struct {
		name     string
		disabled []string
		teams    []string
		want     bool
	}{
		{"nothing disabled", nil, []string{"a"}, false},
		{"no teams", []string{"a"}, nil, false},
		{"every team disabled", []string{"a", "b", "c"}, []string{"a", "b"}, true},
		{"one team still active", []string{"a"}, []string{"a", "b"}, false},
	}
	for _, tt := range tests {
		if got := AllTeamsOptedOut(tt.disabled, tt.teams); got != tt.want {
			t.Errorf("%s: AllTeamsOptedOut = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRemoveDisabledTeams(t *testing.T) {
	u := &directory.User{ID: "u1", Teams: []directory.Team{{ID: "a"}, {ID: "b"}}}
	filtered := RemoveDisabledTeams(u, []string{"a"})
	if len(filtered.Teams) != 1 || filtered.Teams[0].ID != "b" {
		t.Fatalf("filtered teams = %+v", filtered.Teams)
	}
	if len(u.Teams) != 2 {
		t.Fatalf("original user modified: %+v", u.Teams)
	}
	if !UserHasActiveTeam(u, []string{"a"}) || UserHasActiveTeam(u, []string{"a", "b"}) {
		t.Fatal("UserHasActiveTeam disagrees with AllTeamsOptedOut")
	}
	if !TeamOptedOut([]string{"a"}, "a") || TeamOptedOut([]string{"a"}, "b") {
		t.Fatal("TeamOptedOut wrong")
	}
}
