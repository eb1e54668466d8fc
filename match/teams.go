package match

import "slices"

// Team identifies a side in the match
type Team string

const (
	TeamNone Team = ""
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

// Teams is the roster announced by game_started
type Teams struct {
	Blue []string `json:"blue"`
	Red  []string `json:"red"`
}

// SpawnPoints optionally places each team at match start
type SpawnPoints struct {
	Blue Vec2 `json:"blue"`
	Red  Vec2 `json:"red"`
}

// TeamOf returns the team listing userID, or TeamNone
func (t Teams) TeamOf(userID string) Team {
	if slices.Contains(t.Blue, userID) {
		return TeamBlue
	}
	if slices.Contains(t.Red, userID) {
		return TeamRed
	}
	return TeamNone
}

// Contested reports whether both sides have at least one member
func (t Teams) Contested() bool {
	return len(t.Blue) > 0 && len(t.Red) > 0
}

// Leader returns the lowest user id on the roster. Every peer computes
// the same leader from the same game_started payload.
func (t Teams) Leader() string {
	var leader string
	for _, ids := range [][]string{t.Blue, t.Red} {
		for _, id := range ids {
			if leader == "" || id < leader {
				leader = id
			}
		}
	}
	return leader
}

// For returns the spawn point of team
func (s SpawnPoints) For(team Team) (Vec2, bool) {
	switch team {
	case TeamBlue:
		return s.Blue, true
	case TeamRed:
		return s.Red, true
	}
	return Vec2{}, false
}

// AssignTeams splits user ids alternately into blue and red, the way a
// squad host builds the game_started roster
func AssignTeams(userIDs []string) Teams {
	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	var t Teams
	for i, id := range ids {
		if i%2 == 0 {
			t.Blue = append(t.Blue, id)
		} else {
			t.Red = append(t.Red, id)
		}
	}
	return t
}
