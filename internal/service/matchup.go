package service

import (
	"fmt"
	"sort"
	"strings"
)

// Pairing lines up one of the player's play types with how the opposing
// defense ranks against it. Defense is nil when the team has no line for
// that play type.
type Pairing struct {
	PlayType string       `json:"playType"`
	Points   float64      `json:"pts"`
	Defense  *DefenseStat `json:"defense,omitempty"`
}

// Summary aggregates a breakdown
type Summary struct {
	TotalPoints        float64  `json:"totalPoints"`
	PairedPlayTypes    int      `json:"pairedPlayTypes"`
	AvgDefensiveRank   float64  `json:"avgDefensiveRank"`
	WeightedPPPAllowed float64  `json:"weightedPppAllowed"`
	StrongestPlayType  string   `json:"strongestPlayType,omitempty"`
	SoftSpots          []string `json:"softSpots"`
}

// Matchup is a player's offensive profile against a team's defensive profile
type Matchup struct {
	Player    *PlayerProfile  `json:"player"`
	Defense   *DefenseProfile `json:"defense"`
	Breakdown []Pairing       `json:"breakdown"`
	Summary   Summary         `json:"summary"`
}

// Matchup resolves both sides and pairs them. Player lookup errors are
// reported before team lookup errors.
func (ix *Index) Matchup(playerQuery, teamQuery string) (*Matchup, error) {
	player, err := ix.FindPlayer(playerQuery)
	if err != nil {
		return nil, err
	}

	defense, err := ix.FindDefense(teamQuery)
	if err != nil {
		return nil, err
	}

	breakdown := pairPlayTypes(player, defense)
	return &Matchup{
		Player:    player,
		Defense:   defense,
		Breakdown: breakdown,
		Summary:   ix.summarize(breakdown),
	}, nil
}

// pairPlayTypes keeps the first matched player on their first team, sorts
// their play types by points and attaches the first matched team's line.
func pairPlayTypes(player *PlayerProfile, defense *DefenseProfile) []Pairing {
	primary := player.Data[0]

	var own []PlayerStat
	for _, stat := range player.Data {
		if stat.Player == primary.Player && stat.Team == primary.Team {
			own = append(own, stat)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Points > own[j].Points
	})

	byPlayType := make(map[string]DefenseStat)
	for _, stat := range defense.Data {
		if stat.Team != defense.Team {
			continue
		}
		if _, seen := byPlayType[stat.PlayType]; !seen {
			byPlayType[stat.PlayType] = stat
		}
	}

	pairings := make([]Pairing, 0, len(own))
	for _, stat := range own {
		p := Pairing{PlayType: stat.PlayType, Points: stat.Points}
		if d, ok := byPlayType[stat.PlayType]; ok {
			p.Defense = &d
		}
		pairings = append(pairings, p)
	}
	return pairings
}

func (ix *Index) summarize(breakdown []Pairing) Summary {
	summary := Summary{SoftSpots: []string{}}

	var (
		rankSum    int
		weightSum  float64
		weightedPP float64
		best       float64
	)
	for i, p := range breakdown {
		summary.TotalPoints += p.Points
		if i == 0 || p.Points > best {
			best = p.Points
			summary.StrongestPlayType = p.PlayType
		}

		if p.Defense == nil {
			continue
		}
		summary.PairedPlayTypes++
		rankSum += p.Defense.Rank
		weightSum += p.Points
		weightedPP += p.Points * p.Defense.PPP

		if teams := ix.teamsRanked(p.PlayType); teams > 0 && p.Defense.Rank > teams/2 {
			summary.SoftSpots = append(summary.SoftSpots, p.PlayType)
		}
	}

	if summary.PairedPlayTypes > 0 {
		summary.AvgDefensiveRank = float64(rankSum) / float64(summary.PairedPlayTypes)
	}
	if weightSum > 0 {
		summary.WeightedPPPAllowed = weightedPP / weightSum
	}
	return summary
}

// Brief renders the matchup as the plain-text context block handed to
// downstream analysts.
func Brief(m *Matchup) string {
	players := append([]PlayerStat(nil), m.Player.Data...)
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Points > players[j].Points
	})

	defense := append([]DefenseStat(nil), m.Defense.Data...)
	sort.SliceStable(defense, func(i, j int) bool {
		return defense[i].Rank < defense[j].Rank
	})

	playerParts := make([]string, 0, len(players))
	for _, s := range players {
		playerParts = append(playerParts, fmt.Sprintf("%s: %.1f PTS", s.PlayType, s.Points))
	}

	defenseParts := make([]string, 0, len(defense))
	for _, s := range defense {
		defenseParts = append(defenseParts, fmt.Sprintf("%s: Rank #%d (%.2f PPP)", s.PlayType, s.Rank, s.PPP))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCHUP: %s vs %s\n\n", m.Player.Player, m.Defense.Team)
	sb.WriteString("PLAYER OFFENSIVE STATS:\n")
	sb.WriteString(strings.Join(playerParts, ", "))
	sb.WriteString("\n\nTEAM DEFENSIVE STATS:\n")
	sb.WriteString(strings.Join(defenseParts, ", "))
	sb.WriteString("\n")
	return sb.String()
}
