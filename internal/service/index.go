package service

import (
	"errors"

	"github.com/fortuna/matchups/internal/matching"
	"github.com/fortuna/matchups/internal/store"
)

var (
	// ErrNotLoaded means no snapshot with the needed tables is loaded
	ErrNotLoaded = errors.New("data not loaded")
	// ErrPlayerNotFound means no offensive row matched the player query
	ErrPlayerNotFound = errors.New("player not found")
	// ErrTeamNotFound means no defensive row matched the team query
	ErrTeamNotFound = errors.New("team not found")
)

// PlayerStat is one play-type line of a player's offensive profile
type PlayerStat struct {
	PlayType string  `json:"playType"`
	Team     string  `json:"team"`
	Points   float64 `json:"pts"`
	Player   string  `json:"player"`
}

// PlayerProfile is every play-type line matching a player query
type PlayerProfile struct {
	Player string       `json:"player"`
	Data   []PlayerStat `json:"data"`
}

// DefenseStat is one play-type line of a team's defensive profile
type DefenseStat struct {
	PlayType string  `json:"playType"`
	Team     string  `json:"team"`
	Rank     int     `json:"rank"`
	PPP      float64 `json:"ppp"`
}

// DefenseProfile is every play-type line matching a team query
type DefenseProfile struct {
	Team string        `json:"team"`
	Data []DefenseStat `json:"data"`
}

type offenseRow struct {
	name string
	stat PlayerStat
}

type defenseRow struct {
	name string
	stat DefenseStat
}

type offenseTable struct {
	playType string
	rows     []offenseRow
}

type defenseTable struct {
	playType string
	rows     []defenseRow
}

// Index is an immutable, lookup-ready view of a snapshot. Names are
// normalized once at build time.
type Index struct {
	offense []offenseTable
	defense []defenseTable
	info    store.CacheInfo
}

// NewIndex builds an index from a snapshot. Rows without a player or
// team name are skipped. A nil snapshot gives an empty index.
func NewIndex(snapshot *store.Snapshot) *Index {
	ix := &Index{}
	if snapshot == nil {
		return ix
	}
	ix.info = snapshot.Info

	for _, table := range snapshot.Offensive {
		t := offenseTable{playType: table.PlayType}
		for _, rec := range table.Rows {
			if rec.Player == "" || rec.Team == "" {
				continue
			}
			t.rows = append(t.rows, offenseRow{
				name: matching.Normalize(rec.Player),
				stat: PlayerStat{
					PlayType: table.PlayType,
					Team:     rec.Team,
					Points:   rec.Points.OrZero(),
					Player:   rec.Player,
				},
			})
		}
		ix.offense = append(ix.offense, t)
	}

	for _, table := range snapshot.Defensive {
		t := defenseTable{playType: table.PlayType}
		for _, rec := range table.Rows {
			if rec.Team == "" {
				continue
			}
			t.rows = append(t.rows, defenseRow{
				name: matching.Normalize(rec.Team),
				stat: DefenseStat{
					PlayType: table.PlayType,
					Team:     rec.Team,
					Rank:     rec.Rank,
					PPP:      rec.PPP.OrZero(),
				},
			})
		}
		ix.defense = append(ix.defense, t)
	}

	return ix
}

// Info returns the cache info of the indexed snapshot
func (ix *Index) Info() store.CacheInfo {
	return ix.info
}

// OffensiveTypes is the number of offensive play-type tables
func (ix *Index) OffensiveTypes() int {
	return len(ix.offense)
}

// DefensiveTypes is the number of defensive play-type tables
func (ix *Index) DefensiveTypes() int {
	return len(ix.defense)
}

// Loaded reports whether any table is indexed
func (ix *Index) Loaded() bool {
	return len(ix.offense) > 0 || len(ix.defense) > 0
}

// FindPlayer returns every offensive line whose player name contains the
// query, in play-type then row order.
func (ix *Index) FindPlayer(query string) (*PlayerProfile, error) {
	if len(ix.offense) == 0 {
		return nil, ErrNotLoaded
	}

	needle := matching.Normalize(query)
	var data []PlayerStat
	for _, table := range ix.offense {
		for _, row := range table.rows {
			if matching.ContainsNormalized(row.name, needle) {
				data = append(data, row.stat)
			}
		}
	}

	if len(data) == 0 {
		return nil, ErrPlayerNotFound
	}
	return &PlayerProfile{Player: data[0].Player, Data: data}, nil
}

// FindDefense returns every defensive line whose team name contains the
// query, in play-type then row order.
func (ix *Index) FindDefense(query string) (*DefenseProfile, error) {
	if len(ix.defense) == 0 {
		return nil, ErrNotLoaded
	}

	needle := matching.TeamNeedle(query)
	var data []DefenseStat
	for _, table := range ix.defense {
		for _, row := range table.rows {
			if matching.ContainsNormalized(row.name, needle) {
				data = append(data, row.stat)
			}
		}
	}

	if len(data) == 0 {
		return nil, ErrTeamNotFound
	}
	return &DefenseProfile{Team: data[0].Team, Data: data}, nil
}

// teamsRanked returns how many teams the defensive table for playType ranks
func (ix *Index) teamsRanked(playType string) int {
	for _, table := range ix.defense {
		if table.playType == playType {
			return len(table.rows)
		}
	}
	return 0
}
