package matching

// TeamAbbreviations maps the three-letter codes used in player tables to
// the full franchise names used in team tables.
var TeamAbbreviations = map[string]string{
	"ATL": "Atlanta Hawks",
	"BOS": "Boston Celtics",
	"BKN": "Brooklyn Nets",
	"CHA": "Charlotte Hornets",
	"CHI": "Chicago Bulls",
	"CLE": "Cleveland Cavaliers",
	"DAL": "Dallas Mavericks",
	"DEN": "Denver Nuggets",
	"DET": "Detroit Pistons",
	"GSW": "Golden State Warriors",
	"HOU": "Houston Rockets",
	"IND": "Indiana Pacers",
	"LAC": "LA Clippers",
	"LAL": "Los Angeles Lakers",
	"MEM": "Memphis Grizzlies",
	"MIA": "Miami Heat",
	"MIL": "Milwaukee Bucks",
	"MIN": "Minnesota Timberwolves",
	"NOP": "New Orleans Pelicans",
	"NYK": "New York Knicks",
	"OKC": "Oklahoma City Thunder",
	"ORL": "Orlando Magic",
	"PHI": "Philadelphia 76ers",
	"PHX": "Phoenix Suns",
	"POR": "Portland Trail Blazers",
	"SAC": "Sacramento Kings",
	"SAS": "San Antonio Spurs",
	"TOR": "Toronto Raptors",
	"UTA": "Utah Jazz",
	"WAS": "Washington Wizards",
}

var normalizedAbbreviations map[string]string

func init() {
	normalizedAbbreviations = make(map[string]string, len(TeamAbbreviations))
	for abbr, name := range TeamAbbreviations {
		normalizedAbbreviations[Normalize(abbr)] = Normalize(name)
	}
}

// TeamNeedle returns the normalized string to search team tables with.
// A bare abbreviation ("den") resolves to its franchise name so it does
// not also hit "Golden State Warriors".
func TeamNeedle(query string) string {
	n := Normalize(query)
	if full, ok := normalizedAbbreviations[n]; ok {
		return full
	}
	return n
}
