package nbastats

// PlayType is one scrapeable play-type page
type PlayType struct {
	Name string
	URL  string
}

// OffensivePlayTypes are the player pages, in scrape order
var OffensivePlayTypes = []PlayType{
	{Name: "Pick-and-Roll", URL: "https://www.nba.com/stats/players/ball-handler?dir=D&sort=PTS"},
	{Name: "Isolation", URL: "https://www.nba.com/stats/players/isolation"},
	{Name: "Transition", URL: "https://www.nba.com/stats/players/transition"},
	{Name: "Roll Man", URL: "https://www.nba.com/stats/players/roll-man"},
	{Name: "Post-Up", URL: "https://www.nba.com/stats/players/playtype-post-up"},
	{Name: "Spot-Up", URL: "https://www.nba.com/stats/players/spot-up"},
	{Name: "Cut", URL: "https://www.nba.com/stats/players/cut"},
	{Name: "Off Screen", URL: "https://www.nba.com/stats/players/off-screen"},
	{Name: "Putbacks", URL: "https://www.nba.com/stats/players/putbacks"},
	{Name: "Hand-Off", URL: "https://www.nba.com/stats/players/hand-off"},
}

// DefensivePlayTypes are the team defense pages sorted by PPP ascending,
// in scrape order. There is no defensive Cut page.
var DefensivePlayTypes = []PlayType{
	{Name: "Isolation", URL: "https://www.nba.com/stats/teams/isolation?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Transition", URL: "https://www.nba.com/stats/teams/transition?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Pick-and-Roll", URL: "https://www.nba.com/stats/teams/ball-handler?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Roll Man", URL: "https://www.nba.com/stats/teams/roll-man?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Post-Up", URL: "https://www.nba.com/stats/teams/playtype-post-up?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Spot-Up", URL: "https://www.nba.com/stats/teams/spot-up?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Hand-Off", URL: "https://www.nba.com/stats/teams/hand-off?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Off Screen", URL: "https://www.nba.com/stats/teams/off-screen?TypeGrouping=defensive&dir=A&sort=PPP"},
	{Name: "Putbacks", URL: "https://www.nba.com/stats/teams/putbacks?TypeGrouping=defensive&dir=A&sort=PPP"},
}
