// Package sports reports on a destination's tracked NBA and NHL teams:
// tonight's games as headline lines, and yesterday's final scores as a
// scoreboard. A league API failure costs its lines, never the run.
package sports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	// League schedules publish in UTC but game days are Eastern calendar
	// dates; the embedded tzdata keeps the conversion working on hosts
	// without a zoneinfo database.
	_ "time/tzdata"

	"gazette/internal/fetch"
)

// Config is a destination's sports tracking selections. NBA teams go by
// nickname ("Celtics"); NHL teams go by the league's place name ("Boston",
// "Montréal" with the accent), except New York, whose teams go by
// "Islanders" and "Rangers".
type Config struct {
	NBATeams          []string `yaml:"nba_teams"`
	NHLTeams          []string `yaml:"nhl_teams"`
	HideNBAScoreboard bool     `yaml:"hide_nba_scoreboard"`
	HideNHLScoreboard bool     `yaml:"hide_nhl_scoreboard"`
}

// Empty reports whether the destination tracks no teams at all.
func (c Config) Empty() bool {
	return len(c.NBATeams) == 0 && len(c.NHLTeams) == 0
}

// eastern is the league reference zone for "today" and tipoff times.
var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

// nbaStatusFinal is the gameStatus value for a completed game.
const nbaStatusFinal = 3

// Service answers game-day questions. Now is swappable for tests.
type Service struct {
	Client *fetch.Client
	Log    *slog.Logger
	Now    func() time.Time

	// NBABaseURL and NHLBaseURL override the league endpoints, for tests.
	NBABaseURL string
	NHLBaseURL string
}

func NewService(client *fetch.Client, log *slog.Logger) *Service {
	return &Service{Client: client, Log: log, Now: time.Now}
}

// game is one scheduled matchup in Eastern time. home and away carry the NBA
// team nickname or the NHL place name, whichever league it came from.
type game struct {
	start     time.Time
	home      string
	away      string
	homeCity  string // NBA only
	homeScore int
	awayScore int
	final     bool
}

func (s *Service) getJSON(ctx context.Context, url string, v any) error {
	status, body, err := s.Client.Get(ctx, url, fetch.Options{})
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("league api returned status %d", status)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode league schedule: %w", err)
	}
	return nil
}

// nbaGames pulls the league's full-season schedule. The per-day scoreboard
// endpoint is not always updated by the time the morning run fires, so the
// season schedule is the reliable record of who plays today.
func (s *Service) nbaGames(ctx context.Context) ([]game, error) {
	base := s.NBABaseURL
	if base == "" {
		base = "https://cdn.nba.com"
	}
	var payload struct {
		LeagueSchedule struct {
			GameDates []struct {
				Games []struct {
					GameDateTimeUTC string `json:"gameDateTimeUTC"`
					GameStatus      int    `json:"gameStatus"`
					HomeTeam        struct {
						TeamName string `json:"teamName"`
						TeamCity string `json:"teamCity"`
						Score    int    `json:"score"`
					} `json:"homeTeam"`
					AwayTeam struct {
						TeamName string `json:"teamName"`
						TeamCity string `json:"teamCity"`
						Score    int    `json:"score"`
					} `json:"awayTeam"`
				} `json:"games"`
			} `json:"gameDates"`
		} `json:"leagueSchedule"`
	}
	if err := s.getJSON(ctx, base+"/static/json/staticData/scheduleLeagueV2.json", &payload); err != nil {
		return nil, err
	}

	var games []game
	for _, day := range payload.LeagueSchedule.GameDates {
		for _, g := range day.Games {
			start, err := time.Parse(time.RFC3339, g.GameDateTimeUTC)
			if err != nil {
				continue
			}
			games = append(games, game{
				start:     start.In(eastern),
				home:      g.HomeTeam.TeamName,
				away:      g.AwayTeam.TeamName,
				homeCity:  g.HomeTeam.TeamCity,
				homeScore: g.HomeTeam.Score,
				awayScore: g.AwayTeam.Score,
				final:     g.GameStatus == nbaStatusFinal,
			})
		}
	}
	return games, nil
}

// nhlGames pulls the schedule for one Eastern calendar day.
func (s *Service) nhlGames(ctx context.Context, day time.Time) ([]game, error) {
	base := s.NHLBaseURL
	if base == "" {
		base = "https://api-web.nhle.com"
	}
	var payload struct {
		GameWeek []struct {
			Games []struct {
				StartTimeUTC string `json:"startTimeUTC"`
				GameState    string `json:"gameState"`
				HomeTeam     struct {
					PlaceName struct {
						Default string `json:"default"`
					} `json:"placeName"`
					Score int `json:"score"`
				} `json:"homeTeam"`
				AwayTeam struct {
					PlaceName struct {
						Default string `json:"default"`
					} `json:"placeName"`
					Score int `json:"score"`
				} `json:"awayTeam"`
			} `json:"games"`
		} `json:"gameWeek"`
	}
	if err := s.getJSON(ctx, base+"/v1/schedule/"+day.Format("2006-01-02"), &payload); err != nil {
		return nil, err
	}
	if len(payload.GameWeek) == 0 {
		return nil, nil
	}

	var games []game
	for _, g := range payload.GameWeek[0].Games {
		start, err := time.Parse(time.RFC3339, g.StartTimeUTC)
		if err != nil {
			continue
		}
		games = append(games, game{
			start:     start.In(eastern),
			home:      g.HomeTeam.PlaceName.Default,
			away:      g.AwayTeam.PlaceName.Default,
			homeScore: g.HomeTeam.Score,
			awayScore: g.AwayTeam.Score,
			final:     g.GameState == "OFF" || g.GameState == "FINAL",
		})
	}
	return games, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// formatTipoff renders an Eastern start time the way a fan says it: "7" for
// an on-the-hour start, "7:30" otherwise.
func formatTipoff(t time.Time) string {
	return strings.TrimSuffix(t.Format("3:04"), ":00")
}

// matchToday returns the team's game on today's Eastern date. Exactly one
// match is required; a doubleheader or a schedule glitch yields nothing.
func matchToday(games []game, team string, today time.Time) (game, bool) {
	var found []game
	for _, g := range games {
		if sameDay(g.start, today) && (g.home == team || g.away == team) {
			found = append(found, g)
		}
	}
	if len(found) != 1 {
		return game{}, false
	}
	return found[0], true
}

// TodaysNBAGame returns a headline line if the team plays today, or "".
func (s *Service) TodaysNBAGame(ctx context.Context, team string) string {
	games, err := s.nbaGames(ctx)
	if err != nil {
		s.Log.Warn("NBA schedule unavailable", "team", team, "error", err)
		return ""
	}
	g, ok := matchToday(games, team, s.Now().In(eastern))
	if !ok {
		return ""
	}
	tipoff := formatTipoff(g.start)
	if g.home == team {
		return fmt.Sprintf("🏀 The %s host the %s at %s.", team, g.away, tipoff)
	}
	return fmt.Sprintf("🏀 The %s are in %s. Tipoff at %s.", team, g.homeCity, tipoff)
}

// newYorkTeam reports an NHL team named by nickname rather than place. The
// sentences bend around them: "Boston hosts" but "The Rangers host".
func newYorkTeam(name string) bool {
	return name == "Islanders" || name == "Rangers"
}

// TodaysNHLGame returns a headline line if the team plays today, or "".
func (s *Service) TodaysNHLGame(ctx context.Context, place string) string {
	today := s.Now().In(eastern)
	games, err := s.nhlGames(ctx, today)
	if err != nil {
		s.Log.Warn("NHL schedule unavailable", "team", place, "error", err)
		return ""
	}
	g, ok := matchToday(games, place, today)
	if !ok {
		return ""
	}
	tipoff := formatTipoff(g.start)
	if g.home == place {
		subject := place + " hosts"
		if newYorkTeam(place) {
			subject = "The " + place + " host"
		}
		opponent := g.away
		if newYorkTeam(opponent) {
			opponent = "the " + opponent
		}
		return fmt.Sprintf("🏒🥅 %s %s. They face off at %s.", subject, opponent, tipoff)
	}
	subject := place + " skates"
	if newYorkTeam(place) {
		subject = "The " + place + " are"
	}
	opponent := g.home
	if newYorkTeam(opponent) {
		opponent = "New York to face the " + opponent
	}
	return fmt.Sprintf("🏒🥅 %s in %s. The puck drops at %s.", subject, opponent, tipoff)
}

// Harmonize drops empty lines and reports a matchup of two tracked teams
// once rather than once per team.
func Harmonize(headlines, teams []string) []string {
	reported := make(map[string]struct{}, len(teams))
	var out []string
	for _, headline := range headlines {
		if headline == "" {
			continue
		}
		var found []string
		repeat := false
		for _, team := range teams {
			if !strings.Contains(headline, team) {
				continue
			}
			found = append(found, team)
			if _, ok := reported[team]; ok {
				repeat = true
			}
		}
		if !repeat {
			out = append(out, headline)
		}
		for _, team := range found {
			reported[team] = struct{}{}
		}
	}
	return out
}

// GameHeadlines returns one line per tracked team playing today, NBA teams
// first, each league harmonized so a matchup of two tracked teams reads once.
func (s *Service) GameHeadlines(ctx context.Context, cfg Config) []string {
	var nba []string
	for _, team := range cfg.NBATeams {
		nba = append(nba, s.TodaysNBAGame(ctx, team))
	}
	nba = Harmonize(nba, cfg.NBATeams)

	var nhl []string
	for _, place := range cfg.NHLTeams {
		nhl = append(nhl, s.TodaysNHLGame(ctx, place))
	}
	nhl = Harmonize(nhl, cfg.NHLTeams)

	return append(nba, nhl...)
}

// finals formats the completed games on the given Eastern date that involve
// a tracked team. Iterating games rather than teams reports a matchup of two
// tracked teams once.
func finals(games []game, teams []string, day time.Time, badge string) []string {
	tracked := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		tracked[team] = struct{}{}
	}
	var out []string
	for _, g := range games {
		if !g.final || !sameDay(g.start, day) {
			continue
		}
		_, home := tracked[g.home]
		_, away := tracked[g.away]
		if !home && !away {
			continue
		}
		out = append(out, fmt.Sprintf("%s Final: %s %d, %s %d.", badge, g.away, g.awayScore, g.home, g.homeScore))
	}
	return out
}

// Scoreboard reports yesterday's final scores for the tracked teams, NBA
// lines first, honoring the per-league hide flags.
func (s *Service) Scoreboard(ctx context.Context, cfg Config) []string {
	yesterday := s.Now().In(eastern).AddDate(0, 0, -1)
	var lines []string
	if len(cfg.NBATeams) > 0 && !cfg.HideNBAScoreboard {
		games, err := s.nbaGames(ctx)
		if err != nil {
			s.Log.Warn("NBA scoreboard unavailable", "error", err)
		} else {
			lines = append(lines, finals(games, cfg.NBATeams, yesterday, "🏀")...)
		}
	}
	if len(cfg.NHLTeams) > 0 && !cfg.HideNHLScoreboard {
		games, err := s.nhlGames(ctx, yesterday)
		if err != nil {
			s.Log.Warn("NHL scoreboard unavailable", "error", err)
		} else {
			lines = append(lines, finals(games, cfg.NHLTeams, yesterday, "🏒🥅")...)
		}
	}
	return lines
}
