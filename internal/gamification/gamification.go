// Package gamification tracks the energy-saving profile: level and XP,
// quests, badges and the team leaderboard.
package gamification

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrUnknownQuest is returned when completing a quest id that does not exist.
	ErrUnknownQuest = errors.New("unknown quest")
	// ErrUnknownBadge is returned when unlocking a badge id that does not exist.
	ErrUnknownBadge = errors.New("unknown badge")
)

// Quest ids with behavior attached elsewhere.
const (
	QuestWeekendSaver  = 1
	QuestDataDetective = 2
	QuestNightWatch    = 3
)

// Badge ids.
const (
	BadgeCollector     = 1
	BadgeSaver         = 2
	BadgeAnomalyHunter = 3
	BadgeSolarPioneer  = 4
)

// ProfileBonusXP is awarded once for completing the profile.
const ProfileBonusXP = 150

// Quest is a task worth XP.
type Quest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"desc"`
	XP          int    `json:"xp"`
	Completed   bool   `json:"completed"`
	Type        string `json:"type"`
}

// Badge is an achievement.
type Badge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}

// LeaderboardEntry is one team's score.
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Trend string `json:"trend"`
}

// Profile is the user's progress. XP is always below MaxXP.
type Profile struct {
	Level      int `json:"level"`
	XP         int `json:"xp"`
	MaxXP      int `json:"maxXp"`
	Completion int `json:"completion"`
}

// Snapshot is a consistent copy of the whole state.
type Snapshot struct {
	Profile     Profile            `json:"profile"`
	Quests      []Quest            `json:"quests"`
	Badges      []Badge            `json:"badges"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Engine holds the gamification state. Safe for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	profile     Profile
	quests      []Quest
	badges      []Badge
	leaderboard []LeaderboardEntry
}

// New returns an engine in the initial state: level 4, 850/1200 XP, 65%
// profile completion.
func New() *Engine {
	return &Engine{
		profile: Profile{Level: 4, XP: 850, MaxXP: 1200, Completion: 65},
		quests: []Quest{
			{ID: QuestWeekendSaver, Title: "Wochenend-Sparer", Description: "Reduziere den Verbrauch am Sonntag um 10%", XP: 150, Type: "weekly"},
			{ID: QuestDataDetective, Title: "Daten-Detektiv", Description: "Verbinde eine neue Datenquelle (z.B. CSV)", XP: 200, Type: "one-time"},
			{ID: QuestNightWatch, Title: "Nachtwächter", Description: "Prüfe den Standby-Verbrauch um 23:00 Uhr", XP: 50, Completed: true, Type: "daily"},
		},
		badges: []Badge{
			{ID: BadgeCollector, Name: "Datensammler", Unlocked: true},
			{ID: BadgeSaver, Name: "Energiesparfuchs", Unlocked: true},
			{ID: BadgeAnomalyHunter, Name: "Anomalie-Jäger"},
			{ID: BadgeSolarPioneer, Name: "Solar-Pionier"},
		},
		leaderboard: []LeaderboardEntry{
			{Rank: 1, Name: "Produktion Halle 3", Score: 12400, Trend: "up"},
			{Rank: 2, Name: "Logistikzentrum", Score: 11850, Trend: "down"},
			{Rank: 3, Name: "Verwaltung (Du)", Score: 9800, Trend: "up"},
			{Rank: 4, Name: "Kantine", Score: 8500, Trend: "stable"},
		},
	}
}

// AddXP adds n XP and returns the number of levels gained. Each level-up
// carries the surplus over and raises MaxXP by 20%. Non-positive n is ignored.
func (e *Engine) AddXP(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addXP(n)
}

func (e *Engine) addXP(n int) int {
	if n <= 0 {
		return 0
	}
	p := &e.profile
	p.XP += n
	levels := 0
	for p.XP >= p.MaxXP {
		p.XP -= p.MaxXP
		p.Level++
		p.MaxXP = int(math.Round(float64(p.MaxXP) * 1.2))
		levels++
	}
	return levels
}

// CompleteQuest marks a quest completed and awards its XP. Completing an
// already completed quest awards nothing. It returns the levels gained.
func (e *Engine) CompleteQuest(id int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.quests {
		q := &e.quests[i]
		if q.ID != id {
			continue
		}
		if q.Completed {
			return 0, nil
		}
		q.Completed = true
		return e.addXP(q.XP), nil
	}
	return 0, fmt.Errorf("complete quest %d: %w", id, ErrUnknownQuest)
}

// CompleteProfile sets completion to 100% and awards ProfileBonusXP the
// first time. It reports whether the bonus was awarded.
func (e *Engine) CompleteProfile() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.profile.Completion >= 100 {
		return false
	}
	e.profile.Completion = 100
	e.addXP(ProfileBonusXP)
	return true
}

// UnlockBadge unlocks a badge. It reports whether the badge was newly unlocked.
func (e *Engine) UnlockBadge(id int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.badges {
		if e.badges[i].ID == id {
			if e.badges[i].Unlocked {
				return false, nil
			}
			e.badges[i].Unlocked = true
			return true, nil
		}
	}
	return false, fmt.Errorf("unlock badge %d: %w", id, ErrUnknownBadge)
}

// Profile returns the current profile.
func (e *Engine) Profile() Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// Snapshot returns a copy of the full state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Profile:     e.profile,
		Quests:      append([]Quest(nil), e.quests...),
		Badges:      append([]Badge(nil), e.badges...),
		Leaderboard: append([]LeaderboardEntry(nil), e.leaderboard...),
	}
}
