package state

import (
	"fmt"
	"time"
)

// StartClock starts the game clock if it is not running yet.
func (gs *GameState) StartClock(now time.Time) {
	if !gs.StartedAt.IsZero() {
		return
	}
	gs.StartedAt = now
	gs.LastTimeNotice = now
}

// RemainingTime returns the time left on the game clock.
// A game without a limit or a clock never runs out.
func (gs *GameState) RemainingTime(now time.Time) time.Duration {
	if gs.TimeLimit <= 0 || gs.StartedAt.IsZero() {
		return gs.TimeLimit
	}
	left := gs.TimeLimit - now.Sub(gs.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// TimeUp reports whether the game clock has run out.
func (gs *GameState) TimeUp(now time.Time) bool {
	return gs.TimeLimit > 0 && !gs.StartedAt.IsZero() && gs.RemainingTime(now) == 0
}

// ElapsedMinutesSinceNotice returns whole minutes since the last remaining-time notice.
func (gs *GameState) ElapsedMinutesSinceNotice(now time.Time) int {
	if gs.LastTimeNotice.IsZero() {
		return 0
	}
	return int(now.Sub(gs.LastTimeNotice) / time.Minute)
}

// TimeNotice returns the remaining-time announcement when at least one
// minute passed since the last one, and moves the notice mark forward.
func (gs *GameState) TimeNotice(now time.Time) (string, bool) {
	if gs.TimeLimit <= 0 {
		return "", false
	}
	n := gs.ElapsedMinutesSinceNotice(now)
	if n < 1 {
		return "", false
	}
	gs.LastTimeNotice = gs.LastTimeNotice.Add(time.Duration(n) * time.Minute)
	return FormatRemaining(gs.RemainingTime(now)), true
}

// FormatRemaining renders a remaining duration in whole minutes.
func FormatRemaining(d time.Duration) string {
	minutes := int(d / time.Minute)
	switch minutes {
	case 0:
		return "Less than a minute remains on the clock."
	case 1:
		return "1 minute remains on the clock."
	default:
		return fmt.Sprintf("%d minutes remain on the clock.", minutes)
	}
}
