package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatTimeRemaining renders seconds as m:ss.
func FormatTimeRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatScore renders a score with thousands separators.
func FormatScore(score int) string {
	return humanize.Comma(int64(score))
}

// FormatRank renders 1st, 2nd, 3rd, 4th ... with the English teen exceptions.
func FormatRank(rank int) string {
	suffix := "th"
	if rank%100 < 11 || rank%100 > 13 {
		switch rank % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", rank, suffix)
}

// FormatPercentage renders value/total as a rounded percentage.
func FormatPercentage(value, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(value)/float64(total)*100)))
}

// FormatQuizWeek renders the week start the way the quiz list shows it.
func FormatQuizWeek(t time.Time) string {
	return t.Format("January 2, 2006")
}

// Badge is the podium badge shown next to a leaderboard rank.
type Badge string

const (
	BadgeGold    Badge = "gold"
	BadgeSilver  Badge = "silver"
	BadgeBronze  Badge = "bronze"
	BadgeDefault Badge = "default"
)

// RankBadge maps the top three ranks to podium badges.
func RankBadge(rank int) Badge {
	switch rank {
	case 1:
		return BadgeGold
	case 2:
		return BadgeSilver
	case 3:
		return BadgeBronze
	}
	return BadgeDefault
}

// Level is the urgency of the countdown display.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarn     Level = "warn"
	LevelCritical Level = "critical"
)

// TimerLevel is ok above 50% of the limit, warn above 20%, critical otherwise.
func TimerLevel(seconds, maxSeconds int) Level {
	if maxSeconds <= 0 {
		return LevelCritical
	}
	pct := float64(seconds) / float64(maxSeconds) * 100
	switch {
	case pct > 50:
		return LevelOK
	case pct > 20:
		return LevelWarn
	}
	return LevelCritical
}
