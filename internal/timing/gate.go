// Package timing implements the smart-timing gate: the policy deciding
// whether a candidate notification is sent now, delayed, or suppressed.
package timing

import (
	"fmt"
	"time"

	"proudprofit/internal/models"
)

const (
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyNormal   = "normal"
)

// volatilityPauseDelay is the fixed re-check delay while the market is
// calmer than the user wants it.
const volatilityPauseDelay = 1800

// Conditions carries the market inputs the gate weighs.
type Conditions struct {
	Volatility float64 `json:"volatility"`
}

// Input is everything Decide needs. Decide reads nothing else: no clocks,
// no stores, no globals, so decisions are reproducible in tests.
type Input struct {
	Prefs       models.TimingPreference
	RecentCount int
	Now         time.Time
	Urgency     string
	Market      Conditions
	MinorSignal bool
}

// Decision is the gate outcome. PermanentDrop means no queue row is
// written at all; the decision log is the only trace.
type Decision struct {
	ShouldSend    bool   `json:"shouldSend"`
	Reason        string `json:"reason"`
	DelaySeconds  int    `json:"delaySeconds"`
	PermanentDrop bool   `json:"-"`
}

// Decide applies the gating rules in precedence order; the first rule
// that applies wins.
//
//  1. critical urgency always sends.
//  2. quiet hours defer everything below high urgency.
//  3. the hourly frequency cap defers to the next hour boundary.
//  4. low-frequency users drop minor signals outright.
//  5. a high-volatility pause defers for a fixed interval.
//  6. otherwise send now.
func Decide(in Input) Decision {
	if in.Urgency == UrgencyCritical {
		return Decision{ShouldSend: true, Reason: "critical override"}
	}
	if !in.Prefs.Enabled {
		return Decision{ShouldSend: true, Reason: "smart timing disabled"}
	}

	loc, err := time.LoadLocation(in.Prefs.Timezone)
	if err != nil {
		// Malformed preferences default to the safest policy: hold the
		// notification, never guess that sending is fine.
		return Decision{
			ShouldSend:   false,
			Reason:       fmt.Sprintf("invalid timezone %q, suppressed", in.Prefs.Timezone),
			DelaySeconds: volatilityPauseDelay,
		}
	}
	local := in.Now.In(loc)

	if in.Urgency != UrgencyHigh && inQuietHours(local, in.Prefs.QuietHoursStart, in.Prefs.QuietHoursEnd) {
		return Decision{
			ShouldSend:   false,
			Reason:       "quiet hours",
			DelaySeconds: secondsUntilHour(local, in.Prefs.QuietHoursEnd),
		}
	}

	if in.Prefs.MaxHourlyNotifications > 0 && in.RecentCount >= in.Prefs.MaxHourlyNotifications {
		return Decision{
			ShouldSend:   false,
			Reason:       "hourly notification limit reached",
			DelaySeconds: secondsUntilNextHourBoundary(local),
		}
	}

	if in.Prefs.SignalFrequency == models.FrequencyLow && in.MinorSignal {
		return Decision{
			ShouldSend:    false,
			Reason:        "minor signal dropped for low frequency preference",
			PermanentDrop: true,
		}
	}

	if in.Prefs.HighVolatilityPause && in.Market.Volatility > in.Prefs.VolatilityThreshold {
		return Decision{
			ShouldSend:   false,
			Reason:       fmt.Sprintf("high volatility pause (%.4f > %.4f)", in.Market.Volatility, in.Prefs.VolatilityThreshold),
			DelaySeconds: volatilityPauseDelay,
		}
	}

	return Decision{ShouldSend: true, Reason: "ok to send"}
}

// inQuietHours checks local time against [start, end) in whole hours.
// start > end means the window wraps midnight (22 to 8 spans two days).
// start == end means no quiet window.
func inQuietHours(local time.Time, start, end int) bool {
	if start == end {
		return false
	}
	h := local.Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// secondsUntilHour returns the seconds from local until the next local
// occurrence of hour:00. AddDate keeps the arithmetic correct across DST.
func secondsUntilHour(local time.Time, hour int) int {
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	if !target.After(local) {
		target = target.AddDate(0, 0, 1)
	}
	return int(target.Sub(local).Seconds())
}

func secondsUntilNextHourBoundary(local time.Time) int {
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location()).Add(time.Hour)
	return int(next.Sub(local).Seconds())
}
