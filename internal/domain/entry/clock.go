package entry

import "time"

// ElapsedSince returns the whole seconds elapsed between start and now,
// clamped at zero. Backward clock skew must never surface as a negative
// duration; callers log the clamp as a clock-synchronization warning.
func ElapsedSince(start, now time.Time) int64 {
	secs := now.Unix() - start.Unix()
	if secs < 0 {
		return 0
	}
	return secs
}

// EffectiveDuration returns the entry's duration as of now: the stored
// accumulated seconds plus, for a running entry, the seconds elapsed in the
// current running interval. Stored duration is authoritative once stopped.
func EffectiveDuration(e *TimeEntry, now time.Time) int64 {
	if e.Status == StatusRunning {
		return e.Duration + ElapsedSince(e.StartTime, now)
	}
	return e.Duration
}
