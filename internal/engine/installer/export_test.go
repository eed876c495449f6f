package installer

import "time"

// SetClock replaces the clock used for markers and records.
func (in *Installer) SetClock(now func() time.Time) {
	in.now = now
}
