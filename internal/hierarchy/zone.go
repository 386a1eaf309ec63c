package hierarchy

import "time"

// Zone is the triage classification of a node.
type Zone string

const (
	ZoneRed       Zone = "red"       // license expired or expiring within 7 days
	ZoneProducing Zone = "producing" // wrote business this calendar month
	ZoneInvesting Zone = "investing" // spending on leads, never produced
	ZoneBlue      Zone = "blue"      // joined within 30 days, verification open
	ZoneBlack     Zone = "black"     // no login or activity for 7+ days
	ZoneYellow    Zone = "yellow"    // contracts pending or license expiring in 8-30 days
	ZoneGreen     Zone = "green"     // nothing flagged
)

// Classify maps a node to exactly one zone. Rules are evaluated in a fixed
// business-priority order; the first match wins. Pure function of
// (n.Attrs, now): callers recompute it per read and it never blocks.
//
// Day arithmetic truncates both timestamps to their UTC calendar date before
// subtracting, so two instants 23 hours apart count as one day apart only
// when they cross a UTC midnight. Window bounds are inclusive.
func Classify(n AgentNode, now time.Time) Zone {
	a := n.Attrs

	if a.ResidentLicenseExpiry != nil {
		if d := daysBetween(now, *a.ResidentLicenseExpiry); d <= 7 {
			return ZoneRed
		}
	}

	if a.LastBusinessDate != nil && sameMonth(*a.LastBusinessDate, now) {
		return ZoneProducing
	}

	if a.TotalLeadSpend > 0 && a.LastBusinessDate == nil {
		return ZoneInvesting
	}

	if !a.VerificationComplete {
		if d := daysBetween(a.JoinedAt, now); d >= 0 && d <= 30 {
			return ZoneBlue
		}
	}

	// "Never logged in and never active" is an infinite gap.
	last := latest(a.LastLoginAt, a.LastActivityAt)
	if last == nil || daysBetween(*last, now) >= 7 {
		return ZoneBlack
	}

	if a.ContractsPending > 0 {
		return ZoneYellow
	}
	if a.ResidentLicenseExpiry != nil {
		if d := daysBetween(now, *a.ResidentLicenseExpiry); d >= 8 && d <= 30 {
			return ZoneYellow
		}
	}

	return ZoneGreen
}

// daysBetween returns whole calendar days from a to b (negative when b is
// before a), truncating both to their UTC date.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func sameMonth(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month()
}

func latest(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}
