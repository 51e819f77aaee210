package timekeeper

import "strings"

// AdvanceMode selects how RequestAdvance chooses and releases a grant.
type AdvanceMode int

const (
	// ModeExact grants exactly the requested time once it is at or before GALT.
	ModeExact AdvanceMode = iota

	// ModeAvailable is ModeExact that also releases held messages stamped at
	// the granted time, accepting that more may follow at that time.
	ModeAvailable

	// ModeNextMessage grants the earlier of the requested time and the
	// earliest held message, so the federate stops at its next event.
	ModeNextMessage

	// ModeNextMessageAvailable is ModeNextMessage with ModeAvailable's release rule.
	ModeNextMessageAvailable

	// ModeFlush grants the requested time immediately and releases every held
	// message regardless of timestamp. It overrides timestamp-order safety:
	// a constrained federate may be granted a time beyond GALT and later
	// receive messages stamped before it.
	ModeFlush
)

var modeNames = [...]string{
	ModeExact:                "Exact",
	ModeAvailable:            "Available",
	ModeNextMessage:          "NextMessage",
	ModeNextMessageAvailable: "NextMessageAvailable",
	ModeFlush:                "Flush",
}

func (m AdvanceMode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return "Unknown"
}

// IsValid reports whether m is one of the defined modes.
func (m AdvanceMode) IsValid() bool {
	return m >= ModeExact && m <= ModeFlush
}

func (m AdvanceMode) isNextMessage() bool {
	return m == ModeNextMessage || m == ModeNextMessageAvailable
}

func (m AdvanceMode) isAvailable() bool {
	return m == ModeAvailable || m == ModeNextMessageAvailable
}

// ParseAdvanceMode maps a name produced by String back to its mode.
func ParseAdvanceMode(s string) (AdvanceMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(name, s) {
			return AdvanceMode(m), nil
		}
	}
	return ModeExact, ErrInvalidAdvanceMode
}
