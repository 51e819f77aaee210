package types

import (
	"slices"
	"strconv"
	"strings"
)

var resignActionNames = map[ResignAction]string{
	ResignNoAction:                   "NoAction",
	ResignDivestAttributes:           "DivestAttributes",
	ResignDeleteObjects:              "DeleteObjects",
	ResignCancelPendingAcquisitions:  "CancelPendingAcquisitions",
	ResignDeleteObjectsThenDivest:    "DeleteObjectsThenDivest",
	ResignCancelThenDeleteThenDivest: "CancelThenDeleteThenDivest",
}

// String helps with making resign actions readable in logs.
func (a ResignAction) String() string {
	if name, ok := resignActionNames[a]; ok {
		return name
	}
	return "Unknown"
}

// IsValid checks if the action is one of the defined resign actions.
func (a ResignAction) IsValid() bool {
	_, ok := resignActionNames[a]
	return ok
}

// CancelsAcquisitions reports whether the action removes the federate from acquisition lines.
func (a ResignAction) CancelsAcquisitions() bool {
	return a == ResignCancelPendingAcquisitions || a == ResignCancelThenDeleteThenDivest
}

// DeletesObjects reports whether the action deletes the objects the federate may delete.
func (a ResignAction) DeletesObjects() bool {
	return a == ResignDeleteObjects || a == ResignDeleteObjectsThenDivest || a == ResignCancelThenDeleteThenDivest
}

// DivestsAttributes reports whether the action divests the attributes the federate still owns.
func (a ResignAction) DivestsAttributes() bool {
	return a == ResignDivestAttributes || a == ResignDeleteObjectsThenDivest || a == ResignCancelThenDeleteThenDivest
}

// ParseResignAction maps a name produced by ResignAction.String back to its value.
func ParseResignAction(s string) (ResignAction, bool) {
	for a, name := range resignActionNames {
		if strings.EqualFold(name, s) {
			return a, true
		}
	}
	return ResignNoAction, false
}

func (o OrderType) String() string {
	switch o {
	case OrderReceive:
		return "Receive"
	case OrderTimestamp:
		return "Timestamp"
	default:
		return "Unknown"
	}
}

func (tt TransportationType) String() string {
	switch tt {
	case TransportReliable:
		return "Reliable"
	case TransportBestEffort:
		return "BestEffort"
	default:
		return "Unknown"
	}
}

// String renders the handle as "federate-<n>".
func (h FederateHandle) String() string {
	return "federate-" + strconv.FormatUint(uint64(h), 10)
}

// UniqueAttributes returns attrs without duplicates, keeping first occurrences in order.
func UniqueAttributes(attrs []AttributeHandle) []AttributeHandle {
	seen := make(map[AttributeHandle]struct{}, len(attrs))
	out := make([]AttributeHandle, 0, len(attrs))
	for _, a := range attrs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// SortedFederates returns the keys of m in handle (join) order.
func SortedFederates[V any](m map[FederateHandle]V) []FederateHandle {
	keys := make([]FederateHandle, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
