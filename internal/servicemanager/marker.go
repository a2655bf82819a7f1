package servicemanager

import "strings"

const (
	// ManagedMarker identifies units generated by dron.
	ManagedMarker = "(MANAGED BY DRON)"

	// legacyMarker was used before launchd support; '<' is unfriendly to plist XML.
	legacyMarker = "<MANAGED BY DRON>"
)

// IsManaged reports whether text carries the given marker or the legacy marker.
func IsManaged(text, marker string) bool {
	if marker == "" {
		marker = ManagedMarker
	}
	return strings.Contains(text, marker) || strings.Contains(text, legacyMarker)
}
