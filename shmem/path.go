package shmem

import "strings"

const pathPrefix = "/tmp/radioform-"

// PathForUID derives the segment file path for a device UID. Colons,
// slashes, and spaces in the UID are replaced with underscores so the UID
// maps to a single flat file name.
func PathForUID(uid string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', ' ':
			return '_'
		default:
			return r
		}
	}, uid)

	return pathPrefix + sanitized
}
