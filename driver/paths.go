package driver

import "github.com/radioform/radioform/shmem"

// ControlFilePath is the plain-text file listing desired proxy devices, one
// NAME|UID per line.
const ControlFilePath = "/tmp/radioform-devices.txt"

// SegmentPathForUID derives the shared-memory file path for a device UID.
func SegmentPathForUID(uid string) string {
	return shmem.PathForUID(uid)
}
