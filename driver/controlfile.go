package driver

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ParseControlFile reads NAME|UID lines into a uid -> name map. The reader
// is liberal: blank lines and lines without a separator are skipped, and a
// later line for the same UID wins.
func ParseControlFile(r io.Reader) map[string]string {
	devices := make(map[string]string)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()

		sep := strings.IndexByte(line, '|')
		if sep < 0 {
			continue
		}

		uid := line[sep+1:]
		if uid == "" {
			continue
		}

		devices[uid] = line[:sep]
	}

	return devices
}

// readControlFile parses the control file at path. A missing file is an
// empty device list, not an error.
func readControlFile(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}
	}
	defer f.Close()

	return ParseControlFile(f)
}
