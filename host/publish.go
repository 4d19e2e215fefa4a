package host

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/radioform/radioform/driver"
)

// PublishDevice adds or updates a NAME|UID entry in the control file,
// preserving other entries. The file is replaced atomically (write to a
// temporary file, then rename) so the driver's watcher never sees a torn
// list.
func PublishDevice(controlPath, name, uid string) error {
	devices := readEntries(controlPath)
	devices[uid] = name

	return writeEntries(controlPath, devices)
}

// UnpublishDevice removes a UID from the control file. Removing an absent
// UID is a no-op.
func UnpublishDevice(controlPath, uid string) error {
	devices := readEntries(controlPath)

	if _, ok := devices[uid]; !ok {
		return nil
	}

	delete(devices, uid)

	return writeEntries(controlPath, devices)
}

func readEntries(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}
	}
	defer f.Close()

	return driver.ParseControlFile(f)
}

func writeEntries(path string, devices map[string]string) error {
	uids := make([]string, 0, len(devices))
	for uid := range devices {
		uids = append(uids, uid)
	}

	sort.Strings(uids)

	var sb strings.Builder
	for _, uid := range uids {
		fmt.Fprintf(&sb, "%s|%s\n", devices[uid], uid)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".radioform-devices-*")
	if err != nil {
		return fmt.Errorf("host: publish: %w", err)
	}

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("host: publish: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("host: publish: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("host: publish: %w", err)
	}

	return nil
}
