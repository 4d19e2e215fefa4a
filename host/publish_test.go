package host

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPublishAndUnpublish(t *testing.T) {
	control := filepath.Join(t.TempDir(), "devices.txt")

	if err := PublishDevice(control, "Speakers", "uid-a"); err != nil {
		t.Fatalf("PublishDevice: %v", err)
	}

	if err := PublishDevice(control, "Headphones", "uid-b"); err != nil {
		t.Fatalf("PublishDevice: %v", err)
	}

	data, err := os.ReadFile(control)
	if err != nil {
		t.Fatal(err)
	}

	want := "Headphones|uid-b\nSpeakers|uid-a\n"
	if string(data) != want {
		t.Errorf("control file = %q, want %q", data, want)
	}

	// Renaming an existing UID replaces its line.
	if err := PublishDevice(control, "Studio Monitors", "uid-a"); err != nil {
		t.Fatal(err)
	}

	data, _ = os.ReadFile(control)
	if !strings.Contains(string(data), "Studio Monitors|uid-a") {
		t.Errorf("rename missing: %q", data)
	}

	if strings.Contains(string(data), "Speakers|uid-a") {
		t.Errorf("old name retained: %q", data)
	}

	if err := UnpublishDevice(control, "uid-a"); err != nil {
		t.Fatalf("UnpublishDevice: %v", err)
	}

	data, _ = os.ReadFile(control)
	if string(data) != "Headphones|uid-b\n" {
		t.Errorf("control file after unpublish = %q", data)
	}

	// Unpublishing an absent UID is a no-op.
	if err := UnpublishDevice(control, "uid-z"); err != nil {
		t.Fatalf("UnpublishDevice absent: %v", err)
	}
}

func TestUnpublishMissingFile(t *testing.T) {
	control := filepath.Join(t.TempDir(), "devices.txt")

	if err := UnpublishDevice(control, "uid-a"); err != nil {
		t.Fatalf("UnpublishDevice on missing file: %v", err)
	}

	if _, err := os.Stat(control); !os.IsNotExist(err) {
		t.Error("unpublish on missing file should not create it")
	}
}
