package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_Defaults(t *testing.T) {
	pack := Load("")

	got := pack.Render("login_success", map[string]string{"Name": "Alice"})
	if !strings.Contains(got, "Hello Alice") {
		t.Errorf("unexpected login_success render: %q", got)
	}

	reminder := pack.Render("reminder", map[string]string{
		"Title":    "Buy milk",
		"Priority": "medium",
		"DueDate":  "-",
	})
	if !strings.Contains(reminder, "*Buy milk*") || !strings.Contains(reminder, "Due: -") {
		t.Errorf("unexpected reminder render: %q", reminder)
	}
}

func TestRender_AddSuccessConditionals(t *testing.T) {
	pack := Load("")

	bare := pack.Render("add_success", map[string]any{"Title": "Buy milk", "DueDate": "", "Interval": 0})
	if strings.Contains(bare, "Due:") || strings.Contains(bare, "Reminder:") {
		t.Errorf("title-only add should not echo date or interval: %q", bare)
	}

	full := pack.Render("add_success", map[string]any{"Title": "Buy milk", "DueDate": "2024-12-31", "Interval": 60})
	if !strings.Contains(full, "2024-12-31") || !strings.Contains(full, "every 60 minutes") {
		t.Errorf("add with fields should echo both: %q", full)
	}
}

func TestRender_MissingKey(t *testing.T) {
	pack := Load("")
	if got := pack.Render("no_such_key", nil); !strings.Contains(got, "missing template") {
		t.Errorf("expected visible placeholder, got %q", got)
	}
}

func TestLoad_YAMLOverridesAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(path, []byte("list_empty: \"Nothing to do!\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pack := Load(path)
	if got := pack.Render("list_empty", nil); got != "Nothing to do!" {
		t.Errorf("override not applied: %q", got)
	}
	// Untouched keys keep their defaults.
	if got := pack.Render("logout_success", nil); got != "You have been logged out." {
		t.Errorf("default lost: %q", got)
	}

	if err := os.WriteFile(path, []byte("list_empty: \"All clear.\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pack.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := pack.Render("list_empty", nil); got != "All clear." {
		t.Errorf("reload not applied: %q", got)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	pack := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if got := pack.Render("help", nil); !strings.Contains(got, "BuzzLab Bot Help") {
		t.Errorf("defaults should survive a missing pack: %q", got)
	}
}
