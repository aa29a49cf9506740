package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigPathPriority(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	got, err := ConfigPath()
	if err != nil || got != "" {
		t.Fatalf("no config: got %q, %v", got, err)
	}

	global := filepath.Join(home, ".aiorchestrator", "config.yaml")
	if err := EnsureParentDir(global); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(global, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if got, _ := ConfigPath(); got != global {
		t.Errorf("global: got %q, want %q", got, global)
	}

	if err := os.WriteFile("aiorchestrator.yaml", []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ = ConfigPath()
	if filepath.Base(got) != "aiorchestrator.yaml" || !filepath.IsAbs(got) {
		t.Errorf("local should win: got %q", got)
	}
}

func TestExpandTilde(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/etc/x.yaml", "/etc/x.yaml"},
		{"~", "/home/tester"},
		{"~/cfg.yaml", "/home/tester/cfg.yaml"},
	}
	for _, tt := range tests {
		got, err := ExpandTilde(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
