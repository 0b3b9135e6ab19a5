package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/blackwell-systems/apptracker/internal/store"
)

func TestRunReset(t *testing.T) {
	setupDataDir(t)
	seedStore(t, "com.a", "com.b")

	var err error
	out := captureStdout(t, func() { err = runReset(resetCmd, []string{"com.a"}) })
	if err != nil {
		t.Fatalf("runReset() error = %v", err)
	}
	if !strings.Contains(out, "com.a") {
		t.Errorf("expected confirmation, got %q", out)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	if _, err := st.GetApp("com.a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetApp(com.a) error = %v, want ErrNotFound", err)
	}
	if _, err := st.GetApp("com.b"); err != nil {
		t.Errorf("GetApp(com.b) error = %v", err)
	}
}

func TestRunReset_Unknown(t *testing.T) {
	setupDataDir(t)

	if err := runReset(resetCmd, []string{"com.missing"}); err == nil {
		t.Error("expected error for unknown package")
	}
}

func TestResetCommand_Args(t *testing.T) {
	if err := resetCmd.Args(resetCmd, nil); err == nil {
		t.Error("expected error with no package argument")
	}
	if err := resetCmd.Args(resetCmd, []string{"com.a"}); err != nil {
		t.Errorf("unexpected error for one argument: %v", err)
	}
}
