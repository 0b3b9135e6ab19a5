package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWakeCommand_WritesWakeFile(t *testing.T) {
	dir := setupDataDir(t)

	if err := wakeCmd.RunE(wakeCmd, nil); err != nil {
		t.Fatalf("wake RunE error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "wake"))
	if err != nil {
		t.Fatalf("wake file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("wake file is empty")
	}
}
