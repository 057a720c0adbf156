package main

import (
	"os"
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/snapkit-bridge:main_test"

func TestUsage_NonEmpty(t *testing.T) {
	if len(usage) == 0 {
		t.Fatalf("%s - usage string is empty", mainTestPrefix)
	}
}

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate up", "migrate status", "ensure-db", "clear", "PROVIDER", "DATABASE_URL"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestDBCommands_RequireDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if err := withPool(runClear); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("%s - withPool err = %v, want DATABASE_URL error", mainTestPrefix, err)
	}
	if err := runEnsureDB("snapkit_test"); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("%s - runEnsureDB err = %v, want DATABASE_URL error", mainTestPrefix, err)
	}
}
