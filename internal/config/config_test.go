package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, dir string, parts ...string) string {
	t.Helper()
	p := filepath.Join(append([]string{dir}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvBridgeDLL, EnvJABHome, EnvJavaHome, EnvJREHome} {
		t.Setenv(name, "")
	}
}

func TestExplicitPathWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	want := touch(t, dir, BridgeDLL)
	t.Setenv(EnvJABHome, t.TempDir())

	got, err := ResolveBridgeDLL(want)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %q, want explicit %q", got, want)
	}
}

func TestJavaHomeNestedJRE(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	want := touch(t, home, "jre", "bin", BridgeDLL)
	t.Setenv(EnvJavaHome, home)

	got, err := ResolveBridgeDLL("")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJavaHomeModernLayout(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	want := touch(t, home, "bin", BridgeDLL)
	t.Setenv(EnvJavaHome, home)

	got, err := ResolveBridgeDLL("")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJABHomePrecedesJavaHome(t *testing.T) {
	clearEnv(t)
	jabHome := t.TempDir()
	javaHome := t.TempDir()
	want := touch(t, jabHome, BridgeDLL)
	touch(t, javaHome, "bin", BridgeDLL)
	t.Setenv(EnvJABHome, jabHome)
	t.Setenv(EnvJavaHome, javaHome)

	got, err := ResolveBridgeDLL("")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %q, want JAB_HOME copy %q", got, want)
	}
}

func TestMissingListsTriedPaths(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv(EnvJavaHome, home)

	_, err := ResolveBridgeDLL("")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), filepath.Join(home, "jre", "bin", BridgeDLL)) {
		t.Errorf("error should list tried paths, got: %v", err)
	}
}

func TestMissingWithNoHintsNamesVariables(t *testing.T) {
	clearEnv(t)
	_, err := ResolveBridgeDLL("")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), EnvJavaHome) {
		t.Errorf("error should name the environment variables, got: %v", err)
	}
}

func TestDurationEnv(t *testing.T) {
	t.Setenv("JAB_TEST_TIMEOUT", "250ms")
	if got := DurationEnv("JAB_TEST_TIMEOUT", time.Second); got != 250*time.Millisecond {
		t.Errorf("got %v", got)
	}
	t.Setenv("JAB_TEST_TIMEOUT", "bogus")
	if got := DurationEnv("JAB_TEST_TIMEOUT", time.Second); got != time.Second {
		t.Errorf("malformed value should fall back, got %v", got)
	}
	if got := DurationEnv("JAB_TEST_UNSET", time.Minute); got != time.Minute {
		t.Errorf("unset value should fall back, got %v", got)
	}
}

func TestAccessibilityEnabled(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	if AccessibilityEnabled() {
		t.Error("no properties file should read as disabled")
	}

	props := filepath.Join(home, ".accessibility.properties")
	content := "# enabled by jabswitch\nassistive_technologies=com.sun.java.accessibility.AccessBridge\n"
	if err := os.WriteFile(props, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if !AccessibilityEnabled() {
		t.Error("AccessBridge entry should read as enabled")
	}

	if err := os.WriteFile(props, []byte("#assistive_technologies=com.sun.java.accessibility.AccessBridge\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if AccessibilityEnabled() {
		t.Error("commented-out entry should read as disabled")
	}
}
