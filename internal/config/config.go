// Package config resolves environment-driven settings, chiefly where the
// Access Bridge library lives.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BridgeDLL is the 64-bit Access Bridge library name shipped with the JDK.
const BridgeDLL = "WindowsAccessBridge-64.dll"

// Environment variables consulted, in order of precedence.
const (
	EnvBridgeDLL = "JAB_DLL"  // full path to the library
	EnvJABHome   = "JAB_HOME" // directory containing the library
	EnvJavaHome  = "JAVA_HOME"
	EnvJREHome   = "JRE_HOME"
)

// ResolveBridgeDLL returns the path of the Access Bridge library. An explicit
// path wins; otherwise the usual JDK/JRE locations are probed. The error
// lists every path tried, because a missing bridge library is the first
// thing every new setup trips over.
func ResolveBridgeDLL(explicit string) (string, error) {
	var tried []string
	for _, p := range candidatePaths(explicit) {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
		tried = append(tried, p)
	}
	if len(tried) == 0 {
		return "", fmt.Errorf("cannot locate %s: set %s, %s, %s or %s",
			BridgeDLL, EnvBridgeDLL, EnvJABHome, EnvJavaHome, EnvJREHome)
	}
	return "", fmt.Errorf("cannot locate %s, tried: %s", BridgeDLL, strings.Join(tried, ", "))
}

func candidatePaths(explicit string) []string {
	paths := []string{explicit, os.Getenv(EnvBridgeDLL)}
	if home := os.Getenv(EnvJABHome); home != "" {
		paths = append(paths, filepath.Join(home, BridgeDLL))
	}
	if home := os.Getenv(EnvJavaHome); home != "" {
		// JDKs up to 8 keep a nested jre; later ones have bin directly.
		paths = append(paths,
			filepath.Join(home, "jre", "bin", BridgeDLL),
			filepath.Join(home, "bin", BridgeDLL))
	}
	if home := os.Getenv(EnvJREHome); home != "" {
		paths = append(paths, filepath.Join(home, "bin", BridgeDLL))
	}
	return paths
}

// AccessibilityEnabled reports whether the Java Access Bridge is switched on
// for the current user. jabswitch /enable writes ~/.accessibility.properties
// naming the AccessBridge assistive technology; without it every JVM ignores
// the bridge and window enumeration comes back empty.
func AccessibilityEnabled() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	data, err := os.ReadFile(filepath.Join(home, ".accessibility.properties"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "assistive_technologies=") &&
			strings.Contains(line, "AccessBridge") {
			return true
		}
	}
	return false
}

// DurationEnv reads a duration from the environment, falling back when the
// variable is unset or malformed.
func DurationEnv(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
