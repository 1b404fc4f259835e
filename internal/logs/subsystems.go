package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags. One Logger is created per subsystem and wired into the
// package that owns it; callers fetch theirs via Get at init time.
const (
	TagXDAG  = "XDAG"  // cmd/xdagd top-level wiring
	TagDAG   = "DAG "  // dagconsensus
	TagSTOR  = "STOR"  // blockstore
	TagWIRE  = "WIRE"  // xdagwire
	TagQUEU  = "QUEU"  // msgqueue
	TagSYNC  = "SYNC"  // syncctl
	TagPEER  = "PEER"  // peersession
	TagADDR  = "ADDR"  // addressbook
)

var allTags = []string{TagXDAG, TagDAG, TagSTOR, TagWIRE, TagQUEU, TagSYNC, TagPEER, TagADDR}

var (
	backend    = NewBackend(os.Stdout)
	subsystems = func() map[string]*Logger {
		m := make(map[string]*Logger, len(allTags))
		for _, tag := range allTags {
			m[tag] = backend.Logger(tag)
		}
		return m
	}()

	logRotator *rotator.Rotator
)

// Get returns the Logger registered for tag, creating a disabled
// placeholder if the tag is unrecognized.
func Get(tag string) *Logger {
	if l, ok := subsystems[tag]; ok {
		return l
	}
	return Disabled
}

// InitLogRotator wires a rotating file into the shared backend in
// addition to stdout. It must be called once, early, before any
// subsystem logger is used for anything that must survive a restart.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	logRotator = r
	backend.writers = append(backend.writers, r)
	return nil
}

// SetLogLevel sets the level of a single subsystem. Unknown tags are
// silently ignored, matching the teacher's forgiving CLI parsing.
func SetLogLevel(tag, level string) {
	logger, ok := subsystems[tag]
	if !ok {
		return
	}
	lvl, _ := LevelFromString(level)
	logger.SetLevel(lvl)
}

// SetLogLevels sets every subsystem to the same level.
func SetLogLevels(level string) {
	for tag := range subsystems {
		SetLogLevel(tag, level)
	}
}

// SupportedSubsystems returns the sorted list of subsystem tags, for
// --debuglevel usage text.
func SupportedSubsystems() []string {
	tags := make([]string, 0, len(subsystems))
	for tag := range subsystems {
		tags = append(tags, strings.TrimSpace(tag))
	}
	sort.Strings(tags)
	return tags
}

// ParseAndSetDebugLevels parses a debug-level specifier of the form
// "trace" (applies to all subsystems) or "DAG=debug,WIRE=trace"
// (per-subsystem), the same grammar the teacher's CLI accepts.
func ParseAndSetDebugLevels(spec string) error {
	if !strings.Contains(spec, ",") && !strings.Contains(spec, "=") {
		if _, ok := LevelFromString(spec); !ok {
			return fmt.Errorf("invalid debug level %q", spec)
		}
		SetLogLevels(spec)
		return nil
	}

	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid subsystem/level pair %q", pair)
		}
		tag, level := strings.TrimSpace(parts[0]), parts[1]
		key, found := "", false
		for k := range subsystems {
			if strings.TrimSpace(k) == tag {
				key, found = k, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown subsystem %q, supported: %s", tag, strings.Join(SupportedSubsystems(), ", "))
		}
		if _, ok := LevelFromString(level); !ok {
			return fmt.Errorf("invalid debug level %q", level)
		}
		SetLogLevel(key, level)
	}
	return nil
}
