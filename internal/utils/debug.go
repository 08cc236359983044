package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	debugMu   sync.Mutex
	debugDir  string
	debugFile *os.File
	debugOnce sync.Once
)

// ConfigureDebug sets the directory debug logs are written to. It must be
// called before the first Debug call to take effect.
func ConfigureDebug(dir string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugDir = dir
}

// Debug writes a message to a timestamped log file. Nothing is written until
// ConfigureDebug has been called.
func Debug(format string, args ...any) {
	debugMu.Lock()
	dir := debugDir
	debugMu.Unlock()
	if dir == "" {
		return
	}

	// add timestamp to each debug message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	debugOnce.Do(func() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
		name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
		debugFile, _ = os.Create(filepath.Join(dir, name))
	})

	debugMu.Lock()
	defer debugMu.Unlock()
	if debugFile != nil {
		_, _ = fmt.Fprintf(debugFile, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
		_ = debugFile.Sync() // Flush immediately
	}
}

// DebugWriter returns the open debug log file, or nil if none was created.
func DebugWriter() *os.File {
	debugMu.Lock()
	defer debugMu.Unlock()
	return debugFile
}

// CleanupLogs removes all but the newest keep debug logs in dir.
func CleanupLogs(dir string, keep int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var logs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "debug-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		logs = append(logs, name)
	}
	if keep < 0 {
		keep = 0
	}
	if len(logs) <= keep {
		return 0, nil
	}

	// Names embed the timestamp, so lexical order is chronological
	sort.Strings(logs)
	removed := 0
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
