// Package socketdir resolves where compositor endpoints live on disk and
// how running servers advertise themselves to clients.
package socketdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DisplayEnv is the well-known environment variable through which a running
// server publishes its endpoint name to clients.
const DisplayEnv = "ASTER_DISPLAY"

// DefaultEndpoint is the endpoint name of the primary compositor instance.
const DefaultEndpoint = "compositor"

// Entry represents a parsed endpoint socket in the socket directory.
type Entry struct {
	Name string // "compositor", "compositor-nest-412"
	Path string // full path to the .sock file
}

// Format returns the socket filename for an endpoint name.
func Format(name string) string {
	return name + ".sock"
}

// Parse extracts the endpoint name from a socket filename.
// Returns false if the filename doesn't match the expected format.
func Parse(filename string) (Entry, bool) {
	if !strings.HasSuffix(filename, ".sock") {
		return Entry{}, false
	}
	name := strings.TrimSuffix(filename, ".sock")
	if name == "" {
		return Entry{}, false
	}
	return Entry{Name: name}, true
}

// NestedEndpoint returns the endpoint name for a nested instance run by the
// given process.
func NestedEndpoint(pid int) string {
	return DefaultEndpoint + "-nest-" + strconv.Itoa(pid)
}

// CurrentEndpoint returns the endpoint name published in the environment,
// or the default when unset.
func CurrentEndpoint() string {
	if name := os.Getenv(DisplayEnv); name != "" {
		return name
	}
	return DefaultEndpoint
}

var (
	socketDir     string
	socketDirOnce sync.Once
)

// Dir returns the socket directory. ASTER_SOCKET_DIR overrides; otherwise
// the per-user runtime directory when available, else a per-uid temp dir.
func Dir() string {
	socketDirOnce.Do(func() {
		socketDir = resolveDir()
	})
	return socketDir
}

// ResetDirCache resets the cached Dir result. For testing only.
func ResetDirCache() {
	socketDirOnce = sync.Once{}
	socketDir = ""
}

func resolveDir() string {
	if dir := os.Getenv("ASTER_SOCKET_DIR"); dir != "" {
		return dir
	}
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "aster")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("aster-%d", os.Getuid()))
}

// Path returns the full socket path for an endpoint name.
func Path(name string) string {
	return filepath.Join(Dir(), Format(name))
}

// List returns all parsed endpoint entries from the socket directory.
func List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, de := range dirEntries {
		entry, ok := Parse(de.Name())
		if !ok {
			continue
		}
		entry.Path = filepath.Join(Dir(), de.Name())
		entries = append(entries, entry)
	}
	return entries, nil
}
