package socketdir

import (
	"path/filepath"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"compositor", "compositor.sock"},
		{"compositor-nest-412", "compositor-nest-412.sock"},
	}
	for _, tt := range tests {
		got := Format(tt.name)
		if got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		filename string
		wantName string
		wantOK   bool
	}{
		{"compositor.sock", "compositor", true},
		{"compositor-nest-99.sock", "compositor-nest-99", true},
		{"notasocket.txt", "", false},
		{".sock", "", false},
	}
	for _, tt := range tests {
		entry, ok := Parse(tt.filename)
		if ok != tt.wantOK {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			continue
		}
		if ok && entry.Name != tt.wantName {
			t.Errorf("Parse(%q) name = %q, want %q", tt.filename, entry.Name, tt.wantName)
		}
	}
}

func TestNestedEndpoint(t *testing.T) {
	if got := NestedEndpoint(412); got != "compositor-nest-412" {
		t.Errorf("NestedEndpoint(412) = %q", got)
	}
}

func TestCurrentEndpoint(t *testing.T) {
	t.Setenv(DisplayEnv, "")
	if got := CurrentEndpoint(); got != DefaultEndpoint {
		t.Errorf("CurrentEndpoint() = %q, want %q", got, DefaultEndpoint)
	}
	t.Setenv(DisplayEnv, "compositor-nest-7")
	if got := CurrentEndpoint(); got != "compositor-nest-7" {
		t.Errorf("CurrentEndpoint() = %q, want compositor-nest-7", got)
	}
}

func TestDirOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ASTER_SOCKET_DIR", tmp)
	ResetDirCache()
	defer ResetDirCache()

	if got := Dir(); got != tmp {
		t.Errorf("Dir() = %q, want %q", got, tmp)
	}
	want := filepath.Join(tmp, "compositor.sock")
	if got := Path("compositor"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
