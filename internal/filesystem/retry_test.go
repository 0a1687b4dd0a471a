package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastRetries(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 50*time.Millisecond || cfg.MaxBackoff != 500*time.Millisecond {
		t.Errorf("backoff = %v..%v, want 50ms..500ms", cfg.InitialBackoff, cfg.MaxBackoff)
	}
	if cfg.Resolver != nil {
		t.Error("Resolver should be nil by default")
	}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT", syscall.ENOENT, false},
		{"not exist", os.ErrNotExist, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.err); got != tt.want {
				t.Errorf("IsStale(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"uploads":   "/data/uploads",
		"processed": "/data/uploads/processed",
		"database":  "/data/database/",
		"skipped":   "",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/data/uploads/a.png", "uploads"},
		{"/data/uploads", "uploads"},
		{"/data/uploads/processed/out.mp4", "processed"},
		{"/data/database/media-filter.db", "database"},
		{"/data/uploads-old/a.png", "unknown"},
		{"/tmp/a.png", "unknown"},
	}
	for _, tt := range tests {
		if got := vr.Resolve(tt.path); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	var nilResolver *VolumeResolver
	if got := nilResolver.Resolve("/data/uploads/a.png"); got != "unknown" {
		t.Errorf("nil resolver = %q, want unknown", got)
	}
}

func TestRetryRecoversFromStaleHandle(t *testing.T) {
	calls := 0
	got, err := retry("open", "/data/x", fastRetries(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &os.PathError{Op: "open", Path: "/data/x", Err: syscall.ESTALE}
		}
		return "ok", nil
	})

	if err != nil || got != "ok" {
		t.Fatalf("retry() = %q, %v; want ok", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	_, err := retry("stat", "/data/x", fastRetries(2), func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("err = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 1 + 2 retries", calls)
	}
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := fmt.Errorf("permission: %w", syscall.EACCES)
	_, err := retry("open", "/data/x", fastRetries(3), func() (int, error) {
		calls++
		return 0, boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStatAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := fastRetries(1)
	cfg.Resolver = NewVolumeResolver(map[string]string{"uploads": dir})

	info, err := Stat(path, cfg)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 7 {
		t.Errorf("Size = %d, want 7", info.Size())
	}

	f, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "content" {
		t.Errorf("read %q, want content", data)
	}

	if _, err := Stat(filepath.Join(dir, "missing"), cfg); !os.IsNotExist(err) {
		t.Errorf("Stat(missing) error = %v, want not exist", err)
	}
	if _, err := Open(filepath.Join(dir, "missing"), cfg); !os.IsNotExist(err) {
		t.Errorf("Open(missing) error = %v, want not exist", err)
	}
}
