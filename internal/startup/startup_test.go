package startup

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SET_VAR", "custom")
	if got := getEnv("TEST_SET_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want custom", got)
	}
	if got := getEnv("TEST_UNSET_VAR_MEDIA_FILTER", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"zero", "0", true, false},
		{"upper", "TRUE", false, true},
		{"invalid uses default", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 7},
		{"42", 42},
		{" 12 ", 12},
		{"abc", 7},
	}

	for _, tt := range tests {
		t.Setenv("TEST_INT", tt.value)
		if got := getEnvInt("TEST_INT", 7); got != tt.want {
			t.Errorf("getEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"0", 0},
		{"-5m", time.Minute},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"unset", "", nil},
		{"single", "https://app.example", []string{"https://app.example"}},
		{"trims and skips blanks", " https://a.example , ,http://b.example:8080 ", []string{"https://a.example", "http://b.example:8080"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_LIST", tt.value)
			if got := getEnvList("TEST_LIST"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getEnvList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func setDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("UPLOAD_DIR", filepath.Join(root, "uploads"))
	t.Setenv("OUTPUT_DIR", filepath.Join(root, "processed"))
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))
	t.Setenv("ENV_FILE", filepath.Join(root, "missing.env"))
	return root
}

func TestLoadConfigDefaults(t *testing.T) {
	root := setDirs(t)
	for _, key := range []string{"FILTER_PROFILE", "MAX_UPLOAD_MB", "SESSION_TTL", "PREVIEW_MAX_WIDTH", "PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Profile.Name != "extended" {
		t.Errorf("Profile = %q, want extended", cfg.Profile.Name)
	}
	if cfg.MaxUploadBytes != DefaultMaxUploadMB<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != DefaultSessionTTL {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DatabasePath != filepath.Join(root, "db", "media-filter.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if !cfg.ProcessingEnabled {
		t.Error("ProcessingEnabled = false for writable output dir")
	}
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir, cfg.DatabaseDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", dir)
		}
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	setDirs(t)
	t.Setenv("FILTER_PROFILE", "simple")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("PREVIEW_MAX_WIDTH", "-1")
	t.Setenv("ALLOWED_ORIGINS", "https://studio.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Profile.Name != "simple" {
		t.Errorf("Profile = %q, want simple", cfg.Profile.Name)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.PreviewMaxWidth != DefaultPreviewMaxWidth {
		t.Errorf("PreviewMaxWidth = %d, want default", cfg.PreviewMaxWidth)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://studio.example"}) {
		t.Errorf("AllowedOrigins = %q", cfg.AllowedOrigins)
	}
}

func TestLoadConfigInvalidProfile(t *testing.T) {
	setDirs(t)
	t.Setenv("FILTER_PROFILE", "cinematic")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() accepted unknown profile")
	}
}

func TestLoadConfigUploadDirIsFile(t *testing.T) {
	root := setDirs(t)
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UPLOAD_DIR", file)

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() accepted a file as upload directory")
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	root := setDirs(t)
	envFile := filepath.Join(root, "test.env")
	if err := os.WriteFile(envFile, []byte("MEDIA_FILTER_DOTENV_TEST=from-file\nPORT=9999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("PORT", "7000")
	t.Cleanup(func() { _ = os.Unsetenv("MEDIA_FILTER_DOTENV_TEST") })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got := os.Getenv("MEDIA_FILTER_DOTENV_TEST"); got != "from-file" {
		t.Errorf("dotenv value = %q", got)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, environment should win over .env", cfg.Port)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/api/sessions/{id}", "api/sessions"},
		{"/api/process", "api/process"},
		{"/health", "health"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/process", nil).Methods("POST").Name("process")
	r.HandleFunc("/health", nil)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(routes))
	}
	if routes[0].Method != "POST" || routes[0].Name != "process" {
		t.Errorf("routes[0] = %+v", routes[0])
	}
	if routes[1].Method != "*" {
		t.Errorf("routes[1].Method = %q, want *", routes[1].Method)
	}
}

func TestCheckFFmpegMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if err := checkFFmpeg(); err == nil {
		t.Error("checkFFmpeg() succeeded with empty PATH")
	}
}

func TestLoggingHelpers(_ *testing.T) {
	LogDatabaseInit(time.Millisecond)
	LogTranscoderInit(false)
	LogShutdownInitiated("SIGTERM")
	LogShutdownStep("Closing database")
	LogShutdownStepComplete("Database closed")
	LogShutdownComplete()
	LogServerStarted(ServerConfig{Port: "8080", MetricsPort: "9090", MetricsEnabled: true})
}
