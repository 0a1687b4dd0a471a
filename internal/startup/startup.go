package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-filter/internal/filter"
	"media-filter/internal/logging"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	UploadDir       string
	OutputDir       string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	Profile         filter.Profile
	MaxUploadBytes  int64
	SessionTTL      time.Duration
	PreviewMaxWidth int
	// AllowedOrigins are extra origins permitted to open the event socket.
	AllowedOrigins []string

	// Derived paths
	DatabasePath string

	// ProcessingEnabled is false when the output directory is not writable.
	ProcessingEnabled bool
}

// Defaults for values that are parsed rather than used verbatim.
const (
	DefaultMaxUploadMB     = 512
	DefaultSessionTTL      = 30 * time.Minute
	DefaultPreviewMaxWidth = 1280
)

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory (or ENV_FILE) is read first; variables
// already set in the environment take precedence over it.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	loadDotEnv(getEnv("ENV_FILE", ".env"))

	uploadDir := getEnv("UPLOAD_DIR", "/data/uploads")
	outputDir := getEnv("OUTPUT_DIR", "/data/processed")
	databaseDir := getEnv("DATABASE_DIR", "/data/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	profileName := getEnv("FILTER_PROFILE", filter.ProfileExtended.Name)
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)
	sessionTTL := getEnvDuration("SESSION_TTL", DefaultSessionTTL)
	previewMaxWidth := getEnvInt("PREVIEW_MAX_WIDTH", DefaultPreviewMaxWidth)
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	allowedOrigins := getEnvList("ALLOWED_ORIGINS")

	logging.Info("  UPLOAD_DIR:          %s", uploadDir)
	logging.Info("  OUTPUT_DIR:          %s", outputDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  FILTER_PROFILE:      %s", profileName)
	logging.Info("  MAX_UPLOAD_MB:       %d", maxUploadMB)
	logging.Info("  SESSION_TTL:         %s", sessionTTL)
	logging.Info("  PREVIEW_MAX_WIDTH:   %d", previewMaxWidth)
	logging.Info("  LOG_STATIC_FILES:    %v", logStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  ALLOWED_ORIGINS:     %s", orSameOrigin(allowedOrigins))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	profile, err := filter.ProfileByName(profileName)
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_PROFILE: %w", err)
	}
	if maxUploadMB <= 0 {
		logging.Warn("  Invalid MAX_UPLOAD_MB, using default: %d", DefaultMaxUploadMB)
		maxUploadMB = DefaultMaxUploadMB
	}
	if previewMaxWidth <= 0 {
		logging.Warn("  Invalid PREVIEW_MAX_WIDTH, using default: %d", DefaultPreviewMaxWidth)
		previewMaxWidth = DefaultPreviewMaxWidth
	}

	section("DIRECTORY SETUP")

	if uploadDir, err = filepath.Abs(uploadDir); err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory path: %w", err)
	}
	logging.Info("  Upload directory (absolute): %s", uploadDir)

	if outputDir, err = filepath.Abs(outputDir); err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	logging.Info("  Output directory (absolute): %s", outputDir)

	if databaseDir, err = filepath.Abs(databaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	config := &Config{
		UploadDir:       uploadDir,
		OutputDir:       outputDir,
		DatabaseDir:     databaseDir,
		Port:            port,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		LogStaticFiles:  logStaticFiles,
		LogHealthChecks: logHealthChecks,
		Profile:         profile,
		MaxUploadBytes:  int64(maxUploadMB) << 20,
		SessionTTL:      sessionTTL,
		PreviewMaxWidth: previewMaxWidth,
		AllowedOrigins:  allowedOrigins,
		DatabasePath:    filepath.Join(databaseDir, "media-filter.db"),
	}

	// Uploads and the database are required.
	for _, dir := range []struct{ path, name string }{
		{databaseDir, "database"},
		{uploadDir, "upload"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		logging.Debug("  Testing %s directory write access...", dir.name)
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	config.ProcessingEnabled = setupOptionalDir(outputDir, "output")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Uploads:     ENABLED (required)")
	logging.Info("    Processing:  %s", enabledString(config.ProcessingEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func loadDotEnv(path string) {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		logging.Info("  Loaded environment from %s", path)
	case errors.Is(err, fs.ErrNotExist):
		logging.Debug("  No %s file found", path)
	default:
		logging.Warn("  Failed to load %s: %v", path, err)
	}
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

// section starts a titled block of the startup log.
func section(title string, args ...interface{}) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info(title, args...)
	logging.Info("------------------------------------------------------------")
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogTranscoderInit logs transcoder initialization and checks FFmpeg
func LogTranscoderInit(enabled bool) {
	section("TRANSCODER INITIALIZATION")

	if !enabled {
		logging.Warn("  Processing disabled (output directory not writable)")
		logging.Warn("  Uploads will be rejected with a processing failure")
		return
	}

	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video processing and video previews will fail")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// LogSessionInit logs the editing session settings.
func LogSessionInit(profile filter.Profile, ttl time.Duration) {
	section("SESSIONS")
	logging.Info("  Filter profile:  %s (brightness %.0f-%.0f, contrast %.0f-%.0f, sharpness %.0f-%.0f)",
		profile.Name,
		profile.Brightness.Min, profile.Brightness.Max,
		profile.Contrast.Min, profile.Contrast.Max,
		profile.Sharpness.Min, profile.Sharpness.Max)
	if ttl > 0 {
		logging.Info("  Idle expiry:     %v", ttl)
	} else {
		logging.Info("  Idle expiry:     DISABLED")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Prefix-only routes have no template
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes summarises the router. With debug logging every route is
// listed under its group (api/sessions, uploads, ...).
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		g := getRouteGroup(route.Path)
		groups[g] = append(groups[g], route)
	}
	logging.Info("  %d routes in %d groups", len(routes), len(groups))

	if logging.IsDebugEnabled() {
		names := make([]string, 0, len(groups))
		for g := range groups {
			names = append(names, g)
		}
		sort.Strings(names)
		for _, g := range names {
			label := g
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, route := range groups[g] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  Static file logging:  %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("  Health check logging: %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func onOff(on bool, env string) string {
	if on {
		return "ON"
	}
	return "OFF (set " + env + "=true to enable)"
}

// getRouteGroup names the group of a route: the first path segment, or
// api/<resource> under /api.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		resource, _, _ := strings.Cut(rest, "/")
		return "api/" + resource
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	logging.Info("    Push channel:  ws://0.0.0.0:%s/ws", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         _______ ____
   /  |/  /__  ____/ (_)___ _  / ____(_) / /____  _____
  / /|_/ / _ \/ __  / / __ '/ / /_  / / / __/ _ \/ ___/
 / /  / /  __/ /_/ / / /_/ / / __/ / / / /_/  __/ /
/_/  /_/\___/\__,_/_/\__,_/ /_/   /_/_/\__/\___/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		path, err := exec.LookPath(tool)
		if err != nil {
			return fmt.Errorf("%s not found in PATH", tool)
		}
		logging.Debug("  %s path: %s", tool, path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(line))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orSameOrigin(origins []string) string {
	if len(origins) == 0 {
		return "(same origin only)"
	}
	return strings.Join(origins, ", ")
}
