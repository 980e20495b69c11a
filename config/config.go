package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/drummonds/splitpdf/engine"
	"github.com/drummonds/splitpdf/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// MaxWorkersLimit caps the worker pool however many CPUs are available
const MaxWorkersLimit = 20

// SplitConfig contains all of the splitter settings. CLI flags override these.
type SplitConfig struct {
	Engine          string
	MaxWorkers      int
	TargetWidth     int
	MaxHeight       int
	RotateLandscape bool
	Compression     string
	InstanceTimeout time.Duration
	Password        string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// DefaultWorkers is one worker per CPU up to MaxWorkersLimit
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxWorkersLimit)
}

// SetupSplitter loads configuration and returns SplitConfig and Logger
func SetupSplitter() (SplitConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("splitpdf.env")

	logger := setupLogging()
	Logger = logger

	cfg := Load()
	logger.Debug("Splitter configuration loaded",
		"engine", cfg.Engine,
		"maxWorkers", cfg.MaxWorkers,
		"targetWidth", cfg.TargetWidth,
		"maxHeight", cfg.MaxHeight,
		"rotateLandscape", cfg.RotateLandscape,
		"compression", cfg.Compression)

	return cfg, logger
}

// Load reads the splitter settings from the environment
func Load() SplitConfig {
	defaults := pdfrenderer.NewRenderConfig()
	return SplitConfig{
		Engine:          getEnv("SPLITPDF_ENGINE", pdfrenderer.EnginePDFium),
		MaxWorkers:      getEnvInt("SPLITPDF_MAX_WORKERS", DefaultWorkers()),
		TargetWidth:     getEnvInt("SPLITPDF_TARGET_WIDTH", defaults.TargetWidth),
		MaxHeight:       getEnvInt("SPLITPDF_MAX_HEIGHT", defaults.MaxHeight),
		RotateLandscape: getEnvBool("SPLITPDF_ROTATE_LANDSCAPE", false),
		Compression:     getEnv("SPLITPDF_COMPRESSION", "default"),
		InstanceTimeout: getEnvDuration("SPLITPDF_INSTANCE_TIMEOUT", 30*time.Second),
		Password:        os.Getenv("SPLITPDF_PASSWORD"),
	}
}

// Validate rejects settings the splitter cannot run with
func (c SplitConfig) Validate() error {
	if c.MaxWorkers < 1 || c.MaxWorkers > MaxWorkersLimit {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkersLimit, c.MaxWorkers)
	}
	switch c.Engine {
	case pdfrenderer.EnginePDFium, pdfrenderer.EngineFitz:
	default:
		return fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, pdfrenderer.EnginePDFium, pdfrenderer.EngineFitz)
	}
	if _, err := engine.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.InstanceTimeout < 0 {
		return fmt.Errorf("instance timeout must not be negative, got %s", c.InstanceTimeout)
	}
	return nil
}

// RenderConfig builds the shared render configuration
func (c SplitConfig) RenderConfig() pdfrenderer.RenderConfig {
	return pdfrenderer.NewRenderConfig(
		pdfrenderer.WithTargetWidth(c.TargetWidth),
		pdfrenderer.WithMaxHeight(c.MaxHeight),
		pdfrenderer.WithRotateIfLandscape(c.RotateLandscape),
	)
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	var logWriter io.Writer
	switch getEnv("LOG_OUTPUT", "stderr") {
	case "stdout":
		logWriter = os.Stdout
	case "file":
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "splitpdf.log")))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log file path: %v\n", err)
			logWriter = os.Stderr
			break
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			logWriter = os.Stderr
			break
		}
		logWriter = logFile
	default:
		logWriter = os.Stderr
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
