// Package config centralizes the engine's runtime configuration: render
// scale, the enhancement confidence threshold and pass limit, the
// signature-zone proximity limit, worker-pool sizes, directories, the OCR
// language, and the debug flag, all loaded from the environment with
// explicit defaults. The value tolerances are not configured here; they
// are constants in internal/verify/valuenorm.
//
// Grounded on bosocmputer-account_ocr_gemini/configs/config.go's
// godotenv.Load() + getEnv/getEnvBool/getEnvInt/getEnvFloat pattern,
// centralizing what the teacher instead reads ad hoc via os.Getenv calls
// scattered through internal/middleware.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every tunable the verification engine's components read.
type Config struct {
	RenderScale int
	OCRLanguage string

	// Enhancement loop.
	MaxEnhancementPasses  int
	EnhancementConfidence float64

	// Signature zone engine.
	SignatureProximityPx float64

	// Worker pool.
	MaxDocumentWorkers int
	MaxPageFanout      int
	PageSoftTimeoutSec int

	TempDir     string
	ExtractDir  string
	DebugOutput string
	Debug       bool
}

// Load reads a .env file if present (missing is not an error, matching the
// teacher's tolerant style) and populates a Config from the environment,
// falling back to defaults for anything unset.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		RenderScale:           getEnvInt("VERIFY_RENDER_SCALE", 3),
		OCRLanguage:           getEnv("VERIFY_OCR_LANGUAGE", "eng"),
		MaxEnhancementPasses:  getEnvInt("VERIFY_MAX_ENHANCEMENT_PASSES", 2),
		EnhancementConfidence: getEnvFloat("VERIFY_ENHANCEMENT_CONFIDENCE", 0.75),
		SignatureProximityPx:  getEnvFloat("VERIFY_SIGNATURE_PROXIMITY_PX", 200),
		MaxDocumentWorkers:    getEnvInt("VERIFY_MAX_DOCUMENT_WORKERS", 4),
		MaxPageFanout:         getEnvInt("VERIFY_MAX_PAGE_FANOUT", 4),
		PageSoftTimeoutSec:    getEnvInt("VERIFY_PAGE_TIMEOUT_SEC", 45),
		TempDir:               getEnv("VERIFY_TEMP_DIR", os.TempDir()),
		ExtractDir:            getEnv("VERIFY_EXTRACT_DIR", "_extract"),
		DebugOutput:           getEnv("VERIFY_DEBUG_OUTPUT", "debug_output"),
		Debug:                 getEnvBool("VERIFY_DEBUG", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
