package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	ConfigPathEnvVar  = "CLIPBOARD_OCR"

	EngineTesseract  = "tesseract"
	EngineOpenRouter = "openrouter"

	DefaultLanguage    = "eng+spa"
	DefaultCopyResetMS = 2000
)

// DefaultLanguages are offered by the language selector when OCR_LANGUAGES is unset.
var DefaultLanguages = []string{"eng+spa", "eng", "spa"}

type LoadOptions struct {
	APIKeyPathOverride string
	EngineOverride     string
	LanguageOverride   string
}

type Config struct {
	Engine            string
	Language          string
	Languages         []string
	APIKey            string
	APIKeyPath        string
	Model             string
	Providers         []string
	EnableFileLogging bool
	Hotkey            string
	CopyResetMS       int
	OCRDeadlineSec    int
	Workers           int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) otherwise the file named by CLIPBOARD_OCR
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)
	language := strings.TrimSpace(getEnvWithDefault("OCR_LANGUAGE", DefaultLanguage))
	if override := strings.TrimSpace(opts.LanguageOverride); override != "" {
		language = override
	}

	cfg := &Config{
		Engine:            resolveEngine(opts),
		Language:          language,
		Languages:         resolveLanguages(language),
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		Model:             os.Getenv("MODEL"),
		Providers:         splitList(os.Getenv("PROVIDERS")),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkey:            strings.TrimSpace(os.Getenv("HOTKEY")),
		CopyResetMS:       positiveInt("COPY_RESET_MS", DefaultCopyResetMS),
		OCRDeadlineSec:    positiveInt("OCR_DEADLINE_SEC", 0),
		Workers:           positiveInt("OCR_WORKERS", 1),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveEngine(opts LoadOptions) string {
	value := os.Getenv("OCR_ENGINE")
	if override := strings.TrimSpace(opts.EngineOverride); override != "" {
		value = override
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineOpenRouter, "llm":
		return EngineOpenRouter
	default:
		return EngineTesseract
	}
}

// resolveLanguages returns the selector choices with the active language first.
func resolveLanguages(active string) []string {
	choices := splitList(os.Getenv("OCR_LANGUAGES"))
	if len(choices) == 0 {
		choices = append([]string(nil), DefaultLanguages...)
	}
	out := []string{active}
	for _, c := range choices {
		if c != active {
			out = append(out, c)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func positiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
