package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var gitSHA string
var buildDate string

func GetDataDir() string {
	value, exists := os.LookupEnv("VIDEONOTES_DATA_DIR")
	if exists {
		return value
	}
	return "data"
}

// defaults to GetDataDir() / config
func GetConfigDir() string {
	value, exists := os.LookupEnv("VIDEONOTES_CONFIG_DIR")
	if exists {
		return value
	}
	return filepath.Join(GetDataDir(), "config")
}

// API key for the remote inference service. Required: there is no default.
func GetGeminiAPIKey() (string, error) {
	key := "VIDEONOTES_GEMINI_API_KEY"
	value, exists := os.LookupEnv(key)
	if exists {
		return value, nil
	}
	return "", fmt.Errorf("please set %s", key)
}

func GetGeminiBaseURL() string {
	value, exists := os.LookupEnv("VIDEONOTES_GEMINI_BASE_URL")
	if exists {
		return strings.TrimRight(value, "/")
	}
	return "https://generativelanguage.googleapis.com"
}

func GetModelID() string {
	value, exists := os.LookupEnv("VIDEONOTES_MODEL_ID")
	if exists {
		return value
	}
	return "gemini-2.0-flash"
}

// 0 means poll until the remote side resolves, however long that takes
func GetMaxPollAttempts() int {
	if value, exists := os.LookupEnv("VIDEONOTES_MAX_POLL_ATTEMPTS"); exists {
		n, err := strconv.Atoi(value)
		if err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

// how many days of analysis history PeriodicCleanup keeps
func GetRunRetentionDays() int {
	if value, exists := os.LookupEnv("VIDEONOTES_RUN_RETENTION_DAYS"); exists {
		n, err := strconv.Atoi(value)
		if err == nil && n > 0 {
			return n
		}
	}
	return 30
}

func GetSessionAuthKey() ([]byte, error) {
	key := "VIDEONOTES_SESSION_AUTH_KEY"
	value, exists := os.LookupEnv(key)
	if exists {
		return []byte(value), nil
	}
	return []byte{}, fmt.Errorf("please set %s", key)
}

func GetSecure() bool {
	key := "VIDEONOTES_SECURE"
	if value, exists := os.LookupEnv(key); exists {
		lower := strings.ToLower(value)
		if lower == "on" || lower == "1" || lower == "true" || lower == "yes" {
			return true
		}
	}
	return false
}

func GetGitSHA() string {
	if gitSHA == "" {
		return "<not provided>"
	} else {
		return gitSHA
	}
}

func GetBuildDate() string {
	if buildDate == "" {
		return "<not provided>"
	} else {
		return buildDate
	}
}
