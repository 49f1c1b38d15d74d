package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResumePreference controls what happens at startup when a previous
// session exists.
type ResumePreference string

const (
	// ResumeAlwaysAsk prompts the user on every startup.
	ResumeAlwaysAsk ResumePreference = "ask"
	// ResumeAlwaysContinue automatically resumes the last session.
	ResumeAlwaysContinue ResumePreference = "continue"
	// ResumeAlwaysNew always starts a fresh conversation.
	ResumeAlwaysNew ResumePreference = "new"
)

const (
	DefaultResumePreference = ResumeAlwaysAsk
	// Sessions older than this are not offered for resumption.
	MaxSessionAge = 24 * time.Hour
)

// LastSessionInfo describes the most recently active session.
type LastSessionInfo struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	LastActive   time.Time `json:"lastActive"`
	MessageCount int       `json:"messageCount"`
}

// Preferences stores user preferences for the client.
type Preferences struct {
	BackendURL       string           `json:"backendUrl,omitempty"`
	ResumePreference ResumePreference `json:"resumePreference"`
	LastSession      *LastSessionInfo `json:"lastSession,omitempty"`
}

func getConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "sage"), nil
}

func getPreferencesPath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "preferences.json"), nil
}

// LoadPreferences loads preferences from disk. A missing file yields the
// defaults.
func LoadPreferences() (*Preferences, error) {
	prefPath, err := getPreferencesPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(prefPath); os.IsNotExist(err) {
		return &Preferences{ResumePreference: DefaultResumePreference}, nil
	}

	data, err := os.ReadFile(prefPath)
	if err != nil {
		return nil, err
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	if prefs.ResumePreference == "" {
		prefs.ResumePreference = DefaultResumePreference
	}
	return &prefs, nil
}

// SavePreferences saves preferences to disk, creating the config
// directory if needed.
func SavePreferences(prefs *Preferences) error {
	configDir, err := getConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	prefPath := filepath.Join(configDir, "preferences.json")
	return os.WriteFile(prefPath, data, 0o644)
}

// UpdateLastSession records the given session as the most recent one.
func UpdateLastSession(info LastSessionInfo) error {
	prefs, err := LoadPreferences()
	if err != nil {
		prefs = &Preferences{ResumePreference: DefaultResumePreference}
	}
	prefs.LastSession = &info
	return SavePreferences(prefs)
}

// GetResumableSession returns the last session if it is recent enough to
// offer for resumption, or nil.
func GetResumableSession() (*LastSessionInfo, error) {
	prefs, err := LoadPreferences()
	if err != nil {
		return nil, err
	}
	if prefs.LastSession == nil {
		return nil, nil
	}
	if time.Since(prefs.LastSession.LastActive) > MaxSessionAge {
		return nil, nil
	}
	return prefs.LastSession, nil
}

// ClearLastSession clears the saved last session info.
func ClearLastSession() error {
	prefs, err := LoadPreferences()
	if err != nil {
		return err
	}
	prefs.LastSession = nil
	return SavePreferences(prefs)
}
