package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".dalgoctl"

// DataDirEnv overrides the data directory, mostly for tests and CI.
const DataDirEnv = "DALGOCTL_HOME"

// DataDir returns the base data directory for the console.
func DataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to the core TOML config file.
func CoreConfigPath() (string, error) {
	return dataFile("config.toml")
}

// UIConfigPath returns the path to the terminal UI TOML config file.
func UIConfigPath() (string, error) {
	return dataFile("ui.toml")
}

// TokenPath returns the path to the session token file.
func TokenPath() (string, error) {
	return dataFile("token")
}

// StatePath returns the path to the persisted console state file.
func StatePath() (string, error) {
	return dataFile("state.json")
}

// StateDBPath returns the path to the bbolt console state database.
func StateDBPath() (string, error) {
	return dataFile("state.db")
}

// UILogPath returns the path the terminal UI logs to.
func UILogPath() (string, error) {
	return dataFile("ui.log")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
