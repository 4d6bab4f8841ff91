// Package paths resolves jellyhook's per-user directories.
//
// When running with sudo, these functions resolve to the original user's
// directories (via SUDO_USER) instead of root's. JELLYHOOK_HOME overrides
// everything, which is how a media-server service account without a home
// directory points the hook at its config.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeEnv overrides the jellyhook directory when set.
const HomeEnv = "JELLYHOOK_HOME"

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		u, err := user.Lookup(sudoUser)
		if err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// JellyhookDir returns ~/.config/jellyhook for the actual user, or
// $JELLYHOOK_HOME when set.
func JellyhookDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "jellyhook"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := JellyhookDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ActivityDir returns the directory holding the daily activity journals.
func ActivityDir() (string, error) {
	dir, err := JellyhookDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "activity"), nil
}
