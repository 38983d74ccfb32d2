package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file. When set, the file must exist.
	EnvConfigPath = "HALCLIENT_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "halclient.yaml"
	// ConfigDirName is the per-user directory under $XDG_CONFIG_HOME or ~/.config.
	ConfigDirName = "halclient"
)

// Source tells where a config file came from.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceWorkDir  Source = "workdir"
	SourceUser     Source = "user"
	SourceDefaults Source = "defaults"
)

// Location is a config file together with the source that selected it. A
// zero Path means no file was found and defaults apply.
type Location struct {
	Path   string
	Source Source
}

func (l Location) String() string {
	if l.Path == "" {
		return string(SourceDefaults)
	}
	return fmt.Sprintf("%s (%s)", l.Path, l.Source)
}

// Found reports whether a config file backs this location.
func (l Location) Found() bool { return l.Path != "" }

// userDirs returns the per-user config directories in lookup order.
func userDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return dirs
}

// Locate picks the config file to load. $HALCLIENT_CONFIG wins and is an
// error when it points at nothing; otherwise the working directory and then
// the user config directories are searched, falling back to defaults.
func Locate() (Location, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Location{Source: SourceEnv}, fmt.Errorf("$%s: %w", EnvConfigPath, err)
		}
		return Location{Path: path, Source: SourceEnv}, nil
	}

	if ok, err := regular(ConfigFileName); err != nil {
		return Location{}, err
	} else if ok {
		abs, err := filepath.Abs(ConfigFileName)
		if err != nil {
			abs = ConfigFileName
		}
		return Location{Path: abs, Source: SourceWorkDir}, nil
	}

	for _, dir := range userDirs() {
		path := filepath.Join(dir, "config.yaml")
		ok, err := regular(path)
		if err != nil {
			return Location{}, err
		}
		if ok {
			return Location{Path: path, Source: SourceUser}, nil
		}
	}
	return Location{Source: SourceDefaults}, nil
}

// regular reports whether path names a regular file. A missing file is not an
// error; a directory in its place or an unreadable parent is.
func regular(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}
