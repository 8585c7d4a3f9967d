package file

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const (
	// DefaultPermissionOctal is the default file and folder permission octal used throughout the bot
	DefaultPermissionOctal os.FileMode = 0o770
)

var errEmptyPath = errors.New("empty file path")

// Write writes selected data to a file or returns an error if it fails. This
// func also ensures that all files are set to this permission (only rw access
// for the running user and the group the user is a member of)
func Write(file string, data []byte) error {
	if file == "" {
		return errEmptyPath
	}
	basePath := filepath.Dir(file)
	if !Exists(basePath) {
		if err := os.MkdirAll(basePath, DefaultPermissionOctal); err != nil {
			return err
		}
	}
	return os.WriteFile(file, data, DefaultPermissionOctal)
}

// WriteJSON indents v and writes it to file
func WriteJSON(file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return Write(file, data)
}

// Exists returns whether or not a file or path exists
func Exists(name string) bool {
	_, err := os.Stat(name)
	return !errors.Is(err, os.ErrNotExist)
}
