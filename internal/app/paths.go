package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .scoreweb/ workspace directory.
type Paths struct {
	Root   string // .scoreweb/
	DB     string // .scoreweb/scoreweb.db
	Config string // .scoreweb/config.toml

	LogDir  string // .scoreweb/log/
	LogFile string // .scoreweb/log/scoreweb.log
}

// NewPaths constructs all resolved paths from a workspace directory.
func NewPaths(workspace string) *Paths {
	root := filepath.Join(workspace, ".scoreweb")
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "scoreweb.db"),
		Config: filepath.Join(root, "config.toml"),

		LogDir:  filepath.Join(root, "log"),
		LogFile: filepath.Join(root, "log", "scoreweb.log"),
	}
}

// EnsureDirs creates all subdirectories under .scoreweb/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
