package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds resolved, absolute application directories.
type Paths struct {
	ExecutableDir string
	ExportDir     string
	LogsDir       string
}

// executableDir returns the directory holding the running binary with
// symlinks resolved.
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// GetPaths resolves the configured directories. Relative entries are taken
// relative to the executable directory, never the working directory.
func (c *Config) GetPaths() *Paths {
	base := c.Paths.ExecutableDir
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	return &Paths{
		ExecutableDir: base,
		ExportDir:     resolve(c.Paths.ExportDir),
		LogsDir:       resolve(c.Paths.LogsDir),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// ExportPath returns the path for an export file
func (p *Paths) ExportPath(filename string) string {
	return filepath.Join(p.ExportDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("exports", p.ExportDir),
			slog.String("logs", p.LogsDir),
		))
}
