package validation

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"marketlens/internal/dataprocessing"
	apierrors "marketlens/internal/errors"
)

// FileValidator checks listings files before they are parsed: uploads by
// name and size, CLI inputs by path.
type FileValidator struct {
	logger            *slog.Logger
	maxBytes          int64
	allowedExtensions []string
}

// NewFileValidator creates a new file validator. maxBytes <= 0 disables
// the size check; an empty extension list allows any extension.
func NewFileValidator(logger *slog.Logger, maxBytes int64, allowedExtensions []string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, 0, len(allowedExtensions))
	for _, e := range allowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e != "" {
			exts = append(exts, e)
		}
	}
	return &FileValidator{
		logger:            logger,
		maxBytes:          maxBytes,
		allowedExtensions: exts,
	}
}

// MaxBytes returns the configured size limit.
func (v *FileValidator) MaxBytes() int64 { return v.maxBytes }

// ValidateUpload checks an uploaded file's name and declared size.
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	base := filepath.Base(name)
	if base == "" || base == "." || strings.HasPrefix(base, "~$") {
		v.logger.Warn("rejected upload name", slog.String("file", name))
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER",
			"Upload must carry a listings file name", map[string]interface{}{"file": name})
	}
	if err := v.checkExtension(base); err != nil {
		return err
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("upload exceeds limit",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return fmt.Errorf("%s is %d bytes, limit %d: %w", base, size, v.maxBytes, dataprocessing.ErrFileTooLarge)
	}
	return nil
}

func (v *FileValidator) checkExtension(name string) error {
	if len(v.allowedExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	v.logger.Warn("unsupported file type",
		slog.String("file", name),
		slog.String("extension", ext))
	return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER",
		fmt.Sprintf("Unsupported file type %q", ext),
		map[string]interface{}{"file": name, "allowed": v.allowedExtensions})
}

// ValidateFile checks that path is an existing, readable regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateListingsFile checks a listings file given on the command line:
// it must exist, carry an allowed extension, not be an editor lock file and
// fit the size limit.
func (v *FileValidator) ValidateListingsFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return v.ValidateUpload(path, info.Size())
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it is writable by creating a scratch file
	scratch, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	scratch.Close()
	os.Remove(scratch.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
