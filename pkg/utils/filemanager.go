// =============================================================================
// Fish Reports - File Manager Utility
// =============================================================================
//
// File and directory plumbing shared by the workflow:
//   - directory validation and creation
//   - clearing the output directory before a run
//   - output file naming (template-derived, suffixed per address)
//   - the plain-text run summary written next to the reports
//
// The output directory is cleared file-by-file at the start of a run so
// stale reports from earlier runs never linger. The clear-then-write
// sequence is not transactional; a crash mid-run leaves a partial output
// directory and the fix is to re-run from the top.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileManager handles file operations for one workflow run.
type FileManager struct {
	// IntermediateDir receives the aggregated workbook.
	IntermediateDir string

	// ReportsDir is the template tree. Never written to.
	ReportsDir string

	// OutputDir receives the filled-in reports.
	OutputDir string
}

// NewFileManager creates a FileManager over the three run directories.
func NewFileManager(intermediateDir, reportsDir, outputDir string) *FileManager {
	return &FileManager{
		IntermediateDir: intermediateDir,
		ReportsDir:      reportsDir,
		OutputDir:       outputDir,
	}
}

// EnsureDirectories creates the writable directories if they don't exist.
// The reports directory is the user's data and is only checked, never
// created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.IntermediateDir, fm.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if !DirExists(fm.ReportsDir) {
		return fmt.Errorf("reports directory not found: %s", fm.ReportsDir)
	}
	return nil
}

// ClearOutputDir removes every file directly inside the output directory.
// Subdirectories are left alone.
func (fm *FileManager) ClearOutputDir() error {
	entries, err := os.ReadDir(fm.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(fm.OutputDir, 0o755)
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(fm.OutputDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale output %s: %w", path, err)
		}
	}
	return nil
}

// OutputPath derives the destination for a processed template. index
// distinguishes multiple outputs from the same template (one license,
// several addresses): 0 keeps the original name, later indexes get a
// " (N)" suffix before the extension.
func (fm *FileManager) OutputPath(templatePath string, index int) string {
	name := filepath.Base(templatePath)
	if index > 0 {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), index+1, ext)
	}
	return filepath.Join(fm.OutputDir, SafeFileName(name))
}

// WriteSummary writes the run summary lines to a text file in the output
// directory and returns its path.
func (fm *FileManager) WriteSummary(runID string, lines []string) (string, error) {
	path := filepath.Join(fm.OutputDir, fmt.Sprintf("summary_%s.log", runID))
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// SafeFileName replaces characters that are invalid in filenames on
// common filesystems.
func SafeFileName(name string) string {
	const invalid = `<>:"/\|?*`
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, name)
	return strings.Trim(mapped, " .")
}
