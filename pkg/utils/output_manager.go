package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputManager handles artifact file organization and naming.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager.
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// EnsureOutputDirExists ensures the base output directory exists.
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}

// TimestampSuffix formats the shared filename timestamp for one export
// invocation. Sibling artifacts are correlated by this suffix.
func TimestampSuffix(t time.Time) string {
	return t.Format("20060102_150405")
}

// ArtifactPath builds "{base}_{YYYYMMDD_HHMMSS}.{ext}" under the output dir.
// baseName is cleaned so a table name can never escape the directory.
func (om *OutputManager) ArtifactPath(baseName, ext string, generatedAt time.Time) string {
	clean := filepath.Base(baseName)
	name := fmt.Sprintf("%s_%s.%s", clean, TimestampSuffix(generatedAt), ext)
	return filepath.Join(om.BaseOutputDir, name)
}

// GetFileType determines the artifact type based on extension.
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".parquet":
		return "parquet"
	case ".avro":
		return "avro"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes.
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
