// Package export writes the portal's CSV reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// writeCSV writes header and rows with CRLF line endings, the format the
// reporting tools that pick these files up expect.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates outPath (and its directory) and fills it with write.
func WriteFile(outPath string, write func(io.Writer) error) error {
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", outPath, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: write %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", outPath, err)
	}
	return nil
}

// oneLine keeps a cell on a single line.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
