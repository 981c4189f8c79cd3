package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
)

var labeledHeader = []string{"name", "child_present", "left_risk", "right_risk", "speed_kph", "mode", "action"}

// WriteCSV writes labeled rows to <dir>/<mode>_labeled.csv, replacing
// any previous file, and returns the path.
func WriteCSV(dir string, mode ethics.Mode, rows []Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("create dirs: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_labeled.csv", mode))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(labeledHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			string(r.Scenario.Kind),
			boolToIntField(r.Scenario.ChildPresent),
			strconv.FormatFloat(r.Scenario.LeftRisk, 'g', -1, 64),
			strconv.FormatFloat(r.Scenario.RightRisk, 'g', -1, 64),
			strconv.Itoa(r.Scenario.SpeedKph),
			string(r.Mode),
			string(r.Action),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}
	return path, nil
}

func boolToIntField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
