package flywheel

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snow-ghost/strategist/core"
)

// maxLineBytes bounds one scanned record. Winning paths carry whole file
// changes, so lines can be far larger than bufio's default token size.
const maxLineBytes = 16 << 20

// Scan reads every .jsonl file under dir back into records, for inspection
// and experience backfill. Corrupt lines are skipped and counted instead of
// failing the scan; a missing directory yields an empty result.
func Scan(dir string) ([]core.WinningPath, int, error) {
	var records []core.WinningPath
	skipped := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".jsonl") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open log %s: %w", path, err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var record core.WinningPath
			if err := json.Unmarshal(line, &record); err != nil {
				skipped++
				continue
			}
			records = append(records, record)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read log %s: %w", path, err)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, skipped, err
	}
	return records, skipped, nil
}
