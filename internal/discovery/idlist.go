package discovery

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/birddeck/internal/conf"
	"github.com/tphakala/birddeck/internal/errors"
)

// ErrIDListMissing is returned by ReadIDList when the identifier list does not exist
var ErrIDListMissing = errors.NewStd("identifier list not found")

// WriteIDList replaces the list at path with ids, one decimal per line in ascending order
func WriteIDList(path string, ids []int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	var buf bytes.Buffer
	for _, id := range sorted {
		buf.WriteString(strconv.FormatInt(id, 10))
		buf.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir, 0)
		}
	}
	return conf.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadIDList parses the list at path. Lines that are not a non-negative decimal are ignored and
// duplicates are dropped, keeping file order. A missing file yields ErrIDListMissing in the
// precondition category.
func ReadIDList(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(ErrIDListMissing).
				Component("discovery").
				Category(errors.CategoryPrecondition).
				Context("file_path", path).
				Context("hint", "run the discover stage first").
				Build()
		}
		return nil, errors.FileError(err, path, 0)
	}
	defer f.Close()

	var ids []int64
	seen := make(map[int64]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !isDigits(line) {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("discovery").
			Category(errors.CategoryFileParsing).
			Context("file_path", path).
			Build()
	}
	return ids, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
