package download

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/h2non/filetype"

	"github.com/zen-downloader/zen/internal/utils"
)

// IncompleteSuffix marks an artifact still being written.
const IncompleteSuffix = ".part"

// sniffLen is how many leading bytes filetype needs to match every kind it knows.
const sniffLen = 262

// Saver persists a retrieved artifact on the local machine.
type Saver interface {
	Save(name string, r io.Reader) (path string, size int64, err error)
}

// FileSaver writes artifacts into Dir. Files are written under an
// incomplete name and renamed once fully flushed, and an existing file is
// never overwritten.
type FileSaver struct {
	Dir string
}

// Save writes r to Dir under a sanitized form of name. When name has no
// extension one is guessed from the content.
func (s *FileSaver) Save(name string, r io.Reader) (string, int64, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create download dir: %w", err)
	}

	name = utils.PickFilename(name)

	br := bufio.NewReaderSize(r, sniffLen*2)
	if filepath.Ext(name) == "" {
		head, _ := br.Peek(sniffLen)
		if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
			name += "." + kind.Extension
		}
	}

	path := uniqueFilePath(filepath.Join(dir, name))
	tmpPath := path + IncompleteSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", tmpPath, err)
	}

	n, err := io.Copy(f, br)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", n, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", n, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", n, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", n, fmt.Errorf("rename %s: %w", name, err)
	}
	return path, n, nil
}

var numberedName = regexp.MustCompile(`^(.*)\((\d+)\)$`)

func pathTaken(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	if _, err := os.Stat(path + IncompleteSuffix); err == nil {
		return true
	}
	return false
}

// uniqueFilePath returns path, or the first free "name(N).ext" variant when
// path or its incomplete file already exists.
func uniqueFilePath(path string) string {
	if !pathTaken(path) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	next := 1
	if m := numberedName.FindStringSubmatch(base); m != nil {
		base = m[1]
		n, _ := strconv.Atoi(m[2])
		next = n + 1
	}

	for i := next; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, i, ext))
		if !pathTaken(candidate) {
			return candidate
		}
	}
}
