// Package source turns command line paths into documents for the scan
// engine: plain PDF files, directory trees, and PDF attachments inside mail
// containers.
package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/h2non/filetype"

	"pdf-quickcheck/config"
)

// sniffLen covers every magic number filetype knows about.
const sniffLen = 262

// FileWalker handles file discovery with type filtering
type FileWalker struct {
	includeMail bool
}

// NewFileWalker creates a walker; includeMail adds eml, mbox and msg files.
func NewFileWalker(includeMail bool) *FileWalker {
	return &FileWalker{includeMail: includeMail}
}

// isValidFileType checks if a file is a PDF or, when enabled, a mail
// container. Extensionless files are accepted when their header sniffs as PDF.
func (fw *FileWalker) isValidFileType(path string) bool {
	if config.IsPDFFile(path) {
		return true
	}
	if fw.includeMail && config.IsMailFile(path) {
		return true
	}
	if filepath.Ext(path) == "" {
		return sniffPDF(path)
	}
	return false
}

// FindFiles walks root and returns matching files in lexical order. A root
// that is itself a file is returned as is, whatever its type.
func (fw *FileWalker) FindFiles(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != root && config.ShouldSkipDirectory(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if fw.isValidFileType(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// sniffPDF reports whether the file starts with the PDF magic number.
func sniffPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)
	return IsPDF(head[:n])
}

// IsPDF reports whether data starts with the PDF magic number.
func IsPDF(data []byte) bool {
	return filetype.Is(data, "pdf")
}
