package tabular

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sheetprompt/domain/dataset"
	"sheetprompt/internal/errors"
)

// SupportedExtensions lists the file extensions the reader and writer accept
var SupportedExtensions = []string{".csv", ".xls", ".xlsx"}

// DetectFormat infers the tabular format from the path extension,
// case-insensitively
func DetectFormat(path string) (dataset.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return dataset.FormatCSV, nil
	case ".xls":
		return dataset.FormatXLS, nil
	case ".xlsx":
		return dataset.FormatXLSX, nil
	default:
		return "", errors.UnsupportedFormat(path, ext, SupportedExtensions)
	}
}

// container identifies the binary container of a spreadsheet file
type container int

const (
	containerUnknown container = iota
	containerOLE2              // legacy BIFF .xls
	containerZIP               // OOXML workbook
)

var (
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
)

// sniffContainer reads the leading bytes of path to tell a BIFF workbook
// from an OOXML one
func sniffContainer(path string) (container, error) {
	f, err := os.Open(path)
	if err != nil {
		return containerUnknown, err
	}
	defer f.Close()

	head := make([]byte, len(ole2Magic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return containerUnknown, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, ole2Magic):
		return containerOLE2, nil
	case bytes.HasPrefix(head, zipMagic):
		return containerZIP, nil
	default:
		return containerUnknown, nil
	}
}
