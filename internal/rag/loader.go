package rag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the extracted text of one file in the data directory.
type Document struct {
	Name string
	Text string
}

var supportedExts = map[string]bool{".txt": true, ".md": true, ".pdf": true}

// LoadDocuments reads the supported files directly under dir, ordered by name.
// Subdirectories and other extensions are skipped.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !supportedExts[ext] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var text string
		if ext == ".pdf" {
			text, err = readPDF(path)
		} else {
			var b []byte
			b, err = os.ReadFile(path)
			text = string(b)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name(), err)
		}
		docs = append(docs, Document{Name: e.Name(), Text: text})
	}
	return docs, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
