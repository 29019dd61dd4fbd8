// Package corpus loads the knowledge-base documents and cuts them into retrieval chunks.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DocumentExt is the only file extension read from the knowledge base.
const DocumentExt = ".txt"

// Document is one knowledge-base file.
type Document struct {
	Source string
	Text   string
}

// LoadDocuments reads every .txt file under root, recursively, in lexical order.
// Source is the path as walked from root.
func LoadDocuments(root string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), DocumentExt) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		docs = append(docs, Document{
			Source: path,
			Text:   strings.ToValidUTF8(strings.TrimPrefix(string(data), "\ufeff"), "\ufffd"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", root, err)
	}

	return docs, nil
}
