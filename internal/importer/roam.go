// Package importer reads outliner exports and markdown notes into pages the
// fact store can transact.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aidanlsb/discourse/internal/factstore"
)

type roamBlock struct {
	String      string      `json:"string"`
	UID         string      `json:"uid"`
	Heading     int         `json:"heading"`
	Children    []roamBlock `json:"children"`
	CreateTime  int64       `json:"create-time"`
	EditTime    int64       `json:"edit-time"`
	CreateEmail string      `json:"create-email"`
}

type roamPage struct {
	Title       string      `json:"title"`
	UID         string      `json:"uid"`
	Children    []roamBlock `json:"children"`
	CreateTime  int64       `json:"create-time"`
	EditTime    int64       `json:"edit-time"`
	CreateEmail string      `json:"create-email"`
}

// ReadRoamJSON reads an outliner JSON export: a list of pages, each with a
// title, an optional uid and nested children carrying "string".
func ReadRoamJSON(r io.Reader) ([]factstore.Page, error) {
	var raw []roamPage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid export: %w", err)
	}

	pages := make([]factstore.Page, 0, len(raw))
	for i, p := range raw {
		if strings.TrimSpace(p.Title) == "" {
			return nil, fmt.Errorf("invalid export: page %d has no title", i+1)
		}
		pages = append(pages, factstore.Page{
			UID:        p.UID,
			Title:      p.Title,
			Children:   convertRoamBlocks(p.Children),
			CreateTime: fromMillis(p.CreateTime),
			EditTime:   fromMillis(p.EditTime),
			Author:     p.CreateEmail,
		})
	}
	return pages, nil
}

func convertRoamBlocks(blocks []roamBlock) []factstore.Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]factstore.Block, len(blocks))
	for i, b := range blocks {
		out[i] = factstore.Block{
			UID:        b.UID,
			String:     b.String,
			Heading:    b.Heading,
			Children:   convertRoamBlocks(b.Children),
			CreateTime: fromMillis(b.CreateTime),
			EditTime:   fromMillis(b.EditTime),
			Author:     b.CreateEmail,
		}
	}
	return out
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ReadPath reads a .json export, a markdown file, or every markdown file
// under a directory.
func ReadPath(path string) ([]factstore.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return readMarkdownDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadRoamJSON(f)
	case ".md", ".markdown":
		p, err := ReadMarkdownFile(path)
		if err != nil {
			return nil, err
		}
		return []factstore.Page{p}, nil
	}
	return nil, fmt.Errorf("unsupported file type: %s", path)
}

func readMarkdownDir(dir string) ([]factstore.Page, error) {
	var pages []factstore.Page
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		p, err := ReadMarkdownFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		pages = append(pages, p)
		return nil
	})
	return pages, err
}
