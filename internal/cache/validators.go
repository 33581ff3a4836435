// Package cache keeps HTTP validators on disk so conditional requests
// survive restarts.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Validator is what a server handed out for a URL: an ETag, a
// Last-Modified date, or both.
type Validator struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Empty reports whether v carries no validator at all.
func (v Validator) Empty() bool {
	return v.ETag == "" && v.LastModified == ""
}

// Validators stores one <sha256(url)>.meta.json file per URL.
type Validators struct {
	Dir string
	// StrictPerms writes the directory 0700 and files 0600.
	StrictPerms bool
}

func (c *Validators) ensureDir() error {
	if c == nil || strings.TrimSpace(c.Dir) == "" {
		return errors.New("cache dir not configured")
	}
	mode := os.FileMode(0o755)
	if c.StrictPerms {
		mode = 0o700
	}
	if err := os.MkdirAll(c.Dir, mode); err != nil {
		return err
	}
	if c.StrictPerms {
		return os.Chmod(c.Dir, 0o700)
	}
	return nil
}

func key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *Validators) metaPath(url string) string {
	return filepath.Join(c.Dir, key(url)+metaSuffix)
}

const metaSuffix = ".meta.json"

// Load returns the stored validator for url. A missing entry is the zero
// Validator and no error.
func (c *Validators) Load(_ context.Context, url string) (Validator, error) {
	if err := c.ensureDir(); err != nil {
		return Validator{}, err
	}
	b, err := os.ReadFile(c.metaPath(url))
	if errors.Is(err, fs.ErrNotExist) {
		return Validator{URL: url}, nil
	}
	if err != nil {
		return Validator{}, err
	}
	var v Validator
	if err := json.Unmarshal(b, &v); err != nil {
		return Validator{}, fmt.Errorf("decode validator: %w", err)
	}
	return v, nil
}

// Save writes v atomically. An empty validator removes the entry.
func (c *Validators) Save(_ context.Context, v Validator) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	path := c.metaPath(v.URL)
	if v.Empty() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if v.SavedAt.IsZero() {
		v.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&v)
	if err != nil {
		return fmt.Errorf("encode validator: %w", err)
	}
	perm := os.FileMode(0o644)
	if c.StrictPerms {
		perm = 0o600
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write validator: %w", err)
	}
	return os.Rename(tmp, path)
}
