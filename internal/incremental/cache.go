// Package incremental persists what previous runs produced so unchanged
// assets are not processed again.
package incremental

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Version is the only cache format this build reads and writes.
const Version = 0

// DefaultFlushInterval bounds how much freshness an interrupted run loses.
const DefaultFlushInterval = 60 * time.Second

// BuildCache maps destination-relative asset paths to the modification
// time their thumbnail was generated from, plus the checksum of the
// template that rendered the pages.
type BuildCache struct {
	path     string
	checksum string
	entries  map[string]float64
	logger   *slog.Logger
	lastSave time.Time
	now      func() time.Time
}

// TemplateChecksum is the SHA-224 hex digest of the template bytes.
func TemplateChecksum(data []byte) string {
	sum := sha256.Sum224(data)
	return hex.EncodeToString(sum[:])
}

// Load reads the cache file at path. A missing or empty file yields an
// empty cache. Any version other than Version is rejected.
func Load(path string) (*BuildCache, error) {
	c := &BuildCache{
		path:    path,
		entries: map[string]float64{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	c.lastSave = c.now()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read build cache").
			WithContext("file", path).
			Build()
	}
	if err := c.parse(data); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *BuildCache) parse(data []byte) error {
	incompatible := func(msg string, line int) error {
		return errors.IncompatibleFormatError(msg).
			WithContext("file", c.path).
			WithContext("line", line).
			Build()
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		switch n {
		case 1:
			v, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return incompatible("cache version is not a number", n)
			}
			if v != Version {
				return incompatible(fmt.Sprintf("unsupported cache version %d", v), n)
			}
		case 2:
			c.checksum = strings.TrimSpace(line)
		default:
			if line == "" {
				continue
			}
			key, raw, ok := strings.Cut(line, "\t")
			if !ok {
				return incompatible("cache record has no modification time", n)
			}
			mtime, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return incompatible("cache record has an invalid modification time", n)
			}
			c.entries[key] = mtime
		}
	}
	if err := sc.Err(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "read build cache").
			WithContext("file", c.path).
			Build()
	}
	return nil
}

// WithLogger sets a custom logger.
func (c *BuildCache) WithLogger(logger *slog.Logger) *BuildCache {
	c.logger = logger
	return c
}

// Path returns the file the cache is saved to.
func (c *BuildCache) Path() string { return c.path }

// Checksum returns the stored template checksum.
func (c *BuildCache) Checksum() string { return c.checksum }

// Len returns the number of entries.
func (c *BuildCache) Len() int { return len(c.entries) }

func seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// ShouldRegenerateThumbnail reports whether the thumbnail of key must be
// produced again: no entry exists, the stored time differs from mtime, or
// the thumbnail file is gone.
func (c *BuildCache) ShouldRegenerateThumbnail(key string, mtime time.Time, thumbnailPath string) bool {
	stored, ok := c.entries[key]
	if !ok || stored != seconds(mtime) {
		return true
	}
	_, err := os.Stat(thumbnailPath)
	return err != nil
}

// RecordGenerated upserts the entry for key. Call it only after the
// derived thumbnail has been written.
func (c *BuildCache) RecordGenerated(key string, mtime time.Time) {
	c.entries[key] = seconds(mtime)
}

// Lookup returns the stored modification time of key in seconds.
func (c *BuildCache) Lookup(key string) (float64, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Keys returns every entry key in ascending order.
func (c *BuildCache) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Forget removes the entry for key.
func (c *BuildCache) Forget(key string) {
	delete(c.entries, key)
}

// TemplateChanged compares checksum with the stored one. On a mismatch it
// stores checksum and returns true; the caller must then do a full update.
func (c *BuildCache) TemplateChanged(checksum string) bool {
	if checksum == c.checksum {
		return false
	}
	c.logger.Debug("Template checksum changed", "old", c.checksum, "new", checksum)
	c.checksum = checksum
	return true
}

// Encode renders the cache in its file format. Records are sorted by key.
func (c *BuildCache) Encode() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d\n%s\n", Version, c.checksum)
	for _, k := range c.Keys() {
		b.WriteString(k)
		b.WriteByte('\t')
		b.WriteString(strconv.FormatFloat(c.entries[k], 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Save rewrites the whole cache file.
func (c *BuildCache) Save() error {
	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, c.Encode(), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write build cache").
			WithContext("file", tempPath).
			Build()
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to replace build cache").
			WithContext("file", c.path).
			Build()
	}
	c.lastSave = c.now()
	return nil
}

// SaveIfDue saves when more than interval has passed since the last save.
func (c *BuildCache) SaveIfDue(interval time.Duration) (bool, error) {
	if c.now().Sub(c.lastSave) <= interval {
		return false, nil
	}
	c.logger.Debug("Flushing build cache", "entries", len(c.entries))
	return true, c.Save()
}
