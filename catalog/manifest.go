package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/wah/codec"
)

const (
	manifestPrefix = "manifests/"
	bitmapPrefix   = "bitmaps/"
	maxNameLen     = 128
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.][A-Za-z0-9._-]*$`)

// ValidName reports whether name can be stored in a catalog. Names are 1 to
// 128 characters of [A-Za-z0-9._-] and may not start with '-'.
func ValidName(name string) bool {
	return len(name) <= maxNameLen && namePattern.MatchString(name)
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// Entry describes one stored bitmap.
type Entry struct {
	Name       string `json:"name"`
	Blob       string `json:"blob"`
	Len        uint64 `json:"len"`
	Count      uint64 `json:"count"`
	Compressor string `json:"compressor"`
	Size       int64  `json:"size"`
}

// Manifest is one committed version of a catalog.
type Manifest struct {
	Version uint64    `json:"version"`
	Codec   string    `json:"codec"`
	Created time.Time `json:"created"`
	Entries []Entry   `json:"entries"`
}

func manifestName(version uint64, writer string) string {
	return fmt.Sprintf("%s%020d-%s.json", manifestPrefix, version, writer)
}

// parseManifestName extracts the version from a manifest blob name.
func parseManifestName(name string) (uint64, error) {
	s, ok := strings.CutPrefix(strings.TrimSpace(name), manifestPrefix)
	if !ok {
		return 0, fmt.Errorf("catalog: not a manifest name: %q", name)
	}

	s, ok = strings.CutSuffix(s, ".json")
	if !ok {
		return 0, fmt.Errorf("catalog: not a manifest name: %q", name)
	}

	digits, _, _ := strings.Cut(s, "-")

	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: not a manifest name: %q", name)
	}

	return v, nil
}

func blobName(name string, version uint64, writer string, seq uint64) string {
	return fmt.Sprintf("%s%s.%d-%s-%d.wah", bitmapPrefix, name, version, writer, seq)
}

func encodeManifest(c codec.Codec, m *Manifest) ([]byte, error) {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Name < m.Entries[j].Name })
	m.Codec = c.Name()

	return c.Marshal(m)
}

// decodeManifest decodes a manifest written by any JSON value codec.
func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("catalog: decode manifest: %w", err)
	}

	for _, e := range m.Entries {
		if !ValidName(e.Name) || !strings.HasPrefix(e.Blob, bitmapPrefix) {
			return nil, fmt.Errorf("catalog: manifest %d has invalid entry %q", m.Version, e.Name)
		}
	}

	return &m, nil
}
