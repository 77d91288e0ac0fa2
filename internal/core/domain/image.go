package domain

import (
	"fmt"
	"strings"
)

// LocalIDColumn is the catalog column that carries each row's content address.
const LocalIDColumn = "localIdentifier"

// DefaultImageWidth is the rendition width requested from IIIF servers.
const DefaultImageWidth = 640

// ImageRecord is one catalog row: a IIIF base URL and its content address.
// Columns holds every passthrough value from the catalog source.
type ImageRecord struct {
	SourceURL string
	LocalID   string
	Columns   map[string]string
}

// Table is the raw tabular output of a catalog source, before addressing.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// Catalog is the identifier mapping table joining local IDs to source URLs.
// It is immutable after construction and safe for concurrent reads.
type Catalog struct {
	// Columns lists the passthrough columns followed by LocalIDColumn.
	Columns []string

	// Records are in source order, one per distinct local ID.
	Records []ImageRecord

	byID map[string]int
}

// NewCatalog builds a catalog, keeping the first record seen for each local ID.
func NewCatalog(columns []string, records []ImageRecord) *Catalog {
	c := &Catalog{
		Columns: columns,
		Records: make([]ImageRecord, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for _, r := range records {
		if _, dup := c.byID[r.LocalID]; dup {
			continue
		}
		c.byID[r.LocalID] = len(c.Records)
		c.Records = append(c.Records, r)
	}
	return c
}

// Lookup returns the source URL for a local ID.
func (c *Catalog) Lookup(localID string) (string, bool) {
	if c == nil {
		return "", false
	}
	i, ok := c.byID[localID]
	if !ok {
		return "", false
	}
	return c.Records[i].SourceURL, true
}

// Record returns the full catalog row for a local ID.
func (c *Catalog) Record(localID string) (ImageRecord, bool) {
	if c == nil {
		return ImageRecord{}, false
	}
	i, ok := c.byID[localID]
	if !ok {
		return ImageRecord{}, false
	}
	return c.Records[i], true
}

// Len returns the number of distinct records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// RenditionSuffix returns the IIIF region/size/rotation/quality path for a
// full-region JPEG of the given width.
func RenditionSuffix(width int) string {
	if width <= 0 {
		width = DefaultImageWidth
	}
	return fmt.Sprintf("/full/%d,/0/default.jpg", width)
}

// RenditionURL appends the rendition suffix to a IIIF base URL.
func RenditionURL(sourceURL string, width int) string {
	return sourceURL + RenditionSuffix(width)
}

// AssetPath returns the storage path of a downloaded image.
func AssetPath(localID string) string {
	return "images/" + localID + ".jpg"
}

// LocalIDFromAssetPath extracts the local ID from an AssetPath result.
func LocalIDFromAssetPath(path string) (string, bool) {
	name, ok := strings.CutPrefix(path, "images/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(name, ".jpg")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
