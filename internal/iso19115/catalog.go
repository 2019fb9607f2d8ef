// Package iso19115 provides the ISO 19115-1 identification and spatial
// representation packages as a ready-to-use schema catalogue.
package iso19115

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sync"

	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/schemadef"
	"github.com/geomd/metaschema/internal/validation"
	"github.com/geomd/metaschema/internal/vocab"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// schemaFiles lists the embedded documents in load order
var schemaFiles = []string{
	"schemas/identification.yaml",
	"schemas/spatial_representation.yaml",
}

// Catalog is a resolved pair of vocabulary and record type registries
type Catalog struct {
	Vocabulary *vocab.Registry
	Types      *schema.Registry

	fingerprintOnce sync.Once
	fingerprint     string
	fingerprintErr  error
}

// Documents returns the embedded ISO 19115 schema documents
func Documents() ([]*schemadef.Document, error) {
	docs := make([]*schemadef.Document, 0, len(schemaFiles))
	for _, name := range schemaFiles {
		data, err := fs.ReadFile(schemaFS, name)
		if err != nil {
			return nil, err
		}
		doc, err := schemadef.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Load builds a new catalogue from the embedded documents followed by extra
// extension documents, and resolves it
func Load(extra ...*schemadef.Document) (*Catalog, error) {
	docs, err := Documents()
	if err != nil {
		return nil, err
	}
	docs = append(docs, extra...)

	c := &Catalog{Vocabulary: vocab.NewRegistry()}
	c.Types = schema.NewRegistry(c.Vocabulary)
	if err := schemadef.Load(c.Vocabulary, c.Types, docs...); err != nil {
		return nil, fmt.Errorf("load ISO 19115 catalogue: %w", err)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalogue of the embedded documents.
// It is built on first use and read-only afterwards.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Validator returns a validator over the catalogue's types
func (c *Catalog) Validator(opts ...validation.Option) *validation.Validator {
	return validation.New(c.Types, opts...)
}

// Fingerprint returns the SHA-256 of the exported schema document. Catalogues
// loaded with different extensions have different fingerprints.
func (c *Catalog) Fingerprint() (string, error) {
	c.fingerprintOnce.Do(func() {
		doc, err := schemadef.Export(c.Types)
		if err != nil {
			c.fingerprintErr = err
			return
		}
		data, err := doc.Marshal()
		if err != nil {
			c.fingerprintErr = err
			return
		}
		sum := sha256.Sum256(data)
		c.fingerprint = hex.EncodeToString(sum[:])
	})
	return c.fingerprint, c.fingerprintErr
}
