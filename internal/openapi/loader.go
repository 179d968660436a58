// Package openapi turns an OpenAPI 3.x document into tool descriptors:
// loading, schema resolution, input-schema synthesis, parameter
// serialization, and operation enumeration.
package openapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Document wraps the parsed OpenAPI v3 model. It is immutable after load;
// every catalog and schema operation recomputes from it.
type Document struct {
	Model   *v3.Document
	Version string
}

// Load reads an OpenAPI document from disk. Format is selected by file
// extension: .json must contain valid JSON, .yaml/.yml is parsed as YAML,
// any other extension is rejected, and a missing extension tries JSON
// first with YAML as fallback.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("parsing %s: not valid JSON", path)
		}
	case ".yaml", ".yml", "":
		// YAML is a superset of JSON; the document parser handles both.
	default:
		return nil, fmt.Errorf("unsupported spec file format: %s", ext)
	}

	return Parse(data)
}

// Parse builds the v3 model from raw JSON or YAML bytes.
func Parse(data []byte) (*Document, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	return &Document{Model: &model.Model, Version: version}, nil
}

// BaseURL resolves the effective base URL: an explicit override wins,
// otherwise the document's first declared server is used.
func (d *Document) BaseURL(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if len(d.Model.Servers) > 0 && d.Model.Servers[0].URL != "" {
		return d.Model.Servers[0].URL, nil
	}
	return "", fmt.Errorf("no base URL provided and no servers found in OpenAPI spec")
}
