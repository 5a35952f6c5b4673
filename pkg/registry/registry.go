// pkg/registry/registry.go
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"triage-workers/internal/models"
)

// Format is the serialization of a registry file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var documentSchema = gojsonschema.NewStringLoader(DocumentSchema)

// SchemaError lists every schema violation found in a registry file.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "registry schema violation: " + strings.Join(e.Problems, "; ")
}

// FormatFromPath picks YAML for .yaml/.yml and JSON for everything else.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadRegistry reads and validates the registry at path.
func LoadRegistry(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes a registry that is either a bare array of facilities or a
// {version, lastUpdated, facilities} document, and validates it.
func Parse(data []byte, format Format) (*Document, error) {
	var raw interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml registry: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json registry: %w", err)
		}
	}

	if list, ok := raw.([]interface{}); ok {
		raw = map[string]interface{}{"facilities": list}
	}

	if err := validate(gojsonschema.NewGoLoader(raw)); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize registry: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if doc.Facilities == nil {
		doc.Facilities = []models.Facility{}
	}
	return &doc, nil
}

// Validate checks an in-memory document against DocumentSchema.
func Validate(doc *Document) error {
	return validate(gojsonschema.NewGoLoader(doc))
}

func validate(loader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(documentSchema, loader)
	if err != nil {
		return fmt.Errorf("validate registry: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return &SchemaError{Problems: problems}
}

// ErrDuplicateFacility and ErrFacilityNotFound are returned by Add and Remove.
var (
	ErrDuplicateFacility = errors.New("facility already exists")
	ErrFacilityNotFound  = errors.New("facility not found")
)

// Find returns the index of the facility named name, or -1.
func (d *Document) Find(name string) int {
	for i, f := range d.Facilities {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Add appends f. Names are unique, case-insensitively.
func (d *Document) Add(f models.Facility) error {
	if d.Find(f.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateFacility, f.Name)
	}
	d.Facilities = append(d.Facilities, f)
	d.touch()
	return nil
}

// Remove deletes the facility named name, keeping the order of the rest.
func (d *Document) Remove(name string) error {
	i := d.Find(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFacilityNotFound, name)
	}
	d.Facilities = append(d.Facilities[:i], d.Facilities[i+1:]...)
	d.touch()
	return nil
}

func (d *Document) touch() {
	d.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// Save validates doc and writes it to path in the format implied by its extension.
func Save(doc *Document, path string) error {
	if err := Validate(doc); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if FormatFromPath(path) == FormatYAML {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
