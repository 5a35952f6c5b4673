// pkg/registry/schema.go
package registry

import "triage-workers/internal/models"

// Document is the on-disk facility registry.
type Document struct {
	Version     string            `json:"version" yaml:"version"`
	LastUpdated string            `json:"lastUpdated" yaml:"lastUpdated"`
	Facilities  []models.Facility `json:"facilities" yaml:"facilities"`
}

// DocumentSchema is the JSON Schema every registry file must satisfy once a
// bare array has been wrapped into a document. Each facility needs a
// non-empty phone or ambulance_phone.
const DocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["facilities"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "facilities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "lat", "lng"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "lat": {"type": "number", "minimum": -90, "maximum": 90},
          "lng": {"type": "number", "minimum": -180, "maximum": 180},
          "phone": {"type": ["string", "null"]},
          "ambulance_phone": {"type": ["string", "null"]}
        },
        "anyOf": [
          {"required": ["phone"], "properties": {"phone": {"type": "string", "minLength": 1}}},
          {"required": ["ambulance_phone"], "properties": {"ambulance_phone": {"type": "string", "minLength": 1}}}
        ]
      }
    }
  }
}`
