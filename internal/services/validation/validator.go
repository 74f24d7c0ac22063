package validation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Amund-Fremming/tero.platform/internal/games"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const maxMessageLen = 200

// PayloadError is returned when a session payload violates its schema.
type PayloadError struct {
	Kind    games.Kind
	Path    string
	Message string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s session at '%s': %s", e.Kind, e.Path, e.Message)
}

// SessionValidator checks finished session payloads against the schema for
// their game kind. Compiled schemas are cached.
type SessionValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
}

// NewSessionValidator creates a validator with LRU caching for compiled schemas.
func NewSessionValidator(cacheSize int) (*SessionValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &SessionValidator{schemaCache: cache}, nil
}

// Validate returns a *PayloadError when payload does not match kind's schema,
// or another error when the payload is not JSON at all.
func (v *SessionValidator) Validate(kind games.Kind, payload []byte) error {
	schema, err := v.schemaFor(kind)
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return &PayloadError{Kind: kind, Path: "$", Message: "payload is not valid JSON"}
	}

	if err := schema.Validate(doc); err != nil {
		path, msg := formatValidationError(err)
		return &PayloadError{Kind: kind, Path: path, Message: msg}
	}
	return nil
}

// CacheSize returns the number of compiled schemas held.
func (v *SessionValidator) CacheSize() int {
	return v.schemaCache.Len()
}

// schemaFor compiles kinds sharing a hub against the same schema file.
func (v *SessionValidator) schemaFor(kind games.Kind) (*jsonschema.Schema, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}
	name := kind.Hub()
	if schema, ok := v.schemaCache.Get(name); ok {
		return schema, nil
	}

	schema, err := compileSchema(name)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read %s schema: %w", name, err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)

	url := name + ".json"
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add %s schema resource: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return schema, nil
}

// formatValidationError turns InstanceLocation ["rounds", "3"] into "$.rounds.3".
func formatValidationError(err error) (path, msg string) {
	path = "$"
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return path, err.Error()
	}

	// the leaf cause carries the precise location
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg = ve.Error()
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "... (truncated)"
	}
	return path, msg
}
