// ABOUTME: Static catalog of the board tools and their JSON input schemas
// ABOUTME: Schemas are published by tools/list and consulted only for default values

package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Name identifies a tool.
type Name string

const (
	CreateBoard       Name = "create_board"
	CreateStickyNote  Name = "create_sticky_note"
	CreateFrame       Name = "create_frame"
	CreateText        Name = "create_text"
	ListBoards        Name = "list_boards"
	GetBoardItems     Name = "get_board_items"
	SetupMeetingBoard Name = "setup_meeting_board"
)

// Definition describes one tool as advertised to protocol clients.
type Definition struct {
	Name        Name               `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// MarshalJSON writes the definition as tools/list publishes it. Object schemas
// always carry "properties", even when empty, since some clients require it.
func (d Definition) MarshalJSON() ([]byte, error) {
	schema, err := json.Marshal(d.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("encoding input schema for %s: %w", d.Name, err)
	}
	if d.InputSchema != nil && d.InputSchema.Type == "object" && len(d.InputSchema.Properties) == 0 {
		var fields map[string]any
		if err := json.Unmarshal(schema, &fields); err != nil {
			return nil, err
		}
		fields["properties"] = map[string]any{}
		if schema, err = json.Marshal(fields); err != nil {
			return nil, err
		}
	}
	return json.Marshal(struct {
		Name        Name            `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}{d.Name, d.Description, schema})
}

// Registry is the immutable, ordered set of tool definitions.
type Registry struct {
	defs     []Definition
	schemas  map[Name]*jsonschema.Schema
	resolved map[Name]*jsonschema.Resolved
}

// NewRegistry builds the catalog and resolves every input schema.
func NewRegistry() (*Registry, error) {
	defs := definitions()
	r := &Registry{
		defs:     defs,
		schemas:  make(map[Name]*jsonschema.Schema, len(defs)),
		resolved: make(map[Name]*jsonschema.Resolved, len(defs)),
	}
	for _, def := range defs {
		if _, dup := r.resolved[def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool definition %q", def.Name)
		}
		rs, err := def.InputSchema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return nil, fmt.Errorf("resolving schema for %s: %w", def.Name, err)
		}
		r.schemas[def.Name] = def.InputSchema
		r.resolved[def.Name] = rs
	}
	return r, nil
}

// Definitions returns the catalog in declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns the tool names in declaration order.
func (r *Registry) Names() []Name {
	names := make([]Name, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

// Has reports whether name is in the catalog.
func (r *Registry) Has(name Name) bool {
	_, ok := r.resolved[name]
	return ok
}

func definitions() []Definition {
	return []Definition{
		{
			Name:        CreateBoard,
			Description: "Create a new Miro board",
			InputSchema: object(
				[]string{"name"},
				prop("name", stringSchema("Board name")),
				prop("description", stringSchema("Board description")),
			),
		},
		{
			Name:        CreateStickyNote,
			Description: "Create a sticky note on a board",
			InputSchema: object(
				[]string{"board_id", "content"},
				prop("board_id", stringSchema("Board ID")),
				prop("content", stringSchema("Note content")),
				prop("x", numberSchema("X position", 0)),
				prop("y", numberSchema("Y position", 0)),
				prop("color", withDefault(stringSchema("Note color (yellow, blue, green, pink, orange, purple)"), "yellow")),
			),
		},
		{
			Name:        CreateFrame,
			Description: "Create a frame on a board",
			InputSchema: object(
				[]string{"board_id", "title"},
				prop("board_id", stringSchema("Board ID")),
				prop("title", stringSchema("Frame title")),
				prop("x", numberSchema("X position", 0)),
				prop("y", numberSchema("Y position", 0)),
				prop("width", numberSchema("Frame width", 400)),
				prop("height", numberSchema("Frame height", 300)),
			),
		},
		{
			Name:        CreateText,
			Description: "Create a text item on a board",
			InputSchema: object(
				[]string{"board_id", "content"},
				prop("board_id", stringSchema("Board ID")),
				prop("content", stringSchema("Text content")),
				prop("x", numberSchema("X position", 0)),
				prop("y", numberSchema("Y position", 0)),
			),
		},
		{
			Name:        ListBoards,
			Description: "List user's boards",
			InputSchema: object(nil),
		},
		{
			Name:        GetBoardItems,
			Description: "Get items from a board",
			InputSchema: object(
				[]string{"board_id"},
				prop("board_id", stringSchema("Board ID")),
			),
		},
		{
			Name:        SetupMeetingBoard,
			Description: "Create a complete meeting preparation board with predefined structure",
			InputSchema: object(
				[]string{"meeting_title"},
				prop("meeting_title", stringSchema("Meeting title")),
				prop("participants", &jsonschema.Schema{
					Type:        "array",
					Description: "List of participant names",
					Items:       &jsonschema.Schema{Type: "string"},
				}),
			),
		},
	}
}

type property struct {
	name   string
	schema *jsonschema.Schema
}

func prop(name string, schema *jsonschema.Schema) property {
	return property{name: name, schema: schema}
}

func object(required []string, props ...property) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(props)),
		Required:   required,
	}
	for _, p := range props {
		s.Properties[p.name] = p.schema
	}
	return s
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func numberSchema(description string, def float64) *jsonschema.Schema {
	return withDefault(&jsonschema.Schema{Type: "number", Description: description}, def)
}

func withDefault(s *jsonschema.Schema, value any) *jsonschema.Schema {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("tools: unmarshalable default %v: %v", value, err))
	}
	s.Default = raw
	return s
}
