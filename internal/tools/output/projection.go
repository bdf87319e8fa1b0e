package output

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Record is a single domain object as decoded from the backend.
type Record = map[string]interface{}

// EntityType tags the kind of record being rendered.
type EntityType string

// Known entity types.
const (
	EntityTicket             EntityType = "ticket"
	EntityComment            EntityType = "comment"
	EntityUser               EntityType = "user"
	EntityOrganization       EntityType = "organization"
	EntitySatisfactionRating EntityType = "satisfaction_rating"
	EntityArticle            EntityType = "article"
	EntityTicketMetric       EntityType = "ticket_metric"
	EntityAgent              EntityType = "agent"
)

// Mode selects how records are rendered.
type Mode string

// Rendering modes.
const (
	ModeFull    Mode = "full"
	ModeCompact Mode = "compact"
	ModeSummary Mode = "summary"
)

//go:embed projections.yaml
var defaultProjections []byte

// RankRule scores records for the summary top list. When Weights is set the
// field value is looked up in it; otherwise the field must be numeric.
type RankRule struct {
	Field   string             `yaml:"field"`
	Weights map[string]float64 `yaml:"weights,omitempty"`
}

// EntityProjection describes how one entity type is compacted and summarized.
type EntityProjection struct {
	ID      string    `yaml:"id"`
	Label   string    `yaml:"label"`
	Compact []string  `yaml:"compact"`
	Text    []string  `yaml:"text"`
	GroupBy []string  `yaml:"group_by"`
	Rank    *RankRule `yaml:"rank,omitempty"`
}

// ProjectionTable maps entity types to their projections. It is immutable
// once loaded.
type ProjectionTable struct {
	entities map[EntityType]EntityProjection
}

type projectionFile struct {
	Entities map[string]EntityProjection `yaml:"entities"`
}

// LoadProjectionTable parses a YAML projection table.
func LoadProjectionTable(data []byte) (*ProjectionTable, error) {
	var file projectionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse projection table: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("projection table declares no entities")
	}

	table := &ProjectionTable{entities: make(map[EntityType]EntityProjection, len(file.Entities))}
	for name, p := range file.Entities {
		if len(p.Compact) == 0 {
			return nil, fmt.Errorf("entity %q: compact field list is empty", name)
		}
		if dup := firstDuplicate(p.Compact); dup != "" {
			return nil, fmt.Errorf("entity %q: field %q listed twice", name, dup)
		}
		if p.ID == "" {
			p.ID = "id"
		}
		if p.Label == "" {
			p.Label = p.ID
		}
		table.entities[EntityType(name)] = p
	}
	return table, nil
}

// LoadProjectionFile reads and parses a projection table from disk.
func LoadProjectionFile(path string) (*ProjectionTable, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read projection file: %w", err)
	}
	return LoadProjectionTable(data)
}

var (
	defaultTableOnce sync.Once
	defaultTable     *ProjectionTable
)

// DefaultProjectionTable returns the built-in table for Zendesk entities.
func DefaultProjectionTable() *ProjectionTable {
	defaultTableOnce.Do(func() {
		t, err := LoadProjectionTable(defaultProjections)
		if err != nil {
			panic(fmt.Sprintf("embedded projection table is invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Lookup returns the projection for an entity type.
func (t *ProjectionTable) Lookup(entity EntityType) (EntityProjection, bool) {
	if t == nil {
		return EntityProjection{}, false
	}
	p, ok := t.entities[entity]
	return p, ok
}

// Entities returns the known entity types in sorted order.
func (t *ProjectionTable) Entities() []EntityType {
	out := make([]EntityType, 0, len(t.entities))
	for e := range t.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Projected is a rendered record. Compact records keep the table's field order
// when marshaled; full records marshal like a plain map.
type Projected struct {
	fields []string
	values Record
}

// Project renders rec for the given mode. Full mode returns a copy of the
// record unchanged. Compact mode keeps only the table's fields, in table order.
// An unknown entity type returns the record unchanged and warn = true.
func (t *ProjectionTable) Project(rec Record, entity EntityType, mode Mode) (p Projected, warn bool) {
	if mode != ModeCompact {
		return Projected{values: deepCopyMap(rec)}, false
	}

	proj, ok := t.Lookup(entity)
	if !ok {
		return Projected{values: deepCopyMap(rec)}, true
	}

	p = Projected{
		fields: make([]string, 0, len(proj.Compact)),
		values: make(Record, len(proj.Compact)),
	}
	for _, f := range proj.Compact {
		v, present := rec[f]
		if !present {
			continue
		}
		p.fields = append(p.fields, f)
		p.values[f] = deepCopyValue(v)
	}
	return p, false
}

// Record returns a copy of the rendered values.
func (p Projected) Record() Record {
	return deepCopyMap(p.values)
}

// Fields returns the ordered field names of a compact record, or nil for a
// full record.
func (p Projected) Fields() []string {
	return p.fields
}

// MarshalJSON writes compact records in table order.
func (p Projected) MarshalJSON() ([]byte, error) {
	if p.fields == nil {
		if p.values == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(p.values)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.values[f])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func firstDuplicate(fields []string) string {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			return f
		}
		seen[f] = struct{}{}
	}
	return ""
}
