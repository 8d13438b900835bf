package odoo

import (
	"context"
	"fmt"
)

// Record is a single Odoo record as returned by read/search_read: a map of
// field name to value. Relational many2one fields arrive as [id, name]
// pairs; the accessors below flatten them.
type Record map[string]any

// Domain builds an Odoo search domain from condition triples, e.g.
// Domain(Cond("name", "=", "S38621")).
func Domain(conds ...[]any) []any {
	domain := make([]any, 0, len(conds))
	for _, c := range conds {
		domain = append(domain, c)
	}
	return domain
}

// Cond is a single (field, operator, value) domain condition.
func Cond(field, op string, value any) []any {
	return []any{field, op, value}
}

// Search returns the ids of records matching the domain.
func Search(ctx context.Context, exec Executor, model string, domain []any, kwargs map[string]any) ([]int64, error) {
	res, err := exec.ExecuteKw(ctx, model, "search", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	return toIDs(res)
}

// SearchRead searches and reads in one round trip.
func SearchRead(ctx context.Context, exec Executor, model string, domain []any, fields []string, kwargs map[string]any) ([]Record, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	res, err := exec.ExecuteKw(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	return toRecords(res)
}

// Read reads the given fields of the given record ids.
func Read(ctx context.Context, exec Executor, model string, ids []int64, fields []string) ([]Record, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	res, err := exec.ExecuteKw(ctx, model, "read", []any{ids}, kwargs)
	if err != nil {
		return nil, err
	}
	return toRecords(res)
}

// Create creates a record and returns its id.
func Create(ctx context.Context, exec Executor, model string, vals map[string]any) (int64, error) {
	res, err := exec.ExecuteKw(ctx, model, "create", []any{vals}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := toInt64(res)
	if !ok {
		return 0, fmt.Errorf("odoo %s.create returned non-integer id %v", model, res)
	}
	return id, nil
}

// Write updates the given records.
func Write(ctx context.Context, exec Executor, model string, ids []int64, vals map[string]any) error {
	_, err := exec.ExecuteKw(ctx, model, "write", []any{ids, vals}, nil)
	return err
}

// Exec invokes an arbitrary model method on record ids (e.g. action_post).
func Exec(ctx context.Context, exec Executor, model, method string, ids []int64) error {
	_, err := exec.ExecuteKw(ctx, model, method, []any{ids}, nil)
	return err
}

// ClearRelation is the Odoo command tuple (5, 0, 0): remove all records
// from a one2many/many2many relation without deleting them.
func ClearRelation() []any {
	return []any{[]any{int64(5), int64(0), int64(0)}}
}

// CreateLine is the Odoo command tuple (0, 0, vals): create a new record
// in a one2many relation.
func CreateLine(vals map[string]any) []any {
	return []any{[]any{int64(0), int64(0), vals}}
}

// --- Record accessors ---

// Int returns the field as int64, or 0 if absent or not numeric.
func (r Record) Int(field string) int64 {
	n, _ := toInt64(r[field])
	return n
}

// Float returns the field as float64, or 0 if absent or not numeric.
func (r Record) Float(field string) float64 {
	switch n := r[field].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// Str returns the field as a string. Odoo encodes empty values as boolean
// false, which maps to an empty string here.
func (r Record) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// RelID returns the id half of a many2one [id, name] pair, or 0.
func (r Record) RelID(field string) int64 {
	pair, ok := r[field].([]any)
	if !ok || len(pair) == 0 {
		return 0
	}
	n, _ := toInt64(pair[0])
	return n
}

// RelName returns the display-name half of a many2one [id, name] pair.
// Falls back to the raw string value for non-relational fields.
func (r Record) RelName(field string) string {
	if pair, ok := r[field].([]any); ok {
		if len(pair) > 1 {
			if s, ok := pair[1].(string); ok {
				return s
			}
		}
		return ""
	}
	return r.Str(field)
}

// IDs returns the field as a slice of record ids (one2many/many2many).
func (r Record) IDs(field string) []int64 {
	ids, _ := toIDs(r[field])
	return ids
}

// --- Result decoding ---

func toRecords(v any) ([]Record, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected record list, got %T", v)
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected record map, got %T", item)
		}
		records = append(records, Record(m))
	}
	return records, nil
}

func toIDs(v any) ([]int64, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected id list, got %T", v)
	}
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		id, ok := toInt64(item)
		if !ok {
			return nil, fmt.Errorf("expected integer id, got %T", item)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
