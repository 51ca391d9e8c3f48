// Package memory implements an in-process datastore adapter. Datasets are
// slices of rows held in memory; it backs tests and the "memory" repository
// type.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// AdapterName is the repository type the adapter registers under
const AdapterName = "memory"

func init() {
	repository.Register(AdapterName, func(ctx context.Context, cfg repository.Config, logger *zap.Logger) (repository.Adapter, error) {
		a := New(logger)
		names, err := datasetNames(cfg.Options["datasets"])
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			a.AddDataset(name, nil)
		}
		return a, nil
	})
}

func datasetNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("memory: dataset name %v is not a string", item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("memory: datasets option must be a list, got %T", raw)
	}
}

// Dataset is a named collection of rows with known columns
type Dataset struct {
	name    string
	columns []*schema.Field
	rows    []map[string]any
	nextID  int64
}

// Adapter keeps datasets in memory
type Adapter struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	logger   *zap.Logger
	closed   bool
}

// New creates an empty memory adapter
func New(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		datasets: make(map[string]*Dataset),
		logger:   logger,
	}
}

// Name implements repository.Adapter
func (a *Adapter) Name() string { return AdapterName }

// AddDataset creates or replaces a dataset
func (a *Adapter) AddDataset(name string, columns []*schema.Field, rows ...map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ds := &Dataset{name: name, columns: columns}
	for _, row := range rows {
		ds.rows = append(ds.rows, copyRow(row))
	}
	ds.nextID = int64(len(ds.rows))
	for _, col := range columns {
		if col.Primary {
			ds.nextID = ds.maxID(col.Name)
			break
		}
	}
	a.datasets[name] = ds
}

// maxID returns the largest integer value of column, or 0
func (ds *Dataset) maxID(column string) int64 {
	var highest int64
	for _, row := range ds.rows {
		if id, ok := intValue(row[column]); ok && id > highest {
			highest = id
		}
	}
	return highest
}

func intValue(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

// Rows returns a copy of the rows of a dataset
func (a *Adapter) Rows(name string) []map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ds, ok := a.datasets[name]
	if !ok {
		return nil
	}
	return copyRows(ds.rows)
}

// Datasets implements repository.Adapter
func (a *Adapter) Datasets(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.datasets))
	for name := range a.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ExtendRelation adds the dataset's columns the relation does not declare
// and installs the built-in read methods
func (a *Adapter) ExtendRelation(ctx context.Context, rel *relation.Relation) error {
	a.mu.RLock()
	ds, ok := a.datasets[rel.Dataset()]
	var columns []*schema.Field
	if ok {
		columns = ds.columns
	}
	a.mu.RUnlock()

	s := rel.Schema()
	for _, col := range columns {
		if !s.HasField(col.Name) {
			field := *col
			s.SetField(&field)
		}
	}

	if err := rel.DefineAdapterMethod("all", a.all); err != nil {
		return err
	}
	if err := rel.DefineAdapterMethod("where", a.where); err != nil {
		return err
	}
	a.logger.Debug("extended relation",
		zap.String("relation", rel.Name()),
		zap.Bool("dataset_exists", ok))
	return nil
}

func (a *Adapter) all(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	return a.Rows(rel.Dataset()), nil
}

// where returns the rows matching every key of the map given as first argument
func (a *Adapter) where(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("where expects one condition map, got %d arguments", len(args))
	}
	cond, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("where expects map[string]any, got %T", args[0])
	}

	var out []map[string]any
	for _, row := range a.Rows(rel.Dataset()) {
		if matches(row, cond) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Command implements repository.Adapter
func (a *Adapter) Command(name string, rel *relation.Relation, def command.Definition) (command.Command, error) {
	switch def.Type {
	case command.Create, command.Update, command.Delete:
	default:
		return nil, fmt.Errorf("memory: unsupported command type %s", def.Type)
	}
	var primaryKey string
	if pk, err := rel.Schema().PrimaryKey(); err == nil {
		primaryKey = pk.Name
	}
	if def.Type != command.Create && def.Key == "" && primaryKey == "" {
		return nil, fmt.Errorf("memory: %s command on %s needs a key or a primary key", def.Type, rel.Name())
	}
	return &memoryCommand{
		adapter:    a,
		name:       name,
		relation:   rel.Name(),
		dataset:    rel.Dataset(),
		fields:     rel.Schema().FieldNames(),
		primaryKey: primaryKey,
		def:        def,
	}, nil
}

// Close implements repository.Adapter
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type memoryCommand struct {
	adapter    *Adapter
	name       string
	relation   string
	dataset    string
	fields     []string
	primaryKey string
	def        command.Definition
}

func (c *memoryCommand) Name() string       { return c.name }
func (c *memoryCommand) Relation() string   { return c.relation }
func (c *memoryCommand) Type() command.Type { return c.def.Type }

func (c *memoryCommand) Call(ctx context.Context, input map[string]any) (any, error) {
	a := c.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, fmt.Errorf("memory: adapter is closed")
	}
	ds, ok := a.datasets[c.dataset]
	if !ok {
		ds = &Dataset{name: c.dataset}
		a.datasets[c.dataset] = ds
	}

	switch c.def.Type {
	case command.Create:
		values, err := command.FilterInput(c.def, c.fields, input)
		if err != nil {
			return nil, err
		}
		if c.primaryKey != "" {
			if id, set := values[c.primaryKey]; set {
				if n, ok := intValue(id); ok && n > ds.nextID {
					ds.nextID = n
				}
			} else {
				ds.nextID++
				values[c.primaryKey] = ds.nextID
			}
		}
		ds.rows = append(ds.rows, values)
		return copyRow(values), nil

	case command.Update:
		key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
		if err != nil {
			return nil, err
		}
		values, err := command.FilterInput(c.def, c.fields, input)
		if err != nil {
			return nil, err
		}
		delete(values, key)

		var updated []map[string]any
		for _, row := range ds.rows {
			if sameValue(row[key], keyValue) {
				for k, v := range values {
					row[k] = v
				}
				updated = append(updated, copyRow(row))
			}
		}
		return c.result(updated), nil

	default:
		key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
		if err != nil {
			return nil, err
		}
		kept := ds.rows[:0]
		var deleted []map[string]any
		for _, row := range ds.rows {
			if sameValue(row[key], keyValue) {
				deleted = append(deleted, row)
				continue
			}
			kept = append(kept, row)
		}
		ds.rows = kept
		return c.result(deleted), nil
	}
}

func (c *memoryCommand) result(rows []map[string]any) any {
	if c.def.Result == command.Many {
		return rows
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func matches(row, cond map[string]any) bool {
	for k, v := range cond {
		if !sameValue(row[k], v) {
			return false
		}
	}
	return true
}

// sameValue compares loosely so that 1 and int64(1) match
func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func copyRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = copyRow(row)
	}
	return out
}

// Field is a shorthand for declaring dataset columns
func Field(name string, p types.PrimitiveType) *schema.Field {
	return &schema.Field{Name: name, Type: p}
}
