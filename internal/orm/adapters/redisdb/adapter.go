// Package redisdb implements a Redis datastore adapter. A dataset is the set
// of hashes stored under "<prefix><dataset>:<id>"; each hash is one row.
package redisdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// AdapterName is the repository type the adapter registers under
const AdapterName = "redis"

// IDField is the row attribute holding the key suffix
const IDField = "id"

// sequences is the hash holding the last id handed out per dataset
const sequences = "__sequences"

// scanCount is the COUNT hint passed to SCAN
const scanCount = 100

func init() {
	repository.Register(AdapterName, func(ctx context.Context, cfg repository.Config, logger *zap.Logger) (repository.Adapter, error) {
		url := cfg.URL
		if url == "" {
			url = "redis://localhost:6379/0"
		}
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid url: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis: failed to connect: %w", err)
		}

		prefix, _ := cfg.Options["prefix"].(string)
		a := New(client, prefix, logger)
		a.owned = true
		return a, nil
	})
}

// Adapter exposes hash rows stored in Redis as datasets
type Adapter struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	owned  bool
}

// New wraps an existing client. Close does not close it.
func New(client *redis.Client, prefix string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, prefix: prefix, logger: logger}
}

// Name implements repository.Adapter
func (a *Adapter) Name() string { return AdapterName }

func (a *Adapter) rowKey(dataset string, id any) string {
	return fmt.Sprintf("%s%s:%v", a.prefix, dataset, id)
}

// scan collects the keys matching pattern
func (a *Adapter) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := a.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Datasets implements repository.Adapter
func (a *Adapter) Datasets(ctx context.Context) ([]string, error) {
	keys, err := a.scan(ctx, a.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("redis: list datasets: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, a.prefix)
		i := strings.LastIndexByte(rest, ':')
		if i <= 0 {
			continue
		}
		if name := rest[:i]; !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// rows loads every row of dataset, keyed by redis key
func (a *Adapter) rows(ctx context.Context, dataset string) ([]string, []map[string]any, error) {
	keys, err := a.scan(ctx, a.rowKey(dataset, "*"))
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, []map[string]any{}, nil
	}

	pipe := a.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	// per-command errors are inspected below
	_, _ = pipe.Exec(ctx)

	rows := make([]map[string]any, 0, len(keys))
	found := make([]string, 0, len(keys))
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			// keys of other types under the same prefix are not rows
			if strings.HasPrefix(err.Error(), "WRONGTYPE") {
				continue
			}
			return nil, nil, err
		}
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		row := make(map[string]any, len(fields))
		for k, v := range fields {
			row[k] = v
		}
		rows = append(rows, row)
		found = append(found, keys[i])
	}
	return found, rows, nil
}

// ExtendRelation infers string fields from the stored hashes and installs
// the "all" and "where" read methods. The id field becomes the primary key
// unless the relation declares one.
func (a *Adapter) ExtendRelation(ctx context.Context, rel *relation.Relation) error {
	_, rows, err := a.rows(ctx, rel.Dataset())
	if err != nil {
		return fmt.Errorf("redis: introspect %s: %w", rel.Dataset(), err)
	}

	s := rel.Schema()
	if _, err := s.PrimaryKey(); err != nil && !s.HasField(IDField) {
		s.SetField(&schema.Field{Name: IDField, Type: types.TypeString, Primary: true})
	}

	names := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			names[k] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		if !s.HasField(name) {
			s.SetField(&schema.Field{Name: name, Type: types.TypeString, Nullable: true})
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
		zap.Int("rows", len(rows)),
		zap.Strings("fields", sorted))
	return nil
}

func (a *Adapter) all(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	_, rows, err := a.rows(ctx, rel.Dataset())
	return rows, err
}

// where returns the rows whose string form equals every entry of the
// condition map
func (a *Adapter) where(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("where expects one condition map, got %d arguments", len(args))
	}
	cond, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("where expects map[string]any, got %T", args[0])
	}

	_, rows, err := a.matching(ctx, rel.Dataset(), cond)
	return rows, err
}

func (a *Adapter) matching(ctx context.Context, dataset string, cond map[string]any) ([]string, []map[string]any, error) {
	keys, rows, err := a.rows(ctx, dataset)
	if err != nil {
		return nil, nil, err
	}

	var outKeys []string
	out := []map[string]any{}
	for i, row := range rows {
		if matches(row, cond) {
			outKeys = append(outKeys, keys[i])
			out = append(out, row)
		}
	}
	return outKeys, out, nil
}

func matches(row, cond map[string]any) bool {
	for k, want := range cond {
		got, ok := row[k]
		if !ok || got != toString(want) {
			return false
		}
	}
	return true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Command implements repository.Adapter
func (a *Adapter) Command(name string, rel *relation.Relation, def command.Definition) (command.Command, error) {
	switch def.Type {
	case command.Create, command.Update, command.Delete:
	default:
		return nil, fmt.Errorf("redis: unsupported command type %s", def.Type)
	}
	primaryKey := IDField
	if pk, err := rel.Schema().PrimaryKey(); err == nil {
		primaryKey = pk.Name
	}
	return &redisCommand{
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
	if !a.owned {
		return nil
	}
	return a.client.Close()
}
