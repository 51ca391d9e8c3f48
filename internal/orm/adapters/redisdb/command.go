package redisdb

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
)

type redisCommand struct {
	adapter    *Adapter
	name       string
	relation   string
	dataset    string
	fields     []string
	primaryKey string
	def        command.Definition
}

func (c *redisCommand) Name() string       { return c.name }
func (c *redisCommand) Relation() string   { return c.relation }
func (c *redisCommand) Type() command.Type { return c.def.Type }

// Call writes through a MULTI/EXEC pipeline and returns the affected rows as
// stored
func (c *redisCommand) Call(ctx context.Context, input map[string]any) (any, error) {
	var (
		rows []map[string]any
		err  error
	)
	switch c.def.Type {
	case command.Create:
		rows, err = c.create(ctx, input)
	case command.Update:
		rows, err = c.update(ctx, input)
	default:
		rows, err = c.delete(ctx, input)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.relation, c.name, err)
	}

	c.adapter.logger.Debug("command",
		zap.String("relation", c.relation),
		zap.String("command", c.name),
		zap.Int("rows", len(rows)))

	if c.def.Result == command.Many {
		return rows, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (c *redisCommand) create(ctx context.Context, input map[string]any) ([]map[string]any, error) {
	values, err := command.FilterInput(c.def, c.fields, input)
	if err != nil {
		return nil, err
	}

	a := c.adapter
	if id, ok := values[c.primaryKey]; !ok || id == nil {
		next, err := a.nextID(ctx, c.dataset)
		if err != nil {
			return nil, err
		}
		values[c.primaryKey] = next
	}

	key := a.rowKey(c.dataset, toString(values[c.primaryKey]))
	row := stored(values)
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, flatten(row)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func (c *redisCommand) update(ctx context.Context, input map[string]any) ([]map[string]any, error) {
	key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
	if err != nil {
		return nil, err
	}
	values, err := command.FilterInput(c.def, c.fields, input)
	if err != nil {
		return nil, err
	}
	delete(values, key)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", command.ErrInvalidInput)
	}

	keys, rows, err := c.targets(ctx, key, keyValue)
	if err != nil || len(keys) == 0 {
		return rows, err
	}

	set := make(map[string]any)
	var unset []string
	for k, v := range values {
		if v == nil {
			unset = append(unset, k)
			continue
		}
		set[k] = toString(v)
	}

	a := c.adapter
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			if len(set) > 0 {
				pipe.HSet(ctx, k, flatten(set)...)
			}
			if len(unset) > 0 {
				pipe.HDel(ctx, k, unset...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		for k, v := range set {
			row[k] = v
		}
		for _, k := range unset {
			delete(row, k)
		}
	}
	return rows, nil
}

func (c *redisCommand) delete(ctx context.Context, input map[string]any) ([]map[string]any, error) {
	key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
	if err != nil {
		return nil, err
	}

	keys, rows, err := c.targets(ctx, key, keyValue)
	if err != nil || len(keys) == 0 {
		return rows, err
	}
	if err := c.adapter.client.Del(ctx, keys...).Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// targets finds the rows whose key attribute equals value. Lookups by the
// primary key read the row's hash directly.
func (c *redisCommand) targets(ctx context.Context, key string, value any) ([]string, []map[string]any, error) {
	a := c.adapter
	if key != c.primaryKey {
		return a.matching(ctx, c.dataset, map[string]any{key: value})
	}

	rowKey := a.rowKey(c.dataset, toString(value))
	fields, err := a.client.HGetAll(ctx, rowKey).Result()
	if err != nil {
		return nil, nil, err
	}
	if len(fields) == 0 {
		return nil, []map[string]any{}, nil
	}
	row := make(map[string]any, len(fields))
	for k, v := range fields {
		row[k] = v
	}
	return []string{rowKey}, []map[string]any{row}, nil
}

// nextID advances the dataset's sequence past ids already taken
func (a *Adapter) nextID(ctx context.Context, dataset string) (int64, error) {
	for {
		next, err := a.client.HIncrBy(ctx, a.prefix+sequences, dataset, 1).Result()
		if err != nil {
			return 0, err
		}
		taken, err := a.client.Exists(ctx, a.rowKey(dataset, next)).Result()
		if err != nil {
			return 0, err
		}
		if taken == 0 {
			return next, nil
		}
	}
}

// stored returns values the way HGETALL will read them back
func stored(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		out[k] = toString(v)
	}
	return out
}

func flatten(m map[string]any) []any {
	out := make([]any, 0, len(m)*2)
	for k, v := range m {
		out = append(out, k, v)
	}
	return out
}
