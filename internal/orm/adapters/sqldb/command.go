package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
)

type sqlCommand struct {
	adapter    *Adapter
	name       string
	relation   string
	table      string
	fields     []string
	primaryKey string
	def        command.Definition
}

func (c *sqlCommand) Name() string       { return c.name }
func (c *sqlCommand) Relation() string   { return c.relation }
func (c *sqlCommand) Type() command.Type { return c.def.Type }

// Call runs the statement in its own transaction and returns the affected
// rows as reported by RETURNING
func (c *sqlCommand) Call(ctx context.Context, input map[string]any) (any, error) {
	q, args, err := c.statement(input)
	if err != nil {
		return nil, err
	}

	var affected []map[string]any
	err = c.adapter.withTransaction(ctx, func(tx *sql.Tx) error {
		c.adapter.logger.Debug("command",
			zap.String("relation", c.relation),
			zap.String("command", c.name),
			zap.String("sql", q))
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		affected, err = scanRows(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.relation, c.name, ConvertDBError(err))
	}

	if c.def.Result == command.Many {
		return affected, nil
	}
	if len(affected) == 0 {
		return nil, nil
	}
	return affected[0], nil
}

func (c *sqlCommand) statement(input map[string]any) (string, []any, error) {
	d := c.adapter.dialect
	table := Quote(c.table)

	switch c.def.Type {
	case command.Create:
		values, err := command.FilterInput(c.def, c.fields, input)
		if err != nil {
			return "", nil, err
		}
		cols := sortedKeys(values)
		quoted := make([]string, len(cols))
		placeholders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = Quote(col)
			placeholders[i] = d.Placeholder(i + 1)
			args[i] = values[col]
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		return q, args, nil

	case command.Update:
		key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
		if err != nil {
			return "", nil, err
		}
		values, err := command.FilterInput(c.def, c.fields, input)
		if err != nil {
			return "", nil, err
		}
		delete(values, key)
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: nothing to update", command.ErrInvalidInput)
		}
		sets, args := c.adapter.equalities(values, 1, ", ")
		q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING *",
			table, sets, Quote(key), d.Placeholder(len(args)+1))
		return q, append(args, keyValue), nil

	default:
		key, keyValue, err := command.KeyValue(c.def, c.primaryKey, input)
		if err != nil {
			return "", nil, err
		}
		q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s RETURNING *",
			table, Quote(key), d.Placeholder(1))
		return q, []any{keyValue}, nil
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
