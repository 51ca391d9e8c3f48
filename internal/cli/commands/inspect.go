package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/cli/config"
	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/logging"
	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/env"
	"github.com/conduit-lang/relmap/internal/orm/structs"
)

// RelationReport describes one finalized relation
type RelationReport struct {
	Name         string            `json:"name"`
	Repository   string            `json:"repository"`
	Adapter      string            `json:"adapter"`
	Dataset      string            `json:"dataset"`
	Fields       []FieldReport     `json:"fields"`
	Associations []string          `json:"associations,omitempty"`
	DependsOn    []string          `json:"depends_on,omitempty"`
	ReferencedBy []string          `json:"referenced_by,omitempty"`
	LoadOrder    int               `json:"load_order,omitempty"`
	Methods      []string          `json:"methods"`
	Struct       string            `json:"struct,omitempty"`
	Attributes   []AttributeReport `json:"attributes,omitempty"`
	Mappers      []string          `json:"mappers,omitempty"`
	Commands     []string          `json:"commands,omitempty"`
}

// FieldReport describes one relation attribute
type FieldReport struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Primary bool   `json:"primary,omitempty"`
}

// AttributeReport describes one compiled struct attribute
type AttributeReport struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var (
		format       string
		relationName string
		commandTypes []string
	)

	cmd := &cobra.Command{
		Use:   "inspect [relation]",
		Short: "Show the relations built from configured repositories",
		Long: `Open every configured repository, build a relation for each dataset and
finalize them into an environment. Prints each relation's attributes and
associations, the struct its reader compiles, and its commands.`,
		Example: `  # All relations
  relmap inspect

  # One relation as JSON
  relmap inspect users --format json

  # Also build create and update commands for every relation
  relmap inspect --commands create,update`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				relationName = args[0]
			}
			return runInspect(cmd, format, relationName, commandTypes)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: json or table")
	cmd.Flags().StringVarP(&relationName, "relation", "r", "", "Only show this relation")
	cmd.Flags().StringSliceVar(&commandTypes, "commands", nil, "Command types to build for every relation (create, update, delete)")

	return cmd
}

func runInspect(cmd *cobra.Command, format, relationName string, commandTypes []string) error {
	formatter, err := GetFormatter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err, noColor))
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(level, logging.Format(cfg.Log.Format))
	if err != nil {
		return err
	}
	defer logger.Sync()

	e, err := buildEnv(cmd.Context(), cfg, logger, commandTypes)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.FinalizeError(err, noColor))
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("close repositories", zap.Error(err))
		}
	}()

	names := e.Relations().Names()
	if relationName != "" {
		if !e.Relations().Has(relationName) {
			fmt.Fprint(cmd.ErrOrStderr(), ui.RelationNotFoundError(relationName, names, noColor))
			return fmt.Errorf("relation %q not found", relationName)
		}
		names = []string{relationName}
	}

	reports, err := inspectRelations(e, names, logger)
	if err != nil {
		return err
	}
	return formatter.Format(reports)
}

// inspectRelations reports on names. Load order follows belongs_to targets
// first and is left out when the relations form a cycle.
func inspectRelations(e *env.Env, names []string, logger *zap.Logger) ([]RelationReport, error) {
	position := make(map[string]int)
	order, err := e.Relations().DependencyOrder()
	if err != nil {
		for _, cycle := range e.Relations().Cycles() {
			logger.Warn("belongs_to cycle", zap.Strings("relations", cycle))
		}
	}
	for i, name := range order {
		position[name] = i + 1
	}

	reports := make([]RelationReport, 0, len(names))
	for _, name := range names {
		report, err := inspectRelation(e, name)
		if err != nil {
			return nil, err
		}
		report.LoadOrder = position[name]
		reports = append(reports, report)
	}
	return reports, nil
}

func inspectRelation(e *env.Env, name string) (RelationReport, error) {
	rel, err := e.Relation(name)
	if err != nil {
		return RelationReport{}, err
	}

	report := RelationReport{
		Name:       name,
		Repository: rel.Repository(),
		Adapter:    rel.Adapter().Name(),
		Dataset:    rel.Dataset(),
		Methods:    append(rel.AdapterMethods(), rel.Methods()...),
	}
	for _, f := range rel.Schema().Fields() {
		report.Fields = append(report.Fields, FieldReport{Name: f.Name, Type: f.String(), Primary: f.Primary})
	}
	for _, r := range rel.Schema().Relationships() {
		report.Associations = append(report.Associations, fmt.Sprintf("%s %s -> %s", r.Type, r.Name, r.Target))
	}
	if deps := e.Relations().Dependencies(name); len(deps) > 0 {
		report.DependsOn = deps
	}
	if dependents := e.Relations().Dependents(name); len(dependents) > 0 {
		report.ReferencedBy = dependents
	}

	if rd, ok := e.Readers().Get(name); ok {
		report.Mappers = rd.Mappers()
		report.Struct = rd.Model().ModelName()
		if s, ok := rd.Model().(*structs.Struct); ok {
			for _, attr := range s.Attributes() {
				report.Attributes = append(report.Attributes, AttributeReport{Name: attr.Name, Type: attr.Type.String()})
			}
		}
	}

	if cmds, ok := e.Commands().Get(name); ok {
		_ = cmds.Each(func(cmdName string, c command.Command) error {
			report.Commands = append(report.Commands, fmt.Sprintf("%s (%s)", cmdName, c.Type()))
			return nil
		})
	}
	return report, nil
}

// Formatter writes inspection reports
type Formatter interface {
	Format(reports []RelationReport) error
}

// TableFormatter formats reports as human-readable tables
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format writes a header and an attribute table per relation
func (f *TableFormatter) Format(reports []RelationReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(f.writer, ui.Warning("No relations found", noColor))
		return nil
	}

	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(f.writer)
		}
		ui.Header(f.writer, r.Name, noColor)

		kv := ui.NewKeyValueTable(f.writer, "", noColor)
		kv.AddRow("repository", fmt.Sprintf("%s (%s)", r.Repository, r.Adapter))
		kv.AddRow("dataset", r.Dataset)
		kv.AddRow("methods", join(r.Methods))
		if r.Struct != "" {
			kv.AddRow("struct", r.Struct)
		}
		if len(r.Mappers) > 0 {
			kv.AddRow("mappers", join(r.Mappers))
		}
		if len(r.Associations) > 0 {
			kv.AddRow("associations", join(r.Associations))
		}
		if len(r.DependsOn) > 0 {
			kv.AddRow("depends on", join(r.DependsOn))
		}
		if len(r.ReferencedBy) > 0 {
			kv.AddRow("referenced by", join(r.ReferencedBy))
		}
		if r.LoadOrder > 0 {
			kv.AddRow("load order", fmt.Sprint(r.LoadOrder))
		}
		if len(r.Commands) > 0 {
			kv.AddRow("commands", join(r.Commands))
		}
		kv.Render()
		fmt.Fprintln(f.writer)

		table := ui.NewTable(f.writer, []string{"FIELD", "TYPE", "KEY", "STRUCT TYPE"}, noColor)
		structTypes := make(map[string]string, len(r.Attributes))
		for _, attr := range r.Attributes {
			structTypes[attr.Name] = attr.Type
		}
		for _, field := range r.Fields {
			key := ""
			if field.Primary {
				key = "PK"
			}
			table.AddRow(field.Name, field.Type, key, structTypes[field.Name])
		}
		table.Render()
	}
	return nil
}

func join(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// JSONFormatter formats reports as JSON
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format writes the reports as an indented JSON array
func (f *JSONFormatter) Format(reports []RelationReport) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reports)
}

// GetFormatter returns the formatter for the format flag
func GetFormatter(format string, writer io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONFormatter(writer), nil
	case "table":
		return NewTableFormatter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, table)", format)
	}
}
