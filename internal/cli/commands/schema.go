package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/cli/ui"
	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/schemadef"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and export record types",
	}

	cmd.AddCommand(newSchemaTypesCommand())
	cmd.AddCommand(newSchemaShowCommand())
	cmd.AddCommand(newSchemaExportCommand())
	return cmd
}

func newSchemaTypesCommand() *cobra.Command {
	var concrete bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List record types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			types := e.catalog.Types
			table := ui.NewTable(e.out, []string{"TYPE", "PARENT", "FIELDS", "NOTES"}, &ui.TableOptions{NoColor: e.noColor})
			for _, name := range types.Names() {
				t, err := types.Lookup(name)
				if err != nil {
					return err
				}
				if concrete && (t.Abstract() || t.External()) {
					continue
				}
				table.AddRow(name, t.Parent(), strconv.Itoa(len(t.EffectiveFields())), typeNotes(t))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&concrete, "concrete", false, "Only list types records can be created of")
	return cmd
}

func typeNotes(t *schema.RecordType) string {
	switch {
	case t.External():
		return "external"
	case t.Abstract():
		return "abstract"
	default:
		return ""
	}
}

func newSchemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show TYPE",
		Short: "Show a record type and its effective fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			t, err := e.lookupType(args[0])
			if err != nil {
				return err
			}

			ui.Header(e.out, t.Name(), e.noColor)
			kv := ui.NewKeyValueTable(e.out, e.noColor)
			kv.AddRow("Parent", t.Parent())
			kv.AddRow("Kind", typeNotes(t))
			kv.AddRow("Subtypes", strings.Join(e.catalog.Types.Subtypes(t.Name()), ", "))
			kv.AddRow("Doc", t.Doc())
			kv.Render()
			fmt.Fprintln(e.out)

			own := make(map[string]bool)
			for _, f := range t.OwnFields() {
				own[f.Name] = true
			}

			table := ui.NewTable(e.out, []string{"FIELD", "TYPE", "KIND", "CARDINALITY", "REQUIRED", "FROM"}, &ui.TableOptions{NoColor: e.noColor})
			for _, f := range t.EffectiveFields() {
				from := t.Name()
				if !own[f.Name] {
					from = declaringType(e.catalog.Types, t, f.Name)
				}
				required := ""
				if f.Required {
					required = "yes"
				}
				table.AddRow(f.Name, fieldType(f), f.Kind.String(), f.Cardinality.String(), required, from)
			}
			table.Render()
			return nil
		},
	}
}

// declaringType walks up from t to the ancestor declaring field
func declaringType(reg *schema.Registry, t *schema.RecordType, field string) string {
	for name := t.Parent(); name != ""; {
		parent, err := reg.Lookup(name)
		if err != nil {
			return name
		}
		for _, f := range parent.OwnFields() {
			if f.Name == field {
				return name
			}
		}
		name = parent.Parent()
	}
	return ""
}

func fieldType(f schema.FieldDescriptor) string {
	if f.Kind == schema.KindPrimitive {
		return f.Primitive.String()
	}
	return f.RefType
}

func newSchemaExportCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the loaded schema as a schema document",
		Long: `Export every enumeration and record type, extensions included, as one
schema document that can be loaded back with --schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			doc, err := schemadef.Export(e.catalog.Types)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case formatYAML:
				data, err = doc.Marshal()
			case formatJSON:
				data, err = json.MarshalIndent(doc, "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = e.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			ui.WriteSuccess(e.errOut, fmt.Sprintf("exported %d types to %s", len(doc.Types), output), e.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", formatYAML, "Output format: yaml or json")
	return cmd
}
