package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/cli/ui"
	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/validation"
)

// NewRecordsCommand creates the records command
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Import, list and remove stored records",
		Long: `Work with the record store directly, without the HTTP API.
Every subcommand needs database.url (or --db-url).`,
	}

	cmd.AddCommand(newRecordsImportCommand())
	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsDeleteCommand())
	return cmd
}

func newRecordsImportCommand() *cobra.Command {
	var (
		typeName string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Validate documents and store the valid ones",
		Long: `Validate each document and store it when it has no errors. Invalid documents
are reported and skipped; the command fails if any was skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			rules, err := iso19115.Rules(e.cfg.Validation.Rules...)
			if err != nil {
				return err
			}
			opts := []validation.Option{validation.WithRules(rules...), validation.WithLogger(e.logger)}
			if e.cfg.Validation.Lenient {
				opts = append(opts, validation.WithLenientMandatory())
			}
			validator := e.catalog.Validator(opts...)

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}

			type rejected struct {
				source string
				report validation.Report
				err    error
			}
			var skipped []rejected
			stored := 0

			bar := ui.NewProgressBar(e.errOut, ui.ProgressBarOptions{Total: len(args), Message: "importing", NoColor: e.noColor})
			for _, path := range args {
				data, err := readDocument(cmd, path)
				if err != nil {
					return err
				}

				m, err := decodeDocument(e.catalog.Types, path, data, format, typeName)
				if err != nil {
					skipped = append(skipped, rejected{source: path, err: err})
					bar.Add(1)
					continue
				}

				report := validation.NewReport(m.Type, validator.ValidateMapping(m))
				if !report.Valid {
					skipped = append(skipped, rejected{source: path, report: report})
					bar.Add(1)
					continue
				}

				rec, err := record.FromMapping(e.catalog.Types, m)
				if err != nil {
					skipped = append(skipped, rejected{source: path, err: err})
					bar.Add(1)
					continue
				}
				rec.Freeze()
				if _, err := st.Save(cmd.Context(), rec); err != nil {
					return err
				}
				stored++
				bar.Add(1)
			}
			bar.Finish(fmt.Sprintf("stored %d of %d record(s)", stored, len(args)))

			for _, r := range skipped {
				if r.err != nil {
					e.reportDecodeError(r.source, r.err)
					continue
				}
				ui.WriteReport(e.errOut, r.source, r.report, e.noColor)
			}
			if len(skipped) > 0 {
				return fmt.Errorf("%d document(s) skipped", len(skipped))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Record type of the documents (overrides @type)")
	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Document format: auto, json or yaml")
	cmd.Flags().Bool("lenient", false, "Report missing required fields as warnings")
	cmd.Flags().StringSlice("rules", nil, "Extra rules to apply, or \"all\"")
	addDatabaseFlags(cmd)
	return cmd
}

func newRecordsListCommand() *cobra.Command {
	var (
		typeName string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if typeName != "" {
				if _, err := e.lookupType(typeName); err != nil {
					return err
				}
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stored, err := st.List(cmd.Context(), typeName, limit)
			if err != nil {
				return err
			}

			table := ui.NewTable(e.out, []string{"ID", "TYPE", "CREATED"}, &ui.TableOptions{NoColor: e.noColor})
			for _, s := range stored {
				table.AddRow(s.ID, s.Type, s.CreatedAt.Format(time.RFC3339))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Only records of this type and its subtypes")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of records; 0 lists all")
	addDatabaseFlags(cmd)
	return cmd
}

func newRecordsGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a stored record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(rec.ToMapping(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, string(data))
			return nil
		},
	}

	addDatabaseFlags(cmd)
	return cmd
}

func newRecordsDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete stored records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
				ui.WriteSuccess(e.out, "deleted "+id, e.noColor)
			}
			return nil
		},
	}

	addDatabaseFlags(cmd)
	return cmd
}
