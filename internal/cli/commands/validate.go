package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/cli/ui"
	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/validation"
)

// documentResult is one entry of the JSON output of validate
type documentResult struct {
	Source string             `json:"source"`
	Report *validation.Report `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var (
		typeName string
		format   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Validate metadata record documents",
		Long: `Validate JSON or YAML record documents against the ISO 19115 schema.

Each document names its record type with an @type key unless --type is given.
With no files, or "-", the document is read from stdin. The command fails when
any document has an error; warnings alone do not fail it.`,
		Example: `  metaschema validate dataset.json
  metaschema validate --type DataIdentification --lenient draft.yaml
  metaschema validate --rules all -o json records/*.json
  cat record.json | metaschema validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output %q (want text or json)", output)
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

			if len(args) == 0 {
				args = []string{"-"}
			}

			var results []documentResult
			failed := 0
			for _, path := range args {
				source := path
				if path == "-" {
					source = "<stdin>"
				}
				result := documentResult{Source: source}

				data, err := readDocument(cmd, path)
				if err != nil {
					return err
				}
				m, err := decodeDocument(e.catalog.Types, path, data, format, typeName)
				if err != nil {
					failed++
					result.Error = err.Error()
					if output == "text" {
						e.reportDecodeError(source, err)
					}
					results = append(results, result)
					continue
				}

				report := validation.NewReport(m.Type, validator.ValidateMapping(m))
				if !report.Valid {
					failed++
				}
				result.Report = &report
				if output == "text" {
					ui.WriteReport(e.out, source, report, e.noColor)
				}
				results = append(results, result)
			}

			if output == "json" {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d document(s) invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Record type of the documents (overrides @type)")
	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Document format: auto, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output: text or json")
	cmd.Flags().Bool("lenient", false, "Report missing required fields as warnings")
	cmd.Flags().StringSlice("rules", nil, "Extra rules to apply, or \"all\"")

	return cmd
}
