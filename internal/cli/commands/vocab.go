package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/cli/ui"
	utilstrings "github.com/geomd/metaschema/internal/util/strings"
)

// NewVocabCommand creates the vocab command
func NewVocabCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vocab",
		Aliases: []string{"vocabulary"},
		Short:   "Inspect controlled vocabularies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List enumerations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			v := e.catalog.Vocabulary
			table := ui.NewTable(e.out, []string{"ENUMERATION", "CODES", "FIRST"}, &ui.TableOptions{NoColor: e.noColor})
			for _, name := range v.Names() {
				codes, err := v.CodesOf(name)
				if err != nil {
					return err
				}
				first := ""
				if len(codes) > 0 {
					first = strings.Join(codes[:min(3, len(codes))], ", ")
				}
				table.AddRow(name, strconv.Itoa(len(codes)), first)
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show ENUMERATION",
		Short: "List the codes of an enumeration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			v := e.catalog.Vocabulary
			codes, err := v.CodesOf(args[0])
			if err != nil {
				suggestions := utilstrings.Suggest(args[0], v.Names(), maxSuggestions)
				ui.UnknownVocabularyError(args[0], suggestions, e.noColor).Write(e.errOut)
				return errReported
			}

			ui.Header(e.out, args[0], e.noColor)
			ui.List(e.out, codes, e.noColor)
			return nil
		},
	})

	return cmd
}
