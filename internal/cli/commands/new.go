package commands

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geomd/metaschema/internal/cli/ui"
	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
)

// maxSkeletonDepth bounds nested record skeletons
const maxSkeletonDepth = 3

// skeletonOptions controls which fields a skeleton contains
type skeletonOptions struct {
	// All includes optional fields
	All bool
	// Values fill top-level fields instead of placeholders
	Values map[string]any
}

// NewNewCommand creates the new command
func NewNewCommand() *cobra.Command {
	var (
		all         bool
		interactive bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "new TYPE",
		Short: "Write a YAML skeleton of a record",
		Long: `Write a commented YAML document with the fields of a record type, ready to
fill in and validate. Required fields only unless --all is given.

With --interactive the required fields of the record are prompted for.`,
		Example: `  metaschema new DataIdentification > dataset.yaml
  metaschema new Keywords --all
  metaschema new Usage -i -o usage.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			t, err := e.lookupType(args[0])
			if err != nil {
				return err
			}
			if t.Abstract() || t.External() {
				return fmt.Errorf("cannot create records of %s; concrete subtypes: %s",
					t.Name(), strings.Join(concreteSubtypes(e.catalog.Types, t.Name()), ", "))
			}

			opts := skeletonOptions{All: all}
			if interactive {
				if opts.Values, err = promptFields(e.catalog.Types, t); err != nil {
					return err
				}
			}

			data, err := renderSkeleton(e.catalog.Types, t, opts)
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
			ui.WriteSuccess(e.errOut, fmt.Sprintf("wrote %s skeleton to %s", t.Name(), output), e.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include optional fields")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for required fields")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// concreteSubtypes lists the instantiable descendants of name
func concreteSubtypes(reg *schema.Registry, name string) []string {
	var out []string
	for _, sub := range reg.Subtypes(name) {
		if t, err := reg.Lookup(sub); err == nil && !t.Abstract() && !t.External() {
			out = append(out, sub)
		}
	}
	return out
}

// renderSkeleton encodes the skeleton of t as YAML
func renderSkeleton(reg *schema.Registry, t *schema.RecordType, opts skeletonOptions) ([]byte, error) {
	node := skeleton(reg, t, opts, 0)
	node.HeadComment = t.Name() + " record"
	if t.Doc() != "" {
		node.HeadComment += ": " + t.Doc()
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// skeleton builds the mapping node of a record of t
func skeleton(reg *schema.Registry, t *schema.RecordType, opts skeletonOptions, depth int) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, scalar(record.TypeKey), scalar(t.Name()))

	for _, f := range t.EffectiveFields() {
		if !f.Required && !opts.All {
			continue
		}

		key := scalar(f.Name)
		key.HeadComment = fieldComment(reg, f)

		var value *yaml.Node
		if v, ok := opts.Values[f.Name]; ok && depth == 0 {
			value = &yaml.Node{}
			if err := value.Encode(v); err != nil {
				value = placeholder(reg, f, opts, depth)
			}
		} else {
			value = placeholder(reg, f, opts, depth)
		}
		m.Content = append(m.Content, key, value)
	}
	return m
}

func placeholder(reg *schema.Registry, f schema.FieldDescriptor, opts skeletonOptions, depth int) *yaml.Node {
	one := placeholderValue(reg, f, opts, depth)
	if f.Cardinality == schema.Many {
		return &yaml.Node{Kind: yaml.SequenceNode, Style: flowStyle(one), Content: []*yaml.Node{one}}
	}
	return one
}

func placeholderValue(reg *schema.Registry, f schema.FieldDescriptor, opts skeletonOptions, depth int) *yaml.Node {
	switch f.Kind {
	case schema.KindEnum:
		return quoted("")
	case schema.KindRecord:
		t, err := reg.Lookup(f.RefType)
		if err != nil || t.External() || depth+1 >= maxSkeletonDepth {
			return quoted("")
		}
		if t.Abstract() {
			subs := concreteSubtypes(reg, t.Name())
			if len(subs) == 0 {
				return quoted("")
			}
			if t, err = reg.Lookup(subs[0]); err != nil {
				return quoted("")
			}
		}
		return skeleton(reg, t, skeletonOptions{All: opts.All}, depth+1)
	}

	switch f.Primitive {
	case schema.PrimitiveInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: "0"}
	case schema.PrimitiveReal:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "0.0"}
	case schema.PrimitiveBoolean:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}
	default:
		return quoted("")
	}
}

// fieldComment describes a field above its key
func fieldComment(reg *schema.Registry, f schema.FieldDescriptor) string {
	var b strings.Builder
	if f.Doc != "" {
		b.WriteString(f.Doc)
		b.WriteString(" ")
	}

	b.WriteString("(")
	if f.Required {
		b.WriteString("required ")
	}
	switch f.Kind {
	case schema.KindEnum:
		codes, _ := reg.Vocabulary().CodesOf(f.RefType)
		fmt.Fprintf(&b, "%s: %s", f.RefType, summarizeCodes(codes))
	case schema.KindRecord:
		if t, err := reg.Lookup(f.RefType); err == nil && t.External() {
			fmt.Fprintf(&b, "reference to %s", f.RefType)
		} else {
			b.WriteString(f.RefType)
		}
	default:
		b.WriteString(f.Primitive.String())
	}
	if f.Cardinality == schema.Many {
		b.WriteString(", list")
	}
	b.WriteString(")")
	return b.String()
}

func summarizeCodes(codes []string) string {
	const shown = 6
	if len(codes) <= shown {
		return strings.Join(codes, ", ")
	}
	return strings.Join(codes[:shown], ", ") + fmt.Sprintf(", ... %d more", len(codes)-shown)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func quoted(value string) *yaml.Node {
	n := scalar(value)
	n.Style = yaml.DoubleQuotedStyle
	return n
}

func flowStyle(item *yaml.Node) yaml.Style {
	if item.Kind == yaml.ScalarNode {
		return yaml.FlowStyle
	}
	return 0
}

// promptFields asks for the required primitive and enumeration fields of t
func promptFields(reg *schema.Registry, t *schema.RecordType) (map[string]any, error) {
	values := make(map[string]any)

	for _, f := range t.EffectiveFields() {
		if !f.Required || f.Kind == schema.KindRecord {
			continue
		}

		value, err := promptField(reg, f)
		if err != nil {
			return nil, err
		}
		if f.Cardinality == schema.Many {
			value = []any{value}
		}
		values[f.Name] = value
	}
	return values, nil
}

func promptField(reg *schema.Registry, f schema.FieldDescriptor) (any, error) {
	message := f.Name + ":"
	help := f.Doc

	if f.Kind == schema.KindEnum {
		codes, err := reg.Vocabulary().CodesOf(f.RefType)
		if err != nil {
			return nil, err
		}
		var code string
		prompt := &survey.Select{Message: message, Options: codes, Help: help}
		if err := survey.AskOne(prompt, &code); err != nil {
			return nil, err
		}
		return code, nil
	}

	if f.Primitive == schema.PrimitiveBoolean {
		var b bool
		if err := survey.AskOne(&survey.Confirm{Message: message, Help: help}, &b); err != nil {
			return nil, err
		}
		return b, nil
	}

	var text string
	prompt := &survey.Input{Message: message, Help: help}
	validator := survey.ComposeValidators(survey.Required, primitiveValidator(f.Primitive))
	if err := survey.AskOne(prompt, &text, survey.WithValidator(validator)); err != nil {
		return nil, err
	}
	return parsePrimitive(f.Primitive, text)
}

// primitiveValidator rejects answers that do not parse as p
func primitiveValidator(p schema.Primitive) survey.Validator {
	return func(ans interface{}) error {
		s, _ := ans.(string)
		_, err := parsePrimitive(p, s)
		return err
	}
}

func parsePrimitive(p schema.Primitive, s string) (any, error) {
	switch p {
	case schema.PrimitiveInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case schema.PrimitiveReal:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return x, nil
	case schema.PrimitiveBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	case schema.PrimitiveDateTime:
		if _, err := record.ParseDateTime(s); err != nil {
			return nil, fmt.Errorf("%q is not a date or date-time", s)
		}
		return s, nil
	default:
		return s, nil
	}
}
