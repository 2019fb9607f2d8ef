package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geomd/metaschema/internal/cli/config"
	"github.com/geomd/metaschema/internal/cli/ui"
	"github.com/geomd/metaschema/internal/iso19115"
	"github.com/geomd/metaschema/internal/logging"
	"github.com/geomd/metaschema/internal/record"
	"github.com/geomd/metaschema/internal/schema"
	"github.com/geomd/metaschema/internal/schemadef"
	"github.com/geomd/metaschema/internal/store"
	utilstrings "github.com/geomd/metaschema/internal/util/strings"
)

// maxSuggestions bounds "did you mean" lists
const maxSuggestions = 3

// errReported marks an error already rendered to the user
var errReported = errors.New("command failed")

// env is what every command needs: configuration, logger and catalogue
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *iso19115.Catalog
	noColor bool
	out     io.Writer
	errOut  io.Writer
}

// loadEnv reads the configuration and loads the catalogue with its extensions
func loadEnv(cmd *cobra.Command) (*env, error) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	noColor = noColor || color.NoColor
	e := &env{noColor: noColor, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		ui.ConfigError(err, noColor).Write(e.errOut)
		return nil, errReported
	}
	e.cfg = cfg

	e.logger, err = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		ui.ConfigError(err, noColor).Write(e.errOut)
		return nil, errReported
	}

	e.catalog, err = loadCatalog(cfg.Schema.Extensions)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// loadCatalog returns the built-in catalogue, or a new one with extensions
func loadCatalog(extensions []string) (*iso19115.Catalog, error) {
	if len(extensions) == 0 {
		return iso19115.Default(), nil
	}

	docs := make([]*schemadef.Document, 0, len(extensions))
	for _, path := range extensions {
		doc, err := schemadef.ParseFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return iso19115.Load(docs...)
}

// openStore opens the configured record store
func (e *env) openStore() (*store.Store, error) {
	if e.cfg.Database.URL == "" {
		return nil, errors.New("no database configured: set database.url or METASCHEMA_DATABASE_URL")
	}
	return store.Open(e.cfg.Database.Driver, e.cfg.Database.URL, e.catalog.Types, e.logger.Named("store"))
}

// lookupType resolves a type name, rendering suggestions when it is unknown
func (e *env) lookupType(name string) (*schema.RecordType, error) {
	t, err := e.catalog.Types.Lookup(name)
	if err != nil {
		suggestions := utilstrings.Suggest(name, e.catalog.Types.Names(), maxSuggestions)
		ui.UnknownTypeError(name, suggestions, e.noColor).Write(e.errOut)
		return nil, errReported
	}
	return t, nil
}

// reportDecodeError renders a document that could not be decoded
func (e *env) reportDecodeError(source string, err error) {
	switch {
	case errors.Is(err, schema.ErrUnknownRecordType):
		name := strings.TrimPrefix(err.Error(), schema.ErrUnknownRecordType.Error()+": ")
		suggestions := utilstrings.Suggest(name, e.catalog.Types.Names(), maxSuggestions)
		msg := ui.UnknownTypeError(name, suggestions, e.noColor)
		msg.Detail = source
		msg.Write(e.errOut)
	case errors.Is(err, record.ErrMissingType):
		ui.Message{
			Context: source,
			Problem: "document has no @type",
			Hints:   []string{"Name the type with --type or an @type key"},
			NoColor: e.noColor,
		}.Write(e.errOut)
	default:
		ui.Message{Context: source, Problem: err.Error(), NoColor: e.noColor}.Write(e.errOut)
	}
}

// Document formats accepted by decodeDocument
const (
	formatAuto = "auto"
	formatJSON = "json"
	formatYAML = "yaml"
)

// readDocument reads path, or stdin for "-"
func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeDocument decodes a record document. In auto mode .yaml and .yml files
// are YAML and everything else is JSON.
func decodeDocument(reg *schema.Registry, path string, data []byte, format, typeName string) (record.Mapping, error) {
	if format == formatAuto {
		format = formatJSON
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = formatYAML
		}
	}

	switch format {
	case formatYAML:
		return record.DecodeYAML(reg, data, typeName)
	case formatJSON:
		return record.DecodeJSON(reg, data, typeName)
	default:
		return record.Mapping{}, fmt.Errorf("unknown document format %q (want auto, json or yaml)", format)
	}
}
