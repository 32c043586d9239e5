package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata"
	"github.com/roach88/strata/recwire"
	"github.com/roach88/strata/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Schema     string
	Mappings   []string
	Query      string
	LoadPath   string
	ExportPath string
	ShowStats  bool
	ConfigPath string
}

// NewRunCommand creates the run command: ingest stdin, then optionally
// query, export, and print stats.
func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest a record stream and query it",
		Long: `Reads length-prefixed records from stdin into an in-memory database
described by --schema, then runs the optional --query and --export steps.

Example:
  cat data.bin | strata run --schema app.fbs --map USER=User --query 'SELECT * FROM User'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file (IDL format, required)")
	cmd.Flags().StringArrayVar(&opts.Mappings, "map", nil, "tag=Table routing mapping (repeatable)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "SQL query to run after ingesting")
	cmd.Flags().StringVar(&opts.LoadPath, "load", "", "load an exported stream before stdin")
	cmd.Flags().StringVar(&opts.ExportPath, "export", "", "export the stream to a file afterwards")
	cmd.Flags().BoolVar(&opts.ShowStats, "stats", false, "print statistics after ingesting")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runRun(cmd *cobra.Command, root *RootOptions, opts *RunOptions, stdin io.Reader) error {
	cfg := strata.Config{}
	mappings := map[string]string{}

	if opts.ConfigPath != "" {
		fc, err := LoadFileConfig(opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = fc.EngineConfig()
		for tag, table := range fc.Mappings {
			mappings[tag] = table
		}
	}
	for _, m := range opts.Mappings {
		tag, table, ok := strings.Cut(m, "=")
		if !ok {
			return fmt.Errorf("bad --map %q: want TAG=Table", m)
		}
		mappings[tag] = table
	}

	schemaSource, err := os.ReadFile(opts.Schema)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	db, err := strata.FromSchema(string(schemaSource), "cli", cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for tag, table := range mappings {
		if err := db.RegisterFileID(tag, table); err != nil {
			return err
		}
	}
	installExtractors(db)

	if opts.LoadPath != "" {
		data, err := os.ReadFile(opts.LoadPath)
		if err != nil {
			return fmt.Errorf("read load file: %w", err)
		}
		if err := db.Load(data); err != nil {
			return fmt.Errorf("load %s: %w", opts.LoadPath, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d bytes from %s\n", len(data), opts.LoadPath)
	}

	chunkSize := cfg.StdinChunkSize
	if chunkSize <= 0 {
		chunkSize = 64 << 10
	}
	records, err := ingestStream(db, stdin, chunkSize)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if records > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Ingested %d records\n", records)
	}

	if opts.ShowStats {
		printStats(cmd.ErrOrStderr(), db)
	}

	if opts.Query != "" {
		res, err := db.Query(opts.Query)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		if err := writeResult(cmd.OutOrStdout(), root.Format, res); err != nil {
			return err
		}
	}

	if opts.ExportPath != "" {
		data := db.Export()
		if err := os.WriteFile(opts.ExportPath, data, 0o644); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d bytes to %s\n", len(data), opts.ExportPath)
	}

	return nil
}

// installExtractors wires the recwire reference codec for every registered
// table. Hosts with other payload formats use the library directly.
func installExtractors(db *strata.Database) {
	for _, name := range db.ListTables() {
		cols := db.TableColumns(name)
		specs := make([]recwire.ColumnSpec, 0, len(cols))
		for _, c := range cols {
			kind, _ := value.ParseKind(c.Type)
			specs = append(specs, recwire.ColumnSpec{Name: c.Name, Kind: kind})
		}
		ex := recwire.Extractor(specs)
		db.SetFieldExtractor(name, ex.Field)
		db.SetBatchExtractor(name, ex.Batch)
		db.SetFastWriter(name, ex.FastWrite)
	}
}

// ingestStream feeds the reader through the database in chunks, holding
// frame residue between reads.
func ingestStream(db *strata.Database, r io.Reader, chunkSize int) (int, error) {
	var pending []byte
	buf := make([]byte, chunkSize)
	total := 0
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			consumed, records, err := db.Ingest(pending)
			if err != nil {
				return total, err
			}
			total += records
			pending = pending[consumed:]
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}
	if len(pending) > 0 {
		return total, fmt.Errorf("stream ended mid-frame with %d residual bytes", len(pending))
	}
	return total, nil
}
