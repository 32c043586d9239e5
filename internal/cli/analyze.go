package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/schema"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	Schemas   []string
	Junctions bool
}

// NewAnalyzeCommand creates the analyze command: parse schemas and report
// tables, indices, references, and derived junction tables.
func NewAnalyzeCommand(root *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze schema files",
		RunE: func(cmd *cobra.Command, args []string) error {
			an := schema.NewAnalyzer()
			for _, path := range opts.Schemas {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read schema: %w", err)
				}
				an.AddSchema(filepath.Base(path), string(content))
			}
			res, err := an.Analyze()
			if err != nil {
				return err
			}
			if root.Format == "json" {
				return writeAnalysisJSON(cmd.OutOrStdout(), res)
			}
			writeAnalysisText(cmd.OutOrStdout(), res, opts.Junctions)
			if len(res.Errors) > 0 {
				return fmt.Errorf("schema has %d errors", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.Schemas, "schema", nil, "schema file (repeatable; first is the root)")
	cmd.Flags().BoolVar(&opts.Junctions, "junctions", false, "print junction-table DDL")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func writeAnalysisText(w io.Writer, res *schema.Analysis, junctions bool) {
	for _, def := range res.Defs() {
		t := res.Tables[def.Name]
		fmt.Fprintf(w, "table %s (%s)\n", t.Name, t.SourceFile)
		for _, c := range t.Columns {
			marker := ""
			if c.Indexed {
				marker = " [indexed]"
			}
			fmt.Fprintf(w, "  %s: %s%s\n", c.Name, c.Kind, marker)
		}
		for _, ref := range t.References {
			target := ref.Target
			if len(ref.UnionTypes) > 0 {
				target = strings.Join(ref.UnionTypes, "|")
			}
			fmt.Fprintf(w, "  %s -> %s (%s)\n", ref.Field, target, ref.Relation)
		}
	}

	if res.RootType != "" {
		fmt.Fprintf(w, "root_type %s", res.RootType)
		if res.FileID != "" {
			fmt.Fprintf(w, " file_identifier %q", res.FileID)
		}
		fmt.Fprintln(w)
	}

	if junctions {
		for _, j := range res.Junctions {
			fmt.Fprintf(w, "\n-- junction %s (%s)\n%s;\n", j.Name, j.Relation, j.CreateSQL())
		}
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}

func writeAnalysisJSON(w io.Writer, res *schema.Analysis) error {
	type jsonColumn struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Indexed bool   `json:"indexed,omitempty"`
	}
	type jsonTable struct {
		Name    string       `json:"name"`
		Columns []jsonColumn `json:"columns"`
		Indexed []string     `json:"indexed,omitempty"`
	}
	type jsonAnalysis struct {
		Tables    []jsonTable `json:"tables"`
		Junctions []string    `json:"junctions,omitempty"`
		Warnings  []string    `json:"warnings,omitempty"`
		Errors    []string    `json:"errors,omitempty"`
	}

	out := jsonAnalysis{Warnings: res.Warnings, Errors: res.Errors}
	for _, def := range res.Defs() {
		jt := jsonTable{Name: def.Name, Indexed: def.Indexed}
		for _, c := range def.Columns {
			jt.Columns = append(jt.Columns, jsonColumn{Name: c.Name, Type: c.Kind.String(), Indexed: c.Indexed})
		}
		out.Tables = append(out.Tables, jt)
	}
	for _, j := range res.Junctions {
		out.Junctions = append(out.Junctions, j.Name)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
