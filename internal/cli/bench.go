package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/strata"
	"github.com/roach88/strata/recwire"
	"github.com/roach88/strata/value"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	Records int
	Workers int
	Queries int
	Backend string
}

const benchSchema = `
table User {
    id: int (id);
    name: string;
    email: string (key);
    age: int;
}
root_type User;
file_identifier "USER";
`

// NewBenchCommand creates the bench command: ingest synthetic records,
// then hammer keyed lookups from concurrent readers. Reads are safe to run
// in parallel because no ingest happens once the workers start.
func NewBenchCommand(root *RootOptions) *cobra.Command {
	opts := &BenchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure ingest and keyed-lookup throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Records, "records", 100000, "records to ingest")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "concurrent query workers")
	cmd.Flags().IntVar(&opts.Queries, "queries", 10000, "keyed lookups per worker")
	cmd.Flags().StringVar(&opts.Backend, "backend", string(strata.IndexBTree), "index backend (btree|sqlite)")

	return cmd
}

func runBench(cmd *cobra.Command, opts *BenchOptions) error {
	db, err := strata.FromSchema(benchSchema, "bench", strata.Config{
		IndexBackend: strata.IndexBackend(opts.Backend),
	})
	if err != nil {
		return err
	}
	defer db.Close()
	installExtractors(db)

	out := cmd.ErrOrStderr()

	start := time.Now()
	for i := 0; i < opts.Records; i++ {
		p := recwire.New("USER").
			Set(0, value.Int32(int32(i))).
			Set(1, value.String(fmt.Sprintf("User%d", i))).
			Set(2, value.String(fmt.Sprintf("user%d@example.com", i))).
			Set(3, value.Int32(int32(20+i%60))).
			Payload()
		if _, err := db.IngestOne(p); err != nil {
			return fmt.Errorf("ingest record %d: %w", i, err)
		}
	}
	ingestDur := time.Since(start)
	fmt.Fprintf(out, "Ingested %d records (%s) in %s (%.0f rec/s)\n",
		opts.Records, humanize.IBytes(db.DataSize()), ingestDur.Round(time.Millisecond),
		float64(opts.Records)/ingestDur.Seconds())

	// Readers run strictly after ingest; borrowed pointers stay valid.
	start = time.Now()
	var g errgroup.Group
	for w := 0; w < opts.Workers; w++ {
		seed := w
		g.Go(func() error {
			for i := 0; i < opts.Queries; i++ {
				id := (seed*31 + i*17) % opts.Records
				if _, _, ok := db.FindRawByIndex("User", "id", id); !ok {
					return fmt.Errorf("worker %d: id %d not found", seed, id)
				}
				n, err := db.QueryCount("SELECT * FROM User WHERE id = ?", id)
				if err != nil {
					return err
				}
				if n != 1 {
					return fmt.Errorf("worker %d: id %d matched %d rows", seed, id, n)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	queryDur := time.Since(start)
	total := opts.Workers * opts.Queries * 2
	fmt.Fprintf(out, "Ran %d keyed lookups across %d workers in %s (%.0f op/s)\n",
		total, opts.Workers, queryDur.Round(time.Millisecond),
		float64(total)/queryDur.Seconds())

	return nil
}
