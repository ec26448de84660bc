// Command datagen writes a synthetic dataset to stdout or a file.
//
//	datagen -preset personal -count 5000 -seed 42 -output people.csv
//	datagen -fields uuid,email,salary -count 10 -format json
//	datagen -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/JonMunkholm/DataForge/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, "datagen:", msg)
		os.Exit(1)
	}
}

type options struct {
	fields   string
	preset   string
	count    string
	seed     string
	format   string
	output   string
	list     bool
	crlf     bool
	table    string
	logLevel string
	quiet    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("datagen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.fields, "fields", "", "Comma-separated field kinds or aliases")
	fs.StringVar(&o.preset, "preset", "", "Preset whose fields come first")
	fs.StringVar(&o.count, "count", "1000", "Number of records (1-100000)")
	fs.StringVar(&o.seed, "seed", "", "Seed for reproducible output (default: random)")
	fs.StringVar(&o.format, "format", "csv", "Output format: csv, json, xml or sql")
	fs.StringVar(&o.output, "output", "", "Output file path (default: stdout)")
	fs.BoolVar(&o.list, "list", false, "List available fields and presets, then exit")
	fs.BoolVar(&o.crlf, "crlf", false, "Terminate CSV lines with CRLF")
	fs.StringVar(&o.table, "table", core.DefaultTableName, "Table name for SQL output")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress the progress bar and summary")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	// Logs go to stderr so they never mix with data on stdout.
	logging.SetupWriter(stderr, o.logLevel, "text")

	catalog := core.MustDefaultCatalog()
	presets, err := core.DefaultPresets(catalog)
	if err != nil {
		return err
	}

	if o.list {
		return listCatalog(stdout, catalog, presets)
	}

	svc := core.NewService(catalog, presets, core.NewMemoryHistory(1), core.Options{
		MaxConcurrent: 1,
		UseCRLF:       o.crlf,
		TableName:     o.table,
	})

	req, err := svc.BuildRequest(core.RawRequest{
		Fields: []string{o.fields},
		Preset: o.preset,
		Count:  o.count,
		Seed:   o.seed,
	})
	if err != nil {
		return err
	}
	format, err := core.ParseFormat(o.format)
	if err != nil {
		return err
	}

	gen, err := svc.Prepare(ctx, req, format)
	if err != nil {
		return err
	}

	out := stdout
	var file *os.File
	if o.output != "" {
		if file, err = os.Create(o.output); err != nil {
			gen.Close()
			return err
		}
		out = file
	}

	var progress func(int)
	var bar *progressbar.ProgressBar
	if file != nil && !o.quiet {
		bar = progressbar.NewOptions(req.RowCount(),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("generating"),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionShowIts(),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		progress = func(rows int) { bar.Set(rows) }
	}

	rec, err := gen.Run(out, progress)
	if bar != nil {
		bar.Finish()
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			// A partial file would look like a complete one.
			os.Remove(o.output)
		}
	}
	if err != nil {
		return err
	}

	if !o.quiet {
		fmt.Fprintf(stderr, "wrote %s rows (%s) in %s, seed %d\n",
			humanize.Comma(int64(rec.RowsWritten)),
			humanize.Bytes(uint64(rec.BytesWritten)),
			rec.Duration().Round(time.Millisecond),
			rec.Seed,
		)
	}
	return nil
}

func listCatalog(w io.Writer, catalog *core.Catalog, presets *core.Presets) error {
	for _, group := range catalog.Groups() {
		fmt.Fprintf(w, "%s\n", group)
		for _, f := range catalog.ByGroup(group) {
			fmt.Fprintf(w, "  %-22s %s\n", f.Kind, f.Label)
		}
	}
	fmt.Fprintln(w, "\nPresets")
	for _, p := range presets.All() {
		kinds := make([]string, len(p.Fields))
		for i, k := range p.Fields {
			kinds[i] = string(k)
		}
		fmt.Fprintf(w, "  %-22s %s\n", p.Name, strings.Join(kinds, ","))
	}
	_, err := fmt.Fprintln(w)
	return err
}
