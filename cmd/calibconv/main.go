// Command calibconv converts calibration triggers stored in ROOT files into
// filtered calibration records, optionally persisting them to SQLite and
// rendering their mean amplitude spectra.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/calibration.report/internal/config"
	"github.com/banshee-data/calibration.report/internal/convert"
	"github.com/banshee-data/calibration.report/internal/db"
	"github.com/banshee-data/calibration.report/internal/fsutil"
	"github.com/banshee-data/calibration.report/internal/monitoring"
	"github.com/banshee-data/calibration.report/internal/report"
	"github.com/banshee-data/calibration.report/internal/rootio"
	"github.com/banshee-data/calibration.report/internal/timeutil"
	"github.com/banshee-data/calibration.report/internal/version"
)

var (
	configPath   = flag.String("config", "", "Path to a JSON converter config")
	dbPath       = flag.String("db", "", "SQLite database to store records in (disabled if empty)")
	plotDir      = flag.String("plot-dir", "", "Directory for per-DU spectrum PNGs (disabled if empty)")
	chartPath    = flag.String("chart", "", "HTML file for the interactive spectrum chart (disabled if empty)")
	treeName     = flag.String("tree", config.DefaultTreeName, "Event tree read from each file")
	batchSize    = flag.Int("batch", config.DefaultBatchSize, "Events per batch")
	strict       = flag.Bool("strict", false, "Fail on files without the event tree instead of skipping them")
	verbose      = flag.Bool("v", false, "Verbose logging")
	printVersion = flag.Bool("version", false, "Print version and exit")
)

// flagOverrides returns a config holding only the flags set on the command line.
func flagOverrides(fs *flag.FlagSet) *config.ConverterConfig {
	cfg := config.EmptyConverterConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DBPath = dbPath
		case "plot-dir":
			cfg.PlotDir = plotDir
		case "chart":
			cfg.ChartPath = chartPath
		case "tree":
			cfg.TreeName = treeName
		case "batch":
			cfg.BatchSize = batchSize
		case "strict":
			allow := !*strict
			cfg.AllowMissing = &allow
		case "v":
			cfg.Verbose = verbose
		}
	})
	return cfg
}

// loadConfig layers command-line flags over the optional config file.
func loadConfig(fs *flag.FlagSet) (*config.ConverterConfig, error) {
	cfg := config.DefaultConverterConfig()
	if *configPath != "" {
		fileCfg, err := config.LoadConverterConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg.Override(fileCfg)
	}
	cfg.Override(flagOverrides(fs))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// run converts paths and writes the configured outputs.
func run(cfg *config.ConverterConfig, paths []string, fsys fsutil.FileSystem, clock timeutil.Clock) (*convert.Result, error) {
	start := clock.Now()
	src := rootio.NewSource(rootio.Options{
		TreeName:     cfg.GetTreeName(),
		BatchSize:    cfg.GetBatchSize(),
		AllowMissing: cfg.GetAllowMissing(),
	})

	var store *db.DB
	var runID string
	if path := cfg.GetDBPath(); path != "" {
		var err error
		store, err = db.NewDB(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		store.SetClock(clock)
		if runID, err = store.StartRun(paths); err != nil {
			return nil, err
		}
	}

	res, err := convert.New(src).Convert(paths)
	if err != nil {
		discardRun(store, runID)
		return nil, err
	}

	if store != nil {
		if err := store.InsertRecords(runID, res.Records); err != nil {
			discardRun(store, runID)
			return nil, fmt.Errorf("failed to store records: %w", err)
		}
		if err := store.FinishRun(runID, res.Stats); err != nil {
			return nil, err
		}
		monitoring.Logf("stored %d records as run %s in %s", len(res.Records), runID, cfg.GetDBPath())
	}

	if cfg.GetPlotDir() != "" || cfg.GetChartPath() != "" {
		spectra := report.MeanSpectra(res.Records)
		if dir := cfg.GetPlotDir(); dir != "" {
			written, err := report.WriteSpectrumPlots(fsys, dir, spectra)
			if err != nil {
				return nil, err
			}
			monitoring.Logf("wrote %d spectrum plots to %s", len(written), dir)
		}
		if path := cfg.GetChartPath(); path != "" {
			if err := report.WriteSpectrumChart(fsys, path, spectra); err != nil {
				return nil, err
			}
			monitoring.Logf("wrote spectrum chart to %s", path)
		}
	}

	monitoring.Logf("done in %s: %d records (%d bad length, %d over range)",
		clock.Since(start), res.Stats.Kept, res.Stats.BadLength, res.Stats.OverRange)
	return res, nil
}

// discardRun drops an unfinished run so it is not mistaken for one in progress.
func discardRun(store *db.DB, runID string) {
	if store == nil {
		return
	}
	if err := store.DeleteRun(runID); err != nil {
		monitoring.Logf("failed to discard run %s: %v", runID, err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.root...\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(flag.CommandLine)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	monitoring.SetVerbose(cfg.GetVerbose())

	paths := flag.Args()
	if len(paths) == 0 {
		log.Printf("no input files given")
	}

	if _, err := run(cfg, paths, fsutil.OSFileSystem{}, timeutil.RealClock{}); err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
}
