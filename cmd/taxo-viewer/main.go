// Command taxo-viewer is the interactive taxonomy hierarchy viewer: it
// loads the flattened taxon dataset and renders it as circle packing,
// radial tree, linear tree and gene-stack layouts.
package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
	"github.com/taxoscope/taxoscope/pkg/utils"
	"github.com/taxoscope/taxoscope/pkg/vizengine"
)

var cli struct {
	Source       string `help:"Flattened tree source: URL or local TSV/JSON path." env:"TAXO_DATA_URL"`
	Config       string `help:"Optional TOML file overriding visual tuning knobs." type:"path"`
	CacheDir     string `help:"Badger cache directory for downloaded payloads." default:"data/cache"`
	NoCache      bool   `help:"Always re-download the dataset."`
	CaptureDir   string `help:"Directory for frame captures (key S)." default:""`
	WindowWidth  int    `help:"Initial window width."  default:"1280"`
	WindowHeight int    `help:"Initial window height." default:"800"`
	TPS          int    `help:"Engine ticks per second." default:"60"`
	Verbose      bool   `short:"v" help:"Enable debug logging."`
}

func main() {
	// A .env next to the binary may supply TAXO_DATA_URL.
	_ = godotenv.Load()
	kctx := kong.Parse(&cli, kong.Name("taxo-viewer"),
		kong.Description("Interactive taxonomy hierarchy viewer."))

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})
	if cli.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if cli.Source == "" {
		logger.Error("no dataset source; pass --source or set TAXO_DATA_URL")
		kctx.Exit(1)
	}

	cfg := vizengine.DefaultConfig()
	if cli.Config != "" {
		if _, err := toml.DecodeFile(cli.Config, &cfg); err != nil {
			logger.Error("reading config", "path", cli.Config, "err", err)
			kctx.Exit(1)
		}
	}
	if cli.CaptureDir != "" {
		cfg.CaptureDir = cli.CaptureDir
	}

	var cache taxotree.PayloadCache
	if !cli.NoCache && cli.CacheDir != "" {
		dc, err := utils.OpenDataCache(cli.CacheDir)
		if err != nil {
			logger.Warn("payload cache unavailable, downloads are uncached", "err", err)
		} else {
			defer func() {
				if err := dc.Close(); err != nil {
					logger.Warn("closing payload cache", "err", err)
				}
			}()
			cache = dc
		}
	}

	repo := taxotree.NewRepository(cli.Source, cache, logger)
	engine := vizengine.NewEngine(cli.WindowWidth, cli.WindowHeight, repo, cfg, logger)
	defer engine.Close()
	engine.OnSelect = func(taxonID string, node taxotree.FlatNode) {
		logger.Info("selected", "taxon", taxonID, "name", node.ScientificName,
			"organisms", node.OrganismsCount, "assemblies", node.AssembliesCount,
			"annotations", node.AnnotationsCount)
	}

	ebiten.SetTPS(cli.TPS)
	ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("Taxoscope Hierarchy Viewer")
	if err := ebiten.RunGame(engine); err != nil {
		logger.Fatal("viewer exited", "err", err)
	}
}
