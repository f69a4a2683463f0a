package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yegors/metar-fetcher/internal/api"
	"github.com/yegors/metar-fetcher/internal/config"
	"github.com/yegors/metar-fetcher/internal/observability"
	"github.com/yegors/metar-fetcher/internal/weather"
	"github.com/yegors/metar-fetcher/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitNotFound = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printHelp(stderr)
		return exitUsage
	}
	if cmd.mode == modeHelp {
		printHelp(stdout)
		return exitOK
	}

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(cmd.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitError
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exitError
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return exitError
	}
	defer log.Sync()

	log.Debug("Starting metar",
		logger.String("version", Version),
		logger.String("mode", cmd.mode.String()),
		logger.String("config_path", cmd.configPath))

	client := weather.NewClient(cfg.Weather, log)
	svc := weather.NewService(client, log)

	switch cmd.mode {
	case modeServe:
		if err := serve(ctx, cfg, svc, log); err != nil {
			log.Error("Server failed", logger.Error(err))
			return exitError
		}
		return exitOK
	case modeList:
		err = svc.ListStations(ctx, weather.StationListWriter(stdout))
		if err == nil {
			fmt.Fprintln(stdout)
		}
	case modeTAF:
		var taf string
		taf, err = svc.GetTAF(ctx, cmd.station)
		if err == nil {
			_, err = io.WriteString(stdout, taf)
		}
	case modeMETAR:
		var m weather.Metar
		m, err = svc.GetMETAR(ctx, cmd.station)
		if err == nil {
			formatter := weather.NewFormatter(clockwork.NewRealClock())
			if cmd.decoded {
				err = formatter.WriteDecoded(stdout, m)
			} else {
				err = formatter.WriteRaw(stdout, m)
			}
		}
	}

	return exitCode(err, cmd.station, stderr, log)
}

func exitCode(err error, station string, stderr io.Writer, log *logger.Logger) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, weather.ErrStationNotFound):
		fmt.Fprintf(stderr, "Could not find station with id: %s\n", station)
		return exitNotFound
	case errors.Is(err, weather.ErrTAFNotFound):
		fmt.Fprintf(stderr, "No TAF was found for %s\n", station)
		return exitNotFound
	case errors.Is(err, weather.ErrInvalidStationID):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		log.Error("Request failed", logger.String("station", station), logger.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

// serve runs the HTTP API until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, svc *weather.Service, log *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	router := api.NewRouter(api.NewHandler(svc, metrics, log), reg, cfg.Server.RateLimitPerMinute, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
			logger.String("version", Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error on %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	log.Info("HTTP server shutdown complete")
	return nil
}

type mode int

const (
	modeHelp mode = iota
	modeMETAR
	modeTAF
	modeList
	modeServe
)

func (m mode) String() string {
	switch m {
	case modeMETAR:
		return "metar"
	case modeTAF:
		return "taf"
	case modeList:
		return "list"
	case modeServe:
		return "serve"
	default:
		return "help"
	}
}

type command struct {
	mode       mode
	station    string
	decoded    bool
	configPath string
}

var errUsage = errors.New("invalid usage")

// parseArgs accepts
//
//	metar [-config path] <STATION_ID> [-a]
//	metar [-config path] -t|-taf <STATION_ID>
//	metar [-config path] -l|-list
//	metar [-config path] serve
//	metar -h|-help
func parseArgs(args []string) (command, error) {
	var (
		cmd      command
		taf      string
		list     bool
		help     bool
		hasTAF   bool
		flagSeen = map[string]bool{}
	)

	fs := flag.NewFlagSet("metar", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cmd.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&taf, "t", "", "TAF station id")
	fs.StringVar(&taf, "taf", "", "TAF station id")
	fs.BoolVar(&list, "l", false, "list stations")
	fs.BoolVar(&list, "list", false, "list stations")
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return command{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	fs.Visit(func(f *flag.Flag) { flagSeen[f.Name] = true })
	hasTAF = flagSeen["t"] || flagSeen["taf"]
	rest := fs.Args()

	if help {
		cmd.mode = modeHelp
		return cmd, nil
	}

	switch {
	case hasTAF && list:
		return command{}, fmt.Errorf("%w: -taf and -list cannot be combined", errUsage)
	case hasTAF:
		if taf == "" {
			return command{}, fmt.Errorf("%w: -taf needs a station id", errUsage)
		}
		if len(rest) > 0 {
			return command{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, rest)
		}
		cmd.mode = modeTAF
		cmd.station = taf
		return cmd, nil
	case list:
		if len(rest) > 0 {
			return command{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, rest)
		}
		cmd.mode = modeList
		return cmd, nil
	}

	switch {
	case len(rest) == 0:
		cmd.mode = modeHelp
	case rest[0] == "serve":
		if len(rest) > 1 {
			return command{}, fmt.Errorf("%w: serve takes no arguments", errUsage)
		}
		cmd.mode = modeServe
	case len(rest) == 1:
		cmd.mode = modeMETAR
		cmd.station = rest[0]
	case len(rest) == 2 && rest[1] == "-a":
		cmd.mode = modeMETAR
		cmd.station = rest[0]
		cmd.decoded = true
	default:
		return command{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, rest[1:])
	}
	return cmd, nil
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `USAGE:
	metar [-config PATH] [OPTION or STATION_ID] [FLAG]

OPTIONS:
	<STATION_ID> [-a]           Print the METAR for a station. Use -a for the decoded version.
	-t, -taf <STATION_ID>       Print the TAF for a station.
	-l, -list                   List all stations in the current METAR feed.
	serve                       Run the HTTP API.
	-config <PATH>              Configuration file (default: configs/config.toml, then config.toml).
	-h, -help                   Show this help screen.

EXAMPLES:
	metar ESSD -a               Prints the decoded METAR for ESSD.
	metar -t ESNU               Prints the TAF for ESNU.
`)
}
