// Package cmd implements the qdiscwatch command line.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"
	"time"

	"grimm.is/qdiscwatch/internal/brand"
	"grimm.is/qdiscwatch/internal/clock"
	"grimm.is/qdiscwatch/internal/config"
	"grimm.is/qdiscwatch/internal/health"
	"grimm.is/qdiscwatch/internal/i18n"
	"grimm.is/qdiscwatch/internal/link"
	"grimm.is/qdiscwatch/internal/logging"
	"grimm.is/qdiscwatch/internal/metrics"
	"grimm.is/qdiscwatch/internal/monitor"
	"grimm.is/qdiscwatch/internal/network"
	"grimm.is/qdiscwatch/internal/qdisc"

	"golang.org/x/sys/unix"
)

// ErrNotPrivileged is returned when a live run is attempted without root.
var ErrNotPrivileged = errors.New("must be run as root (pass any argument for a dry run)")

// linkHandle is what the command needs from network.Handle.
type linkHandle interface {
	network.Netlinker
	Name() string
	Namespace() string
	DriverInfo() (*network.Driver, error)
	Close()
}

// Replaced in tests.
var (
	geteuid    = unix.Geteuid
	openHandle = func(iface, namespace string) (linkHandle, error) {
		h, err := network.Open(iface, namespace)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
)

type options struct {
	configPath string
	configSet  bool
	iface      string
	logLevel   string
	json       bool
	jsonSet    bool
	version    bool
	dryRun     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	flags := flag.NewFlagSet(brand.BinaryName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&o.configPath, "config", brand.DefaultConfigPath(), "Configuration file (HCL or JSON)")
	flags.StringVar(&o.iface, "interface", "", "Interface to watch (overrides config)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&o.json, "json", false, "Log in JSON (overrides config)")
	flags.BoolVar(&o.version, "version", false, "Print version and exit")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [dry-run]\n\n", brand.BinaryName)
		fmt.Fprintf(stderr, "%s %s.\n", brand.BinaryName, brand.Summary)
		fmt.Fprintf(stderr, "Any positional argument selects a dry run:\n")
		fmt.Fprintf(stderr, "take one sample, print it and exit without touching the link.\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return o, err
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			o.configSet = true
		case "json":
			o.jsonSet = true
		}
	})
	o.dryRun = flags.NArg() > 0
	return o, nil
}

// Main runs the command and returns the process exit code. The live loop
// never returns, so in practice only dry runs and setup failures come back.
func Main(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}
	if o.version {
		fmt.Fprintln(stdout, brand.VersionString())
		return 0
	}

	if err := run(o, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", brand.BinaryName, err)
		return 1
	}
	return 0
}

func run(o options, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.WithComponent("main")

	if !o.dryRun && geteuid() != 0 {
		return ErrNotPrivileged
	}

	h, err := openHandle(settings.Interface, settings.Namespace)
	if err != nil {
		return fmt.Errorf("failed to acquire link %s: %w", settings.Interface, err)
	}
	defer h.Close()

	log.Info("Starting "+brand.Name,
		"version", brand.Version,
		"interface", h.Name(),
		"namespace", h.Namespace(),
		"dry_run", o.dryRun)
	if drv, err := h.DriverInfo(); err != nil {
		log.Warn("Could not read driver info", "interface", h.Name(), "error", err)
	} else {
		log.Info("Interface driver",
			"interface", h.Name(),
			"driver", drv.Driver,
			"driver_version", drv.Version,
			"firmware", drv.Firmware,
			"bus", drv.BusInfo)
	}

	var nl network.Netlinker = h
	if o.dryRun {
		nl = network.NewDryRunNetlinker(h)
	}

	clk := &clock.RealClock{}
	reg := metrics.Get()
	sampler := qdisc.NewSampler(nl, settings.Interface, clk)
	ctrl := link.NewController(nl, settings.Interface, clk, settings.SettleDelay, logger)
	mon := monitor.New(monitor.Config{
		Interface:      settings.Interface,
		HighWatermark:  settings.HighWatermark,
		RequiredCount:  settings.RequiredCount,
		PollInterval:   settings.PollInterval,
		InitialDelay:   settings.InitialDelay,
		BounceInterval: settings.BounceInterval,
		UpRetryBackoff: settings.UpRetryBackoff,
	}, sampler, ctrl,
		monitor.WithClock(clk),
		monitor.WithLogger(logger),
		monitor.WithMetrics(reg))

	if o.dryRun {
		return dryRun(mon, ctrl, cfg, settings, stdout)
	}

	if cfg.Metrics != nil {
		checker := health.NewChecker(time.Second)
		checker.SetClock(clk)
		mon.RegisterHealthChecks(checker)
		if _, err := startHTTP(cfg.Metrics.Listen, reg, checker, log); err != nil {
			return err
		}
	}

	return mon.Run(context.Background())
}

// loadConfig reads the config file and applies command line overrides. A
// missing file is only an error when -config was given explicitly.
func loadConfig(o options) (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	switch {
	case err == nil:
	case !o.configSet && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if o.iface != "" {
		cfg.Interface = o.iface
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.jsonSet {
		cfg.Logging.JSON = o.json
	}
	return cfg, nil
}

func newLogger(lc *config.LoggingConfig, stderr io.Writer) (*logging.Logger, func(), error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: logging.level: %w", config.ErrInvalid, err)
	}

	var syslog *logging.SyslogWriter
	closeFn := func() {}
	if sc := lc.Syslog; sc != nil {
		syslog, err = logging.NewSyslogWriter(logging.SyslogConfig{
			Host:     sc.Host,
			Port:     sc.Port,
			Protocol: sc.Protocol,
			Tag:      sc.Tag,
			Facility: sc.Facility,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { syslog.Close() }
	}

	logger := logging.New(logging.Config{
		Level:  level,
		Output: stderr,
		JSON:   lc.JSON,
		Syslog: syslog,
	})
	logging.SetDefault(logger)
	return logger, closeFn, nil
}

func dryRun(mon *monitor.Monitor, ctrl *link.Controller, cfg *config.Config, s config.Settings, stdout io.Writer) error {
	sample, err := mon.DryRun()
	if err != nil {
		return fmt.Errorf("dry run: %w", err)
	}
	admin := "down"
	if up, err := ctrl.IsUp(); err != nil {
		admin = "unknown (" + err.Error() + ")"
	} else if up {
		admin = "up"
	}

	fmt.Fprintln(stdout, "# Effective configuration")
	stdout.Write(config.Encode(cfg))
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "# Root qdisc sample")
	p := i18n.NewCLIPrinter()
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	p.Fprintf(w, "interface\t%s\n", sample.Interface)
	p.Fprintf(w, "admin state\t%s\n", admin)
	p.Fprintf(w, "qdisc\t%s %s\n", sample.Kind, sample.Handle)
	p.Fprintf(w, "qlen\t%d\n", sample.Qlen)
	p.Fprintf(w, "backlog\t%d bytes\n", sample.Backlog)
	p.Fprintf(w, "drops\t%d\n", sample.Drops)
	p.Fprintf(w, "requeues\t%d\n", sample.Requeues)
	p.Fprintf(w, "overlimits\t%d\n", sample.Overlimits)
	p.Fprintf(w, "high\t%t (watermark %d)\n", uint64(sample.Qlen) > s.HighWatermark, s.HighWatermark)
	return w.Flush()
}
