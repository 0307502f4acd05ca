package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blip/internal/audit"
	"github.com/srg/blip/internal/gatt"
	"github.com/srg/blip/internal/gatt/bluez"
	"github.com/srg/blip/internal/profile"
	"github.com/srg/blip/pkg/config"
	"golang.org/x/sys/unix"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [profile-file]",
	Short: "Publish a GATT profile and serve it through BlueZ",
	Long: fmt.Sprintf(`Publishes a GATT attribute tree on the D-Bus and registers it with the
BlueZ GATT manager, so connected centrals can discover and use it.

The profile comes from a YAML file argument or a built-in selected with
--profile. With no arguments the built-in heart rate sensor is served.

Examples:
  # Serve the built-in heart rate sensor
  blip serve

  # Serve a custom profile on the system bus
  blip serve sensors.yaml

  # Pick a different built-in
  blip serve --profile heart-rate

  # Exercise the object tree on the session bus without a Bluetooth stack
  blip serve --session --no-register

While serving, SIGUSR1 dumps the write audit trail to stderr.

Built-in profiles: %s`, strings.Join(profile.BuiltinNames(), ", ")),
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var (
	serveProfileName string
	serveSession     bool
	serveNoRegister  bool
	serveAdapterWait time.Duration
	serveAuditSize   uint32
	serveVerbose     bool
)

func init() {
	defaults := config.DefaultConfig()
	serveCmd.Flags().StringVar(&serveProfileName, "profile", "heart-rate", "Built-in profile name (ignored when a file is given)")
	serveCmd.Flags().BoolVar(&serveSession, "session", false, "Connect to the session bus instead of the system bus")
	serveCmd.Flags().BoolVar(&serveNoRegister, "no-register", false, "Export objects without registering with the GATT manager")
	serveCmd.Flags().DurationVar(&serveAdapterWait, "adapter-wait", defaults.AdapterWait, "How long to wait for a GATT manager (0 = forever)")
	serveCmd.Flags().Uint32Var(&serveAuditSize, "audit-size", defaults.AuditTrailSize, "Write audit trail capacity in records")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Verbose output")
}

// connectBus opens a private bus connection. Private because the command
// closes it on shutdown, which must not tear down a shared handle.
func connectBus(session bool) (*dbus.Conn, error) {
	if session {
		return dbus.ConnectSessionBus()
	}
	return dbus.ConnectSystemBus()
}

func runServe(cmd *cobra.Command, args []string) error {
	// Resolve and validate the profile before touching the bus
	prof, err := loadProfile(args, serveProfileName)
	if err != nil {
		return err
	}
	services, err := prof.Build()
	if err != nil {
		return err
	}

	// Configure logger
	logger, err := configureLogger(cmd, "verbose")
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, unix.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	// SIGUSR1 dumps the audit trail without stopping the server
	usrChan := make(chan os.Signal, 1)
	signal.Notify(usrChan, unix.SIGUSR1)
	defer signal.Stop(usrChan)

	conn, err := connectBus(serveSession)
	if err != nil {
		return fmt.Errorf("failed to connect to the bus: %w", err)
	}
	defer conn.Close()

	// Every remote write lands in the audit trail
	records := make(chan audit.Record, 64)
	collector, err := audit.NewCollector(records, serveAuditSize, func(err error) {
		logger.WithError(err).Error("audit collector failure")
	})
	if err != nil {
		return err
	}
	if err := collector.Start(); err != nil {
		return err
	}
	defer func() { _ = collector.Stop() }()
	defer printAuditSummary(collector)

	server, err := bluez.NewServer(bluez.ServerOptions{
		Conn:     conn,
		Observer: observeWrites(logger, records),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if err := server.RegisterProfile(services); err != nil {
		return err
	}
	defer server.UnregisterAll()

	printServiceTree(os.Stdout, server.Services(), stdoutIsTerminal())

	if !serveNoRegister {
		registrar := bluez.NewRegistrar(conn, logger)

		findCtx := ctx
		if serveAdapterWait > 0 {
			var findCancel context.CancelFunc
			findCtx, findCancel = context.WithTimeout(ctx, serveAdapterWait)
			defer findCancel()
		}
		if _, err := registrar.FindManager(findCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrNoAdapter
			}
			return err
		}

		if err := registrar.Announce(ctx); err != nil {
			return err
		}
		defer func() { _ = registrar.Withdraw() }()
	}

	fmt.Fprintf(os.Stderr, "Serving %q. Press Ctrl+C to stop...\n", prof.Name)

	for {
		select {
		case <-usrChan:
			dumpAuditTrail(collector)
		case <-conn.Context().Done():
			return ErrBusLost
		case <-ctx.Done():
			// Ctrl+C surfaces as context.Canceled, which main treats as
			// a normal exit
			return ctx.Err()
		}
	}
}

// observeWrites logs every accepted value replacement and feeds it to the
// audit trail.
func observeWrites(logger *logrus.Logger, records chan<- audit.Record) gatt.WriteObserver {
	record := audit.Observer(records)
	return func(a gatt.Attribute, data []byte) {
		logger.WithFields(logrus.Fields{
			"path": a.Path(),
			"uuid": a.UUID(),
			"len":  len(data),
			"data": hex.EncodeToString(data),
		}).Debug("write observed")
		record(a, data)
	}
}

// dumpAuditTrail renders the collected write records and their counters
// to stderr.
func dumpAuditTrail(collector *audit.Collector) {
	trail, err := collector.ConsumePlainText()
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit trail unavailable: %s\n", err)
		return
	}
	if trail == "" {
		fmt.Fprintln(os.Stderr, "audit trail is empty")
	} else {
		fmt.Fprint(os.Stderr, trail)
	}
	printAuditSummary(collector)
}

func printAuditSummary(collector *audit.Collector) {
	m := collector.GetMetrics()
	fmt.Fprintf(os.Stderr, "audit: %d writes recorded, %d overwritten, %d errors\n",
		m.GetRecordsProcessed(), m.GetRecordsOverwritten(), m.GetErrorsOccurred())
}
