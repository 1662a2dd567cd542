package commands

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/navigatorbuilds/elara-core/bridge"
	"github.com/navigatorbuilds/elara-core/cache"
	"github.com/navigatorbuilds/elara-core/config"
	"github.com/navigatorbuilds/elara-core/continuity"
	"github.com/navigatorbuilds/elara-core/errors"
	"github.com/navigatorbuilds/elara-core/eventbus"
	"github.com/navigatorbuilds/elara-core/logger"
	"github.com/navigatorbuilds/elara-core/network"
	"github.com/navigatorbuilds/elara-core/sym"
	"github.com/navigatorbuilds/elara-core/workerpool"
)

// eventHistorySize bounds the event bus's replay buffer.
const eventHistorySize = 256

// ServeCmd starts the node's full runtime: bridge, continuity chain,
// cache, worker pools, and the peer HTTP server, until interrupted.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: sym.Open + " Start the node's runtime",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return serveForeground(cfg, true)
}

// serveForeground wires the full runtime together and blocks until a
// termination signal arrives, shutting down gracefully on the first
// one and forcing exit on a second. writePID controls whether a pidfile
// is left for `elara node stop` to find.
func serveForeground(cfg *config.Config, writePID bool) error {
	id, err := openIdentity(cfg)
	if err != nil {
		return err
	}
	d, err := openDAG(cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	w, err := openWitnesses(cfg)
	if err != nil {
		return err
	}
	defer w.Close()
	reg, err := openDecisions(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	bus := eventbus.New(eventHistorySize)

	c := cache.New()
	c.SubscribeInvalidation(bus)

	pools := workerpool.NewManager()
	defer pools.Stop()

	if _, err := bridge.Open(id, d, bus, cfg.Bridge.RateLimit, logger.Logger); err != nil {
		return errors.Wrap(err, "start bridge")
	}

	if _, err := continuity.Open(id, d, bus, staticProvider{}, continuityPath(cfg), logger.Logger); err != nil {
		return errors.Wrap(err, "start continuity chain")
	}

	srv := network.NewServer(id, d, w, bus, cfg.Network.Port, logger.Logger)
	if err := srv.Start(); err != nil {
		return errors.Wrap(err, "start network server")
	}

	if writePID {
		if err := os.WriteFile(pidPath(cfg), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			logger.Warnw("failed to write pidfile", "error", err)
		}
		defer os.Remove(pidPath(cfg))
	}

	logger.OpenInfow(logger.Logger, "node runtime started", "port", cfg.Network.Port, "identity", id.ShortHash())
	pterm.Success.Printf("%s node serving on :%d (identity %s)\n", sym.Net, cfg.Network.Port, id.ShortHash())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	pterm.Info.Println("shutting down gracefully (press Ctrl+C again to force)...")
	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "stop network server")
		}
		logger.CloseInfow(logger.Logger, "node runtime stopped cleanly")
		pterm.Success.Println("stopped cleanly")
		return nil
	case <-sigChan:
		pterm.Warning.Println("force shutdown - exiting immediately")
		os.Exit(1)
		return nil
	}
}
