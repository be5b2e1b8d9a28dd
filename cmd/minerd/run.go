package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/localmesh/fsminer/internal/cmdutil"
	"github.com/localmesh/fsminer/internal/control"
	"github.com/localmesh/fsminer/internal/grpcutil"
	"github.com/localmesh/fsminer/pkg/logging"
	"github.com/localmesh/fsminer/pkg/miner"
	"github.com/localmesh/fsminer/pkg/miner/config"
	"github.com/localmesh/fsminer/pkg/miner/crawler/walker"
	"github.com/localmesh/fsminer/pkg/miner/extractor/basicextractor"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/metrics"
	"github.com/localmesh/fsminer/pkg/miner/monitor/fsmonitor"
	"github.com/localmesh/fsminer/pkg/miner/policy"
	"github.com/localmesh/fsminer/pkg/miner/scheduler"
	"github.com/localmesh/fsminer/pkg/miner/store"
	"github.com/localmesh/fsminer/pkg/miner/store/memstore"
	"github.com/localmesh/fsminer/pkg/miner/store/sqlitestore"
)

// openStore selects a store.Store backend by driver name, grounded on
// cfg.Store.Driver rather than a compile-time choice so a deployment can
// swap backends without a rebuild.
func openStore(cfg *config.Configuration) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return memstore.New(), nil
	case "sqlite":
		return sqlitestore.Open(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// ignoreDirectoryContents implements check_directory_contents by vetoing a
// subtree whenever one of its direct children's base names matches a marker
// name from the configuration (e.g. a VCS or project marker file).
func ignoreDirectoryContents(markers []string) func(fileref.Ref, []fileref.Ref) bool {
	return func(_ fileref.Ref, children []fileref.Ref) bool {
		for _, child := range children {
			for _, marker := range markers {
				if child.Base() == marker {
					return true
				}
			}
		}
		return false
	}
}

// monitorDirectoryFilter reports whether dir should be watched for live
// changes, excluding anything matched by patterns (spec.md §4.2's
// monitor_directory predicate).
func monitorDirectoryFilter(patterns []string) func(fileref.Ref) bool {
	declineIfExcluded := policy.GlobIgnore(fileref.New("/"), patterns)
	return func(dir fileref.Ref) bool {
		return declineIfExcluded(dir, true)
	}
}

func statModTime(file fileref.Ref) (time.Time, error) {
	info, err := os.Stat(file.Path())
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func statExists(file fileref.Ref) bool {
	_, err := os.Stat(file.Path())
	return err == nil
}

// controlServer builds the control.Server that backs the gRPC Control
// service, forwarding each RPC to the live Miner (spec.md §6's
// add_directory/remove_directory/set_throttle/status host surface).
func controlServer(m *miner.Miner) *control.Server {
	return &control.Server{
		OnAddDirectory: func(path string, recurse bool) {
			m.AddDirectory(fileref.New(path), recurse)
		},
		OnRemoveDirectory: func(path string) {
			m.RemoveDirectory(fileref.New(path))
		},
		OnSetThrottle: func(value float64) {
			m.SetThrottle(value)
		},
		OnStatus: func() (bool, float64) {
			status := m.Status()
			return status.Crawling, status.Progress
		},
	}
}

func runMiner(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootConfiguration.configPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	level, ok := logging.NameToLevel(cfg.Log.Level)
	if !ok {
		level = logging.LevelInfo
	}
	logger := logging.NewLogger(level)

	backingStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("unable to open store: %w", err)
	}

	mon, err := fsmonitor.New(logger, cfg.Monitor.CoalesceWindow)
	if err != nil {
		return fmt.Errorf("unable to start filesystem monitor: %w", err)
	}
	defer mon.Close()

	met := metrics.New("fsminer")
	metricsServer := &http.Server{Addr: "127.0.0.1:9399", Handler: met.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics server stopped: %v", err)
		}
	}()
	defer metricsServer.Close()

	var m *miner.Miner
	m = miner.New(miner.Config{
		PoolLimit: cfg.Pool.Limit,
		Crawler:   walker.New(),
		Monitor:   mon,
		Extractor: basicextractor.New(func(file fileref.Ref, err error) {
			if err != nil {
				logger.Warnf("extraction failed for %s: %v", file, err)
				return
			}
			m.NotifyFile(file, nil)
		}),
		Store:                   backingStore,
		Logger:                  logger,
		ShouldCheck:             policy.GlobIgnore(fileref.New("/"), cfg.Ignore.Paths),
		MonitorDirectory:        monitorDirectoryFilter(cfg.Monitor.Paths),
		IgnoreDirectoryContents: ignoreDirectoryContents(cfg.Ignore.DirectoryContents),
		Stat:                    statModTime,
		StatExists:              statExists,
		IsLocked:                nil,
		OnFinished: func(stats scheduler.Stats) {
			logger.Infof("crawl finished: %d files found, %d ignored, %d directories found, %d ignored",
				stats.FilesFound, stats.FilesIgnored, stats.DirectoriesFound, stats.DirectoriesIgnored)
		},
	})
	m.SetThrottle(cfg.Throttle.Initial)

	listener, err := control.Listener(control.SocketPath())
	if err != nil {
		return fmt.Errorf("unable to open control socket: %w", err)
	}
	defer listener.Close()

	// A hard stop rather than a graceful one, so Shutdown doesn't hang on an
	// open control request (mirrors the teacher's daemon run command).
	grpcServer := grpc.NewServer(
		grpc.MaxSendMsgSize(grpcutil.MaximumMessageSize),
		grpc.MaxRecvMsgSize(grpcutil.MaximumMessageSize),
	)
	control.RegisterControlServer(grpcServer, controlServer(m))
	defer grpcServer.Stop()
	go grpcServer.Serve(listener)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	logger.Info("shutting down")
	m.Shutdown()
	return nil
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "run the mining pipeline in the foreground",
	Args:  cobra.NoArgs,
	Run:   cmdutil.Mainify(runMiner),
}
