package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/config"
	"github.com/pmogan77/KVStore/kv/server"
	"github.com/pmogan77/KVStore/kv/storage"
	"github.com/pmogan77/KVStore/kv/storage/dynamo_storage"
	"github.com/pmogan77/KVStore/kv/storage/sqlite_storage"
	"github.com/pmogan77/KVStore/kv/storage/standalone_storage"
	"github.com/pmogan77/KVStore/kv/txn"
	"github.com/pmogan77/KVStore/kv/util/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configFile  = flag.String("config", "", "config file path")
	addr        = flag.String("addr", "", "API listen address")
	statusAddr  = flag.String("status-addr", "", "status listen address, empty to disable")
	engine      = flag.String("engine", "", "storage engine: memory, badger, sqlite or dynamodb")
	dbPath      = flag.String("db-path", "", "badger data directory")
	sqlitePath  = flag.String("sqlite-path", "", "sqlite database file")
	persistMode = flag.String("persist-mode", "", "sync or async")
	logLevel    = flag.String("L", "", "log level: debug, info, warn, error, fatal")
)

func loadConfig() (*config.Config, error) {
	conf := config.NewDefaultConfig()
	if *configFile != "" {
		if err := conf.LoadFile(*configFile); err != nil {
			return nil, err
		}
	}
	// Flags win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			conf.Addr = *addr
		case "status-addr":
			conf.StatusAddr = *statusAddr
		case "engine":
			conf.Engine = *engine
		case "db-path":
			conf.DBPath = *dbPath
		case "sqlite-path":
			conf.SQLitePath = *sqlitePath
		case "persist-mode":
			conf.PersistMode = *persistMode
		case "L":
			conf.Log.Level = *logLevel
		}
	})
	return conf, conf.Validate()
}

// newStorage builds the bridge named by conf.Engine, wrapped in an
// AsyncStorage in async mode.
func newStorage(ctx context.Context, conf *config.Config) (storage.Storage, error) {
	var s storage.Storage
	switch conf.Engine {
	case config.EngineMemory:
		s = storage.NewMemStorage()
	case config.EngineBadger:
		s = standalone_storage.NewStandAloneStorage(conf)
	case config.EngineSQLite:
		s = sqlite_storage.NewSQLiteStorage(conf.SQLitePath)
	case config.EngineDynamoDB:
		ds, err := dynamo_storage.NewFromConfig(ctx, conf.DynamoDB)
		if err != nil {
			return nil, err
		}
		s = ds
	default:
		return nil, errors.Errorf("unknown engine %q", conf.Engine)
	}
	if conf.PersistMode != config.PersistAsync {
		return s, nil
	}
	return storage.NewAsyncStorage(s, conf.PersistQueueSize, conf.PersistRateLimit), nil
}

func main() {
	flag.Parse()
	conf, err := loadConfig()
	if err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if err := logutil.InitLogger(&conf.Log); err != nil {
		log.Fatal("initialize logger error", zap.Error(err))
	}
	defer log.Sync()
	defer logutil.LogPanic()
	log.Info("config loaded", zap.Reflect("config", conf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := newStorage(ctx, conf)
	if err != nil {
		log.Fatal("create storage failed", zap.String("engine", conf.Engine), zap.Error(err))
	}
	if err := s.Start(); err != nil {
		log.Fatal("start storage failed", zap.String("engine", conf.Engine), zap.Error(err))
	}
	store, err := txn.NewStore(s, nil)
	if err != nil {
		log.Fatal("load store failed", zap.Error(err))
	}
	svr := server.NewServer(store, conf.Engine, s)

	if err := run(ctx, conf, svr); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}
	if err := svr.Close(); err != nil {
		log.Warn("close store", zap.Error(err))
	}
	log.Info("Server stopped.")
}

// run serves the API and status listeners until a signal arrives or one of
// them fails, then shuts both down.
func run(ctx context.Context, conf *config.Config, svr *server.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	handleSignal(cancel)

	servers := []*http.Server{{Addr: conf.Addr, Handler: svr.Handler()}}
	if conf.StatusAddr != "" {
		servers = append(servers, &http.Server{Addr: conf.StatusAddr, Handler: svr.StatusHandler()})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, hs := range servers {
		l, err := net.Listen("tcp", hs.Addr)
		if err != nil {
			for _, opened := range listeners {
				opened.Close()
			}
			return errors.Annotatef(err, "listen on %s", hs.Addr)
		}
		log.Info("listening", zap.String("addr", l.Addr().String()))
		listeners = append(listeners, l)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, hs := range servers {
		hs, l := hs, listeners[i]
		g.Go(func() error {
			if err := hs.Serve(l); err != nil && err != http.ErrServerClosed {
				return errors.WithStack(err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		for _, hs := range servers {
			if err := hs.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown", zap.String("addr", hs.Addr), zap.Error(err))
			}
		}
		return nil
	})
	return g.Wait()
}

func handleSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Info("Got signal to exit", zap.String("signal", sig.String()))
		cancel()
	}()
}
