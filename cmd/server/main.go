package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tilecraft.ai/internal/engine"
	"tilecraft.ai/internal/transport/httpapi"
	"tilecraft.ai/internal/transport/ws"
	"tilecraft.ai/internal/tuning"
)

func main() {
	var (
		addr        = flag.String("addr", "", "http listen address (default: tuning server.addr)")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		tilesetPath = flag.String("tileset", "", "tileset file; overrides tuning")
		wangSet     = flag.String("wang_set", "", "wang set name; overrides tuning")
		dataDir     = flag.String("data", "", "runtime data directory; overrides tuning")
		disableDB   = flag.Bool("disable_db", false, "disable the audit log and index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if *addr != "" {
		tune.Server.Addr = *addr
	}
	if *tilesetPath != "" {
		tune.Tileset = *tilesetPath
	}
	if *wangSet != "" {
		tune.WangSet = *wangSet
	}
	if *dataDir != "" {
		tune.DataDir = *dataDir
	}

	eng, err := engine.Open(tune, log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lmicroseconds), *disableDB)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer eng.Close()

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(eng, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds), ws.Options{
		ReadTimeout:     time.Duration(tune.Server.WSReadTimeoutMs) * time.Millisecond,
		WriteTimeout:    time.Duration(tune.Server.WSWriteTimeoutMs) * time.Millisecond,
		MaxMessageBytes: tune.Server.MaxBodyBytes,
	})

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.SetupRoutes(httpapi.Config{
		Engine:       eng,
		Logger:       logger,
		MaxBodyBytes: tune.Server.MaxBodyBytes,
		WS:           wsSrv.Handler(),
	}))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		cat := eng.Catalog()
		st := eng.Index().Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP tilecraft_catalog_tiles Tiles in the loaded catalog.\n")
		fmt.Fprintf(rw, "# TYPE tilecraft_catalog_tiles gauge\n")
		fmt.Fprintf(rw, "tilecraft_catalog_tiles{wang_set=%q} %d\n", cat.Name(), cat.Len())

		fmt.Fprintf(rw, "# HELP tilecraft_index_queue_depth Pending index writes.\n")
		fmt.Fprintf(rw, "# TYPE tilecraft_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "tilecraft_index_queue_depth %d\n", st.QueueDepth)

		fmt.Fprintf(rw, "# HELP tilecraft_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE tilecraft_index_dropped_total counter\n")
		fmt.Fprintf(rw, "tilecraft_index_dropped_total %d\n", st.DropResolutionTotal)
	})
	if envBool("TILECRAFT_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (TILECRAFT_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              tune.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx2); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s", tune.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// In-flight handlers still use the engine until Shutdown returns.
	<-shutdownDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
