// cmd/server is the main entrypoint for a KV store node.
//
// Configuration is entirely via flags so a single binary can run
// standalone or as a primary/secondary cluster node.
//
// Example — standalone:
//
//	./server --host 0.0.0.0 --port 8080 --data-dir /var/kvstore --index
//
// Example — cluster node:
//
//	./server --host 0.0.0.0 --port 8080 --data-dir /tmp/n1 \
//	         --role primary --peers http://host2:8080,http://host3:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"durablekv/internal/api"
	"durablekv/internal/index"
	"durablekv/internal/replication"
	"durablekv/internal/store"
)

func main() {
	host := flag.String("host", "0.0.0.0", "Listen host")
	port := flag.Int("port", 8080, "Listen port")
	dataDir := flag.String("data-dir", "/tmp/kvstore", "Directory for the WAL")
	enableIndex := flag.Bool("index", false, "Enable full-text and similarity search")
	role := flag.String("role", "", "Cluster role: primary or secondary (omit for standalone)")
	peersFlag := flag.String("peers", "", "Comma-separated peer base URLs (primary fans out writes here)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	s, err := store.Open(*dataDir)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer s.Close()

	metrics := api.NewMetrics()

	var kv store.KV = s
	var repl *replication.Engine
	if *role != "" {
		r := replication.Role(*role)
		if r != replication.RolePrimary && r != replication.RoleSecondary {
			logger.Fatal("invalid role", zap.String("role", *role))
		}
		var peers []string
		if *peersFlag != "" {
			peers = strings.Split(*peersFlag, ",")
		}
		repl = replication.New(s, r, peers, logger, metrics.ReplicationMetrics())
		kv = repl
	}

	var searcher api.Searcher
	if *enableIndex {
		idx := index.New(kv)
		searcher = idx
		kv = idx
	}

	server := api.NewServer(kv, repl, searcher, metrics, logger)
	router := api.NewRouter(server)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("role", string(*role)), zap.Bool("index", *enableIndex))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
