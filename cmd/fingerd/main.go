package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/fingertools/go-finger/internal/finger"
	"github.com/fingertools/go-finger/internal/metrics"
)

var opts struct {
	Addr        string `short:"a" long:"addr" description:"Bind address, empty for all interfaces"`
	Port        int    `short:"p" long:"port" description:"Bind port, 0 for an ephemeral one" default:"79"`
	Forward     bool   `short:"f" long:"forward" description:"Relay host-chain requests to their next hop"`
	ForwardDeny bool   `short:"d" long:"forward-deny" description:"Refuse host-chain requests"`
	MetricsAddr string `long:"metrics" description:"Prometheus metrics listen address" default:":10081"`
	Debug       bool   `long:"debug" description:"Debug logging"`
}

func init() {
	log.SetFormatter(&nested.Formatter{
		NoColors: false,
	})
	log.SetReportCaller(true)
	log.SetLevel(log.InfoLevel)
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	log.Info("Welcome go-finger!")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		count := 0
		for sig := range stopCh {
			count++
			log.Debugf("Receive signal: %v, count: %d", sig, count)

			if count == 1 {
				log.Info("First signal received, initiating graceful shutdown...")
				cancel()
			} else {
				log.Warn("Receive signal again, force exit.")
				os.Exit(1)
			}
		}
	}()

	// metrics server
	go func() {
		log.Info("Starting metrics server...")
		if err := metrics.StartServer(ctx, opts.MetricsAddr); err != nil {
			if err == http.ErrServerClosed {
				log.Info("Metrics server has gracefully shutdown.")
			} else {
				log.Fatalf("metrics server error: %v", err)
			}
		}
	}()

	srv := &finger.Server{
		Addr:        opts.Addr,
		Port:        opts.Port,
		Handler:     userHandler,
		Forward:     opts.Forward,
		ForwardDeny: opts.ForwardDeny,
		OnBind: func(port int) {
			log.Infof("fingerd listening on port %d", port)
		},
		OnError: func(err error) {
			log.Warnf("connection error: %v", err)
		},
	}
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("fail to start finger server: %v", err)
	}

	<-ctx.Done()
	_ = srv.Stop()
	log.Info("Shutdown done.")
}
