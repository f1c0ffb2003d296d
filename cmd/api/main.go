package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"donationroute/internal/api"
	"donationroute/internal/buildinfo"
	"donationroute/internal/config"
	"donationroute/internal/ingest"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setupLogging(cfg)

	srvDeps, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer srvDeps.Close()

	// Catalog ingest over MQTT
	var catalog *ingest.CatalogSubscriber
	if cfg.MQTT.Broker != "" {
		client, err := ingest.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.WithError(err).Warn("mqtt unavailable; catalog ingest disabled")
		} else {
			catalog = ingest.NewCatalogSubscriber(client, srvDeps.Store, cfg.MQTT.Topic)
			catalog.OnUpsert = srvDeps.PublishCatalogUpdated
			if err := catalog.Start(); err != nil {
				log.WithError(err).Warn("catalog subscribe failed")
			} else {
				log.WithField("topic", cfg.MQTT.Topic).Info("catalog ingest started")
			}
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"addr": srv.Addr, "version": buildinfo.Version}).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	if catalog != nil {
		catalog.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func setupLogging(cfg config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
