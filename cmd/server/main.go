package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/freecanvas/internal/asset"
	"github.com/inamate/freecanvas/internal/auth"
	"github.com/inamate/freecanvas/internal/canvas"
	"github.com/inamate/freecanvas/internal/config"
	"github.com/inamate/freecanvas/internal/live"
	mw "github.com/inamate/freecanvas/internal/middleware"
	"github.com/inamate/freecanvas/internal/storage"
	"github.com/inamate/freecanvas/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		slog.Error("open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer store.Close()

	adapter := storage.NewAdapter(store,
		storage.WithMaxBytes(cfg.MaxStoreBytes),
		storage.WithImagePayloadLimit(cfg.ImagePayloadLimit),
	)
	autosave := storage.NewAutosaver(cfg.AutosaveDelay)

	canvasService := canvas.NewService(workspace.New(), adapter, autosave, cfg.RegistryKey)
	canvasService.Restore(ctx)
	canvasHandler := canvas.NewHandler(canvasService)

	authService, err := auth.NewService(cfg.TokenSecret)
	if err != nil {
		slog.Error("create auth service", "error", err)
		os.Exit(1)
	}
	authHandler := auth.NewHandler(authService, canvasService.Exists)

	assetHandler := asset.NewHandler(cfg.AssetDir)

	hub := live.NewHub()
	canvasService.OnChange(hub.BroadcastCanvasList)
	liveHandler := live.NewHandler(hub, canvasService, live.Options{
		HistoryLimit:   cfg.HistoryLimit,
		SnapThreshold:  cfg.SnapThreshold,
		AllowedOrigins: cfg.Origins(),
		Decoder:        asset.NewDecoder(cfg.AssetDir),
	})

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix(asset.URLPrefix).Handler(assetHandler.Serve()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	canvasHandler.Register(api)
	api.HandleFunc("/canvases/{id}/session", authHandler.IssueSession).Methods("POST")

	r.Handle("/ws/canvas/{id}", authService.RequireCanvas("id")(liveHandler))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.CloseAll()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("saving pending canvases")
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := autosave.Close(flushCtx); err != nil {
		slog.Error("final save failed", "error", err)
	}
}
