package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/repwatch/repwatch/internal/alerting"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/notifications"
	"github.com/repwatch/repwatch/internal/scheduler"
	"github.com/repwatch/repwatch/internal/scoring"
	"github.com/repwatch/repwatch/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting RepWatch engine")

	if cfg.DatabaseURL == "" {
		logrus.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize services
	notificationService := notifications.NewService(cfg)
	calculator := scoring.NewCalculator(store)
	alertEngine := alerting.NewEngine(cfg, store, notificationService)
	schedulerService := scheduler.NewService(cfg, store, calculator, alertEngine, notificationService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(schedulerService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(schedulerService)).Methods("POST")

	router.HandleFunc("/api/clients/{id}/score", scoreHandler(cfg, store, calculator)).Methods("POST")
	router.HandleFunc("/api/clients/{id}/alerts", runAlertsHandler(cfg, store, alertEngine)).Methods("POST")
	router.HandleFunc("/api/clients/{id}/alerts", listAlertsHandler(store)).Methods("GET")
	router.HandleFunc("/api/alerts/{id}/status", alertStatusHandler(store)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(schedulerService *scheduler.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(schedulerService.GetMetrics()))
	}
}

func triggerHandler(schedulerService *scheduler.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := schedulerService.RunScoringCycle(); err != nil {
				logrus.Errorf("Manual scoring trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Scoring cycle triggered successfully"}`))
	}
}

// evaluationWindow resolves the scoring window for a request, honoring an
// optional ?days= override.
func evaluationWindow(r *http.Request, defaultDays int) (time.Time, time.Time) {
	days := defaultDays
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	end := time.Now().UTC()
	return end.AddDate(0, 0, -days), end
}

func scoreHandler(cfg *config.Config, store storage.StorageInterface, calculator *scoring.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := mux.Vars(r)["id"]
		if _, err := store.GetClient(r.Context(), clientID); err != nil {
			writeError(w, err)
			return
		}

		periodStart, periodEnd := evaluationWindow(r, cfg.ScoringWindowDays)
		score, err := calculator.Calculate(r.Context(), clientID, periodStart, periodEnd)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, score)
	}
}

func runAlertsHandler(cfg *config.Config, store storage.StorageInterface, engine *alerting.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := mux.Vars(r)["id"]
		if _, err := store.GetClient(r.Context(), clientID); err != nil {
			writeError(w, err)
			return
		}

		periodStart, periodEnd := evaluationWindow(r, cfg.ScoringWindowDays)
		alerts, err := engine.GenerateAlertsForClient(r.Context(), clientID, periodStart, periodEnd)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"created": len(alerts),
			"alerts":  alerts,
		})
	}
}

func listAlertsHandler(store storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := mux.Vars(r)["id"]
		alerts, err := store.AlertsForClient(r.Context(), clientID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

func alertStatusHandler(store storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID := mux.Vars(r)["id"]

		var body struct {
			Status models.AlertStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		alert, err := store.GetAlert(r.Context(), alertID)
		if err != nil {
			writeError(w, err)
			return
		}

		if !alert.Status.CanTransitionTo(body.Status) {
			http.Error(w, fmt.Sprintf(`{"error":"cannot transition alert from %s to %s"}`, alert.Status, body.Status), http.StatusConflict)
			return
		}

		updated, err := store.UpdateAlertStatus(r.Context(), alertID, body.Status)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	logrus.Errorf("Request failed: %v", err)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
