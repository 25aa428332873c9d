package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivanoskov/transfer_bot/internal/auth"
	"github.com/ivanoskov/transfer_bot/internal/bot"
	"github.com/ivanoskov/transfer_bot/internal/charts"
	"github.com/ivanoskov/transfer_bot/internal/config"
	"github.com/ivanoskov/transfer_bot/internal/payments"
	"github.com/ivanoskov/transfer_bot/internal/repository"
	"github.com/ivanoskov/transfer_bot/internal/service"
)

// Ограничение на размер тела webhook-запроса
const maxWebhookBody = 1 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	sessions, closeSessions, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open session storage: %v", err)
	}
	defer closeSessions()

	// Initialize layers
	authService := auth.NewService(sessions)
	client := payments.NewClient(cfg.APIBaseURL, authService, cfg.APITimeout)
	flow := service.NewTransferFlow(client, authService, service.Options{
		IdleTimeout: cfg.FlowIdleTimeout,
		QuoteTTL:    cfg.QuoteTTL,
	})
	go flow.RunJanitor(ctx, cfg.FlowSweepInterval)

	telegramBot, err := bot.NewBot(cfg.TelegramToken, flow, charts.NewChartGenerator())
	if err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newRouter(ctx, telegramBot, cfg.WebhookSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	if err := telegramBot.Start(ctx); err != nil {
		log.Print(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// webhookHandler - часть бота, которую обслуживает /webhook
type webhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// newRouter собирает ops-сервер. /webhook регистрируется только при
// заданном секрете и принимает лишь запросы с верным заголовком.
func newRouter(ctx context.Context, telegramBot webhookHandler, secret string) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if secret == "" {
		return r
	}

	r.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		if !bot.VerifySecret(secret, r.Header.Get(bot.SecretTokenHeader)) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := telegramBot.HandleWebhook(ctx, body); err != nil {
			log.Printf("webhook: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")
	return r
}
