package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ivanoskov/transfer_bot/internal/auth"
	"github.com/ivanoskov/transfer_bot/internal/bot"
	"github.com/ivanoskov/transfer_bot/internal/charts"
	"github.com/ivanoskov/transfer_bot/internal/config"
	"github.com/ivanoskov/transfer_bot/internal/payments"
	"github.com/ivanoskov/transfer_bot/internal/repository"
	"github.com/ivanoskov/transfer_bot/internal/service"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

var (
	initOnce      sync.Once
	telegramBot   *bot.Bot
	flow          *service.TransferFlow
	webhookSecret string
	initErr       error
)

// setup собирает бота один раз на экземпляр функции, чтобы сценарии
// переводов переживали соседние вызовы
func setup(ctx context.Context) (*bot.Bot, error) {
	initOnce.Do(func() {
		// Загрузка конфигурации
		cfg, err := config.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		if cfg.WebhookSecret == "" {
			initErr = errors.New("WEBHOOK_SECRET environment variable is required")
			return
		}
		webhookSecret = cfg.WebhookSecret

		// Инициализация хранилища сессий. Живет вместе с экземпляром.
		sessions, _, err := repository.Open(context.WithoutCancel(ctx), cfg)
		if err != nil {
			initErr = err
			return
		}

		authService := auth.NewService(sessions)
		client := payments.NewClient(cfg.APIBaseURL, authService, cfg.APITimeout)
		flow = service.NewTransferFlow(client, authService, service.Options{
			IdleTimeout: cfg.FlowIdleTimeout,
			QuoteTTL:    cfg.QuoteTTL,
		})

		// Инициализация бота
		telegramBot, initErr = bot.NewBot(cfg.TelegramToken, flow, charts.NewChartGenerator())
	})
	return telegramBot, initErr
}

// Handler обрабатывает одно webhook-обновление за вызов
func Handler(ctx context.Context, request Request) (*Response, error) {
	b, err := setup(ctx)
	if err != nil {
		return errorResponse(err)
	}
	if !authorized(webhookSecret, request) {
		return &Response{StatusCode: http.StatusForbidden, Body: "forbidden"}, nil
	}

	// Брошенные сценарии чистятся на каждом вызове
	flow.Sweep(time.Now())

	// Обработка webhook-обновления
	if err := b.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		return errorResponse(err)
	}

	return &Response{
		StatusCode: 200,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// authorized проверяет заголовок секрета. API Gateway может менять регистр имен.
func authorized(secret string, request Request) bool {
	for name, value := range request.Headers {
		if strings.EqualFold(name, bot.SecretTokenHeader) {
			return bot.VerifySecret(secret, value)
		}
	}
	return false
}

func errorResponse(err error) (*Response, error) {
	return &Response{
		StatusCode: 500,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}
