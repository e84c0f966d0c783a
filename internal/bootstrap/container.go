package bootstrap

import (
	"context"
	"log"
	"time"

	"scanguard-be/internal/config"
	"scanguard-be/internal/controller"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/handler"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/pkg/mailer"
	"scanguard-be/internal/repository/unitofwork"
	"scanguard-be/internal/service"
	"scanguard-be/internal/websocket"
	"scanguard-be/pkg/billing"
	"scanguard-be/pkg/events"
	"scanguard-be/pkg/metering"
	pktNats "scanguard-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	BillingController     controller.IBillingController
	PlanController        controller.IPlanController
	EntitlementController controller.IEntitlementController

	// Background services (exposed for main.go to run)
	AlertConsumerService service.IAlertConsumerService
	ResyncService        service.IResyncService

	// WebSockets
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
	)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Billing provider
	provider := billing.NewMidtransProvider(billing.MidtransConfig{
		ServerKey:     cfg.Billing.ServerKey,
		IsProduction:  cfg.Billing.IsProduction,
		PortalBaseURL: cfg.Billing.PortalBaseURL,
		ClientURL:     cfg.App.ClientURL,
		Timeout:       cfg.Billing.ProviderTimeout,
	})

	// 3. Services
	alertService := service.NewAlertService(pubSub, sysLogger)
	alertConsumer := service.NewAlertConsumerService(pubSub, sysLogger, emailService, natsPub, cfg.Alerts.OperatorEmail)

	meter := metering.NewMeter(uowFactory, sysLogger)
	planService := service.NewPlanService(uowFactory, sysLogger)
	reconciler := service.NewReconcilerService(uowFactory, meter, alertService, sysLogger)

	publishChange := func(ctx context.Context, result *service.ApplyResult) {
		if natsPub == nil {
			return
		}
		for _, evt := range domainEventsFor(result) {
			if err := natsPub.Publish(ctx, evt); err != nil {
				sysLogger.Warn("BOOTSTRAP", "Domain event publish failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	webhookService := service.NewWebhookService(uowFactory, reconciler, alertService, wsHub, rdb, cfg, sysLogger, publishChange)
	entitlementService := service.NewEntitlementService(uowFactory, planService, meter, sysLogger)
	billingService := service.NewBillingService(provider, planService, cfg, sysLogger)
	resyncService := service.NewResyncService(uowFactory, provider, reconciler, alertService, cfg, sysLogger)

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		BillingController:     controller.NewBillingController(webhookService, billingService, entitlementService),
		PlanController:        controller.NewPlanController(planService),
		EntitlementController: controller.NewEntitlementController(entitlementService),

		AlertConsumerService: alertConsumer,
		ResyncService:        resyncService,

		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
	}
}

// domainEventsFor translates a reconciliation result into bus events for
// downstream consumers (email campaigns, analytics, the scan scheduler).
func domainEventsFor(result *service.ApplyResult) []events.Event {
	var out []events.Event
	now := time.Now()

	base := map[string]interface{}{
		"account_id": result.AccountId.String(),
		"old_status": string(result.OldStatus),
		"new_status": string(result.NewStatus),
	}

	if result.OldStatus != result.NewStatus {
		var code string
		switch result.NewStatus {
		case entity.SubscriptionStatusActive, entity.SubscriptionStatusTrialing:
			code = events.TypeSubscriptionActivated
		case entity.SubscriptionStatusPastDue:
			code = events.TypeSubscriptionPastDue
		case entity.SubscriptionStatusCanceled:
			code = events.TypeSubscriptionCanceled
		default:
			code = events.TypeSubscriptionChanged
		}
		out = append(out, events.BaseEvent{Type: code, Data: base, OccurredAt: now})
	} else {
		out = append(out, events.BaseEvent{Type: events.TypeSubscriptionChanged, Data: base, OccurredAt: now})
	}

	if result.PeriodRolled {
		out = append(out, events.BaseEvent{
			Type: events.TypePeriodRolledOver,
			Data: map[string]interface{}{
				"account_id":   result.AccountId.String(),
				"period_start": result.NewPeriod.Start,
				"period_end":   result.NewPeriod.End,
			},
			OccurredAt: now,
		})
	}

	return out
}
