package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/service"
	"github.com/signaldesk/signaldesk-server/service/activity"
	"github.com/signaldesk/signaldesk-server/service/dashboard"
	"github.com/signaldesk/signaldesk-server/service/health"
	"github.com/signaldesk/signaldesk-server/service/notification"
	"github.com/signaldesk/signaldesk-server/service/payment"
	"github.com/signaldesk/signaldesk-server/service/settings"
	"github.com/signaldesk/signaldesk-server/service/signal"
	"github.com/signaldesk/signaldesk-server/service/subscription"
	"github.com/signaldesk/signaldesk-server/service/user"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	feedHub := service.NewFeedHub()
	go feedHub.Run()

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	signalHandler := signal.NewSignalHandler(s.db, feedHub, notificationHandler)
	signalHandler.RegisterRoutes(subrouter)

	activityHandler := activity.NewActivityHandler(s.db)
	activityHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewPaymentHandler(s.db)
	paymentHandler.RegisterRoutes(subrouter)

	settingsHandler := settings.NewSettingsHandler(s.db)
	settingsHandler.RegisterRoutes(subrouter)

	healthHandler := health.NewHealthHandler(s.db)
	healthHandler.RegisterRoutes(subrouter)

	subscriptionHandler := subscription.NewSubscriptionHandler(s.db)
	subscriptionHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	wsHandler := service.NewWebSocketHandler(s.db, feedHub)
	wsHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, cors(router)))
}
