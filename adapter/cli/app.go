package cli

import (
	"github.com/google/uuid"

	"github.com/fabrikhq/modulus/internal/catalog"
	libraryApplication "github.com/fabrikhq/modulus/internal/library/application"
	"github.com/fabrikhq/modulus/internal/metering"
	paymentCommands "github.com/fabrikhq/modulus/internal/payments/application/commands"
	paymentQueries "github.com/fabrikhq/modulus/internal/payments/application/queries"
	subscriptionCommands "github.com/fabrikhq/modulus/internal/subscriptions/application/commands"
	subscriptionQueries "github.com/fabrikhq/modulus/internal/subscriptions/application/queries"
)

// App holds the CLI application dependencies.
type App struct {
	// Subscription Command Handlers
	SubscribeHandler           *subscriptionCommands.SubscribeHandler
	CancelSubscriptionHandler  *subscriptionCommands.CancelSubscriptionHandler
	UpgradeSubscriptionHandler *subscriptionCommands.UpgradeSubscriptionHandler

	// Subscription Query Handlers
	GetSubscriptionHandler   *subscriptionQueries.GetSubscriptionHandler
	ListSubscriptionsHandler *subscriptionQueries.ListSubscriptionsHandler

	// Payment Command Handlers
	SubmitPaymentHandler *paymentCommands.SubmitPaymentHandler
	VerifyPaymentHandler *paymentCommands.VerifyPaymentHandler
	RejectPaymentHandler *paymentCommands.RejectPaymentHandler

	// Payment Query Handlers
	GetPaymentHandler          *paymentQueries.GetPaymentHandler
	ListPaymentsHandler        *paymentQueries.ListPaymentsHandler
	ListPendingPaymentsHandler *paymentQueries.ListPendingPaymentsHandler

	// Catalog
	CatalogRegistry *catalog.Registry

	// Usage metering (nil without Redis)
	UsageAggregator *metering.Aggregator

	// Library access
	LibraryGate *libraryApplication.Gate

	// Current user context
	CurrentUserID uuid.UUID
}

// NewApp creates a new CLI application with the given handlers.
func NewApp(
	subscribeHandler *subscriptionCommands.SubscribeHandler,
	cancelSubscriptionHandler *subscriptionCommands.CancelSubscriptionHandler,
	upgradeSubscriptionHandler *subscriptionCommands.UpgradeSubscriptionHandler,
	getSubscriptionHandler *subscriptionQueries.GetSubscriptionHandler,
	listSubscriptionsHandler *subscriptionQueries.ListSubscriptionsHandler,
	submitPaymentHandler *paymentCommands.SubmitPaymentHandler,
	verifyPaymentHandler *paymentCommands.VerifyPaymentHandler,
	rejectPaymentHandler *paymentCommands.RejectPaymentHandler,
	getPaymentHandler *paymentQueries.GetPaymentHandler,
	listPaymentsHandler *paymentQueries.ListPaymentsHandler,
	listPendingPaymentsHandler *paymentQueries.ListPendingPaymentsHandler,
	catalogRegistry *catalog.Registry,
	usageAggregator *metering.Aggregator,
	libraryGate *libraryApplication.Gate,
) *App {
	return &App{
		SubscribeHandler:           subscribeHandler,
		CancelSubscriptionHandler:  cancelSubscriptionHandler,
		UpgradeSubscriptionHandler: upgradeSubscriptionHandler,
		GetSubscriptionHandler:     getSubscriptionHandler,
		ListSubscriptionsHandler:   listSubscriptionsHandler,
		SubmitPaymentHandler:       submitPaymentHandler,
		VerifyPaymentHandler:       verifyPaymentHandler,
		RejectPaymentHandler:       rejectPaymentHandler,
		GetPaymentHandler:          getPaymentHandler,
		ListPaymentsHandler:        listPaymentsHandler,
		ListPendingPaymentsHandler: listPendingPaymentsHandler,
		CatalogRegistry:            catalogRegistry,
		UsageAggregator:            usageAggregator,
		LibraryGate:                libraryGate,
		CurrentUserID:              uuid.Nil,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
