/**
 * @description
 * HTTP router setup for the settlement service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers settlement routes.
func NewRouter(h *Handler, jwksURL string, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key", "X-Actor-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Settlement service is healthy"))
	})

	r.Route("/internal/settlement", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))

		r.Post("/orders", h.handleProcessOrder)
		r.Post("/orders/calculate", h.handleCalculateCommissions)
		r.Post("/orders/{orderID}/refund", h.handleRefundOrder)
		r.Get("/commissions", h.handleListCommissions)
		r.Post("/commissions/approve", h.handleApproveCommissions)

		r.Post("/payouts", h.handleCreatePayout)
		r.Get("/payouts", h.handleListPayouts)
		r.Get("/payouts/eligible-recipients", h.handleListEligibleRecipients)
		r.Get("/payouts/stats", h.handleGetPayoutStats)
		r.Get("/payouts/{id}", h.handleGetPayout)
		r.Post("/payouts/{id}/process", h.handleProcessPayout)
		r.Post("/payouts/{id}/complete", h.handleCompletePayout)
		r.Post("/payouts/{id}/fail", h.handleFailPayout)

		r.Post("/agreements", h.handleCreateAgreement)
		r.Get("/agreements", h.handleListAgreements)
		r.Get("/agreements/by-region/{regionCode}", h.handleGetAgreementByRegion)
		r.Get("/agreements/{id}", h.handleGetAgreement)
		r.Patch("/agreements/{id}", h.handleUpdateAgreement)
		r.Post("/agreements/{id}/sign", h.handleSignAgreement)
		r.Delete("/agreements/{id}", h.handleTerminateAgreement)

		r.Post("/attributions", h.handleCreateAttribution)
		r.Get("/attributions", h.handleListAttributions)
		r.Get("/attributions/stats", h.handleAttributionStats)
		r.Get("/attributions/{customerID}", h.handleGetAttribution)
		r.Post("/attributions/{customerID}/record-purchase", h.handleRecordPurchase)
		r.Delete("/attributions/{customerID}", h.handleDeleteAttribution)

		r.Post("/revenue/membership", h.handleTrackMembershipRevenue)
		r.Post("/revenue/transactions", h.handleTrackTransactionRevenue)
		r.Post("/revenue/payouts", h.handleCreateMonthlyPayouts)
		r.Get("/revenue/payouts", h.handleListRegionalPayouts)
		r.Get("/revenue/payouts/{id}", h.handleGetRegionalPayout)
		r.Post("/revenue/payouts/{id}/mark-paid", h.handleMarkRegionalPayoutPaid)
	})

	// Partner-facing reads scoped to the authenticated subject.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))
		r.Get("/settlement/commissions", h.handleListMyCommissions)
		r.Get("/settlement/payouts", h.handleListMyPayouts)
		r.Get("/settlement/attributions/stats", h.handleMyAttributionStats)
	})

	return r
}
