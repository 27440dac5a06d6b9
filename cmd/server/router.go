package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/postflight/campaign-api/internal/api"
	apimiddleware "github.com/postflight/campaign-api/internal/api/middleware"
)

func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	campaignHandler := api.NewCampaignHandler(app.campaignService, app.logger)
	recipientHandler := api.NewRecipientHandler(app.recipientService, app.logger)
	groupHandler := api.NewGroupHandler(app.groupService, app.recipientService, app.logger)
	unsubscribeHandler := api.NewUnsubscribeHandler(app.tokenService, app.recipientService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/campaigns", campaignHandler.Create)
		r.Get("/campaigns", campaignHandler.List)
		r.Post("/campaigns/send", campaignHandler.Send)

		r.Post("/groups", groupHandler.Create)
		r.Get("/groups", groupHandler.List)
		r.Patch("/groups/{id}", groupHandler.Update)
		r.Patch("/groups/{id}/recipients", groupHandler.AddRecipients)
		r.Get("/groups/{id}/recipients", groupHandler.ListRecipients)

		r.Post("/recipients", recipientHandler.Create)
		r.Get("/recipients", recipientHandler.List)
		r.Get("/recipients/active", recipientHandler.ListActive)
		r.Patch("/recipients/{id}", recipientHandler.Update)
		r.Post("/recipients/opt-out", recipientHandler.OptOut)
		r.Post("/recipients/opt-in", recipientHandler.OptIn)
	})

	r.Get("/unsubscribe", unsubscribeHandler.Unsubscribe)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
