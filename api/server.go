/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to ledger handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  Public reads:
    GET    /api/employees               Roster with count and total
    GET    /api/employees/count         numberOfEmployee
    GET    /api/employees/{address}     Single employee
    GET    /api/runway                  calculateRunway
    GET    /api/runway/sufficient       hasEnoughFund
    GET    /api/events                  Event journal

  Authenticated (Bearer JWT, subject = caller address):
    POST   /api/funds                   addFund (owner)
    POST   /api/deposits                Credit the ledger account
    POST   /api/payments                getPaid (employee)
    POST   /api/withdrawals             withdraw (owner)
    POST   /api/employees               addEmployee (owner)
    PUT    /api/employees/{address}     updateEmployee (owner)
    DELETE /api/employees/{address}     removeEmployee (owner)

  Role checks are the ledger's; the middleware only establishes identity.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication and request logging
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.logger()))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/employees", h.ListEmployees)
		r.Get("/employees/count", h.CountEmployees)
		r.Get("/employees/{address}", h.GetEmployee)
		r.Get("/runway", h.GetRunway)
		r.Get("/runway/sufficient", h.GetSufficiency)
		r.Get("/events", h.ListEvents)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.Issuer))

			r.Post("/funds", h.AddFund)
			r.Post("/deposits", h.Deposit)
			r.Post("/payments", h.GetPaid)
			r.Post("/withdrawals", h.Withdraw)
			r.Post("/employees", h.AddEmployee)
			r.Put("/employees/{address}", h.UpdateEmployee)
			r.Delete("/employees/{address}", h.RemoveEmployee)
		})
	})

	return r
}
