package api

import (
	"database/sql"
	"net/http"

	"github.com/campuslf/lostfound/internal/auth"
	"github.com/campuslf/lostfound/internal/catalog"
	"github.com/campuslf/lostfound/internal/claims"
	"github.com/campuslf/lostfound/internal/dispute"
	"github.com/campuslf/lostfound/internal/karma"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/notify"
	"github.com/campuslf/lostfound/internal/verify"
)

// Services bundles what the handlers call into.
type Services struct {
	DB       *sql.DB
	Auth     *auth.Service
	Catalog  *catalog.Service
	Claims   *claims.Workflow
	Notify   *notify.Service
	Verify   *verify.Service
	Karma    *karma.Ledger
	Disputes *dispute.Service
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(s Services) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Auth: s.Auth}
	usersHandler := &UsersHandler{DB: s.DB}
	itemsHandler := &ItemsHandler{Catalog: s.Catalog, Claims: s.Claims, Notify: s.Notify, Verify: s.Verify}
	claimsHandler := &ClaimsHandler{Claims: s.Claims, Verify: s.Verify}
	notificationsHandler := &NotificationsHandler{Notify: s.Notify}
	karmaHandler := &KarmaHandler{Karma: s.Karma}
	disputesHandler := &DisputesHandler{Disputes: s.Disputes}

	authMW := AuthMiddleware(s.Auth)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireStaff := RequireRole(model.RoleStaff)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	staff := func(h http.HandlerFunc) http.Handler { return authMW(requireStaff(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/karma/leaderboard", karmaHandler.Leaderboard)

	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("PUT /api/users/{id}/role", admin(usersHandler.UpdateRole))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Items.
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("GET /api/items/nearby", authed(itemsHandler.Nearby))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/timeline", authed(itemsHandler.Timeline))
	mux.Handle("GET /api/items/{id}/claims", authed(itemsHandler.ListClaims))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", authed(itemsHandler.GetImage))
	mux.Handle("POST /api/items/{id}/returned", authed(itemsHandler.MarkReturned))
	mux.Handle("POST /api/items/{id}/notify-owner", authed(itemsHandler.NotifyOwner))

	// Claims and handoff.
	mux.Handle("POST /api/items/{id}/claims", authed(claimsHandler.Create))
	mux.Handle("GET /api/claims/mine", authed(claimsHandler.Mine))
	mux.Handle("GET /api/claims/{id}", authed(claimsHandler.Get))
	mux.Handle("POST /api/claims/{id}/accept", authed(claimsHandler.Accept))
	mux.Handle("POST /api/claims/{id}/reject", authed(claimsHandler.Reject))
	mux.Handle("POST /api/claims/{id}/qr", authed(claimsHandler.GenerateQR))
	mux.Handle("POST /api/qr/verify", authed(claimsHandler.VerifyQR))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))
	mux.Handle("POST /api/notifications/{id}/reveal", authed(notificationsHandler.Reveal))
	mux.Handle("GET /api/claims/{id}/owner-contact", authed(notificationsHandler.OwnerContact))

	mux.Handle("GET /api/karma/me", authed(karmaHandler.Me))

	// Disputes: any claim party may open one, staff handle them.
	mux.Handle("POST /api/claims/{id}/disputes", authed(disputesHandler.Create))
	mux.Handle("GET /api/disputes", staff(disputesHandler.List))
	mux.Handle("POST /api/disputes/{id}/assign", staff(disputesHandler.Assign))
	mux.Handle("POST /api/disputes/{id}/resolve", staff(disputesHandler.Resolve))
	mux.Handle("POST /api/disputes/{id}/close", staff(disputesHandler.Close))

	// Moderation.
	mux.Handle("POST /api/flags", authed(disputesHandler.Flag))
	mux.Handle("GET /api/flags", staff(disputesHandler.ListFlags))
	mux.Handle("POST /api/flags/{id}/review", staff(disputesHandler.Review))

	return mux
}
