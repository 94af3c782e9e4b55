// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	clientsfeature "github.com/comptoirhq/comptoir/internal/app/features/clients"
	dashboardfeature "github.com/comptoirhq/comptoir/internal/app/features/dashboard"
	expensesfeature "github.com/comptoirhq/comptoir/internal/app/features/expenses"
	healthfeature "github.com/comptoirhq/comptoir/internal/app/features/health"
	leavesfeature "github.com/comptoirhq/comptoir/internal/app/features/leaves"
	managefeature "github.com/comptoirhq/comptoir/internal/app/features/manage"
	projectsfeature "github.com/comptoirhq/comptoir/internal/app/features/projects"
	salesfeature "github.com/comptoirhq/comptoir/internal/app/features/sales"
	auditstore "github.com/comptoirhq/comptoir/internal/app/store/audit"
	permstore "github.com/comptoirhq/comptoir/internal/app/store/permissions"
	rolestore "github.com/comptoirhq/comptoir/internal/app/store/roles"
	"github.com/comptoirhq/comptoir/internal/app/system/auditlog"
	"github.com/comptoirhq/comptoir/internal/app/system/authn"
	"github.com/comptoirhq/comptoir/internal/app/system/idp"
	"github.com/comptoirhq/comptoir/internal/app/system/mailer"
	"github.com/comptoirhq/comptoir/internal/app/system/ratelimit"
	"github.com/comptoirhq/comptoir/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Comptoir wires the identity provider
// client and the stores into the auth middleware, answers CORS preflights
// for browser clients, then mounts the admin gate and the permission-gated
// business modules.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	idpClient := idp.New(idp.Config{
		BaseURL:      appCfg.IdPBaseURL,
		ServiceKey:   appCfg.IdPServiceKey,
		ClientID:     appCfg.IdPClientID,
		ClientSecret: appCfg.IdPClientSecret,
		TokenURL:     appCfg.IdPTokenURL,
	}, logger)

	roles := rolestore.New(deps.MongoDatabase)
	perms := permstore.New(deps.MongoDatabase)
	audit := auditlog.New(auditstore.New(deps.MongoDatabase), logger)

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
	}, logger)

	mw := authn.NewMiddleware(idpClient, roles, logger)

	r := chi.NewRouter()

	// Browser clients call the API cross-origin; the preflight must allow
	// the provider headers (apikey, x-client-info) alongside the usual ones.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
	}))

	// Global auth middleware: resolves the bearer token into a Caller if one
	// is sent. This makes the caller available to all handlers via
	// authn.CurrentCaller(r).
	r.Use(mw.LoadCaller)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Admin gate: user and permission management behind a single action
	// endpoint. The handler enforces admin status itself (including the
	// first-admin bootstrap), so only caller loading happens above it.
	// Rate limited per client IP; the gate performs privileged writes.
	manageLimiter := ratelimit.New(60, time.Minute)
	manageHandler := managefeature.NewHandler(idpClient, roles, perms, audit, logger)
	r.Group(func(r chi.Router) {
		r.Use(manageLimiter.Middleware)
		managefeature.MountRoutes(r, manageHandler)
	})

	// Business modules, gated per (role, module) permission grants.
	clientsHandler := clientsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Route("/clients", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated, mw.RequireModule(perms, models.ModuleClients))
		clientsHandler.MountRoutes(r)
	})

	projectsHandler := projectsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Route("/projects", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated, mw.RequireModule(perms, models.ModuleProjects))
		projectsHandler.MountRoutes(r)
	})

	salesHandler := salesfeature.NewHandler(deps.MongoDatabase, logger)
	r.Route("/sales", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated, mw.RequireModule(perms, models.ModuleSales))
		salesHandler.MountRoutes(r)
	})

	expensesHandler := expensesfeature.NewHandler(deps.MongoDatabase, logger)
	r.Route("/expenses", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated, mw.RequireModule(perms, models.ModuleExpenses))
		expensesHandler.MountRoutes(r)
	})

	// Leave requests carry ownership semantics (a requester always sees and
	// manages their own requests), so the group only requires authentication;
	// admin and self checks happen in the handlers.
	leavesHandler := leavesfeature.NewHandler(deps.MongoDatabase, mail, appCfg.SiteName, logger)
	r.Route("/leaves", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		leavesHandler.MountRoutes(r)
	})

	dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, logger)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(mw.RequireAuthenticated, mw.RequireModule(perms, models.ModuleDashboard))
		dashboardHandler.MountRoutes(r)
	})

	return r, nil
}
