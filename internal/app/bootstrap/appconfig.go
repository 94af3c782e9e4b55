// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: ports, TLS, logging level
// and the like stay in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Identity provider configuration. IdPBaseURL and IdPServiceKey are
	// required; startup aborts without them.
	IdPBaseURL      string // Provider base URL, without trailing slash
	IdPServiceKey   string // Service-level credential (also sent as apikey header)
	IdPClientID     string // OAuth2 client id for the admin API (optional)
	IdPClientSecret string // OAuth2 client secret (optional)
	IdPTokenURL     string // OAuth2 token endpoint (optional)

	// Email/SMTP configuration. An empty MailSMTPHost selects log-only
	// delivery, used in development and tests.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@comptoir.example)

	// SiteName appears in outbound email.
	SiteName string
}
