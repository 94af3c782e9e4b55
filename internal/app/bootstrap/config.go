// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Comptoir.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, idp_base_url, etc.
//   - Environment variables: COMPTOIR_MONGO_URI, COMPTOIR_IDP_BASE_URL, etc.
//   - Command-line flags: --mongo_uri, --idp_base_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "comptoir", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	// Identity provider
	{Name: "idp_base_url", Default: "", Desc: "Identity provider base URL (required)"},
	{Name: "idp_service_key", Default: "", Desc: "Identity provider service credential (required)"},
	{Name: "idp_client_id", Default: "", Desc: "OAuth2 client id for the provider admin API"},
	{Name: "idp_client_secret", Default: "", Desc: "OAuth2 client secret for the provider admin API"},
	{Name: "idp_token_url", Default: "", Desc: "OAuth2 token endpoint for the provider admin API"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank = log-only delivery)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@comptoir.example", Desc: "From email address"},

	{Name: "site_name", Default: "Comptoir", Desc: "Display name used in outbound email"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// Precedence is flags > env > files > defaults, handled by
// config.LoadWithAppConfig.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COMPTOIR", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		IdPBaseURL:      appValues.String("idp_base_url"),
		IdPServiceKey:   appValues.String("idp_service_key"),
		IdPClientID:     appValues.String("idp_client_id"),
		IdPClientSecret: appValues.String("idp_client_secret"),
		IdPTokenURL:     appValues.String("idp_token_url"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),

		SiteName: appValues.String("site_name"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The identity provider settings are validated here so a misconfigured
// deployment fails before any request is processed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.IdPBaseURL == "" {
		return fmt.Errorf("idp_base_url is required")
	}
	if appCfg.IdPServiceKey == "" {
		return fmt.Errorf("idp_service_key is required")
	}

	// The OAuth2 admin credentials are all-or-nothing.
	oauthSet := 0
	for _, v := range []string{appCfg.IdPClientID, appCfg.IdPClientSecret, appCfg.IdPTokenURL} {
		if v != "" {
			oauthSet++
		}
	}
	if oauthSet != 0 && oauthSet != 3 {
		return fmt.Errorf("idp_client_id, idp_client_secret, and idp_token_url must be set together")
	}

	return nil
}
