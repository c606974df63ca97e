package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/poofware/fleet-service/internal/constants"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/spf13/viper"
)

type Config struct {
	AppName        string
	AppPort        string
	AppUrl         string
	DBUrl          string
	TraccarBaseURL string
	TraccarTimeout time.Duration
	SendgridAPIKey string
	AlertEmailTo   string
	AlertCronSpec  string
	Location       *time.Location

	LDFlag_CompensateFailedRegistrations bool
	LDFlag_CORSHighSecurity              bool
	LDFlag_ExpiryAlertsEnabled           bool
	LDFlag_SendgridFromEmail             string
	LDFlag_SendgridSandboxMode           bool
}

const (
	LDConnectionTimeout = 5 * time.Second
)

var (
	AppName             string
	LDServerContextKey  = "fleet-service"
	LDServerContextKind = "service"
)

// LoadConfig reads the optional .env file, then the process environment.
// Missing required settings are fatal.
func LoadConfig() *Config {
	if AppName == "" {
		AppName = constants.DefaultAppName
	}
	utils.Logger.Info("Loading config for app: ", AppName)

	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("No .env file loaded; using process environment only")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_URL_FROM_ANYWHERE", "http://localhost:8080")
	v.SetDefault("TRACCAR_TIMEOUT", constants.DefaultTraccarTimeout.String())
	v.SetDefault("ALERT_CRON_SPEC", constants.ExpiryAlertCronSpec)
	v.SetDefault("APP_TIMEZONE", "UTC")

	dbURL := v.GetString("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}
	traccarURL := v.GetString("TRACCAR_BASE_URL")
	if traccarURL == "" {
		utils.Logger.Fatal("TRACCAR_BASE_URL env var is missing")
	}

	traccarTimeout := v.GetDuration("TRACCAR_TIMEOUT")
	if traccarTimeout <= 0 {
		utils.Logger.Fatalf("TRACCAR_TIMEOUT must be a positive duration, got %q", v.GetString("TRACCAR_TIMEOUT"))
	}

	loc, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("APP_TIMEZONE is not a valid IANA zone")
	}

	cfg := &Config{
		AppName:        AppName,
		AppPort:        v.GetString("APP_PORT"),
		AppUrl:         v.GetString("APP_URL_FROM_ANYWHERE"),
		DBUrl:          dbURL,
		TraccarBaseURL: traccarURL,
		TraccarTimeout: traccarTimeout,
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		AlertEmailTo:   v.GetString("ALERT_EMAIL_TO"),
		AlertCronSpec:  v.GetString("ALERT_CRON_SPEC"),
		Location:       loc,
	}
	loadFlags(cfg, v.GetString("LD_SDK_KEY"))
	return cfg
}

// loadFlags snapshots feature flags once at startup. An empty SDK key runs
// the LaunchDarkly client offline, so every flag takes its default.
func loadFlags(cfg *Config, sdkKey string) {
	ldConfig := ld.Config{}
	if sdkKey == "" {
		ldConfig.Offline = true
		utils.Logger.Warn("LD_SDK_KEY empty; feature flags use their defaults")
	}

	ldClient, err := ld.MakeCustomClient(sdkKey, ldConfig, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	cfg.LDFlag_CompensateFailedRegistrations, err = ldClient.BoolVariation("compensate_failed_registrations", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Warn("Error retrieving compensate_failed_registrations flag")
	}
	utils.Logger.Debugf("compensate_failed_registrations flag: %t", cfg.LDFlag_CompensateFailedRegistrations)

	cfg.LDFlag_CORSHighSecurity, err = ldClient.BoolVariation("cors_high_security", ctx, true)
	if err != nil {
		utils.Logger.WithError(err).Warn("Error retrieving cors_high_security flag")
	}
	utils.Logger.Debugf("cors_high_security flag: %t", cfg.LDFlag_CORSHighSecurity)

	cfg.LDFlag_ExpiryAlertsEnabled, err = ldClient.BoolVariation("expiry_alerts_enabled", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Warn("Error retrieving expiry_alerts_enabled flag")
	}
	utils.Logger.Debugf("expiry_alerts_enabled flag: %t", cfg.LDFlag_ExpiryAlertsEnabled)

	cfg.LDFlag_SendgridFromEmail, err = ldClient.StringVariation("sendgrid_from_email", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Warn("Error retrieving sendgrid_from_email flag")
	}
	if cfg.LDFlag_SendgridFromEmail == "" {
		cfg.LDFlag_SendgridFromEmail = constants.DefaultAlertFromEmail // Fallback
	}

	cfg.LDFlag_SendgridSandboxMode, err = ldClient.BoolVariation("sendgrid_sandbox_mode", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Warn("Error retrieving sendgrid_sandbox_mode flag")
	}
}
