package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/cleaningpros/review-funnel/internal/config"
	"github.com/cleaningpros/review-funnel/internal/identity"
	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/notify"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// BuildLocations loads LOCATIONS_JSON, or the built-in registry when unset.
func BuildLocations(cfg *appconfig.Config, logger *logging.Logger) (*locations.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.LocationsJSON) == "" {
		return locations.Default(), nil
	}
	reg, err := locations.FromJSON(cfg.LocationsJSON)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if !reg.AllConfigured() {
		logger.Warn("some locations do not have a short review link", "locations", reg.Names())
	}
	return reg, nil
}

// DisplayLocation resolves the admin/alert timezone, falling back to UTC.
func DisplayLocation(cfg *appconfig.Config, logger *logging.Logger) *time.Location {
	if cfg == nil || cfg.DisplayTimezone == "" {
		return time.UTC
	}
	tz, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		if logger != nil {
			logger.Warn("unknown display timezone, using UTC", "timezone", cfg.DisplayTimezone, "error", err)
		}
		return time.UTC
	}
	return tz
}

// NeedsSES reports whether the alert sender may use SES, so callers only
// load AWS credentials when they matter.
func NeedsSES(cfg *appconfig.Config) bool {
	if cfg == nil || strings.TrimSpace(cfg.AlertEmailTo) == "" {
		return false
	}
	switch cfg.EmailProvider {
	case "ses":
		return true
	case "auto", "":
		return cfg.SendGridAPIKey == ""
	default:
		return false
	}
}

// BuildAlerter wires reclean alert e-mail. ses may be nil.
func BuildAlerter(cfg *appconfig.Config, ses *sesv2.Client, tz *time.Location, logger *logging.Logger) *notify.RecleanAlerter {
	sender := notify.NewEmailSender(notify.SenderConfig{
		Provider:       cfg.EmailProvider,
		FromEmail:      cfg.SendGridFromEmail,
		FromName:       cfg.SendGridFromName,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SES:            ses,
	}, logger)
	return notify.NewRecleanAlerter(sender, cfg.AlertEmailTo, tz, logger)
}

// BuildVerifier returns the signed-credential verifier when enabled.
func BuildVerifier(cfg *appconfig.Config, logger *logging.Logger) identity.Verifier {
	if cfg == nil || !cfg.GoogleVerifyCredentials {
		return nil
	}
	if cfg.GoogleClientID == "" {
		if logger != nil {
			logger.Warn("credential verification requested without a client id; disabled")
		}
		return nil
	}
	return identity.NewJWKSVerifier(cfg.GoogleClientID, "", nil)
}
