package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config holds the service configuration beyond what go-core registers on
// its own (logging, ops port and friends).
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	IntakeToken string

	DatabaseURL string
	RedisURL    string

	BoardAPIURL      string
	BoardToken       string
	PhaseApproved    string
	PhaseBlocking    string
	PhaseAutoResolve string
	ReportFieldID    string
	SummaryFieldID   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	RecipientName    string
	RecipientPhone   string

	RegistryAPIURL  string
	RegistryAPIKey  string
	RegistryTTLSecs int

	RetryMaxAttempts    int
	RetryInitialSeconds int
	BreakerThreshold    int
	BreakerCooldownSecs int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")

	fs.StringVar(&c.IntakeToken, "intake-token", "", "bearer token protecting the intake routes (empty = auth off)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for the registry lookup cache (empty = in-process cache)")

	fs.StringVar(&c.BoardAPIURL, "board-api-url", "", "workflow board GraphQL endpoint (empty = public Pipefy endpoint)")
	fs.StringVar(&c.BoardToken, "board-token", "", "workflow board API token")
	fs.StringVar(&c.PhaseApproved, "phase-approved", "", "board phase ID for approved cases")
	fs.StringVar(&c.PhaseBlocking, "phase-blocking", "", "board phase ID for cases with blocking issues")
	fs.StringVar(&c.PhaseAutoResolve, "phase-auto-resolve", "", "board phase ID for cases under automatic resolution")
	fs.StringVar(&c.ReportFieldID, "report-field-id", "", "board field ID receiving the detailed report")
	fs.StringVar(&c.SummaryFieldID, "summary-field-id", "", "board field ID receiving the summary (optional)")

	fs.StringVar(&c.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for WhatsApp notifications")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token")
	fs.StringVar(&c.TwilioFrom, "twilio-from", "", "WhatsApp sender number in E.164 form")
	fs.StringVar(&c.RecipientName, "recipient-name", "", "notification recipient name")
	fs.StringVar(&c.RecipientPhone, "recipient-phone", "", "notification recipient phone in E.164 form (empty = notifications off)")

	fs.StringVar(&c.RegistryAPIURL, "registry-api-url", "", "company registry API endpoint (empty = public CNPJá endpoint)")
	fs.StringVar(&c.RegistryAPIKey, "registry-api-key", "", "company registry API key")
	fs.IntVar(&c.RegistryTTLSecs, "registry-cache-ttl-seconds", 86400, "registry lookup cache TTL in seconds")

	fs.IntVar(&c.RetryMaxAttempts, "retry-max-attempts", 3, "attempts per remote call, including the first (1..10)")
	fs.IntVar(&c.RetryInitialSeconds, "retry-initial-seconds", 2, "initial backoff delay in seconds")
	fs.IntVar(&c.BreakerThreshold, "breaker-threshold", 5, "consecutive remote failures before the circuit opens")
	fs.IntVar(&c.BreakerCooldownSecs, "breaker-cooldown-seconds", 60, "seconds the circuit stays open before a trial call")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Board access is required: every verdict moves the case somewhere.
	if c.BoardToken == "" {
		errs = append(errs, errors.New("BOARD_TOKEN is required"))
	}
	if c.PhaseApproved == "" {
		errs = append(errs, errors.New("PHASE_APPROVED is required"))
	}
	if c.PhaseBlocking == "" {
		errs = append(errs, errors.New("PHASE_BLOCKING is required"))
	}
	if c.PhaseAutoResolve == "" {
		errs = append(errs, errors.New("PHASE_AUTO_RESOLVE is required"))
	}
	if c.ReportFieldID == "" {
		errs = append(errs, errors.New("REPORT_FIELD_ID is required"))
	}

	// Notifications are optional as a whole, but a configured recipient
	// needs working Twilio credentials.
	if c.RecipientPhone != "" {
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFrom == "" {
			errs = append(errs, errors.New("RECIPIENT_PHONE is set but TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM are not all configured"))
		}
		if !strings.HasPrefix(strings.TrimPrefix(c.RecipientPhone, "whatsapp:"), "+") {
			errs = append(errs, fmt.Errorf("invalid RECIPIENT_PHONE %q (must be E.164, e.g. +5511999999999)", c.RecipientPhone))
		}
	}

	if c.RegistryTTLSecs <= 0 {
		errs = append(errs, fmt.Errorf("invalid REGISTRY_CACHE_TTL_SECONDS %d (must be positive)", c.RegistryTTLSecs))
	}

	if c.RetryMaxAttempts <= 0 || c.RetryMaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS %d (must be 1..10)", c.RetryMaxAttempts))
	}
	if c.RetryInitialSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid RETRY_INITIAL_SECONDS %d (must be positive)", c.RetryInitialSeconds))
	}
	if c.BreakerThreshold <= 0 {
		errs = append(errs, fmt.Errorf("invalid BREAKER_THRESHOLD %d (must be positive)", c.BreakerThreshold))
	}
	if c.BreakerCooldownSecs <= 0 {
		errs = append(errs, fmt.Errorf("invalid BREAKER_COOLDOWN_SECONDS %d (must be positive)", c.BreakerCooldownSecs))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
