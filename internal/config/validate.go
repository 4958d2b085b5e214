package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const minSecretLen = 32

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errs []error

	if err := validPort(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port: %w", err))
	}
	if c.Server.HealthPort != "" {
		if err := validPort(c.Server.HealthPort); err != nil {
			errs = append(errs, fmt.Errorf("server.health_port: %w", err))
		}
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be > 0"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be > 0"))
	}

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.APIKey == "" {
		errs = append(errs, errors.New("backend.api_key is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be > 0"))
	}

	if c.Conversation.MaxOTPRetries <= 0 {
		errs = append(errs, fmt.Errorf("conversation.max_otp_retries must be > 0, got %d", c.Conversation.MaxOTPRetries))
	}
	if c.Conversation.CSATURL == "" {
		errs = append(errs, errors.New("conversation.csat_url is required"))
	}

	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be > 0"))
	}
	if c.Sessions.SweepInterval <= 0 {
		errs = append(errs, errors.New("sessions.sweep_interval must be > 0"))
	}
	if c.Sessions.MaxSessions <= 0 {
		errs = append(errs, errors.New("sessions.max_sessions must be > 0"))
	}
	if c.Sessions.Secret != "" && len(c.Sessions.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("sessions.secret must be at least %d bytes", minSecretLen))
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be > 0"))
	}

	if err := validPort(c.Mock.Port); err != nil {
		errs = append(errs, fmt.Errorf("mock.port: %w", err))
	}
	if c.Mock.HealthPort != "" {
		if err := validPort(c.Mock.HealthPort); err != nil {
			errs = append(errs, fmt.Errorf("mock.health_port: %w", err))
		}
	}
	if c.Mock.OTPRetention <= 0 {
		errs = append(errs, errors.New("mock.otp_retention must be > 0"))
	}
	if c.Mock.DBPath == "" {
		errs = append(errs, errors.New("mock.db_path is required"))
	}
	if len(c.Mock.OTPCodes) == 0 {
		errs = append(errs, errors.New("mock.otp_codes must not be empty"))
	}

	return errors.Join(errs...)
}

func validPort(p string) error {
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", p)
	}
	return nil
}
