package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***", for logging or printing the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Server.APIKey)
	redact(&out.Strategy.Model.APIKey)
	redact(&out.Accounts.VaultPassword)
	redact(&out.Venue.Bridge.APIKey)
	redact(&out.Venue.Bridge.SignSecret)
	redact(&out.Signals.Token)
	redact(&out.Signals.Cookie)
	redact(&out.Journal.Postgres.DSN)
	redact(&out.Journal.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy maps and slices so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Accounts.Profiles != nil {
		out.Accounts.Profiles = make(map[string]AccountConfig, len(cfg.Accounts.Profiles))
		for k, v := range cfg.Accounts.Profiles {
			redact(&v.Password)
			out.Accounts.Profiles[k] = v
		}
	}
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)
	out.Strategy.MultiTimeframe.Timeframes = cloneStrings(cfg.Strategy.MultiTimeframe.Timeframes)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
