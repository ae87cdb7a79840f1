package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "HOUDINIMCP_"

// ApplyEnvConfig applies HOUDINIMCP_* environment variables to cfg.
// Variables for flags in changed are ignored.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("registry-dir", env("REGISTRY_DIR"), &cfg.RegistryDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("host", env("HOST"), &cfg.Host)
	s.setString("hip-file", env("HIP_FILE"), &cfg.HipFile)
	s.setString("hip-name", env("HIP_NAME"), &cfg.HipName)
	s.setString("app-version", env("APP_VERSION"), &cfg.AppVersion)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("probe-command", env("PROBE_COMMAND"), &cfg.ProbeCommand)

	ints := []struct {
		flag, name string
		dst        *int
	}{
		{"port", "PORT", &cfg.Port},
		{"port-start", "PORT_RANGE_START", &cfg.PortRangeStart},
		{"port-end", "PORT_RANGE_END", &cfg.PortRangeEnd},
		{"max-message-bytes", "MAX_MESSAGE_BYTES", &cfg.MaxMessageBytes},
		{"default-port", "DEFAULT_PORT", &cfg.DefaultPort},
		{"dial-attempts", "DIAL_ATTEMPTS", &cfg.DialAttempts},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, env(v.name), v.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("message-timeout", env("MESSAGE_TIMEOUT"), &cfg.MessageTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", env("WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sweep-interval", env("SWEEP_INTERVAL"), &cfg.SweepInterval); err != nil {
		return err
	}
	if err := s.setDuration("call-timeout", env("CALL_TIMEOUT"), &cfg.CallTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", env("DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}

	s.setBoolFromString("watch-peers", env("WATCH_PEERS"), &cfg.WatchPeers)
	return nil
}
