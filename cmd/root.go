package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Security posture scanner and incident responder for the OriginFlow CRM",
	Long: `Sentinel - Security Engine for the OriginFlow Loan Origination CRM

Scans platform configuration, session integrity, input validation history,
and access control activity; validates requests against session, permission,
and rate-limit policy; and responds to reported security incidents with
automated containment.

Example:
  sentinel serve                # Start the security operations API
  sentinel scan                 # One-shot posture scan against the platform
  sentinel scan --actor usr_42  # Scan attributed to a specific actor
`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sentinel.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")

	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initializeApp(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sentinel")
	}

	viper.SetEnvPrefix("SENTINEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; env and defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg = config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	log, err = logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

func setDefaults() {
	defaults := config.DefaultConfig()

	viper.SetDefault("logger.level", defaults.Logger.Level)
	viper.SetDefault("logger.format", defaults.Logger.Format)

	viper.SetDefault("database.driver", defaults.Database.Driver)
	viper.SetDefault("database.dsn", defaults.Database.DSN)
	viper.SetDefault("database.max_connections", defaults.Database.MaxConnections)
	viper.SetDefault("database.max_idle_conns", defaults.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", defaults.Database.ConnMaxLifetime)

	viper.SetDefault("redis.addr", defaults.Redis.Addr)
	viper.SetDefault("redis.db", defaults.Redis.DB)
	viper.SetDefault("redis.max_retries", defaults.Redis.MaxRetries)
	viper.SetDefault("redis.dial_timeout", defaults.Redis.DialTimeout)
	viper.SetDefault("redis.read_timeout", defaults.Redis.ReadTimeout)
	viper.SetDefault("redis.write_timeout", defaults.Redis.WriteTimeout)

	viper.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	viper.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
	viper.SetDefault("telemetry.exporter_type", defaults.Telemetry.ExporterType)
	viper.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
	viper.SetDefault("telemetry.sample_rate", defaults.Telemetry.SampleRate)

	viper.SetDefault("security.api_key", "")
	viper.SetDefault("security.rate_limit.requests_per_second", defaults.Security.RateLimit.RequestsPerSecond)
	viper.SetDefault("security.rate_limit.burst_size", defaults.Security.RateLimit.BurstSize)
	viper.SetDefault("security.rate_limit.action_limit", defaults.Security.RateLimit.ActionLimit)
	viper.SetDefault("security.rate_limit.action_window", defaults.Security.RateLimit.ActionWindow)

	viper.SetDefault("scanner.scan_timeout", defaults.Scanner.ScanTimeout)
	viper.SetDefault("scanner.check_timeout", defaults.Scanner.CheckTimeout)
	viper.SetDefault("scanner.max_concurrent_sessions", defaults.Scanner.MaxConcurrentSessions)
	viper.SetDefault("scanner.session_risk_threshold", defaults.Scanner.SessionRiskThreshold)
	viper.SetDefault("scanner.injection_event_limit", defaults.Scanner.InjectionEventLimit)
	viper.SetDefault("scanner.injection_lookback", defaults.Scanner.InjectionLookback)
	viper.SetDefault("scanner.escalation_lookback", defaults.Scanner.EscalationLookback)
	viper.SetDefault("scanner.signature_file", defaults.Scanner.SignatureFile)
}
