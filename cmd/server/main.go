package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/storage"
)

const (
	commandUseName                   = "server"
	commandShortDescription          = "Run the Sriox dashboard"
	commandLongDescription           = "Serve the Sriox account dashboard backed by the Sriox platform API"
	missingConfigurationMessage      = "missing required configuration"
	loggerCreationErrorMessage       = "logger"
	logEventListening                = "listening"
	logEventShutdown                 = "shutdown"
	logFieldAddress                  = "addr"
	flagNameApplicationAddress       = "app-addr"
	flagNameAPIBaseURL               = "api-base-url"
	flagNameDatabaseDataSourceName   = "db-dsn"
	flagNameSessionSecret            = "session-secret"
	flagNameSiteDomain               = "site-domain"
	flagNameAllowedOrigins           = "allowed-origins"
	flagNameCookieSecure             = "cookie-secure"
	flagNameSessionTTL               = "session-ttl"
	flagNamePurgeInterval            = "purge-interval"
	flagUsageApplicationAddress      = "address for the HTTP server to listen on"
	flagUsageAPIBaseURL              = "base URL of the Sriox platform API"
	flagUsageDatabaseDataSourceName  = "SQLite data source holding browser session tokens"
	flagUsageSessionSecret           = "secret used to sign session cookies (at least 32 bytes)"
	flagUsageSiteDomain              = "public domain hosting sites and redirects"
	flagUsageAllowedOrigins          = "comma separated origins allowed to call the dashboard cross-origin"
	flagUsageCookieSecure            = "mark session cookies Secure"
	flagUsageSessionTTL              = "how long an idle session token is kept"
	flagUsagePurgeInterval           = "how often stale session tokens are purged"
	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyAPIBaseURL         = "API_BASE_URL"
	environmentKeyDatabaseDataSource = "DB_DSN"
	environmentKeySessionSecret      = "SESSION_SECRET"
	environmentKeySiteDomain         = "SITE_DOMAIN"
	environmentKeyAllowedOrigins     = "ALLOWED_ORIGINS"
	environmentKeyCookieSecure       = "COOKIE_SECURE"
	environmentKeySessionTTL         = "SESSION_TTL"
	environmentKeyPurgeInterval      = "PURGE_INTERVAL"
	defaultApplicationAddress        = ":8080"
	defaultDatabaseDataSourceName    = "sriox-dashboard.db"
	defaultSessionTTL                = 7 * 24 * time.Hour
	defaultPurgeInterval             = time.Hour
	loggerContextOpenDatabase        = "open_db"
	loggerContextAutoMigrate         = "migrate"
	loggerContextServer              = "server"
	loggerContextBuildServer         = "build_server"
	readHeaderTimeoutSeconds         = 5
	shutdownTimeout                  = 10 * time.Second
	unexpectedArgumentsMessage       = "unexpected command arguments"
	commandInitializationFailure     = "failed to configure command"
	flagNotDefinedMessage            = "flag %s not defined"
	environmentConfigurationError    = "failed to apply environment configuration"
	allowedOriginsSeparator          = ","
)

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	APIBaseURL             string
	DatabaseDataSourceName string
	SessionSecret          string
	SiteDomain             string
	AllowedOrigins         []string
	CookieSecure           bool
	SessionTTL             time.Duration
	PurgeInterval          time.Duration
}

// DatabaseOpener opens a database connection using the provided data source name.
type DatabaseOpener func(string) (*gorm.DB, error)

type configurationBinding struct {
	environmentKey string
	flagName       string
}

var configurationBindings = []configurationBinding{
	{environmentKey: environmentKeyApplicationAddress, flagName: flagNameApplicationAddress},
	{environmentKey: environmentKeyAPIBaseURL, flagName: flagNameAPIBaseURL},
	{environmentKey: environmentKeyDatabaseDataSource, flagName: flagNameDatabaseDataSourceName},
	{environmentKey: environmentKeySessionSecret, flagName: flagNameSessionSecret},
	{environmentKey: environmentKeySiteDomain, flagName: flagNameSiteDomain},
	{environmentKey: environmentKeyAllowedOrigins, flagName: flagNameAllowedOrigins},
	{environmentKey: environmentKeyCookieSecure, flagName: flagNameCookieSecure},
	{environmentKey: environmentKeySessionTTL, flagName: flagNameSessionTTL},
	{environmentKey: environmentKeyPurgeInterval, flagName: flagNamePurgeInterval},
}

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenSQLite,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.SetDefault(environmentKeyApplicationAddress, defaultApplicationAddress)
	application.configurationLoader.SetDefault(environmentKeyAPIBaseURL, "")
	application.configurationLoader.SetDefault(environmentKeyDatabaseDataSource, defaultDatabaseDataSourceName)
	application.configurationLoader.SetDefault(environmentKeySessionSecret, "")
	application.configurationLoader.SetDefault(environmentKeySiteDomain, dashboard.DefaultSiteDomain)
	application.configurationLoader.SetDefault(environmentKeyAllowedOrigins, "")
	application.configurationLoader.SetDefault(environmentKeyCookieSecure, false)
	application.configurationLoader.SetDefault(environmentKeySessionTTL, defaultSessionTTL)
	application.configurationLoader.SetDefault(environmentKeyPurgeInterval, defaultPurgeInterval)
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	commandFlags.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
	commandFlags.String(flagNameAPIBaseURL, "", flagUsageAPIBaseURL)
	commandFlags.String(flagNameDatabaseDataSourceName, defaultDatabaseDataSourceName, flagUsageDatabaseDataSourceName)
	commandFlags.String(flagNameSessionSecret, "", flagUsageSessionSecret)
	commandFlags.String(flagNameSiteDomain, dashboard.DefaultSiteDomain, flagUsageSiteDomain)
	commandFlags.String(flagNameAllowedOrigins, "", flagUsageAllowedOrigins)
	commandFlags.Bool(flagNameCookieSecure, false, flagUsageCookieSecure)
	commandFlags.Duration(flagNameSessionTTL, defaultSessionTTL, flagUsageSessionTTL)
	commandFlags.Duration(flagNamePurgeInterval, defaultPurgeInterval, flagUsagePurgeInterval)

	for _, binding := range configurationBindings {
		if bindErr := application.bindFlag(commandFlags, binding.environmentKey, binding.flagName); bindErr != nil {
			return bindErr
		}
	}

	for _, binding := range configurationBindings {
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, binding.environmentKey, binding.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	if markErr := command.MarkFlagRequired(flagNameAPIBaseURL); markErr != nil {
		return markErr
	}

	if markErr := command.MarkFlagRequired(flagNameSessionSecret); markErr != nil {
		return markErr
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) loadServerConfig() ServerConfig {
	loader := application.configurationLoader
	return ServerConfig{
		ApplicationAddress:     loader.GetString(environmentKeyApplicationAddress),
		APIBaseURL:             strings.TrimSpace(loader.GetString(environmentKeyAPIBaseURL)),
		DatabaseDataSourceName: strings.TrimSpace(loader.GetString(environmentKeyDatabaseDataSource)),
		SessionSecret:          strings.TrimSpace(loader.GetString(environmentKeySessionSecret)),
		SiteDomain:             strings.TrimSpace(loader.GetString(environmentKeySiteDomain)),
		AllowedOrigins:         splitAllowedOrigins(loader.GetString(environmentKeyAllowedOrigins)),
		CookieSecure:           loader.GetBool(environmentKeyCookieSecure),
		SessionTTL:             loader.GetDuration(environmentKeySessionTTL),
		PurgeInterval:          loader.GetDuration(environmentKeyPurgeInterval),
	}
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadServerConfig()
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(serverConfig.DatabaseDataSourceName)
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	dashboardServer, buildErr := newDashboardServer(serverConfig, database, logger)
	if buildErr != nil {
		logger.Fatal(loggerContextBuildServer, zap.Error(buildErr))
	}

	signalContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	dashboardServer.purgeScheduler.Start(signalContext)
	defer dashboardServer.purgeScheduler.Stop()

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           dashboardServer.router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	go func() {
		<-signalContext.Done()
		shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		logger.Info(logEventShutdown)
		_ = httpServer.Shutdown(shutdownContext)
	}()

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.APIBaseURL == "" {
		missingParameters = append(missingParameters, flagNameAPIBaseURL)
	}

	if configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSourceName)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func splitAllowedOrigins(rawValue string) []string {
	var origins []string
	for _, candidate := range strings.Split(rawValue, allowedOriginsSeparator) {
		trimmed := strings.TrimSpace(candidate)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
