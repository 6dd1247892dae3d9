package main_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	servercmd "github.com/MarkoPoloResearchLab/sriox-dashboard/cmd/server"
)

const (
	testEnvironmentKeyAPIBaseURL      = "API_BASE_URL"
	testEnvironmentKeySessionSecret   = "SESSION_SECRET"
	testEnvironmentKeyDatabaseDSN     = "DB_DSN"
	testPlaceholderAPIBaseURL         = "https://api.sriox.example"
	testPlaceholderSessionSecret      = "0123456789abcdef0123456789abcdef"
	testPlaceholderDatabaseDSN        = "file:sessions.db"
	testMissingConfigurationMessage   = "missing required configuration"
	testFlagNameAPIBaseURL            = "api-base-url"
	testFlagNameSessionSecret         = "session-secret"
	testFlagNameDatabaseDataSource    = "db-dsn"
	testFlagIndicator                 = "--"
	testUsagePrefix                   = "Usage:"
	testInvalidDurationValue          = "soon"
	testEnvironmentKeySessionTTL      = "SESSION_TTL"
	testEnvironmentConfigurationError = "failed to apply environment configuration"
)

func TestServerCommandMissingConfigurationShowsHelp(testingT *testing.T) {
	testCases := []struct {
		name                string
		apiBaseURL          string
		sessionSecret       string
		databaseDSN         string
		expectedMissingFlag string
	}{
		{
			name:                "missing api base url",
			apiBaseURL:          "",
			sessionSecret:       testPlaceholderSessionSecret,
			databaseDSN:         testPlaceholderDatabaseDSN,
			expectedMissingFlag: testFlagNameAPIBaseURL,
		},
		{
			name:                "missing session secret",
			apiBaseURL:          testPlaceholderAPIBaseURL,
			sessionSecret:       "",
			databaseDSN:         testPlaceholderDatabaseDSN,
			expectedMissingFlag: testFlagNameSessionSecret,
		},
		{
			name:                "blank database dsn",
			apiBaseURL:          testPlaceholderAPIBaseURL,
			sessionSecret:       testPlaceholderSessionSecret,
			databaseDSN:         "  ",
			expectedMissingFlag: testFlagNameDatabaseDataSource,
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			testingT.Setenv(testEnvironmentKeyAPIBaseURL, testCase.apiBaseURL)
			testingT.Setenv(testEnvironmentKeySessionSecret, testCase.sessionSecret)
			testingT.Setenv(testEnvironmentKeyDatabaseDSN, testCase.databaseDSN)

			databaseOpenerStub := func(databaseDataSourceName string) (*gorm.DB, error) {
				testingT.Fatalf("database opener invoked with %s", databaseDataSourceName)
				return nil, nil
			}

			application := servercmd.NewServerApplication().WithDatabaseOpener(databaseOpenerStub)
			command, commandErr := application.Command()
			require.NoError(testingT, commandErr)

			commandOutput := &bytes.Buffer{}
			command.SetOut(commandOutput)
			command.SetErr(commandOutput)

			executionErr := command.Execute()
			require.Error(testingT, executionErr)

			combinedOutput := commandOutput.String()
			require.Contains(testingT, combinedOutput, testMissingConfigurationMessage)
			require.Contains(testingT, combinedOutput, testUsagePrefix)
			require.Contains(testingT, combinedOutput, testFlagIndicator+testCase.expectedMissingFlag)
		})
	}
}

func TestServerCommandRejectsInvalidEnvironmentDuration(testingT *testing.T) {
	testingT.Setenv(testEnvironmentKeySessionTTL, testInvalidDurationValue)

	_, commandErr := servercmd.NewServerApplication().Command()

	require.Error(testingT, commandErr)
	require.Contains(testingT, commandErr.Error(), testEnvironmentConfigurationError)
}
