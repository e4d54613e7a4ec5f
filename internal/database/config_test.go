package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr string
	}{
		{
			name: "valid",
			config: DatabaseConfig{
				Host: "db.internal", Port: 3306, Username: "ops", Database: "printops",
			},
		},
		{
			name:    "missing host",
			config:  DatabaseConfig{Port: 3306, Username: "ops", Database: "printops"},
			wantErr: "host is required",
		},
		{
			name:    "bad port",
			config:  DatabaseConfig{Host: "h", Port: 70000, Username: "ops", Database: "printops"},
			wantErr: "port must be between",
		},
		{
			name:    "missing username and database",
			config:  DatabaseConfig{Host: "h", Port: 3306},
			wantErr: "username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_SetDefaults(t *testing.T) {
	config := DatabaseConfig{Host: "h"}
	config.SetDefaults()

	assert.Equal(t, 3306, config.Port)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)

	custom := DatabaseConfig{Port: 3307, Timeout: time.Second, MaxOpenConns: 2, MaxIdleConns: 1}
	custom.SetDefaults()
	assert.Equal(t, 3307, custom.Port)
	assert.Equal(t, time.Second, custom.Timeout)
	assert.Equal(t, 2, custom.MaxOpenConns)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	config := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "ops",
		Password: "p@ss:word",
		Database: "printops",
		Timeout:  5 * time.Second,
	}

	parsed, err := mysql.ParseDSN(config.DSN())
	require.NoError(t, err)

	assert.Equal(t, "ops", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "printops", parsed.DBName)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.True(t, parsed.ParseTime)
}

func TestDatabaseConfig_StringHidesPassword(t *testing.T) {
	config := DatabaseConfig{Host: "h", Port: 3306, Username: "ops", Password: "secret", Database: "d"}
	assert.Equal(t, "ops@h:3306/d", config.String())
	assert.NotContains(t, config.String(), "secret")
}
