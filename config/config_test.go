package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "inline", cfg.Notification.Driver)
	assert.Equal(t, "SFS Scheduling", cfg.SMTP.SenderName)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Auth.Required)
}

func TestLoadFlatKeys(t *testing.T) {
	cfg, err := load(newViper(t, `
dbHost: db.internal
dbName: visitors
dbUser: kiosk
dbPassword: secret
jwtIssuer: base
jwtAudience: admin
jwtKey: k3y
smtpHost: mail.internal
smtpPort: 2525
smtpUser: mailer
smtpPassword: mailpass
senderEmail: front@base.mil
senderName: Front Desk
`))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "visitors", cfg.Database.Name)
	assert.Equal(t, "kiosk", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "base", cfg.Auth.Issuer)
	assert.Equal(t, "admin", cfg.Auth.Audience)
	assert.Equal(t, "k3y", cfg.Auth.Key)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "mailer", cfg.SMTP.User)
	assert.Equal(t, "mailpass", cfg.SMTP.Password)
	assert.Equal(t, "front@base.mil", cfg.SMTP.SenderEmail)
	assert.Equal(t, "Front Desk", cfg.SMTP.SenderName)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "env-db")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SENDER_NAME", "Visitor Center")
	t.Setenv("VISITOR_NOTIFICATION_DRIVER", "redis")

	cfg, err := load(newViper(t, `
database:
  host: file-db
smtp:
  port: 25
`))
	require.NoError(t, err)

	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "Visitor Center", cfg.SMTP.SenderName)
	assert.Equal(t, "redis", cfg.Notification.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown database driver", "database:\n  driver: mysql\n", "unknown database driver"},
		{"unknown notification driver", "notification:\n  driver: sms\n", "unknown notification driver"},
		{"auth without key", "auth:\n  required: true\n", "jwt key"},
		{"missing db host", "database:\n  host: \"\"\n", "database host and name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(newViper(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMemoryDriverSkipsDatabaseChecks(t *testing.T) {
	cfg, err := load(newViper(t, "database:\n  driver: memory\n  host: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"plain", "p", `host='h' port=5432 user='u' password='p' dbname='n' sslmode='disable'`},
		{"empty password", "", `host='h' port=5432 user='u' password='' dbname='n' sslmode='disable'`},
		{"password with space", "two words", `host='h' port=5432 user='u' password='two words' dbname='n' sslmode='disable'`},
		{"password with quote and backslash", `it's\x`, `host='h' port=5432 user='u' password='it\'s\\x' dbname='n' sslmode='disable'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: tt.password, Name: "n", SSLMode: "disable"}
			assert.Equal(t, tt.want, db.DSN())
		})
	}
}
