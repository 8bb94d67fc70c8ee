package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"

	"visitor-desk/internal/models"
	"visitor-desk/internal/session"
)

// MemoryStorePath keeps registrations in memory only.
const MemoryStorePath = ":memory:"

type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	StorePath string `env:"STORE_PATH" envDefault:"visitor-desk.db"`
	TimeZone  string `env:"TIME_ZONE" envDefault:"Local"`

	SpreadsheetID            string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	AdminUsername   string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword   string `env:"ADMIN_PASSWORD" envDefault:"admin"`
	VisitorUsername string `env:"VISITOR_USERNAME" envDefault:"usuario"`
	VisitorPassword string `env:"VISITOR_PASSWORD" envDefault:"1234"`

	ExportSecret string `env:"EXPORT_SECRET" envDefault:"change-me"`

	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	BasePublicURL string `env:"BASE_PUBLIC_URL"`

	loc *time.Location
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}

	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	c.StorePath = strings.TrimSpace(c.StorePath)
	c.SpreadsheetID = strings.TrimSpace(c.SpreadsheetID)
	c.GoogleServiceAccountJSON = strings.TrimSpace(c.GoogleServiceAccountJSON)
	c.BasePublicURL = strings.TrimRight(strings.TrimSpace(c.BasePublicURL), "/")

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	if c.StorePath == "" {
		return c, fmt.Errorf("STORE_PATH is empty")
	}
	if (c.SpreadsheetID == "") != (c.GoogleServiceAccountJSON == "") {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON must be set together")
	}
	if strings.TrimSpace(c.AdminUsername) == strings.TrimSpace(c.VisitorUsername) {
		return c, fmt.Errorf("ADMIN_USERNAME and VISITOR_USERNAME must differ")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.TimeZone))
	if err != nil {
		return c, fmt.Errorf("TIME_ZONE: %w", err)
	}
	c.loc = loc

	return c, nil
}

// Location is the zone used to read and print visit dates.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != ""
}

func (c Config) InMemoryStore() bool {
	return c.StorePath == MemoryStorePath
}

// Credentials builds the login table from the configured usernames and
// passwords, keeping the built-in display names.
func (c Config) Credentials() []session.Credential {
	return []session.Credential{
		{Username: c.AdminUsername, Password: c.AdminPassword, Role: models.RoleAdmin, DisplayName: "Administrador"},
		{Username: c.VisitorUsername, Password: c.VisitorPassword, Role: models.RoleVisitor, DisplayName: "Usuario"},
	}
}
