package config

import "testing"

func validConfig() Config {
	return Config{
		App:    AppConfig{Env: "local", Port: 8080, BaseURL: "https://meet.example.com"},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "meetings", SSLMode: ""},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Stream: StreamConfig{APIKey: "key", APISecret: "secret", BaseURL: "https://video.example.io"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RequiresStreamCredentials(t *testing.T) {
	c := validConfig()
	c.Stream.APISecret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing STREAM_API_SECRET")
	}
}

func TestValidate_RejectsRelativeBaseURL(t *testing.T) {
	c := validConfig()
	c.App.BaseURL = "meet.example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for relative APP_BASE_URL")
	}
}

func TestMeetingLink(t *testing.T) {
	c := validConfig()
	if got := c.MeetingLink("abc-123"); got != "https://meet.example.com/meeting/abc-123" {
		t.Fatalf("unexpected link: %q", got)
	}
}
