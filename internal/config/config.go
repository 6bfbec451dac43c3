package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort     string
	DatabaseDSN  string
	AIServiceURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	AlertEmail   string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "5000"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 5000", port)
		port = "5000"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "smartstock.db"
	}

	aiURL := os.Getenv("AI_SERVICE_URL")
	if aiURL == "" {
		aiURL = "http://localhost:5001"
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid SMTP_PORT value %q, defaulting to 587", v)
		} else {
			smtpPort = p
		}
	}

	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "inventory-system@company.com"
	}

	alertEmail := os.Getenv("ALERT_EMAIL")
	if alertEmail == "" {
		alertEmail = "manager@company.com"
	}

	return Config{
		HTTPPort:     port,
		DatabaseDSN:  dsn,
		AIServiceURL: aiURL,
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASS"),
		MailFrom:     from,
		AlertEmail:   alertEmail,
	}
}
