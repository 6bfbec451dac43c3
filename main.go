package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"smartstock/m/internal/api"
	"smartstock/m/internal/billing"
	"smartstock/m/internal/config"
	"smartstock/m/internal/database"
	"smartstock/m/internal/ledger"
	"smartstock/m/internal/mailer"
	"smartstock/m/internal/migrations"
	"smartstock/m/internal/prediction"
	"smartstock/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadItems(db, "assets/items.csv")

	stockLedger := ledger.New(db)
	billingStore := billing.New(db, stockLedger)
	predictions := prediction.NewClient(cfg.AIServiceURL)
	alertMailer := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})

	handler := api.New(stockLedger, billingStore, predictions, alertMailer, cfg.AlertEmail)

	log.Printf("Smart inventory server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
