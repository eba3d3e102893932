package main

import (
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/subtrackd/backend/internal/currency"
	"github.com/subtrackd/backend/internal/models"
	"github.com/subtrackd/backend/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title			subtrackd
// @description	The backend for subtrackd, a self-hosted subscription tracker.

func main() {
	// Load configuration from a .env file if one exists
	_ = godotenv.Load()

	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	apiURL, ok := os.LookupEnv("API_URL")
	if !ok {
		log.Fatal().Msg("environment variable API_URL must be set")
	}

	url, err := url.Parse(apiURL)
	if err != nil {
		log.Fatal().Msg("environment variable API_URL must be a valid URL")
	}

	// Create data directory
	dbPath, ok := os.LookupEnv("DB_PATH")
	if !ok {
		dbPath = filepath.Join(".", "data", "gorm.db")
	}

	err = os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Connect to the database
	err = models.Connect(dbPath)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Spend figures are normalized into the base currency. Without a
	// rate table, amounts are used as they are.
	var converter currency.Converter = currency.Noop{BaseCurrency: os.Getenv("BASE_CURRENCY")}
	if ratesFile, ok := os.LookupEnv("CURRENCY_RATES_FILE"); ok {
		table, err := currency.Load(ratesFile)
		if err != nil {
			log.Fatal().Msg(err.Error())
		}
		converter = table
	}

	r, teardown, err := router.Config(url, converter)
	defer teardown()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	router.AttachRoutes(r.Group("/"))

	// The following will block until the application is terminated
	if err := r.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}
