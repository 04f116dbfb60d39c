package main

import (
	"fmt"
	"html/template"
	"io"
	golog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"videonotes-site/analysis"
	"videonotes-site/config"
	"videonotes-site/database"
	"videonotes-site/gemini"
	"videonotes-site/runs"
)

var db *gorm.DB
var orch *analysis.Orchestrator

func main() {

	initLogger()

	log.Infof("GitSHA: %s", getGitSHA())
	log.Infof("BuildDate: %s", getBuildDate())

	gemini.Init(log)
	analysis.Init(log)
	runs.Init(log)

	// fail fast before any network call if the credential is missing
	apiKey, err := getGeminiAPIKey()
	if err != nil {
		log.Panicf("%v", err)
	}
	client, err := gemini.NewClient(apiKey, config.GetGeminiBaseURL())
	if err != nil {
		log.Panicf("%v", err)
	}

	cfg := analysis.DefaultConfig()
	cfg.Model = config.GetModelID()
	cfg.MaxPollAttempts = config.GetMaxPollAttempts()
	orch = analysis.New(client, cfg)

	gormLogger := logger.New(
		golog.New(os.Stdout, "\r\n", golog.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  false,       // Disable color
		},
	)

	// Create config database
	err = os.MkdirAll(getConfigDir(), 0700)
	if err != nil {
		log.Panicf("failed to create config dir %s", getConfigDir())
	}

	// Initialize database
	dbPath := filepath.Join(getConfigDir(), "runs.db")
	db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Panicf("failed to connect to database %s", dbPath)
	}

	// set only a single connection so we don't actually have concurrent writes
	sqlDB, err := db.DB()
	if err != nil {
		log.Panicln("failed to retrieve database")
	}
	sqlDB.SetMaxOpenConns(1)

	// Migrate the schema
	db.AutoMigrate(&runs.Run{})

	database.Init(db, log)
	defer database.Fini()

	go PeriodicCleanup()

	// create the cookie store
	key, err := getSessionAuthKey()
	if err != nil {
		panic(fmt.Sprintf("%v", err))
	}
	store = sessions.NewCookieStore(key)

	// Initialize Echo
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Templates
	t := &Template{
		templates: template.Must(template.ParseGlob("templates/*.html")),
	}
	e.Renderer = t

	// Routes
	e.GET("/", homeHandler, sessionMiddleware)
	e.POST("/analyze", analyzePostHandler, sessionMiddleware)
	e.GET("/analyze/:token/progress", progressHandler, sessionMiddleware)
	e.GET("/runs", runsHandler, sessionMiddleware)
	e.GET("/run/:token", runHandler, sessionMiddleware)
	e.POST("/run/:token/delete", deleteRunHandler, sessionMiddleware)

	secure := getSecure()

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60, // seconds
		HttpOnly: true,
		Secure:   secure,
	}

	// Start server
	e.Logger.Fatal(e.Start(":8080"))
}

// Template renderer
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}
