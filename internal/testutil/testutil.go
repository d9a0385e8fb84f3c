// Package testutil prépare une base sqlite en mémoire et une application
// Fiber complète pour les tests des handlers.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/config"
	"gestion-backend/internal/database"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/logging"
	"gestion-backend/internal/models"
	"gestion-backend/internal/observability"
	"gestion-backend/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "motdepasse-123"

// NewDB ouvre une base propre au test, migrée, et l'installe dans database.DB.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

func Config() *config.Config {
	return &config.Config{
		HTTPPort:    "0",
		JWTSecret:   "secret-de-test-suffisamment-long-0123456789",
		CORSOrigins: "http://localhost:5173",
		LogLevel:    "error",
		LogFormat:   "text",
		TopN:        5,
	}
}

// Env regroupe ce dont un test de handler a besoin.
type Env struct {
	DB      *gorm.DB
	Config  *config.Config
	App     *fiber.App
	Metrics *observability.Metrics
	Guard   *freshness.Guard
	User    models.User
	Token   string
}

// New monte l'application complète sur une base vide, avec un utilisateur du rôle donné.
func New(t *testing.T, role models.UserRole) *Env {
	t.Helper()
	db := NewDB(t)
	cfg := Config()
	metrics := observability.NewMetrics()
	guard := freshness.NewGuard()
	app := server.NewApp(cfg, logging.New(io.Discard, "error", "text"), metrics, guard)

	user := CreateUser(t, db, "Test "+string(role), string(role)+"@example.ma", role)
	token, err := auth.GenerateToken(cfg.JWTSecret, &user)
	require.NoError(t, err)

	return &Env{DB: db, Config: cfg, App: app, Metrics: metrics, Guard: guard, User: user, Token: token}
}

func CreateUser(t *testing.T, db *gorm.DB, name, email string, role models.UserRole) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// SupersedeOnFirstQuery ouvre une génération plus récente pour screen dès la
// première lecture en base, comme si l'utilisateur relançait l'écran pendant
// le chargement.
func (e *Env) SupersedeOnFirstQuery(t *testing.T, screen string) {
	t.Helper()
	var (
		once  sync.Once
		newer *freshness.Ticket
	)
	err := e.DB.Callback().Query().Before("gorm:query").Register("testutil:supersede", func(*gorm.DB) {
		once.Do(func() {
			newer, _ = e.Guard.Begin(context.Background(), freshness.Key(e.User.ID, screen))
		})
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if newer != nil {
			newer.Done()
		}
	})
}

// Do envoie une requête JSON authentifiée ; token vide pour une route publique.
func (e *Env) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	return Request(t, e.App, method, path, e.Token, body)
}

func Request(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// Decode lit le corps JSON de resp dans dst.
func Decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func Ptr[T any](v T) *T { return &v }
