package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

// login attempts allowed per client IP
const loginRate = rate.Limit(1)

type Handlers struct {
	fx.In

	Controller    Controller
	Auth          AuthController
	Conversations ConversationController
	Notes         NoteController
	Tags          TagController
	Admin         AdminController
}

// NewEcho builds the HTTP application: ambient middleware, then the public
// and session-guarded routes.
func NewEcho(conf *config.Config, authUsecase usecase.AuthUsecase, h Handlers) (*echo.Echo, error) {
	origin, err := regexp.Compile(conf.Server.CORSOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_CORS_ORIGIN: %w", err)
	}

	httpLog := logger.MustNamed("http")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = pkgmdw.ErrorHandler(httpLog)

	logConfig := pkgmdw.LogRequestConfig{
		Logger: httpLog,
		Enabled: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p != "/health" && p != "/metrics"
		},
		RequestBody: func(c echo.Context) bool {
			// login and user management carry passwords
			p := c.Path()
			return !strings.HasPrefix(p, "/api/v1/auth") && !strings.HasPrefix(p, "/api/v1/admin")
		},
		QueryParams: func(c echo.Context) bool {
			// media urls may embed bridge tokens
			return c.Path() != "/api/v1/media"
		},
	}

	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.CORS(origin))
	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return err
		},
	}))

	e.GET("/health", h.Controller.Health)

	api := e.Group("/api/v1")
	api.POST("/auth/login", h.Auth.Login, middleware.RateLimiter(
		middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{Rate: loginRate, Burst: 5}),
	))

	authed := api.Group("", pkgmdw.SessionAuth(authUsecase, conf.Auth.CookieName, usecase.ErrInactiveAccount))
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.GET("/auth/me", h.Auth.Me)

	authed.GET("/conversations", h.Conversations.List)
	authed.POST("/conversations/sync", h.Conversations.Sync)
	authed.PATCH("/conversations/:id", h.Conversations.UpdateCase)
	authed.GET("/conversations/:id/messages", h.Conversations.ListMessages)
	authed.POST("/conversations/:id/messages", h.Conversations.SendMessage)
	authed.GET("/conversations/:id/customer", h.Conversations.GetCustomer)
	authed.PUT("/conversations/:id/customer", h.Conversations.UpdateCustomer)
	authed.GET("/media", h.Conversations.Media)
	authed.GET("/bridge/status", h.Conversations.BridgeStatus)

	authed.GET("/conversations/:id/notes", h.Notes.List)
	authed.POST("/conversations/:id/notes", h.Notes.Create)
	authed.PATCH("/conversations/:id/notes/:noteId", h.Notes.Update)

	authed.GET("/conversations/:id/tags", h.Tags.ListChatTags)
	authed.POST("/conversations/:id/tags", h.Tags.Add)
	authed.DELETE("/conversations/:id/tags/:tagId", h.Tags.Remove)
	authed.GET("/tags", h.Tags.Popular)

	admin := authed.Group("/admin", pkgmdw.AdminOnly())
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/users", h.Admin.CreateUser)
	admin.GET("/users/:id", h.Admin.GetUser)
	admin.PATCH("/users/:id", h.Admin.UpdateUser)
	if conf.Server.Pprof {
		pkgmdw.Pprof(admin)
	}

	return e, nil
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	e *echo.Echo,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(context.Background(), "starting HTTP server", "addr", conf.Server.Addr, "mode", conf.Mode)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw(context.Background(), "HTTP server stopped", "error", err)
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
