package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/bridge"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/internal/server"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger"
)

// Invoke builds the application graph around funcs. Configuration is read
// from the environment before anything else.
func Invoke(funcs ...any) *fx.App {
	conf := config.MustLoad()
	_ = logger.Init(conf.LogLevel, conf.IsDevelopment())
	log := logger.MustNamed("app")
	log.Debugw("config loaded", "mode", conf.Mode, "bridge", conf.Bridge.BaseURL, "database", conf.Database.Database)

	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf),
		Repositories,
		fx.Provide(
			newCryptoClient,
			bridge.NewClient,

			usecase.NewAuthUsecase,
			usecase.NewUserUsecase,
			usecase.NewSyncUsecase,
			usecase.NewConversationUsecase,
			usecase.NewNoteUsecase,
			usecase.NewTagUsecase,

			server.NewController,
			server.NewAuthController,
			server.NewConversationController,
			server.NewNoteController,
			server.NewTagController,
			server.NewAdminController,
			server.NewEcho,
		),
		fx.Invoke(InitializeAdmin),
		fx.Invoke(funcs...),
	)
}

// Repositories provides the Mongo connection and every repository on it.
var Repositories = fx.Options(
	fx.Provide(
		newMongoDB,
		func(db *mongodb.DB) server.Pinger { return db },

		mongodb.NewUserRepository,
		mongodb.NewAuthTokenRepository,
		mongodb.NewChatMetadataRepository,
		mongodb.NewNoteRepository,
		mongodb.NewTagRepository,
		mongodb.NewChatTagRepository,
	),
)

// InitializeAdmin seeds the first admin from the environment once the
// database is reachable.
func InitializeAdmin(
	lc fx.Lifecycle,
	conf *config.Config,
	userRepo mongodb.UserRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return usecase.BootstrapAdmin(conf, userRepo)
		},
	})
}

// Tool builds a reduced graph for one-shot commands: configuration and the
// repositories only. targets are filled through fx.Populate.
func Tool(targets ...any) *fx.App {
	conf := config.MustLoad()
	_ = logger.Init(conf.LogLevel, conf.IsDevelopment())
	return fx.New(
		fx.NopLogger,
		fx.Supply(conf),
		Repositories,
		fx.Populate(targets...),
	)
}
