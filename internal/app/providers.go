package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/crypto"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

func newMongoDB(lc fx.Lifecycle, cfg *config.Config) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mongodb.Connect(ctx, cfg.Database.URI, cfg.Database.Database)
	if err != nil {
		return nil, fmt.Errorf("init mongo client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("ping mongo: %w", err)
			}
			if err := mongodb.EnsureIndexes(ctx, db); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			log.Infow(ctx, "mongo ready", "database", cfg.Database.Database)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close(ctx)
		},
	})

	return db, nil
}

func newCryptoClient(cfg *config.Config) (crypto.Client, error) {
	c, err := crypto.NewClient(cfg.Crypto.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("CRYPTO_ENCRYPTION_KEY: %w", err)
	}
	if !c.Enabled() {
		log.Warnw(context.Background(), "CRYPTO_ENCRYPTION_KEY not set, customer contact fields are stored in clear text")
	}
	return c, nil
}
