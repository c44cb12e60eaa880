package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/bridge"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/crypto"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
	"github.com/nguyentranbao-ct/chat-crm/pkg/util"
)

//go:embed fixtures/conversations.yaml
var fixtureConversationsData []byte

type fixtureConversation struct {
	models.Conversation `yaml:",inline"`
	Age                 time.Duration `yaml:"age"`
}

func loadFixtures() ([]fixtureConversation, error) {
	var out []fixtureConversation
	if err := yaml.Unmarshal(fixtureConversationsData, &out); err != nil {
		return nil, fmt.Errorf("unmarshal fixtures: %w", err)
	}
	return out, nil
}

type syncUsecase struct {
	conf     *config.Config
	bridge   bridge.Client
	metaRepo mongodb.ChatMetadataRepository
	crypto   crypto.Client
	fixtures []fixtureConversation
	cycles   *prometheus.CounterVec
	now      func() time.Time
}

func NewSyncUsecase(
	conf *config.Config,
	bridgeClient bridge.Client,
	metaRepo mongodb.ChatMetadataRepository,
	cryptoClient crypto.Client,
) (SyncUsecase, error) {
	fixtures, err := loadFixtures()
	if err != nil {
		return nil, err
	}
	cycles, err := util.GetCounterVec("crm_sync_cycles_total", "Sync cycles by conversation source and outcome.", "source", "outcome")
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	return &syncUsecase{
		conf:     conf,
		bridge:   bridgeClient,
		metaRepo: metaRepo,
		crypto:   cryptoClient,
		fixtures: fixtures,
		cycles:   cycles,
		now:      time.Now,
	}, nil
}

// Sync fetches conversations from the bridge and merges them with their
// CRM records. In development a failed or empty fetch is replaced by the
// embedded fixtures; in production the failure is returned.
func (uc *syncUsecase) Sync(ctx context.Context, opts models.SyncOptions) (*models.SyncResult, error) {
	start := uc.now()
	if opts.Force {
		status := uc.bridge.Reprobe(ctx)
		log.Infow(ctx, "bridge reprobed", "connected", status.Connected, "family", status.Family)
	}

	limit := opts.MaxChats
	if limit <= 0 {
		limit = uc.conf.Bridge.MaxChats
	}

	report := models.SyncReport{Source: models.SyncSourceLive, Timestamp: start}
	convs, err := uc.bridge.ListConversations(ctx, limit)

	switch {
	case err == nil && len(convs) > 0:
	case !uc.conf.IsDevelopment():
		if err == nil {
			break
		}
		uc.cycles.WithLabelValues(string(models.SyncSourceLive), "error").Inc()
		log.Errorw(ctx, "sync failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBridgeUnavailable, err)
	default:
		if err != nil {
			report.Error = err.Error()
			log.Warnw(ctx, "bridge unavailable, serving fixtures", "error", err)
		} else {
			log.Infow(ctx, "bridge returned no conversations, serving fixtures")
		}
		report.Source = models.SyncSourceFixture
		convs = uc.fixtureConversations(start)
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		view := models.ConversationView{Conversation: conv}
		meta, created, err := uc.metaRepo.UpsertFromSync(ctx, conv, uc.inferStore(conv), start)
		if err == nil {
			meta, err = openCustomer(uc.crypto, meta)
		}
		if err != nil {
			report.StoreErrors++
			log.Errorw(ctx, "store chat metadata", "chat_id", conv.ID, "error", err)
		} else {
			view.Metadata = meta
		}
		if created {
			report.NewChats++
		}
		views = append(views, view)
	}

	report.TotalChats = len(views)
	report.DurationMS = uc.now().Sub(start).Milliseconds()
	uc.cycles.WithLabelValues(string(report.Source), "ok").Inc()
	log.Infow(ctx, "sync done",
		"source", report.Source,
		"total", report.TotalChats,
		"new", report.NewChats,
		"store_errors", report.StoreErrors,
		"duration_ms", report.DurationMS,
	)

	return &models.SyncResult{Conversations: views, Sync: report}, nil
}

func (uc *syncUsecase) fixtureConversations(now time.Time) []models.Conversation {
	out := make([]models.Conversation, 0, len(uc.fixtures))
	for _, f := range uc.fixtures {
		conv := f.Conversation
		if f.LastMessage != nil {
			lm := *f.LastMessage
			lm.Timestamp = now.Add(-f.Age)
			conv.LastMessage = &lm
		}
		out = append(out, conv)
	}
	return out
}

// inferStore returns the first configured store named in the last message
// text, or "" when none is.
func (uc *syncUsecase) inferStore(conv models.Conversation) string {
	if conv.LastMessage == nil {
		return ""
	}
	text := strings.ToLower(conv.LastMessage.Text)
	for _, store := range uc.conf.CRM.Stores {
		if store != "" && strings.Contains(text, strings.ToLower(store)) {
			return store
		}
	}
	return ""
}

// IsBridgeFailure reports whether err came from the bridge rather than
// from local storage.
func IsBridgeFailure(err error) bool {
	return errors.Is(err, ErrBridgeUnavailable) || bridge.IsUnavailable(err)
}
