package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Mode: mode,
		Bridge: config.BridgeConfig{
			BaseURL:  "http://localhost:23373",
			Timeout:  time.Second,
			PageSize: 100,
			MaxPages: 10,
			SelfName: "Me",
			MaxChats: 50,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			SessionTTL: 8 * time.Hour,
		},
		CRM: config.CRMConfig{
			Stores: []string{"Roma", "Torino", "Bari", "Online"},
		},
	}
}

type fakeBridge struct {
	convs     []models.Conversation
	listErr   error
	messages  []models.Message
	sendOK    bool
	sendErr   error
	reprobes  int
	lastLimit int
}

func (f *fakeBridge) Status(context.Context) models.BridgeStatus {
	return models.BridgeStatus{Connected: f.listErr == nil}
}

func (f *fakeBridge) Reprobe(ctx context.Context) models.BridgeStatus {
	f.reprobes++
	return f.Status(ctx)
}

func (f *fakeBridge) ListConversations(_ context.Context, limit int) ([]models.Conversation, error) {
	f.lastLimit = limit
	return f.convs, f.listErr
}

func (f *fakeBridge) ListMessages(context.Context, string, int) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeBridge) SendMessage(context.Context, string, string, string) (bool, error) {
	return f.sendOK, f.sendErr
}

func (f *fakeBridge) DownloadMedia(context.Context, string) (*models.Media, error) {
	return &models.Media{}, nil
}

type fakeMetaRepo struct {
	mu        sync.Mutex
	byChat    map[string]*models.ChatMetadata
	upsertErr error
}

func newFakeMetaRepo() *fakeMetaRepo {
	return &fakeMetaRepo{byChat: map[string]*models.ChatMetadata{}}
}

func (r *fakeMetaRepo) UpsertFromSync(_ context.Context, conv models.Conversation, store string, now time.Time) (*models.ChatMetadata, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, false, r.upsertErr
	}
	m, ok := r.byChat[conv.ID]
	if !ok {
		m = &models.ChatMetadata{
			ID:            primitive.NewObjectID(),
			ChatID:        conv.ID,
			Customer:      models.CustomerInfo{Name: conv.Name, Platform: conv.Network},
			AssignedStore: store,
			Priority:      models.PriorityNormal,
			Status:        models.StatusNew,
			Tags:          []string{},
			CreatedAt:     now,
		}
		r.byChat[conv.ID] = m
	}
	m.DisplayName = conv.Name
	m.Network = conv.Network
	m.UnreadCount = conv.UnreadCount
	m.LastSyncedAt = now
	cp := *m
	return &cp, !ok, nil
}

func (r *fakeMetaRepo) GetByChatID(_ context.Context, chatID string) (*models.ChatMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMetaRepo) GetByChatIDs(ctx context.Context, chatIDs []string) (map[string]*models.ChatMetadata, error) {
	out := map[string]*models.ChatMetadata{}
	for _, id := range chatIDs {
		if m, err := r.GetByChatID(ctx, id); err == nil {
			out[id] = m
		}
	}
	return out, nil
}

func (r *fakeMetaRepo) GetOrCreate(_ context.Context, chatID string) (*models.ChatMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		m = &models.ChatMetadata{
			ID:       primitive.NewObjectID(),
			ChatID:   chatID,
			Priority: models.PriorityNormal,
			Status:   models.StatusNew,
			Tags:     []string{},
		}
		r.byChat[chatID] = m
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMetaRepo) UpdateCase(_ context.Context, chatID string, c mongodb.CaseChanges) (*models.ChatMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if c.Store != nil {
		m.AssignedStore = *c.Store
	}
	if c.ClearOperator {
		m.AssignedOperator = nil
	} else if c.Operator != nil {
		m.AssignedOperator = c.Operator
	}
	if c.Priority != nil {
		m.Priority = *c.Priority
	}
	if c.Status != nil {
		m.Status = *c.Status
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMetaRepo) UpdateCustomer(_ context.Context, chatID string, u models.CustomerUpdate) (*models.ChatMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if u.Name != nil {
		m.Customer.Name = *u.Name
	}
	if u.Phone != nil {
		m.Customer.Phone = *u.Phone
	}
	if u.Email != nil {
		m.Customer.Email = *u.Email
	}
	if u.OrderNumber != nil {
		m.Order.Number = *u.OrderNumber
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMetaRepo) RecordThread(_ context.Context, chatID string, count int, first, last time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return models.ErrNotFound
	}
	m.MessageCount = count
	m.FirstMessageAt = first
	m.LastMessageAt = last
	return nil
}

func (r *fakeMetaRepo) AddTag(_ context.Context, chatID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return models.ErrNotFound
	}
	for _, t := range m.Tags {
		if t == name {
			return nil
		}
	}
	m.Tags = append(m.Tags, name)
	return nil
}

func (r *fakeMetaRepo) RemoveTag(_ context.Context, chatID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return models.ErrNotFound
	}
	kept := m.Tags[:0]
	for _, t := range m.Tags {
		if t != name {
			kept = append(kept, t)
		}
	}
	m.Tags = kept
	return nil
}

func (r *fakeMetaRepo) IncNotes(_ context.Context, chatID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byChat[chatID]
	if !ok {
		return models.ErrNotFound
	}
	m.NotesCount += delta
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return models.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, id primitive.ObjectID, req *models.UpdateUserRequest) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int64) (*models.UserList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := int64(len(all))
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return &models.UserList{Total: total, Users: all[offset:end]}, nil
}

func (r *fakeUserRepo) CountAdmins(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*models.AuthToken{}}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *models.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = primitive.NewObjectID()
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *fakeTokenRepo) GetByTokenHash(_ context.Context, hash string) (*models.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokenRepo) RevokeToken(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok {
		return models.ErrNotFound
	}
	t.IsRevoked = true
	return nil
}

func (r *fakeTokenRepo) RevokeUserTokens(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

type fakeNoteRepo struct {
	mu    sync.Mutex
	notes []*models.Note
}

func (r *fakeNoteRepo) Create(_ context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	note.ID = primitive.NewObjectID()
	note.CreatedAt = time.Now()
	r.notes = append(r.notes, note)
	return nil
}

func (r *fakeNoteRepo) Get(_ context.Context, chatID string, id primitive.ObjectID) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id && n.ChatID == chatID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeNoteRepo) ListByChat(_ context.Context, chatID string, includeArchived bool) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Note
	for _, n := range r.notes {
		if n.ChatID == chatID && (includeArchived || !n.IsArchived) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) UpdateFlags(_ context.Context, chatID string, id primitive.ObjectID, req *models.UpdateNoteRequest) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id && n.ChatID == chatID {
			if req.IsPinned != nil {
				n.IsPinned = *req.IsPinned
			}
			if req.IsArchived != nil {
				n.IsArchived = *req.IsArchived
			}
			return n, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeTagRepo struct {
	mu   sync.Mutex
	tags map[primitive.ObjectID]*models.Tag
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: map[primitive.ObjectID]*models.Tag{}}
}

func (r *fakeTagRepo) Ensure(_ context.Context, tag *models.Tag) (*models.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tags {
		if t.Name == tag.Name {
			cp := *t
			return &cp, nil
		}
	}
	saved := *tag
	saved.ID = primitive.NewObjectID()
	r.tags[saved.ID] = &saved
	cp := saved
	return &cp, nil
}

func (r *fakeTagRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTagRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tag, error) {
	out := []*models.Tag{}
	for _, id := range ids {
		if t, err := r.GetByID(ctx, id); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTagRepo) ListPopular(_ context.Context, limit int64) ([]*models.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Tag{}
	for _, t := range r.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTagRepo) IncUsage(_ context.Context, id primitive.ObjectID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[id]
	if !ok {
		return models.ErrNotFound
	}
	t.UsageCount += delta
	return nil
}

type fakeChatTagRepo struct {
	mu    sync.Mutex
	links map[string]map[primitive.ObjectID]bool
}

func newFakeChatTagRepo() *fakeChatTagRepo {
	return &fakeChatTagRepo{links: map[string]map[primitive.ObjectID]bool{}}
}

func (r *fakeChatTagRepo) Create(_ context.Context, ct *models.ChatTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.links[ct.ChatID] == nil {
		r.links[ct.ChatID] = map[primitive.ObjectID]bool{}
	}
	if r.links[ct.ChatID][ct.TagID] {
		return models.ErrDuplicate
	}
	r.links[ct.ChatID][ct.TagID] = true
	return nil
}

func (r *fakeChatTagRepo) Delete(_ context.Context, chatID string, tagID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.links[chatID][tagID] {
		return models.ErrNotFound
	}
	delete(r.links[chatID], tagID)
	return nil
}

func (r *fakeChatTagRepo) ListTagIDs(_ context.Context, chatID string) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []primitive.ObjectID{}
	for id := range r.links[chatID] {
		out = append(out, id)
	}
	return out, nil
}
