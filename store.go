package auth

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// kvRecord is one stored entry. Rows are namespaced per backend origin so a
// single client database can hold sessions for several backends.
type kvRecord struct {
	bun.BaseModel `bun:"table:session_store,alias:kv"`
	Namespace     uuid.UUID `bun:"namespace,pk,type:uuid"`
	Key           string    `bun:"key,pk"`
	Value         string    `bun:"value,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// SessionStore is the durable Store implementation backed by bun + sqlite.
type SessionStore struct {
	db        *bun.DB
	namespace uuid.UUID
	sealer    Sealer
	logger    Logger
}

var _ Store = (*SessionStore)(nil)

// StoreOption customizes SessionStore construction.
type StoreOption func(*SessionStore)

// WithStoreLogger overrides the default logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreSealer seals the bearer token at rest. Other keys are hints, not
// credentials, and stay plain.
func WithStoreSealer(sealer Sealer) StoreOption {
	return func(s *SessionStore) {
		s.sealer = sealer
	}
}

// OpenDefaultDB opens the client database used by SessionStore. The dsn may
// be a file path or ":memory:".
func OpenDefaultDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// NewSessionStore creates a store scoped to the given backend origin. The
// namespace is a deterministic UUID derived from the base URL, so the same
// backend always maps to the same rows.
func NewSessionStore(db *bun.DB, baseURL string, opts ...StoreOption) (*SessionStore, error) {
	namespace, err := hashid.NewUUID(baseURL)
	if err != nil {
		return nil, err
	}

	s := &SessionStore{
		db:        db,
		namespace: namespace,
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// Init creates the backing table if needed.
func (s *SessionStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*kvRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *SessionStore) GetString(ctx context.Context, key string) (string, bool) {
	rec := new(kvRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("kv.namespace = ?", s.namespace).
		Where("kv.key = ?", key).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("session store read %q: %v", key, err)
		}
		return "", false
	}
	return rec.Value, true
}

func (s *SessionStore) SetString(ctx context.Context, key, value string) error {
	rec := &kvRecord{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (namespace, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *SessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*kvRecord)(nil)).
		Where("kv.namespace = ?", s.namespace).
		Where("kv.key IN (?)", bun.In(keys)).
		Exec(ctx)
	return err
}

func (s *SessionStore) Token(ctx context.Context) (string, bool) {
	raw, ok := s.GetString(ctx, KeyToken)
	if !ok {
		return "", false
	}
	if s.sealer == nil {
		return raw, true
	}

	sealed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		s.logger.Warn("stored token is not valid base64: %v", err)
		return "", false
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil {
		// A token we cannot unseal is treated as no session.
		s.logger.Warn("stored token failed to unseal: %v", err)
		return "", false
	}
	return string(plain), true
}

func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal([]byte(token))
		if err != nil {
			return err
		}
		value = base64.StdEncoding.EncodeToString(sealed)
	}
	return s.SetString(ctx, KeyToken, value)
}

func (s *SessionStore) GetCurrentUser(ctx context.Context) (*User, error) {
	raw, ok := s.GetString(ctx, KeyUser)
	if !ok {
		return nil, nil
	}

	user := new(User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		s.logger.Error("error parsing stored user data: %v", err)
		return nil, nil
	}
	return user, nil
}

func (s *SessionStore) SetUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.SetString(ctx, KeyUser, string(data))
}

func (s *SessionStore) Logout(ctx context.Context) error {
	return s.Delete(ctx, sessionKeys...)
}

// MemoryStore is an in-process Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	logger Logger
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]string{},
		logger: defLogger{},
	}
}

// WithLogger overrides the default logger.
func (m *MemoryStore) WithLogger(logger Logger) *MemoryStore {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *MemoryStore) GetString(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.values[key]
	return val, ok
}

func (m *MemoryStore) SetString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *MemoryStore) Token(ctx context.Context) (string, bool) {
	return m.GetString(ctx, KeyToken)
}

func (m *MemoryStore) SetToken(ctx context.Context, token string) error {
	return m.SetString(ctx, KeyToken, token)
}

func (m *MemoryStore) GetCurrentUser(ctx context.Context) (*User, error) {
	raw, ok := m.GetString(ctx, KeyUser)
	if !ok {
		return nil, nil
	}

	user := new(User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		m.logger.Error("error parsing stored user data: %v", err)
		return nil, nil
	}
	return user, nil
}

func (m *MemoryStore) SetUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.SetString(ctx, KeyUser, string(data))
}

func (m *MemoryStore) Logout(ctx context.Context) error {
	return m.Delete(ctx, sessionKeys...)
}
