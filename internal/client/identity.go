package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joshua-takyi/whosin/internal/helpers"
	"github.com/joshua-takyi/whosin/internal/models"
)

const voterIDBytes = 16

// ErrNoState is returned by a Store that has never been written.
var ErrNoState = errors.New("no identity stored")

// State is the client's durable identity record.
type State struct {
	VoterID        string    `json:"voterId"`
	Token          string    `json:"token,omitempty"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitempty"`
}

type Store interface {
	Load() (*State, error)
	Save(*State) error
}

// FileStore keeps State as JSON in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStatePath is identity.json under the user's config directory.
func DefaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "whosin", "identity.json"), nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("corrupt identity file %s: %w", s.path, err)
	}
	if st.VoterID == "" {
		return nil, ErrNoState
	}
	return &st, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// half-written identity behind.
func (s *FileStore) Save(st *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".identity-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Registrar records a voter identifier in the server-side ledger.
type Registrar interface {
	RegisterVoter(ctx context.Context, voterID string) (*models.VoterRegistration, error)
}

// Provider hands out the voter identifier for this client. It never fails:
// when the store is unusable it falls back to an identity that lives only as
// long as the process.
type Provider struct {
	store     Store
	registrar Registrar
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    *State
	degraded bool
}

func NewProvider(store Store, registrar Registrar, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{store: store, registrar: registrar, logger: logger, now: time.Now}
}

func (p *Provider) GetOrCreateIdentity(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		p.state = p.loadOrCreate(ctx)
	}
	return p.state.VoterID
}

// Degraded reports whether the identity is held in memory only.
func (p *Provider) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// Token returns a voter token for the current identity, registering again
// when the cached one has expired. An empty string means none is available.
func (p *Provider) Token(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		p.state = p.loadOrCreate(ctx)
	}
	if p.state.Token == "" || !p.now().Before(p.state.TokenExpiresAt) {
		p.register(ctx, p.state)
		p.persist(p.state)
	}
	return p.state.Token
}

func (p *Provider) loadOrCreate(ctx context.Context) *State {
	st, err := p.store.Load()
	if err == nil {
		return st
	}
	if !errors.Is(err, ErrNoState) {
		p.logger.Warn("identity store unavailable, using a temporary identity", "error", err)
		p.degraded = true
	}

	id, err := helpers.RandomToken(voterIDBytes)
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("generate voter id: %v", err))
	}
	st = &State{VoterID: id}
	p.register(ctx, st)
	p.persist(st)
	return st
}

func (p *Provider) register(ctx context.Context, st *State) {
	if p.registrar == nil {
		return
	}
	reg, err := p.registrar.RegisterVoter(ctx, st.VoterID)
	if err != nil {
		p.logger.Warn("failed to register voter", "voter_id", st.VoterID, "error", err)
		return
	}
	st.Token = reg.Token
	st.TokenExpiresAt = reg.ExpiresAt
}

func (p *Provider) persist(st *State) {
	if p.degraded {
		return
	}
	if err := p.store.Save(st); err != nil {
		p.logger.Warn("identity store unavailable, using a temporary identity", "error", err)
		p.degraded = true
	}
}
