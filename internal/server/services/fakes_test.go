package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/logging"
	sc "github.com/dmitrijs2005/mangakeeper/internal/server/config"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/repositories/collections"
	"github.com/dmitrijs2005/mangakeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// memRepo is an in-memory catalog that enforces hash uniqueness like the
// real table does.
type memRepo struct {
	collections.Repository

	mu         sync.Mutex
	byID       map[string]*models.Collection
	createErr  error
	getErr     error
	lastFilter models.ListFilter
	progress   map[string]int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*models.Collection{}, progress: map[string]int{}}
}

func (r *memRepo) Create(ctx context.Context, c *models.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, x := range r.byID {
		if x.FileHash == c.FileHash {
			return fmt.Errorf("%w: file hash", common.ErrorAlreadyExists)
		}
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) GetByHash(ctx context.Context, hash string) (*models.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, c := range r.byID {
		if c.FileHash == hash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	var out []*models.Collection
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out, nil
}

func (r *memRepo) UpdateProgress(ctx context.Context, id string, page int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.LastPageRead = page
	c.LastReadAt = &at
	r.progress[id] = page
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeRepoMgr struct {
	repomanager.RepositoryManager
	repo *memRepo
}

func (m *fakeRepoMgr) Collections(db dbx.DBTX) collections.Repository { return m.repo }

type storedObject struct {
	data        []byte
	contentType string
}

// fakeStore keeps objects in memory and presigns to "signed://<key>".
type fakeStore struct {
	mu         sync.Mutex
	bucket     string
	objects    map[string]storedObject
	puts       []string
	deletes    []string
	putErr     func(key string) error
	presignErr error
	listErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bucket: "manga", objects: map[string]storedObject{}}
}

func (s *fakeStore) Bucket() string { return s.bucket }

func (s *fakeStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		if err := s.putErr(key); err != nil {
			return err
		}
	}
	s.puts = append(s.puts, key)
	s.objects[key] = storedObject{data: bytes.Clone(body), contentType: contentType}
	return nil
}

func (s *fakeStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return o.data, nil
}

func (s *fakeStore) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "signed://" + key, nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

// fakeFetcher resolves signed URLs against a fakeStore.
type fakeFetcher struct {
	store *fakeStore
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key, ok := strings.CutPrefix(url, "signed://")
	if !ok {
		return nil, fmt.Errorf("%w: bad url %s", common.ErrorTransient, url)
	}
	data, err := f.store.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: 404", common.ErrorTransient)
	}
	return data, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeThumbs struct {
	out []byte
	err error
}

func (f *fakeThumbs) Render(src []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type testEnv struct {
	svc     *CollectionService
	cfg     *sc.Config
	repo    *memRepo
	store   *fakeStore
	fetcher *fakeFetcher
	thumbs  *fakeThumbs
	mock    sqlmock.Sqlmock
	db      *sql.DB
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, tweak ...func(*sc.Config)) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &sc.Config{}
	cfg.LoadDefaults()
	for _, fn := range tweak {
		fn(cfg)
	}

	store := newFakeStore()
	store.bucket = cfg.S3Bucket
	e := &testEnv{
		cfg:     cfg,
		repo:    newMemRepo(),
		store:   store,
		fetcher: &fakeFetcher{store: store},
		thumbs:  &fakeThumbs{out: []byte("thumb")},
		mock:    mock,
		db:      db,
		logs:    &bytes.Buffer{},
	}
	logger := logging.NewJSONLogger(e.logs, slog.LevelDebug)
	e.svc = NewCollectionService(db, &fakeRepoMgr{repo: e.repo}, cfg, store, e.fetcher, e.thumbs, logger)
	e.svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

// expectTx queues one committed transaction.
func (e *testEnv) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}
