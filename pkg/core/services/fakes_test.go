package services

import (
	"context"
	"errors"
	"sync"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

// fakeStore is an in-memory ports.Store that counts calls.
type fakeStore struct {
	mu       sync.Mutex
	links    map[string]*domain.Link
	nextID   int64
	match    *domain.Link
	txCount  int
	saves    int
	probes   int
	lookups  int
	saveErr  error
	probeHit bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: make(map[string]*domain.Link)}
}

func fakeKey(authority, code string) string { return authority + "/" + code }

func (f *fakeStore) FindOneMatching(ctx context.Context, meta domain.LinkMeta) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f.match, nil
}

func (f *fakeStore) ShortCodeExists(ctx context.Context, code string, d *domain.Domain) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.probeHit {
		return true, nil
	}
	authority := ""
	if d != nil {
		authority = d.Authority
	}
	_, ok := f.links[fakeKey(authority, code)]
	return ok, nil
}

func (f *fakeStore) Save(ctx context.Context, link *domain.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	key := fakeKey(link.DomainAuthority(), link.ShortCode)
	if _, ok := f.links[key]; ok {
		return domain.ErrShortCodeTaken
	}
	f.nextID++
	link.ID = f.nextID
	stored := *link
	f.links[key] = &stored
	return nil
}

func (f *fakeStore) GetByShortCode(ctx context.Context, code, authority string) (*domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.links[fakeKey(authority, code)], nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Dump(ctx context.Context) ([]domain.Link, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) FindDomainByAuthority(ctx context.Context, authority string) (*domain.Domain, error) {
	return nil, nil
}

func (f *fakeStore) CreateDomain(ctx context.Context, d *domain.Domain) error { return nil }

func (f *fakeStore) FindTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	return nil, nil
}

func (f *fakeStore) CreateTag(ctx context.Context, tag *domain.Tag) error { return nil }

func (f *fakeStore) WithTx(ctx context.Context, fn func(ports.Repository) error) error {
	f.mu.Lock()
	f.txCount++
	f.mu.Unlock()
	return fn(f)
}

func (f *fakeStore) Close() error { return nil }

type titleFunc func(ctx context.Context, meta domain.LinkMeta) (domain.LinkMeta, error)

func (f titleFunc) Process(ctx context.Context, meta domain.LinkMeta) (domain.LinkMeta, error) {
	return f(ctx, meta)
}

func passThroughTitles() ports.TitleResolver {
	return titleFunc(func(ctx context.Context, meta domain.LinkMeta) (domain.LinkMeta, error) {
		return meta, nil
	})
}

// recordingDispatcher records events and the context they were sent with.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.LinkCreated
	ctxErr []error
	err    error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, event domain.LinkCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.ctxErr = append(r.ctxErr, ctx.Err())
	return r.err
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// scriptedCodes returns the given codes in order, then repeats the last one.
func scriptedCodes(codes ...string) func(int) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}
