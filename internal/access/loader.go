package access

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the employee profile from the remote API.
type FetchFunc func(ctx context.Context) (*Profile, error)

// ProfileObserver receives the result of each profile fetch.
type ProfileObserver interface {
	ObserveProfileFetch(result string)
}

type cachedProfile struct {
	profile *Profile
	expires time.Time
}

// ProfileLoader shares one in-flight fetch per user and memoizes successes.
type ProfileLoader struct {
	group    singleflight.Group
	mu       sync.Mutex
	cache    map[int64]cachedProfile
	gens     map[int64]uint64
	ttl      time.Duration
	logger   *slog.Logger
	observer ProfileObserver
	now      func() time.Time
}

// NewProfileLoader constructs a loader keeping profiles for ttl.
func NewProfileLoader(ttl time.Duration, logger *slog.Logger, observer ProfileObserver) *ProfileLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileLoader{
		cache:    make(map[int64]cachedProfile),
		gens:     make(map[int64]uint64),
		ttl:      ttl,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// Peek returns the memoized profile without fetching.
func (l *ProfileLoader) Peek(userID int64) (*Profile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.cache[userID]
	if !ok {
		return nil, false
	}
	if l.ttl > 0 && l.now().After(entry.expires) {
		delete(l.cache, userID)
		return nil, false
	}
	return entry.profile, true
}

// Forget drops the memoized profile, typically on logout. A fetch still in
// flight keeps answering its waiters but is not memoized.
func (l *ProfileLoader) Forget(userID int64) {
	l.mu.Lock()
	delete(l.cache, userID)
	l.gens[userID]++
	l.mu.Unlock()
	l.group.Forget(key(userID))
}

// Start begins or joins the fetch for userID. The fetch runs detached from
// ctx cancellation so a caller that stops waiting does not abort it. The
// returned channel always yields a non-nil profile; a failed fetch yields
// an empty profile that grants nothing.
func (l *ProfileLoader) Start(ctx context.Context, userID int64, fetch FetchFunc) <-chan *Profile {
	out := make(chan *Profile, 1)
	if p, ok := l.Peek(userID); ok {
		out <- p
		return out
	}
	l.mu.Lock()
	gen := l.gens[userID]
	l.mu.Unlock()
	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key(userID), func() (any, error) {
		p, err := fetch(detached)
		if err != nil {
			l.logger.Warn("employee profile fetch failed", slog.Int64("user_id", userID), slog.Any("error", err))
			l.observe("error")
			return nil, err
		}
		if p == nil {
			p = &Profile{}
		}
		l.store(userID, gen, p)
		l.observe("ok")
		return p, nil
	})
	go func() {
		res := <-ch
		if res.Err != nil {
			out <- &Profile{}
			return
		}
		out <- res.Val.(*Profile)
	}()
	return out
}

// Load waits for the profile of userID. When ctx ends first it returns an
// empty profile.
func (l *ProfileLoader) Load(ctx context.Context, userID int64, fetch FetchFunc) *Profile {
	select {
	case p := <-l.Start(ctx, userID, fetch):
		return p
	case <-ctx.Done():
		return &Profile{}
	}
}

func (l *ProfileLoader) store(userID int64, gen uint64, p *Profile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[userID] != gen {
		return
	}
	l.cache[userID] = cachedProfile{profile: p, expires: l.now().Add(l.ttl)}
}

func (l *ProfileLoader) observe(result string) {
	if l.observer != nil {
		l.observer.ObserveProfileFetch(result)
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
