package inventory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Snapshot is the availability of one item at the working branch.
type Snapshot struct {
	Available int `json:"available"`
	OnHand    int `json:"on_hand"`
	Reserved  int `json:"reserved"`
}

// Key identifies a snapshot: the same SKU is stocked per grade and teacher.
type Key struct {
	SKU       string
	Grade     enums.Grade
	TeacherID string
}

func KeyOf(item catalog.Item) Key {
	return Key{SKU: item.SKU, Grade: item.Grade, TeacherID: item.TeacherID}
}

func (k Key) gradeParam() string {
	if k.Grade == enums.GradeUnknown {
		return ""
	}
	return k.Grade.String()
}

// Decision is the answer of Gate.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Known     bool `json:"known"`
	Available int  `json:"available"`
}

type CacheParams struct {
	API     apiclient.Doer
	Session *session.Session
	Store   Store
	Logger  *logger.Logger
	Metrics *metrics.OperationMetrics
}

// Cache is the availability cache of the working branch. Snapshots are
// scoped by branch code and dropped whenever the branch changes.
type Cache struct {
	api     apiclient.Doer
	sess    *session.Session
	store   Store
	logg    *logger.Logger
	metrics *metrics.OperationMetrics

	group singleflight.Group
	bg    sync.WaitGroup
}

func NewCache(params CacheParams) (*Cache, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Store == nil {
		params.Store = NewMemoryStore()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	c := &Cache{
		api:     params.API,
		sess:    params.Session,
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
	}
	params.Session.OnBranchChange(func(b session.Branch) {
		if err := c.store.Reset(context.Background(), b.Code); err != nil {
			c.logg.Warn(c.logg.WithField(context.Background(), "error", err.Error()), "availability reset failed")
		}
	})
	return c, nil
}

// Get returns the cached snapshot, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, item catalog.Item) (Snapshot, error) {
	if snap, ok := c.Peek(ctx, item); ok {
		c.metrics.IncCacheLookup("hit")
		return snap, nil
	}
	c.metrics.IncCacheLookup("miss")
	return c.Refresh(ctx, item)
}

// Peek reads the cache without fetching.
func (c *Cache) Peek(ctx context.Context, item catalog.Item) (Snapshot, bool) {
	snap, ok, err := c.store.Get(ctx, c.scope(), KeyOf(item))
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "availability read failed")
		return Snapshot{}, false
	}
	return snap, ok
}

// Refresh always fetches. A failed fetch stores and returns a zero snapshot;
// only a missing session is reported as an error.
func (c *Cache) Refresh(ctx context.Context, item catalog.Item) (Snapshot, error) {
	token, err := c.sess.RequireToken()
	if err != nil {
		return Snapshot{}, err
	}
	branch := c.sess.Branch()
	key := KeyOf(item)
	path := fmt.Sprintf("/inventory/summary-by-code?branch_code=%s&sku=%s&teacher_id=%s&grade=%s",
		url.QueryEscape(branch.Code),
		url.QueryEscape(key.SKU),
		url.QueryEscape(key.TeacherID),
		url.QueryEscape(key.gradeParam()),
	)

	v, _, _ := c.group.Do(branch.Code+"|"+path, func() (any, error) {
		var snap Snapshot
		body, err := c.api.Do(ctx, path, apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
		if err == nil {
			err = body.Decode(&snap)
		}
		if err != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"sku": key.SKU, "error": err.Error()}), "availability fetch failed")
			snap = Snapshot{}
		}
		if serr := c.store.Set(ctx, branch.Code, key, snap); serr != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", serr.Error()), "availability write failed")
		}
		return snap, nil
	})
	return v.(Snapshot), nil
}

// Reset drops every snapshot of the working branch.
func (c *Cache) Reset(ctx context.Context) error {
	return c.store.Reset(ctx, c.scope())
}

// Gate blocks qty only when a cached snapshot shows less available. An
// unknown item is allowed and refreshed in the background.
func (c *Cache) Gate(ctx context.Context, item catalog.Item, qty int) Decision {
	snap, ok := c.Peek(ctx, item)
	if !ok {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			_, _ = c.Refresh(context.WithoutCancel(ctx), item)
		}()
		return Decision{Allowed: true}
	}
	return Decision{Allowed: snap.Available >= qty, Known: true, Available: snap.Available}
}

// Wait blocks until background refreshes started by Gate finish.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) scope() string {
	return c.sess.Branch().Code
}
