package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/regenecura/goGuard/storage"
)

// ConsentStore is the single source of truth for cookie and tracking consent.
// It persists the preference record, gates cookie writes and tracking events,
// and broadcasts every update to its subscribers.
//
// All methods are safe for concurrent use. Load is expected to run once at
// process start; until it has run, the store holds the privacy-safe defaults
// with no consent recorded.
type ConsentStore struct {
	cfg     ConsentConfig
	cookies CookieConfig

	store  storage.Store
	jar    CookieJar
	bridge AnalyticsBridge

	audit   *auditDispatcher
	metrics *Metrics

	mu         sync.Mutex
	prefs      Preferences
	hasConsent bool

	subMu sync.RWMutex
	subs  map[string]func(Preferences)
}

func newConsentStore(
	cfg ConsentConfig,
	cookies CookieConfig,
	store storage.Store,
	jar CookieJar,
	bridge AnalyticsBridge,
	audit *auditDispatcher,
	metrics *Metrics,
) *ConsentStore {
	return &ConsentStore{
		cfg:     cfg,
		cookies: cookies,
		store:   store,
		jar:     jar,
		bridge:  bridge,
		audit:   audit,
		metrics: metrics,
		prefs:   DefaultPreferences(),
		subs:    make(map[string]func(Preferences)),
	}
}

// Load reads the persisted preference record. An absent record leaves the
// defaults in place with no consent; a malformed record does the same but is
// reported through the result's Source so callers can distinguish the degrade
// path. Only a well-formed record marks consent as given.
//
// Load never fails the caller for a bad record — the privacy-safe default is
// the deliberate fallback. Only an unreachable backend surfaces an error, and
// even then the in-memory state is left at defaults.
func (s *ConsentStore) Load(ctx context.Context) (LoadResult, error) {
	if s == nil {
		return LoadResult{}, ErrEngineNotReady
	}

	data, err := s.store.Get(ctx, s.cfg.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.adopt(DefaultPreferences(), false)
			s.metricInc(MetricConsentDefaulted)
			emitAudit(s.audit, ctx, auditEventConsentDefaulted, true, nil, nil)
			return LoadResult{
				Preferences: DefaultPreferences(),
				Source:      LoadDefaulted,
			}, nil
		}
		s.adopt(DefaultPreferences(), false)
		return LoadResult{
			Preferences: DefaultPreferences(),
			Source:      LoadDefaulted,
		}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		s.adopt(DefaultPreferences(), false)
		s.metricInc(MetricConsentMalformed)
		emitAudit(s.audit, ctx, auditEventConsentMalformed, false, nil, nil)
		return LoadResult{
			Preferences: DefaultPreferences(),
			Source:      LoadMalformed,
		}, nil
	}

	// Necessary is forced true no matter what was persisted.
	p.Necessary = true
	s.adopt(p, true)
	s.metricInc(MetricConsentLoaded)
	emitAudit(s.audit, ctx, auditEventConsentLoaded, true, nil, nil)

	return LoadResult{
		Preferences: p,
		Source:      LoadPersisted,
		HasConsent:  true,
	}, nil
}

// CanUse reports whether the given category is currently permitted. Necessary
// is always permitted; every other category requires both a recorded consent
// and the category flag. Pure read, no side effects.
func (s *ConsentStore) CanUse(c Category) bool {
	if s == nil {
		return false
	}
	if c == CategoryNecessary {
		return true
	}
	if !c.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasConsent && s.prefs.Allows(c)
}

// Current returns the in-memory preference record and whether consent has
// been recorded. This is the synchronous mirror for consumers outside the
// subscription mechanism.
func (s *ConsentStore) Current() (Preferences, bool) {
	if s == nil {
		return DefaultPreferences(), false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.prefs, s.hasConsent
}

// Update merges the partial update into the current record, persists the
// merged record, marks consent as given, and then notifies every subscriber.
// Persistence strictly precedes notification: a subscriber re-reading storage
// observes the merged value. On a persistence failure nothing is adopted and
// nobody is notified.
func (s *ConsentStore) Update(ctx context.Context, update PreferenceUpdate) (Preferences, error) {
	if s == nil {
		return Preferences{}, ErrEngineNotReady
	}

	s.mu.Lock()
	merged := s.prefs
	merged.Necessary = true
	if update.Functional != nil {
		merged.Functional = *update.Functional
	}
	if update.Performance != nil {
		merged.Performance = *update.Performance
	}
	if update.Targeting != nil {
		merged.Targeting = *update.Targeting
	}

	data, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return Preferences{}, err
	}
	if err := s.store.Set(ctx, s.cfg.StorageKey, data); err != nil {
		s.mu.Unlock()
		return Preferences{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.prefs = merged
	s.hasConsent = true
	s.mu.Unlock()

	s.notify(merged)
	s.metricInc(MetricConsentUpdated)
	emitAudit(s.audit, ctx, auditEventConsentUpdated, true, nil, func(e *AuditEvent) {
		e.Metadata = map[string]string{
			"functional":  boolString(merged.Functional),
			"performance": boolString(merged.Performance),
			"targeting":   boolString(merged.Targeting),
		}
	})

	return merged, nil
}

// Reset clears the persisted record, reverts the in-memory state to defaults
// with no consent, and sweeps every cookie whose name is not on the
// always-allowed list. Reset does NOT notify subscribers — callers that need
// a UI refresh re-read state directly.
func (s *ConsentStore) Reset(ctx context.Context) error {
	if s == nil {
		return ErrEngineNotReady
	}

	s.mu.Lock()
	s.prefs = DefaultPreferences()
	s.hasConsent = false
	s.mu.Unlock()

	var storeErr error
	if err := s.store.Delete(ctx, s.cfg.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		storeErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.sweepCookies()
	s.metricInc(MetricConsentReset)
	emitAudit(s.audit, ctx, auditEventConsentReset, storeErr == nil, storeErr, nil)

	return storeErr
}

func (s *ConsentStore) sweepCookies() {
	if s.jar == nil {
		return
	}

	allowed := make(map[string]struct{}, len(s.cfg.AlwaysAllowedCookies))
	for _, name := range s.cfg.AlwaysAllowedCookies {
		allowed[name] = struct{}{}
	}

	for _, c := range s.jar.All() {
		if _, ok := allowed[c.Name]; ok {
			continue
		}
		s.jar.Delete(c.Name, c.Path)
		s.metricInc(MetricCookieSwept)
	}
}

// SetCookie writes a cookie when its category is currently permitted and
// reports whether the write happened. A denied write is a policy outcome, not
// an error.
func (s *ConsentStore) SetCookie(name, value string, opts CookieOptions) bool {
	if s == nil || s.jar == nil {
		return false
	}

	category := opts.Category
	if category == "" {
		category = s.cookies.DefaultCategory
	}
	if category == "" {
		category = CategoryFunctional
	}

	if !s.CanUse(category) {
		s.metricInc(MetricCookieWriteDenied)
		emitAudit(s.audit, context.Background(), auditEventCookieDenied, false, nil, func(e *AuditEvent) {
			e.Category = string(category)
			e.Metadata = map[string]string{"cookie": name}
		})
		return false
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.cookies.DefaultTTL
	}
	path := opts.Path
	if path == "" {
		path = s.cookies.DefaultPath
	}
	sameSite := opts.SameSite
	if sameSite == 0 {
		sameSite = s.cookies.SameSite
	}

	cookie := Cookie{
		Name:     name,
		Value:    value,
		Category: category,
		Path:     path,
		Expires:  time.Now().Add(ttl),
		Secure:   s.cookies.Secure && !opts.Insecure,
		SameSite: sameSite,
	}
	if err := s.jar.Set(cookie); err != nil {
		return false
	}

	s.metricInc(MetricCookieWriteAllowed)
	return true
}

// GetCookie reads a cookie value. Reads are not consent-gated.
func (s *ConsentStore) GetCookie(name string) (string, bool) {
	if s == nil || s.jar == nil {
		return "", false
	}
	c, ok := s.jar.Get(name)
	if !ok {
		return "", false
	}
	return c.Value, true
}

// DeleteCookie removes a cookie by name and path.
func (s *ConsentStore) DeleteCookie(name, path string) {
	if s == nil || s.jar == nil {
		return
	}
	s.jar.Delete(name, path)
}

// TrackEvent forwards a tracking event to the analytics bridge when
// performance consent is granted and a bridge is present, and reports whether
// it was forwarded. Dropped events are never buffered.
func (s *ConsentStore) TrackEvent(ctx context.Context, name string, data map[string]string) bool {
	if s == nil {
		return false
	}
	if s.bridge == nil || !s.CanUse(CategoryPerformance) {
		s.metricInc(MetricEventDropped)
		emitAudit(s.audit, ctx, auditEventEventDropped, false, nil, func(e *AuditEvent) {
			e.Metadata = map[string]string{"event": name}
		})
		return false
	}

	s.bridge.Track(ctx, name, data)
	s.metricInc(MetricEventTracked)
	return true
}

func (s *ConsentStore) adopt(p Preferences, hasConsent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = p
	s.hasConsent = hasConsent
}

func (s *ConsentStore) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
