package goGuard

import (
	"context"
	"net/http"
	"time"
)

// Category identifies a consent category. It governs whether a given cookie
// or tracking write is permitted.
type Category string

const (
	// CategoryNecessary is always granted and cannot be revoked.
	CategoryNecessary Category = "necessary"
	// CategoryFunctional covers convenience features (preferences, language).
	CategoryFunctional Category = "functional"
	// CategoryPerformance covers analytics and measurement.
	CategoryPerformance Category = "performance"
	// CategoryTargeting covers advertising and cross-site tracking.
	CategoryTargeting Category = "targeting"
)

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNecessary, CategoryFunctional, CategoryPerformance, CategoryTargeting:
		return true
	default:
		return false
	}
}

// Preferences is the consent record. Necessary is true in every reachable
// state; the store forces it on load, update, and reset.
type Preferences struct {
	Necessary   bool `json:"necessary"`
	Functional  bool `json:"functional"`
	Performance bool `json:"performance"`
	Targeting   bool `json:"targeting"`
}

// DefaultPreferences returns the privacy-safe default: only necessary granted.
func DefaultPreferences() Preferences {
	return Preferences{Necessary: true}
}

// Allows reports whether the record grants the given category. Unknown
// categories are never granted.
func (p Preferences) Allows(c Category) bool {
	switch c {
	case CategoryNecessary:
		return true
	case CategoryFunctional:
		return p.Functional
	case CategoryPerformance:
		return p.Performance
	case CategoryTargeting:
		return p.Targeting
	default:
		return false
	}
}

// PreferenceUpdate is a partial consent mutation. Nil fields are left
// untouched. The necessary category is not settable.
type PreferenceUpdate struct {
	Functional  *bool
	Performance *bool
	Targeting   *bool
}

// LoadSource tags where the preferences adopted by [ConsentStore.Load] came
// from, so callers and tests can assert on the exact degrade path taken.
type LoadSource uint8

const (
	// LoadDefaulted means no persisted record existed.
	LoadDefaulted LoadSource = iota
	// LoadPersisted means a well-formed persisted record was adopted.
	LoadPersisted
	// LoadMalformed means a persisted record existed but failed to parse and
	// defaults were kept.
	LoadMalformed
)

func (s LoadSource) String() string {
	switch s {
	case LoadDefaulted:
		return "defaulted"
	case LoadPersisted:
		return "persisted"
	case LoadMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// LoadResult is returned by [ConsentStore.Load].
type LoadResult struct {
	Preferences Preferences
	Source      LoadSource
	HasConsent  bool
}

// Role is the server-assigned role of an authenticated user.
type Role string

const (
	// RoleSuperAdmin has full admin panel access.
	RoleSuperAdmin Role = "super_admin"
	// RoleOfficeExecutive manages content and publications.
	RoleOfficeExecutive Role = "office_executive"
	// RoleHRManager manages career postings and applications.
	RoleHRManager Role = "hr_manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleOfficeExecutive, RoleHRManager:
		return true
	default:
		return false
	}
}

// User is the identity payload returned by the login and verify endpoints.
type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Credentials is the input to [SessionMonitor.Login].
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by [SessionMonitor.Login] on success.
type LoginResult struct {
	User User
}

// State is the lifecycle state of the session monitor.
type State uint8

const (
	// StateUninitialized means no startup check has run yet.
	StateUninitialized State = iota
	// StateChecking means a startup verification is in flight.
	StateChecking
	// StateAuthenticated means a verified, unexpired token is held.
	StateAuthenticated
	// StateAuthPending means an unexpired token is held but verification hit a
	// network-class failure; the expiry watcher is armed to self-heal.
	StateAuthPending
	// StateUnauthenticated means no usable token is held.
	StateUnauthenticated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthPending:
		return "auth_pending"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// StartupOutcome tags the branch taken by [SessionMonitor.CheckAuthOnStartup].
type StartupOutcome uint8

const (
	// StartupNoToken means nothing was persisted; no network call was made.
	StartupNoToken StartupOutcome = iota
	// StartupTokenExpired means the persisted token was already expired and
	// was discarded without a network call.
	StartupTokenExpired
	// StartupVerified means the server confirmed the token and returned a user.
	StartupVerified
	// StartupRejected means the server rejected the token; it was discarded.
	StartupRejected
	// StartupPending means verification failed at the transport level; the
	// token was kept optimistically and the expiry watcher armed.
	StartupPending
)

// StartupResult is returned by [SessionMonitor.CheckAuthOnStartup].
type StartupResult struct {
	Outcome StartupOutcome
	User    User
}

// APIRequest describes a generic authenticated call issued through
// [SessionMonitor.Do].
type APIRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// APIResponse is the outcome of a successful [SessionMonitor.Do] call.
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Cookie is a single policy-gated cookie write.
type Cookie struct {
	Name     string
	Value    string
	Category Category
	Path     string
	Expires  time.Time
	Secure   bool
	SameSite http.SameSite
}

// CookieOptions refine a [ConsentStore.SetCookie] call. Zero values fall back
// to [CookieConfig] defaults.
type CookieOptions struct {
	Category Category
	TTL      time.Duration
	Path     string
	SameSite http.SameSite
	Insecure bool
}

// CookieJar abstracts the cookie medium so the policy gate can be exercised
// against a browser bridge in production and an in-memory jar in tests.
type CookieJar interface {
	Set(c Cookie) error
	Get(name string) (Cookie, bool)
	Delete(name, path string)
	All() []Cookie
}

// AnalyticsBridge receives tracking events that passed the performance-consent
// gate. Implementations must not block.
type AnalyticsBridge interface {
	Track(ctx context.Context, name string, data map[string]string)
}
