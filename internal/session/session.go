// Package session persists the _session cookie between runs and keeps the
// REST client's credential in step with sign-in and sign-out events.
package session

import (
	"errors"
	"fmt"
	"time"

	"tims/internal/events"
	"tims/internal/securestore"

	logging "github.com/ipfs/go-log/v2"
	"gorm.io/gorm"
)

var log = logging.Logger("tims/session")

const (
	// CookieName is the cookie the browser UI kept the token in.
	CookieName = "_session"

	// Lifetime is the fixed expiry given to a freshly stored session.
	Lifetime = 30 * 24 * time.Hour
)

// ErrNoSession is returned by Load when there is no usable session.
var ErrNoSession = errors.New("session: no session stored")

// Cookie is the stored form of the session. Value is sealed.
type Cookie struct {
	Name      string `gorm:"primaryKey"`
	Domain    string `gorm:"not null"`
	Value     []byte `gorm:"not null"`
	Expires   time.Time
	UpdatedAt time.Time
}

func (Cookie) TableName() string { return "cookies" }

// Store reads and writes the session cookie for one cookie domain.
type Store struct {
	db     *gorm.DB
	secret []byte
	domain string
	now    func() time.Time
}

// NewStore migrates the cookie table in db.
func NewStore(db *gorm.DB, secret []byte, domain string) (*Store, error) {
	if err := db.AutoMigrate(&Cookie{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cookies: %w", err)
	}
	return &Store{db: db, secret: secret, domain: domain, now: time.Now}, nil
}

// Save stores token with a fresh expiry.
func (s *Store) Save(token string) error {
	sealed, err := securestore.Seal(s.secret, []byte(token))
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	c := Cookie{Name: CookieName}
	err = s.db.Where("name = ?", CookieName).
		Assign(Cookie{Domain: s.domain, Value: sealed, Expires: s.now().Add(Lifetime)}).
		FirstOrCreate(&c).Error
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Load returns the stored token. Expired cookies and cookies set for another
// domain are treated as missing.
func (s *Store) Load() (string, error) {
	var c Cookie
	err := s.db.Where("name = ?", CookieName).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if c.Domain != s.domain {
		log.Infow("ignoring session for another domain", "domain", c.Domain)
		return "", ErrNoSession
	}
	if !s.now().Before(c.Expires) {
		log.Info("stored session expired")
		return "", ErrNoSession
	}
	token, err := securestore.Open(s.secret, c.Value)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return string(token), nil
}

// Expires returns when the stored session expires.
func (s *Store) Expires() (time.Time, bool) {
	var c Cookie
	if err := s.db.Where("name = ?", CookieName).Take(&c).Error; err != nil {
		return time.Time{}, false
	}
	return c.Expires, true
}

// Clear removes the cookie.
func (s *Store) Clear() error {
	return s.db.Where("name = ?", CookieName).Delete(&Cookie{}).Error
}

// Credentialer is the part of the REST client a session is pushed into.
type Credentialer interface {
	Session(token string)
}

// Bind makes sign-out clear both the client credential and the stored
// cookie. Unsubscribe the returned subscription to undo it.
func Bind(hub *events.Hub, client Credentialer, store *Store) *events.Subscription {
	return hub.SignedOut().Subscribe(func(events.SignedOutEvent) {
		client.Session("")
		if err := store.Clear(); err != nil {
			log.Errorw("failed to clear session cookie", "err", err)
		}
	})
}

// Restore pushes a stored, unexpired session into client. It reports
// whether one was found.
func Restore(client Credentialer, store *Store) bool {
	token, err := store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Warnw("failed to restore session", "err", err)
		}
		return false
	}
	client.Session(token)
	return true
}
