package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession indicates the request carries no valid session token.
var ErrNoSession = errors.New("shared: no session")

// SessionManager orchestrates token based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data.
type Session struct {
	ID         string
	UserID     int64
	CompanyID  int64
	ActivityID *int64
}

type sessionPayload struct {
	UserID     int64  `json:"user_id"`
	CompanyID  int64  `json:"company_id"`
	ActivityID *int64 `json:"activity_id,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Issue creates a session for the user and returns the signed token.
func (sm *SessionManager) Issue(ctx context.Context, sess Session) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	id := base64.RawURLEncoding.EncodeToString(raw)
	payload, err := json.Marshal(sessionPayload{
		UserID:     sess.UserID,
		CompanyID:  sess.CompanyID,
		ActivityID: sess.ActivityID,
	})
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(id), payload, sm.ttl).Err(); err != nil {
		return "", err
	}
	return sm.sign(id), nil
}

// Load resolves the session referenced by the request token, if any.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := sm.tokenFromRequest(r)
	if token == "" {
		return nil, ErrNoSession
	}
	id, ok := sm.verify(token)
	if !ok {
		return nil, ErrNoSession
	}
	raw, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	// sliding expiry
	_ = sm.client.Expire(ctx, sm.redisKey(id), sm.ttl).Err()
	return &Session{
		ID:         id,
		UserID:     payload.UserID,
		CompanyID:  payload.CompanyID,
		ActivityID: payload.ActivityID,
	}, nil
}

// Destroy removes the session from the store.
func (sm *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	return sm.client.Del(ctx, sm.redisKey(sess.ID)).Err()
}

// WriteCookie attaches the session cookie to the response.
func (sm *SessionManager) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sm.ttl.Seconds()),
	})
}

// ClearCookie expires the session cookie.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (sm *SessionManager) tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (sm *SessionManager) redisKey(id string) string {
	return "meridian:session:" + id
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return id + "." + sig
}

func (sm *SessionManager) verify(token string) (string, bool) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return "", false
	}
	id, sig := token[:idx], token[idx+1:]
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", false
	}
	return id, true
}
