package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

const (
	sessionCookie = "todo_session"
	sessionTTL    = 30 * 24 * time.Hour
)

type signedPayload struct {
	Exp int64  `json:"exp"`
	Sub string `json:"sub"` // session id
}

// loadOrInitSecretKey reads the cookie signing key from dir, creating it on
// first use. An empty dir yields a key that lives only as long as the process.
func loadOrInitSecretKey(dir string) ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	enc := base64.RawURLEncoding.EncodeToString(raw)
	if strings.TrimSpace(dir) == "" {
		return []byte(enc), nil
	}

	path := filepath.Join(dir, "web-secret.key")
	if b, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(enc+"\n"), 0o600); err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

func signToken(secret []byte, payload signedPayload) (string, error) {
	b, err := sonic.Marshal(payload)
	if err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return p + "." + sig, nil
}

func verifyToken(secret []byte, token string, now time.Time) (signedPayload, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 2 {
		return signedPayload{}, errors.New("invalid token format")
	}
	p, sig := parts[0], parts[1]

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac.Sum(nil), got) {
		return signedPayload{}, errors.New("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(p)
	if err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	var sp signedPayload
	if err := sonic.Unmarshal(raw, &sp); err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	if sp.Exp == 0 || now.Unix() > sp.Exp {
		return signedPayload{}, errors.New("token expired")
	}
	if _, err := uuid.Parse(sp.Sub); err != nil {
		return signedPayload{}, errors.New("token subject is not a session id")
	}
	return sp, nil
}

// sessionID returns the verified session id carried by the request, or "".
func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	sp, err := verifyToken(s.secret, c.Value, time.Now())
	if err != nil {
		return ""
	}
	return sp.Sub
}

// issueSession sets a cookie for a new session id and returns the id.
func (s *Server) issueSession(w http.ResponseWriter) (string, error) {
	id := uuid.NewString()
	tok, err := signToken(s.secret, signedPayload{Sub: id, Exp: time.Now().Add(sessionTTL).Unix()})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
	return id, nil
}
