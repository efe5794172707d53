package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Identity is the resolved caller: a session user when a valid bearer token
// is present, otherwise anonymous. IPHash is always set; the raw address is
// hashed before it touches any storage or comparison.
type Identity struct {
	UserID  string
	Email   string
	IPHash  string
	IsOwner bool
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// ResolveIdentity parses the session bearer token (HS256, Supabase-style:
// sub is the user id) and hashes the client IP. Invalid or missing tokens
// degrade to an anonymous identity rather than rejecting the request; the
// quota gate decides what anonymous callers may do.
func ResolveIdentity(jwtSecret, ownerEmail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := Identity{IPHash: HashIP(clientIP(r))}

			if token := bearerToken(r); token != "" && jwtSecret != "" {
				if claims, err := parseSessionToken(jwtSecret, token); err == nil {
					identity.UserID = claims.Subject
					identity.Email = claims.Email
					identity.IsOwner = ownerEmail != "" && strings.EqualFold(claims.Email, ownerEmail)
				}
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the resolved identity from context.
func GetIdentity(ctx context.Context) Identity {
	identity, _ := ctx.Value(IdentityKey).(Identity)
	return identity
}

// HashIP returns the hex SHA-256 of a network address.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func parseSessionToken(secret, tokenStr string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
