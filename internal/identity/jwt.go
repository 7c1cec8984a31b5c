// Package identity resolves the optional signed-in user behind a request.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"typologylab/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type contextKey string

const userKey contextKey = "user"

// Claims carry the user fields embedded in a token.
type Claims struct {
	UserID   string `json:"uid"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 user tokens.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTProvider returns a provider signing with secret. A zero ttl issues
// tokens without expiry.
func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (p *JWTProvider) Issue(user domain.User) (string, error) {
	if user.ID == "" {
		return "", errors.New("issue token: user id is required")
	}
	now := p.now()
	claims := &Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Provider: user.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if p.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(p.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *JWTProvider) Parse(tokenString string) (*domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: claims.Provider,
	}, nil
}

// Middleware attaches the user of a valid bearer token to the request context.
// Requests without a token pass through anonymously; a bad token is rejected.
func (p *JWTProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			// WebSocket clients cannot set headers from the browser.
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := p.Parse(token)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid or expired token"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// CurrentUser returns the user attached by Middleware, or nil for anonymous callers.
func (p *JWTProvider) CurrentUser(ctx context.Context) (*domain.User, error) {
	return UserFrom(ctx), nil
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
