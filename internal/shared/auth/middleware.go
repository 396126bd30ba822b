package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eden-hr/casetracker/internal/shared/config"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

type contextKey string

const (
	ActorContextKey contextKey = "actor"

	// ActorHeader names the acting user on development requests when token checks are off.
	ActorHeader = "X-Actor-ID"
)

// Actor is the authenticated user performing a request.
type Actor struct {
	ID    types.ID `json:"sub"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Claims extends JWT claims with the fields Eden reads.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Middleware resolves the acting user. With auth enabled a valid bearer token is
// required and its subject is the actor; otherwise the X-Actor-ID header or the
// configured system actor is used.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *Actor
			if cfg.Enabled {
				var msg string
				actor, msg = actorFromToken(cfg, r.Header.Get("Authorization"))
				if actor == nil {
					writeError(w, http.StatusUnauthorized, msg)
					return
				}
			} else {
				actor = devActor(cfg, r.Header.Get(ActorHeader))
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromToken(cfg config.AuthConfig, header string) (*Actor, string) {
	if header == "" {
		return nil, "missing authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, "invalid authorization header format"
	}

	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, "invalid token"
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, "invalid token claims"
	}

	id, err := types.ParseID(claims.Subject)
	if err != nil {
		return nil, "invalid token subject"
	}

	return &Actor{ID: id, Name: claims.Name, Roles: claims.Roles}, ""
}

func devActor(cfg config.AuthConfig, header string) *Actor {
	if id, err := types.ParseID(strings.TrimSpace(header)); err == nil {
		return &Actor{ID: id}
	}
	return &Actor{ID: types.ID(cfg.SystemActor), Name: "system"}
}

// WithActor stores the actor on ctx.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// GetActor extracts the actor from request context
func GetActor(ctx context.Context) *Actor {
	actor, ok := ctx.Value(ActorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// ActorID returns the acting user's id, or the zero ID outside a request.
func ActorID(ctx context.Context) types.ID {
	if actor := GetActor(ctx); actor != nil {
		return actor.ID
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "UNAUTHORIZED", "message": message},
	})
}
