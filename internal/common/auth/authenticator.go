package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/models"

	"github.com/redis/go-redis/v9"
)

// Authenticator resolves a bearer token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*TokenInfo, error)
}

// KeycloakAuthenticator introspects tokens and caches the resulting identity in redis for a short
// TTL. The cache is optional; cache failures fall through to introspection.
type KeycloakAuthenticator struct {
	validator tokenValidator
	cache     redis.Cmdable
	ttl       time.Duration
	logger    logger.Logger
}

func NewKeycloakAuthenticator(validator tokenValidator, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *KeycloakAuthenticator {
	return &KeycloakAuthenticator{
		validator: validator,
		cache:     cache,
		ttl:       ttl,
		logger:    log.WithFields(map[string]interface{}{"component": "auth"}),
	}
}

func (a *KeycloakAuthenticator) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, errors.NewAuthenticationError("missing bearer token")
	}

	key := cacheKey(token)
	if a.cache != nil {
		if raw, err := a.cache.Get(ctx, key).Result(); err == nil {
			var id models.Identity
			if json.Unmarshal([]byte(raw), &id) == nil && id.UserID != "" {
				return id, nil
			}
		} else if err != redis.Nil {
			a.logger.Warn("token cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	info, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return models.Identity{}, err
	}

	id, err := identityFromToken(info)
	if err != nil {
		return models.Identity{}, err
	}

	if a.cache != nil {
		ttl := a.ttl
		if info.Exp > 0 {
			if untilExp := time.Until(time.Unix(info.Exp, 0)); untilExp < ttl {
				ttl = untilExp
			}
		}
		if ttl > 0 {
			if raw, err := json.Marshal(id); err == nil {
				if err := a.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
					a.logger.Warn("token cache write failed", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}
	return id, nil
}

func identityFromToken(info *TokenInfo) (models.Identity, error) {
	if info.Sub == "" {
		return models.Identity{}, errors.NewAuthenticationError("token has no subject")
	}
	id := models.Identity{UserID: info.Sub, Email: info.Email}
	for _, r := range info.RealmAccess.Roles {
		switch models.Role(strings.ToLower(r)) {
		case models.RoleInvestor:
			id.Role = models.RoleInvestor
		case models.RoleFounder:
			if id.Role == "" {
				id.Role = models.RoleFounder
			}
		}
	}
	if id.Role == "" {
		return models.Identity{}, errors.NewAuthorizationError("token carries neither investor nor founder role")
	}
	return id, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}

// StaticAuthenticator maps fixed tokens to identities, for local runs without an identity provider.
type StaticAuthenticator struct {
	identities map[string]models.Identity
}

// NewStaticAuthenticator parses entries of the form token -> "role:user_id".
func NewStaticAuthenticator(tokens map[string]string) *StaticAuthenticator {
	ids := make(map[string]models.Identity, len(tokens))
	for token, entry := range tokens {
		role, user, ok := strings.Cut(entry, ":")
		if !ok || user == "" {
			continue
		}
		ids[token] = models.Identity{UserID: user, Role: models.Role(strings.ToLower(role))}
	}
	return &StaticAuthenticator{identities: ids}
}

func (s *StaticAuthenticator) Authenticate(_ context.Context, token string) (models.Identity, error) {
	id, ok := s.identities[token]
	if !ok {
		return models.Identity{}, errors.NewAuthenticationError("unknown token")
	}
	return id, nil
}
