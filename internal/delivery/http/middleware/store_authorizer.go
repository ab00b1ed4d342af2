package middleware

import (
	"context"
	"strconv"

	"patient-management/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// StoreAuthorizer forwards the caller's bearer token to the backing store. When the
// store rejects it, the token is removed from the allow-list so the caller has to log in
// again.
type StoreAuthorizer struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewStoreAuthorizer(redisClient *redis.Client, log *logrus.Logger) *StoreAuthorizer {
	return &StoreAuthorizer{
		redisClient: redisClient,
		log:         log,
	}
}

func (a *StoreAuthorizer) BearerToken(ctx context.Context) string {
	token, _ := GetTokenFromContext(ctx)
	return token
}

func (a *StoreAuthorizer) Unauthorized(ctx context.Context) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return
	}
	tokenID, ok := GetTokenIDFromContext(ctx)
	if !ok {
		return
	}

	key := jwt.AccessTokenKey(strconv.Itoa(userID), tokenID)
	if err := a.redisClient.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		a.log.Warnf("Failed to revoke token after store rejection: %+v", err)
		return
	}
	a.log.Warnf("Backing store rejected token of user %d, token revoked", userID)
}
