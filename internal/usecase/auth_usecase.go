package usecase

import (
	"context"
	"errors"
	"strconv"

	"patient-management/internal/auth"
	"patient-management/internal/converter"
	"patient-management/internal/delivery/dto"
	"patient-management/internal/delivery/http/middleware"
	"patient-management/internal/domain/entity"
	"patient-management/internal/service"
	"patient-management/pkg/jwt"
	"patient-management/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrUserNotFound       = errors.New("user not found")
	ErrNotAuthenticated   = errors.New("user not found in context")
)

type AuthUsecase interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*dto.UserResponse, error)
}

type authUsecase struct {
	log          *logrus.Logger
	directory    *auth.Directory
	tokenService *jwt.TokenService
	redisClient  *redis.Client
	auditService service.AuditService
	metrics      *metrics.Metrics
}

func NewAuthUsecase(
	log *logrus.Logger,
	directory *auth.Directory,
	tokenService *jwt.TokenService,
	redisClient *redis.Client,
	auditService service.AuditService,
	m *metrics.Metrics,
) AuthUsecase {
	return &authUsecase{
		log:          log,
		directory:    directory,
		tokenService: tokenService,
		redisClient:  redisClient,
		auditService: auditService,
		metrics:      m,
	}
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.directory.Authenticate(req.Username, req.Password)
	if err != nil {
		u.countLogin("failure")
		return nil, err
	}

	token, tokenID, err := u.tokenService.GenerateToken(user)
	if err != nil {
		u.log.Warnf("Failed to generate token: %+v", err)
		u.countLogin("error")
		return nil, err
	}

	// Store token in Redis allow-list
	key := jwt.AccessTokenKey(strconv.Itoa(user.ID), tokenID)
	if err := u.redisClient.Set(ctx, key, "valid", u.tokenService.GetExpiry()).Err(); err != nil {
		u.log.Warnf("Failed to store access token in Redis: %+v", err)
		u.countLogin("error")
		return nil, err
	}

	actor := entity.Actor{UserID: user.ID, Username: user.Username}
	if err := u.auditService.LogAction(ctx, nil, actor, entity.AuditActionUserLogin, entity.JSON{"role": user.Role}); err != nil {
		u.log.Warnf("Failed to audit login of %s: %+v", user.Username, err)
	}

	u.countLogin("success")
	u.log.Infof("User %s logged in as %s", user.Username, user.Role)

	return &dto.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(u.tokenService.GetExpiry().Seconds()),
		User:      *converter.UserToResponse(user),
	}, nil
}

// Logout removes the caller's token from the allow-list.
func (u *authUsecase) Logout(ctx context.Context) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	tokenID, ok := middleware.GetTokenIDFromContext(ctx)
	if !ok {
		return ErrNotAuthenticated
	}

	key := jwt.AccessTokenKey(strconv.Itoa(userID), tokenID)
	if err := u.redisClient.Del(ctx, key).Err(); err != nil {
		u.log.Warnf("Failed to delete access token: %+v", err)
		return err
	}

	if err := u.auditService.LogAction(ctx, nil, middleware.ActorFromContext(ctx), entity.AuditActionUserLogout, nil); err != nil {
		u.log.Warnf("Failed to audit logout of user %d: %+v", userID, err)
	}

	return nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context) (*dto.UserResponse, error) {
	username, ok := middleware.GetUsernameFromContext(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	user, found := u.directory.Lookup(username)
	if !found {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user), nil
}

func (u *authUsecase) countLogin(result string) {
	if u.metrics != nil {
		u.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}
