package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/agendaacademica/api/internal/auth"
	"github.com/agendaacademica/api/internal/repo"
	"github.com/agendaacademica/api/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrEmailInUse indica e-mail já cadastrado.
	ErrEmailInUse = errors.New("e-mail já cadastrado")
	// ErrInvalidRole indica papel desconhecido no cadastro.
	ErrInvalidRole = errors.New("papel inválido")
)

type authRepository interface {
	GetProfileByEmail(ctx context.Context, email string) (repo.Profile, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (repo.Profile, error)
	CreateProfile(ctx context.Context, email, fullName, role, senhaHash string) (repo.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName string, avatarURL *string) (repo.Profile, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       *ProfileView
	RefreshHash   string
	RefreshExpiry time.Time
}

// ProfileView descreve o perfil exposto pela API.
type ProfileView struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func newProfileView(p repo.Profile) *ProfileView {
	return &ProfileView{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		AvatarURL: p.AvatarURL,
	}
}

// RolesFor deriva as roles de acesso a partir do papel do perfil.
func RolesFor(role string) []string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case repo.RoleProfessor:
		return []string{"PROFESSOR"}
	case repo.RoleStudent:
		return []string{"STUDENT"}
	default:
		return nil
	}
}

// Register cria um novo perfil com senha Argon2id.
func (s *AuthService) Register(ctx context.Context, email, fullName, role, password string) (*LoginResult, error) {
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := util.RequireString(fullName, "nome"); err != nil {
		return nil, err
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, err
	}

	role = strings.ToLower(strings.TrimSpace(role))
	if role != repo.RoleProfessor && role != repo.RoleStudent {
		return nil, ErrInvalidRole
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.CreateProfile(ctx, email, fullName, role, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	return s.issueSession(ctx, profile)
}

// Login autentica por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	profile, err := s.repo.GetProfileByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, profile.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verify password failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, profile)
}

func (s *AuthService) issueSession(ctx context.Context, profile repo.Profile) (*LoginResult, error) {
	roles := RolesFor(profile.Role)
	if len(roles) == 0 {
		return nil, ErrInvalidRole
	}

	token, _, err := s.jwt.GenerateAccessToken(profile.ID.String(), roles)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, profile.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       profile.ID,
		Roles:         roles,
		Profile:       newProfileView(profile),
		RefreshHash:   refreshHash,
		RefreshExpiry: expires,
	}, nil
}

// Refresh troca refresh token por novos tokens.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revoked || time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	profile, err := s.repo.GetProfileByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}

	result, err := s.issueSession(ctx, profile)
	if err != nil {
		return nil, err
	}

	// Revoga token anterior (DB + Redis)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga refresh token atual.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	redisKey := auth.RefreshRedisKey(hash)
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetMe retorna perfil completo do subject autenticado.
func (s *AuthService) GetMe(ctx context.Context, subject uuid.UUID) (*ProfileView, []string, error) {
	profile, err := s.repo.GetProfileByID(ctx, subject)
	if err != nil {
		return nil, nil, err
	}
	return newProfileView(profile), RolesFor(profile.Role), nil
}

// UpdateProfile altera nome e avatar do usuário autenticado.
func (s *AuthService) UpdateProfile(ctx context.Context, subject uuid.UUID, fullName string, avatarURL *string) (*ProfileView, error) {
	if err := util.RequireString(fullName, "nome"); err != nil {
		return nil, err
	}
	profile, err := s.repo.UpdateProfile(ctx, subject, fullName, avatarURL)
	if err != nil {
		return nil, err
	}
	return newProfileView(profile), nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		TokenHash: hash,
		ExpiresAt: expires,
		CreatedAt: util.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}
