package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agendaacademica/api/internal/auth"
	"github.com/agendaacademica/api/internal/repo"
)

type stubAuthRepo struct {
	profiles map[string]repo.Profile
	tokens   map[string]repo.RefreshToken
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{
		profiles: make(map[string]repo.Profile),
		tokens:   make(map[string]repo.RefreshToken),
	}
}

func (s *stubAuthRepo) GetProfileByEmail(ctx context.Context, email string) (repo.Profile, error) {
	p, ok := s.profiles[email]
	if !ok {
		return repo.Profile{}, repo.ErrNotFound
	}
	return p, nil
}

func (s *stubAuthRepo) GetProfileByID(ctx context.Context, id uuid.UUID) (repo.Profile, error) {
	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return repo.Profile{}, repo.ErrNotFound
}

func (s *stubAuthRepo) CreateProfile(ctx context.Context, email, fullName, role, senhaHash string) (repo.Profile, error) {
	if _, ok := s.profiles[email]; ok {
		return repo.Profile{}, repo.ErrDuplicateEmail
	}
	p := repo.Profile{ID: uuid.New(), Email: email, FullName: fullName, Role: role, SenhaHash: senhaHash}
	s.profiles[email] = p
	return p, nil
}

func (s *stubAuthRepo) UpdateProfile(ctx context.Context, id uuid.UUID, fullName string, avatarURL *string) (repo.Profile, error) {
	for email, p := range s.profiles {
		if p.ID == id {
			p.FullName = fullName
			p.AvatarURL = avatarURL
			s.profiles[email] = p
			return p, nil
		}
	}
	return repo.Profile{}, repo.ErrNotFound
}

func (s *stubAuthRepo) InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.RefreshToken, error) {
	t := repo.RefreshToken{ID: arg.ID, Subject: arg.Subject, TokenHash: arg.TokenHash, ExpiresAt: arg.ExpiresAt, CreatedAt: arg.CreatedAt}
	s.tokens[arg.TokenHash] = t
	return t, nil
}

func (s *stubAuthRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.RefreshToken, error) {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return repo.RefreshToken{}, repo.ErrNotFound
	}
	return t, nil
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return repo.ErrNotFound
	}
	t.Revoked = true
	s.tokens[tokenHash] = t
	return nil
}

func (s *stubAuthRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	for hash, t := range s.tokens {
		if t.Subject == subject && hash != keepHash {
			t.Revoked = true
			s.tokens[hash] = t
		}
	}
	return nil
}

type stubRedis struct {
	values map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: make(map[string]string)}
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	s.values[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := s.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func newTestService() (*AuthService, *stubAuthRepo, *stubRedis) {
	r := newStubAuthRepo()
	rd := newStubRedis()
	jwtMgr := auth.NewJWTManager("uma-chave-de-teste-com-32-caracteres!", 15*time.Minute)
	return NewAuthService(r, rd, jwtMgr, 24*time.Hour), r, rd
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana Lima", "professor", "senha-forte-1")
	if err != nil {
		t.Fatalf("register falhou: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("register deveria emitir tokens")
	}
	if len(result.Roles) != 1 || result.Roles[0] != "PROFESSOR" {
		t.Fatalf("roles inesperadas: %v", result.Roles)
	}

	login, err := svc.Login(ctx, "ana@exemplo.edu.br", "senha-forte-1")
	if err != nil {
		t.Fatalf("login falhou: %v", err)
	}
	if login.Profile.Email != "ana@exemplo.edu.br" {
		t.Fatalf("perfil inesperado: %+v", login.Profile)
	}
}

func TestRegisterValidations(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana", "reitor", "senha-forte-1"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("esperava ErrInvalidRole, obteve %v", err)
	}
	if _, err := svc.Register(ctx, "nao-eh-email", "Ana", "student", "senha-forte-1"); err == nil {
		t.Fatal("e-mail inválido deveria ser rejeitado")
	}
	if _, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana", "student", "curta"); err == nil {
		t.Fatal("senha curta deveria ser rejeitada")
	}

	if _, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana", "student", "senha-forte-1"); err != nil {
		t.Fatalf("primeiro cadastro deveria passar: %v", err)
	}
	if _, err := svc.Register(ctx, "ana@exemplo.edu.br", "Outra Ana", "student", "senha-forte-1"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("esperava ErrEmailInUse, obteve %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "joao@exemplo.edu.br", "João", "student", "senha-forte-1"); err != nil {
		t.Fatalf("register falhou: %v", err)
	}

	if _, err := svc.Login(ctx, "joao@exemplo.edu.br", "senha-errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperava ErrInvalidCredentials, obteve %v", err)
	}
	if _, err := svc.Login(ctx, "ninguem@exemplo.edu.br", "qualquer-coisa"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperava ErrInvalidCredentials para e-mail inexistente, obteve %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana", "professor", "senha-forte-1")
	if err != nil {
		t.Fatalf("register falhou: %v", err)
	}

	rotated, err := svc.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh falhou: %v", err)
	}
	if rotated.RefreshToken == result.RefreshToken {
		t.Fatal("refresh deveria emitir token novo")
	}

	// Token antigo foi revogado na rotação.
	if _, err := svc.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("token antigo deveria ser inválido, obteve %v", err)
	}

	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("token novo deveria funcionar: %v", err)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, _, rd := newTestService()
	ctx := context.Background()

	result, err := svc.Register(ctx, "ana@exemplo.edu.br", "Ana", "student", "senha-forte-1")
	if err != nil {
		t.Fatalf("register falhou: %v", err)
	}

	if err := svc.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("logout falhou: %v", err)
	}
	if len(rd.values) != 0 {
		t.Fatal("logout deveria limpar a chave ativa no redis")
	}
	if _, err := svc.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("refresh após logout deveria falhar, obteve %v", err)
	}
}
