package prefs

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type stubPrefsRepo struct {
	stored *Preferences
}

func (s *stubPrefsRepo) Get(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	if s.stored == nil {
		return Defaults(userID), nil
	}
	return *s.stored, nil
}

func (s *stubPrefsRepo) Upsert(ctx context.Context, p Preferences) error {
	s.stored = &p
	return nil
}

func TestGetReturnsDefaults(t *testing.T) {
	svc := NewService(&stubPrefsRepo{})
	userID := uuid.New()

	p, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if p.Theme != ThemeSystem || p.FontSize != FontMedium || p.HighContrast {
		t.Fatalf("padrões inesperados: %+v", p)
	}
}

func TestPutValidation(t *testing.T) {
	tests := []struct {
		name    string
		theme   string
		font    string
		wantErr error
	}{
		{"valido", ThemeDark, FontLarge, nil},
		{"vazio-usa-padrao", "", "", nil},
		{"tema-invalido", "neon", FontMedium, ErrInvalidTheme},
		{"fonte-invalida", ThemeLight, "gigante", ErrInvalidFontSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubPrefsRepo{}
			svc := NewService(repo)

			_, err := svc.Put(context.Background(), Preferences{
				UserID:   uuid.New(),
				Theme:    tc.theme,
				FontSize: tc.font,
			})
			if err != tc.wantErr {
				t.Fatalf("esperava %v, obteve %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && repo.stored == nil {
				t.Fatal("preferências válidas deveriam ser gravadas")
			}
		})
	}
}

func TestPutRoundTrip(t *testing.T) {
	repo := &stubPrefsRepo{}
	svc := NewService(repo)
	userID := uuid.New()

	if _, err := svc.Put(context.Background(), Preferences{UserID: userID, Theme: ThemeDark, FontSize: FontSmall, HighContrast: true}); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	p, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if p.Theme != ThemeDark || p.FontSize != FontSmall || !p.HighContrast {
		t.Fatalf("preferências não persistidas: %+v", p)
	}
}
