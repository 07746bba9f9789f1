package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMaterialKeySanitizesFilename(t *testing.T) {
	eventID := uuid.New()

	key := MaterialKey(eventID, "../Notas de Aula (v2).PDF")
	if !strings.HasPrefix(key, "materials/"+eventID.String()+"/") {
		t.Fatalf("prefixo inesperado: %s", key)
	}
	if strings.Contains(key, " ") || strings.Contains(key, "(") || strings.Contains(key, "..") {
		t.Fatalf("chave não sanitizada: %s", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("extensão deveria ser preservada em minúsculas: %s", key)
	}
}

func TestMaterialKeyUnique(t *testing.T) {
	eventID := uuid.New()
	if MaterialKey(eventID, "plano.pdf") == MaterialKey(eventID, "plano.pdf") {
		t.Fatal("chaves deveriam variar entre uploads do mesmo arquivo")
	}
}
