package auth

import (
	"strings"

	"github.com/alexedwards/argon2id"
)

// hashParams segue a recomendação atual da OWASP para Argon2id. O custo de
// memória fica em 19 MB para não penalizar instâncias pequenas no pico de
// logins do início de semestre.
var hashParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword gera um hash Argon2id; os parâmetros ficam codificados no
// próprio hash, então podem evoluir sem migração.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, hashParams)
}

// VerifyPassword compara a senha com o hash armazenado. Hashes que não são
// Argon2id (bases importadas) são recusados sem erro.
func VerifyPassword(password, encodedHash string) (bool, error) {
	if !strings.HasPrefix(encodedHash, "$argon2id$") {
		return false, nil
	}
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}
