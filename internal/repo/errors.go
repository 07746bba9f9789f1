package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrDuplicateEmail indica tentativa de cadastro com e-mail já usado.
	ErrDuplicateEmail = errors.New("e-mail já cadastrado")
)
