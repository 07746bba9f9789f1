// Comando hashpass gera um hash Argon2id pronto para inserir direto na
// tabela de perfis (útil para criar a primeira conta de professor).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/agendaacademica/api/internal/auth"
)

func main() {
	password := ""
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "senha: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "leitura da senha: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		fmt.Fprintln(os.Stderr, "uso: hashpass [senha]")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gerar hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
