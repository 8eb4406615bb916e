// Package oracle grava no banco corporativo as notas baixadas, os
// certificados digitais, as credenciais das lojas e o log de processamento.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	go_ora "github.com/sijms/go-ora/v2"
)

// Config reúne a conexão com o banco.
type Config struct {
	Usuario string
	Senha   string

	// DSN no formato EZConnect: host[:porta]/serviço.
	DSN string

	Logger zerolog.Logger
}

// Banco é a conexão com o Oracle corporativo. As linhas do log de
// processamento são carimbadas com "hostname (ip)" da máquina do agente.
type Banco struct {
	db      *sql.DB
	usuario string
	logger  zerolog.Logger
}

// NewBanco abre e valida a conexão.
func NewBanco(ctx context.Context, cfg Config) (*Banco, error) {
	url, err := montarURL(cfg.Usuario, cfg.Senha, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("oracle", url)
	if err != nil {
		return nil, fmt.Errorf("oracle: erro ao abrir conexão: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("oracle: erro ao conectar: %w", err)
	}

	cfg.Logger.Info().Str("dsn", cfg.DSN).Msg("✓ Conectado ao Oracle")
	return &Banco{db: db, usuario: usuarioLog(), logger: cfg.Logger}, nil
}

// Fechar encerra a conexão.
func (b *Banco) Fechar() error {
	return b.db.Close()
}

// montarURL converte um DSN EZConnect (host[:porta]/serviço) para a URL de
// conexão do driver. A porta padrão é 1521.
func montarURL(usuario, senha, dsn string) (string, error) {
	endereco, servico, ok := strings.Cut(dsn, "/")
	if !ok || servico == "" {
		return "", fmt.Errorf("oracle: DSN inválido %q, esperado host[:porta]/serviço", dsn)
	}

	host := endereco
	porta := 1521
	if h, p, temPorta := strings.Cut(endereco, ":"); temPorta {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("oracle: porta inválida no DSN %q", dsn)
		}
		host, porta = h, n
	}
	if host == "" {
		return "", fmt.Errorf("oracle: DSN inválido %q, esperado host[:porta]/serviço", dsn)
	}

	return go_ora.BuildUrl(host, porta, servico, usuario, senha, nil), nil
}

// usuarioLog identifica a máquina do agente nas linhas de log.
func usuarioLog() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "desconhecido"
	}

	ip := "?"
	if enderecos, err := net.LookupIP(host); err == nil {
		for _, endereco := range enderecos {
			if v4 := endereco.To4(); v4 != nil {
				ip = v4.String()
				break
			}
		}
	}
	return fmt.Sprintf("%s (%s)", host, ip)
}

// truncar corta o texto em max runas, limite das colunas de texto livre.
func truncar(texto string, max int) string {
	runas := []rune(texto)
	if len(runas) <= max {
		return texto
	}
	return string(runas[:max])
}
