// Package mailer envia por e-mail o resumo de cada execução do agente.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	mail "github.com/wneessen/go-mail"
)

// Config reúne os dados de conexão SMTP. Usuário e senha são opcionais para
// servidores internos que aceitam envio sem autenticação.
type Config struct {
	Host          string
	Porta         int
	Usuario       string
	Senha         string
	Remetente     string
	Destinatarios []string
	Logger        zerolog.Logger
}

// LinhaLoja é o resultado de uma loja no corpo do e-mail.
type LinhaLoja struct {
	CodLoja     int
	Encontradas int
	Baixadas    int
	Existentes  int
	Erros       int
	Falha       string
}

// Resumo agrega os contadores de uma execução completa.
type Resumo struct {
	Titulo         string
	PeriodoInicial time.Time
	PeriodoFinal   time.Time
	Diretorio      string
	Duracao        time.Duration
	Lojas          []LinhaLoja
	Encontradas    int
	Baixadas       int
	Existentes     int
	Erros          int
	ValorTotal     decimal.Decimal
	ComValor       bool
}

// Assunto monta o título do e-mail com a data e os totais do dia.
func (r *Resumo) Assunto() string {
	return fmt.Sprintf("NFSe %s: %d baixadas, %d erros",
		time.Now().Format("02/01/2006"), r.Baixadas, r.Erros)
}

// Corpo renderiza o texto do e-mail.
func (r *Resumo) Corpo() (string, error) {
	var corpo strings.Builder
	if err := modeloCorpo.Execute(&corpo, r); err != nil {
		return "", fmt.Errorf("mailer: erro ao montar corpo: %w", err)
	}
	return corpo.String(), nil
}

// Enviar dispara o resumo para todos os destinatários configurados.
func Enviar(ctx context.Context, cfg Config, resumo *Resumo) error {
	if cfg.Host == "" || cfg.Remetente == "" || len(cfg.Destinatarios) == 0 {
		return fmt.Errorf("mailer: configuração SMTP incompleta")
	}

	corpo, err := resumo.Corpo()
	if err != nil {
		return err
	}

	mensagem := mail.NewMsg()
	if err := mensagem.From(cfg.Remetente); err != nil {
		return fmt.Errorf("mailer: remetente inválido: %w", err)
	}
	if err := mensagem.To(cfg.Destinatarios...); err != nil {
		return fmt.Errorf("mailer: destinatário inválido: %w", err)
	}
	mensagem.Subject(resumo.Assunto())
	mensagem.SetBodyString(mail.TypeTextPlain, corpo)

	opcoes := []mail.Option{
		mail.WithPort(cfg.Porta),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Usuario != "" {
		opcoes = append(opcoes,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Usuario),
			mail.WithPassword(cfg.Senha),
		)
	}

	cliente, err := mail.NewClient(cfg.Host, opcoes...)
	if err != nil {
		return fmt.Errorf("mailer: erro ao criar cliente SMTP: %w", err)
	}
	if err := cliente.DialAndSendWithContext(ctx, mensagem); err != nil {
		return fmt.Errorf("mailer: erro ao enviar: %w", err)
	}

	cfg.Logger.Info().
		Str("assunto", resumo.Assunto()).
		Strs("destinatarios", cfg.Destinatarios).
		Msg("✓ Resumo enviado por e-mail")
	return nil
}
