package portal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/giorgiootto/go-nfse-agent/internal/lojas"
)

// Runner processa as lojas ativas uma a uma, cada qual com sua própria sessão
// de navegador, e agrega os contadores para o resumo final.
type Runner struct {
	Lojas             []lojas.Loja
	DiasRetroativos   int
	DiretorioDownload string
	Visivel           bool
	Armazem           Armazem
	RitmoDownload     rate.Limit

	// PausaEntreLojas dá uma folga ao portal entre uma sessão e outra.
	// Zerada usa 5 segundos.
	PausaEntreLojas time.Duration

	Logger zerolog.Logger
}

// Resumo agrega a execução de todas as lojas.
type Resumo struct {
	Lojas  []ResumoLoja
	Inicio time.Time
	Fim    time.Time
}

// Totais soma os contadores de todas as lojas.
func (r *Resumo) Totais() (encontradas, baixadas, existentes, erros int) {
	for _, loja := range r.Lojas {
		encontradas += loja.Encontradas
		baixadas += loja.Baixadas
		existentes += loja.Existentes
		erros += loja.Erros
	}
	return
}

// Duracao é o tempo total da varredura.
func (r *Resumo) Duracao() time.Duration {
	return r.Fim.Sub(r.Inicio)
}

// Executar processa as lojas em sequência. Falha em uma loja não derruba as
// demais; apenas o cancelamento do contexto interrompe a varredura.
func (r *Runner) Executar(ctx context.Context) (*Resumo, error) {
	pausa := r.PausaEntreLojas
	if pausa <= 0 {
		pausa = 5 * time.Second
	}

	resumo := &Resumo{Inicio: time.Now()}
	total := len(r.Lojas)
	r.Logger.Info().Int("lojas", total).Msg("→ Iniciando varredura das lojas")

	for i, loja := range r.Lojas {
		r.Logger.Info().
			Int("loja", loja.CodLoja).
			Str("usuario", loja.Usuario).
			Msgf("→ Processando loja %d/%d", i+1, total)

		agente, err := NewAgente(Config{
			Usuario:           loja.Usuario,
			Senha:             loja.Senha,
			CodLoja:           loja.CodLoja,
			DiasRetroativos:   r.DiasRetroativos,
			DiretorioDownload: r.DiretorioDownload,
			Visivel:           r.Visivel,
			RitmoDownload:     r.RitmoDownload,
			Armazem:           r.Armazem,
			Logger:            r.Logger,
		})
		if err != nil {
			r.Logger.Error().Err(err).Int("loja", loja.CodLoja).Msg("✗ Erro ao preparar agente da loja")
			resumo.Lojas = append(resumo.Lojas, ResumoLoja{CodLoja: loja.CodLoja, Falha: err.Error()})
			continue
		}

		resumoLoja, err := agente.Executar(ctx)
		if resumoLoja != nil {
			resumo.Lojas = append(resumo.Lojas, *resumoLoja)
		}
		if err != nil {
			if ctx.Err() != nil {
				resumo.Fim = time.Now()
				return resumo, ctx.Err()
			}
			r.Logger.Error().Err(err).Int("loja", loja.CodLoja).Msg("✗ Loja terminou com falha")
		}

		if i < total-1 {
			select {
			case <-ctx.Done():
				resumo.Fim = time.Now()
				return resumo, ctx.Err()
			case <-time.After(pausa):
			}
		}
	}

	resumo.Fim = time.Now()
	encontradas, baixadas, existentes, erros := resumo.Totais()
	r.Logger.Info().
		Int("lojas", total).
		Int("encontradas", encontradas).
		Int("baixadas", baixadas).
		Int("existentes", existentes).
		Int("erros", erros).
		Msg("✓ Varredura encerrada")
	return resumo, nil
}
