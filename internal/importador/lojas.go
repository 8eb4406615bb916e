package importador

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/lojas"
)

// ImportarLojas lê a planilha de credenciais municipais e grava cada loja no
// banco. Linhas incompletas já vêm filtradas pela leitura da planilha.
func ImportarLojas(ctx context.Context, caminhoPlanilha string, armazem ArmazemLojas, logger zerolog.Logger) (*Contagem, error) {
	registros, ignoradas, err := lojas.LerPlanilha(caminhoPlanilha)
	if err != nil {
		return nil, fmt.Errorf("importador: %w", err)
	}
	if ignoradas > 0 {
		logger.Warn().Int("linhas", ignoradas).Msgf("⚠ %d linhas ignoradas por dados incompletos", ignoradas)
	}
	if len(registros) == 0 {
		logger.Warn().Str("planilha", caminhoPlanilha).Msg("⚠ Nenhuma loja válida na planilha")
		return &Contagem{}, nil
	}

	logger.Info().Int("lojas", len(registros)).Msgf("→ Encontradas %d lojas na planilha", len(registros))

	contagem := &Contagem{Total: len(registros)}
	for indice, loja := range registros {
		if err := ctx.Err(); err != nil {
			return contagem, err
		}

		logger.Info().Msgf("[%d/%d] Loja %d", indice+1, contagem.Total, loja.CodLoja)
		if err := armazem.GravarLoja(ctx, loja); err != nil {
			logger.Error().Err(err).Int("loja", loja.CodLoja).Msg("✗ Erro ao gravar")
			contagem.Erros++
			continue
		}
		logger.Info().Int("loja", loja.CodLoja).Msg("✓ Gravada")
		contagem.Gravados++
	}

	logger.Info().
		Int("gravadas", contagem.Gravados).
		Int("erros", contagem.Erros).
		Msg("✓ Importação de lojas concluída")
	return contagem, nil
}
