package importador

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// OrigemImportador identifica no log corporativo as gravações manuais.
const OrigemImportador = "IMPORTADOR"

// ImportarNotas percorre o diretório atrás de pares XML/PDF baixados do
// portal e grava cada nota no banco. O nome do arquivo, sem extensão, é a
// chave de acesso. validarPDF pode ser nil para aceitar qualquer DANFSe.
func ImportarNotas(ctx context.Context, diretorio string, armazem ArmazemNotas, validarPDF func(string) error, logger zerolog.Logger) (*Contagem, error) {
	arquivos, err := filepath.Glob(filepath.Join(diretorio, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("importador: erro ao listar %s: %w", diretorio, err)
	}
	if len(arquivos) == 0 {
		logger.Warn().Str("diretorio", diretorio).Msg("⚠ Nenhum arquivo XML encontrado na pasta")
		return &Contagem{}, nil
	}

	logger.Info().Int("arquivos", len(arquivos)).Msgf("→ Encontrados %d arquivos XML", len(arquivos))

	contagem := &Contagem{Total: len(arquivos)}
	for indice, caminhoXML := range arquivos {
		if err := ctx.Err(); err != nil {
			return contagem, err
		}

		chave := strings.TrimSuffix(filepath.Base(caminhoXML), filepath.Ext(caminhoXML))
		logger.Info().Msgf("[%d/%d] %s", indice+1, contagem.Total, chave)

		existe, err := armazem.ExisteChave(ctx, chave)
		if err != nil {
			logger.Error().Err(err).Str("chave", chave).Msg("✗ Erro ao verificar chave")
			contagem.Erros++
			continue
		}
		if existe {
			logger.Info().Str("chave", chave).Msg("⊘ Já existe")
			contagem.Existentes++
			continue
		}

		if err := gravarNota(ctx, chave, caminhoXML, armazem, validarPDF, logger); err != nil {
			logger.Error().Err(err).Str("chave", chave).Msg("✗ Erro ao gravar")
			registrarLog(ctx, armazem, "ERROR", fmt.Sprintf("Erro ao gravar: %v", err), chave, logger)
			contagem.Erros++
			continue
		}
		contagem.Gravados++
	}

	logger.Info().
		Int("gravados", contagem.Gravados).
		Int("existentes", contagem.Existentes).
		Int("erros", contagem.Erros).
		Msg("✓ Importação concluída")
	registrarLog(ctx, armazem, "INFO",
		fmt.Sprintf("Importação concluída: %d gravados, %d existentes, %d erros",
			contagem.Gravados, contagem.Existentes, contagem.Erros), "", logger)
	return contagem, nil
}

func gravarNota(ctx context.Context, chave, caminhoXML string, armazem ArmazemNotas, validarPDF func(string) error, logger zerolog.Logger) error {
	xml, err := os.ReadFile(caminhoXML)
	if err != nil {
		return fmt.Errorf("erro ao ler XML: %w", err)
	}

	var pdf []byte
	caminhoPDF := strings.TrimSuffix(caminhoXML, filepath.Ext(caminhoXML)) + ".pdf"
	if _, err := os.Stat(caminhoPDF); err == nil {
		if validarPDF != nil {
			if err := validarPDF(caminhoPDF); err != nil {
				logger.Warn().Err(err).Str("arquivo", filepath.Base(caminhoPDF)).
					Msg("⚠ DANFSe inválido, importando somente o XML")
			} else if pdf, err = os.ReadFile(caminhoPDF); err != nil {
				return fmt.Errorf("erro ao ler PDF: %w", err)
			}
		} else if pdf, err = os.ReadFile(caminhoPDF); err != nil {
			return fmt.Errorf("erro ao ler PDF: %w", err)
		}
	} else {
		logger.Warn().Str("arquivo", filepath.Base(caminhoPDF)).Msg("⚠ PDF não encontrado")
	}

	if len(xml) == 0 && len(pdf) == 0 {
		registrarLog(ctx, armazem, "WARN", "Nenhum arquivo disponível", chave, logger)
		return fmt.Errorf("nenhum arquivo disponível para %s", chave)
	}

	if err := armazem.GravarNota(ctx, chave, xml, pdf); err != nil {
		return err
	}
	logger.Info().Str("chave", chave).Msg("✓ Gravado")
	registrarLog(ctx, armazem, "INFO", "NFSe importada com sucesso", chave, logger)
	return nil
}

func registrarLog(ctx context.Context, armazem ArmazemNotas, nivel, mensagem, chave string, logger zerolog.Logger) {
	if err := armazem.RegistrarLog(ctx, nivel, OrigemImportador, mensagem, chave); err != nil {
		logger.Warn().Err(err).Msg("⚠ Falha ao registrar log no banco")
	}
}
