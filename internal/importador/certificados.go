package importador

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/certinfo"
)

// ImportarCertificados grava no banco todos os .pfx do diretório. A senha é
// usada apenas para abrir cada arquivo e extrair razão social, CNPJ e
// validade; o conteúdo gravado são os bytes do arquivo, sem alteração.
func ImportarCertificados(ctx context.Context, diretorio, senha string, armazem ArmazemCertificados, logger zerolog.Logger) (*Contagem, error) {
	arquivos, err := filepath.Glob(filepath.Join(diretorio, "*.pfx"))
	if err != nil {
		return nil, fmt.Errorf("importador: erro ao listar %s: %w", diretorio, err)
	}
	if len(arquivos) == 0 {
		logger.Warn().Str("diretorio", diretorio).Msg("⚠ Nenhum arquivo .pfx encontrado na pasta")
		return &Contagem{}, nil
	}

	logger.Info().Int("certificados", len(arquivos)).Msgf("→ Encontrados %d certificados", len(arquivos))

	contagem := &Contagem{Total: len(arquivos)}
	for indice, caminho := range arquivos {
		if err := ctx.Err(); err != nil {
			return contagem, err
		}

		arquivo := filepath.Base(caminho)
		logger.Info().Msgf("[%d/%d] %s", indice+1, contagem.Total, arquivo)

		dados, err := certinfo.Ler(caminho, senha)
		if err != nil {
			logger.Error().Err(err).Str("arquivo", arquivo).Msg("✗ Não foi possível extrair informações")
			contagem.Erros++
			continue
		}
		logger.Info().
			Str("empresa", dados.Empresa).
			Str("cnpj", dados.CNPJ).
			Str("expira", dados.ExpiraEm.Format("02/01/2006")).
			Msg("→ Certificado lido")

		existe, err := armazem.ExisteCertificado(ctx, arquivo)
		if err != nil {
			logger.Error().Err(err).Str("arquivo", arquivo).Msg("✗ Erro ao verificar certificado")
			contagem.Erros++
			continue
		}
		if existe {
			logger.Info().Str("arquivo", arquivo).Msg("⊘ Já existe")
			contagem.Existentes++
			continue
		}

		conteudo, err := os.ReadFile(caminho)
		if err != nil {
			logger.Error().Err(err).Str("arquivo", arquivo).Msg("✗ Erro ao ler arquivo")
			contagem.Erros++
			continue
		}
		if err := armazem.GravarCertificado(ctx, arquivo, dados.Info(), conteudo); err != nil {
			logger.Error().Err(err).Str("arquivo", arquivo).Msg("✗ Erro ao gravar")
			contagem.Erros++
			continue
		}
		logger.Info().Str("arquivo", arquivo).Msg("✓ Gravado")
		contagem.Gravados++
	}

	logger.Info().
		Int("gravados", contagem.Gravados).
		Int("existentes", contagem.Existentes).
		Int("erros", contagem.Erros).
		Msg("✓ Importação de certificados concluída")
	return contagem, nil
}
