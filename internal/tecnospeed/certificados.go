package tecnospeed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// CadastrarCertificado envia um arquivo .pfx e a senha para a API e devolve
// o id do certificado cadastrado.
func (c *Client) CadastrarCertificado(ctx context.Context, caminhoPfx, senha string) (string, error) {
	arquivo, err := os.Open(caminhoPfx)
	if err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao abrir certificado: %w", err)
	}
	defer arquivo.Close()

	var corpo bytes.Buffer
	escritor := multipart.NewWriter(&corpo)

	parte, err := escritor.CreateFormFile("arquivo", filepath.Base(caminhoPfx))
	if err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao montar upload: %w", err)
	}
	if _, err := io.Copy(parte, arquivo); err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao ler certificado: %w", err)
	}
	if err := escritor.WriteField("senha", senha); err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao montar upload: %w", err)
	}
	if err := escritor.Close(); err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao montar upload: %w", err)
	}

	req, err := c.novaRequisicao(ctx, http.MethodPost, "/certificados", &corpo)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", escritor.FormDataContentType())

	var resposta respostaCertificado
	if err := c.executar(req, &resposta); err != nil {
		return "", err
	}

	c.logger.Info().Str("id", resposta.Resposta.ID).Msg("✓ Certificado cadastrado")
	return resposta.Resposta.ID, nil
}

// ListarCertificados devolve os certificados já cadastrados para o tomador.
func (c *Client) ListarCertificados(ctx context.Context) ([]Certificado, error) {
	req, err := c.novaRequisicao(ctx, http.MethodGet, "/certificados", nil)
	if err != nil {
		return nil, err
	}

	var corpo respostaCertificados
	if err := c.executar(req, &corpo); err != nil {
		return nil, err
	}
	return corpo.Resposta, nil
}
