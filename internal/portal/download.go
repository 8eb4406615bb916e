package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Caminhos de download direto do portal, relativos à URL base. O último
// segmento é a chave de acesso da nota.
const (
	caminhoXML = "/Notas/Download/NFSe/"
	caminhoPDF = "/Notas/Download/DANFSe/"
)

type estadoDownload int

const (
	downloadNovo estadoDownload = iota
	downloadJaExistia
	downloadIndisponivel
)

// novoClienteHTTP monta um cliente net/http autenticado com os cookies da
// sessão do navegador. Baixar os arquivos por HTTP direto é muito mais rápido
// do que dirigir o navegador até cada documento.
func novoClienteHTTP(urlBase string, cookies []*network.Cookie) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("portal: erro ao criar o pote de cookies: %w", err)
	}

	u, err := url.Parse(urlBase)
	if err != nil {
		return nil, fmt.Errorf("portal: URL base inválida: %w", err)
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	jar.SetCookies(u, httpCookies)

	return &http.Client{Jar: jar, Timeout: 30 * time.Second}, nil
}

// baixarArquivo baixa um documento da sessão autenticada para o diretório de
// downloads. Arquivo já presente no disco e documento inexistente no portal
// (404) não são erros: o agente roda todo dia sobre o mesmo diretório e nem
// toda nota tem DANFSe.
func (a *Agente) baixarArquivo(ctx context.Context, caminho, nome string, ehPDF bool) (estadoDownload, error) {
	destino := filepath.Join(a.cfg.DiretorioDownload, nome)
	if _, err := os.Stat(destino); err == nil {
		return downloadJaExistia, nil
	}

	if err := a.limitador.Wait(ctx); err != nil {
		return downloadIndisponivel, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.URLBase+caminho, nil)
	if err != nil {
		return downloadIndisponivel, fmt.Errorf("portal: erro ao montar download de %s: %w", nome, err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return downloadIndisponivel, fmt.Errorf("portal: erro ao baixar %s: %w", nome, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		a.logger.Warn().Str("arquivo", nome).Msg("⚠ Documento não disponível no portal")
		return downloadIndisponivel, nil
	case resp.StatusCode != http.StatusOK:
		return downloadIndisponivel, fmt.Errorf("portal: HTTP %d ao baixar %s", resp.StatusCode, nome)
	}

	conteudo, err := io.ReadAll(resp.Body)
	if err != nil {
		return downloadIndisponivel, fmt.Errorf("portal: erro ao ler %s: %w", nome, err)
	}
	if len(conteudo) == 0 {
		return downloadIndisponivel, fmt.Errorf("portal: %s veio vazio", nome)
	}

	if err := os.WriteFile(destino, conteudo, 0o644); err != nil {
		return downloadIndisponivel, fmt.Errorf("portal: erro ao gravar %s: %w", nome, err)
	}

	// O portal devolve páginas de erro com status 200; validar o PDF pega
	// esses casos antes de o arquivo ir para o banco.
	if ehPDF {
		if err := a.validarPDF(destino); err != nil {
			os.Remove(destino)
			return downloadIndisponivel, fmt.Errorf("portal: PDF inválido em %s: %w", nome, err)
		}
	}

	a.logger.Info().Str("arquivo", nome).Int("bytes", len(conteudo)).Msg("✓ Download concluído")
	return downloadNovo, nil
}

func validarPDFComPdfcpu(caminho string) error {
	return api.ValidateFile(caminho, nil)
}
