// Package tecnospeed implementa o cliente da API de notas tomadas da
// TecnoSpeed: consulta de cidades homologadas, cadastro de certificados,
// criação de consultas assíncronas, acompanhamento do protocolo e download
// dos XMLs das notas.
package tecnospeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// URLBase é o endereço de produção da API de notas tomadas.
const URLBase = "https://api.nfse.tecnospeed.com.br/v1"

const (
	// IntervaloConsulta é o intervalo entre verificações do protocolo.
	IntervaloConsulta = 30 * time.Second
	// MaxTentativas limita a espera pela conclusão (120 * 30s ≈ 1h).
	MaxTentativas = 120
)

// Config reúne as credenciais e os ajustes do cliente.
type Config struct {
	TokenSH           string
	CNPJSoftwareHouse string
	CNPJTomador       string

	// DiretorioDownload recebe os XMLs baixados. Criado se não existir.
	DiretorioDownload string

	// URLBase permite apontar para outro ambiente. Vazio usa produção.
	URLBase string

	// HTTPClient permite injetar um cliente customizado. Vazio usa um
	// cliente com timeout de 60s.
	HTTPClient *http.Client

	// IntervaloConsulta e MaxTentativas controlam a espera pelo protocolo.
	// Zerados usam os padrões do pacote.
	IntervaloConsulta time.Duration
	MaxTentativas     int

	Logger zerolog.Logger
}

// Client conversa com a API de notas tomadas. Todas as requisições levam as
// credenciais da software house e do tomador nos cabeçalhos.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient valida a configuração e prepara o diretório de download.
func NewClient(cfg Config) (*Client, error) {
	if cfg.TokenSH == "" {
		return nil, fmt.Errorf("tecnospeed: token da software house é obrigatório")
	}
	if cfg.CNPJSoftwareHouse == "" {
		return nil, fmt.Errorf("tecnospeed: CPF/CNPJ da software house é obrigatório")
	}
	if cfg.CNPJTomador == "" {
		return nil, fmt.Errorf("tecnospeed: CPF/CNPJ do tomador é obrigatório")
	}
	if cfg.URLBase == "" {
		cfg.URLBase = URLBase
	}
	if cfg.DiretorioDownload == "" {
		cfg.DiretorioDownload = "./downloads"
	}
	if cfg.IntervaloConsulta <= 0 {
		cfg.IntervaloConsulta = IntervaloConsulta
	}
	if cfg.MaxTentativas <= 0 {
		cfg.MaxTentativas = MaxTentativas
	}
	if err := os.MkdirAll(cfg.DiretorioDownload, 0o755); err != nil {
		return nil, fmt.Errorf("tecnospeed: erro ao criar diretório de download: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{cfg: cfg, httpClient: httpClient, logger: cfg.Logger}, nil
}

// ErroAPI carrega o código HTTP e um trecho do corpo devolvidos pelo vendor,
// para que o operador veja a causa exata (autenticação, não encontrado etc).
type ErroAPI struct {
	Status int
	Corpo  string
}

func (e *ErroAPI) Error() string {
	if e.Corpo == "" {
		return fmt.Sprintf("api nfse: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api nfse: HTTP %d: %s", e.Status, e.Corpo)
}

func (c *Client) novaRequisicao(ctx context.Context, metodo, caminho string, corpo io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, metodo, c.cfg.URLBase+caminho, corpo)
	if err != nil {
		return nil, fmt.Errorf("tecnospeed: erro ao montar requisição: %w", err)
	}
	req.Header.Set("token_sh", c.cfg.TokenSH)
	req.Header.Set("cpfCnpjSoftwareHouse", c.cfg.CNPJSoftwareHouse)
	req.Header.Set("cpfCnpjTomador", c.cfg.CNPJTomador)
	return req, nil
}

// executar envia a requisição e decodifica o corpo JSON em destino quando a
// resposta é 2xx. Qualquer outro código vira *ErroAPI.
func (c *Client) executar(req *http.Request, destino any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tecnospeed: erro na chamada %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return erroDaResposta(resp)
	}
	if destino == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(destino); err != nil {
		return fmt.Errorf("tecnospeed: erro ao decodificar resposta de %s: %w", req.URL.Path, err)
	}
	return nil
}

func erroDaResposta(resp *http.Response) error {
	trecho, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &ErroAPI{Status: resp.StatusCode, Corpo: strings.TrimSpace(string(trecho))}
}
