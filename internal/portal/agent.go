// Package portal automatiza o caminho alternativo de captura: o Emissor
// Nacional de NFSe. O agente autentica com usuário e senha, aplica o filtro
// de datas na listagem de notas recebidas, percorre a paginação e baixa XML
// e DANFSe de cada nota por HTTP direto usando os cookies da sessão.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// URLBasePadrao é o endereço de produção do Emissor Nacional.
const URLBasePadrao = "https://www.nfse.gov.br/EmissorNacional"

// Origem identifica o agente nas linhas do log de processamento.
const Origem = "AGENT"

// Armazem persiste notas baixadas e linhas de log. Implementado pelo banco
// corporativo; nulo desliga a persistência e o agente só grava em disco.
type Armazem interface {
	ExisteChave(ctx context.Context, chave string) (bool, error)
	GravarNota(ctx context.Context, chave string, xml, pdf []byte) error
	RegistrarLog(ctx context.Context, nivel, origem, mensagem, chave string) error
}

// Config reúne credenciais e ajustes de uma execução do agente.
type Config struct {
	Usuario string
	Senha   string
	CodLoja int

	// DiasRetroativos define o início do filtro de datas (hoje - N dias).
	DiasRetroativos int

	// DiretorioDownload recebe os XMLs e PDFs. Criado se não existir.
	DiretorioDownload string

	// URLBase permite apontar para outro ambiente. Vazio usa produção.
	URLBase string

	// Visivel abre o navegador com janela, útil para depurar o fluxo.
	Visivel bool

	// TimeoutSessao limita a sessão inteira de navegação de uma loja.
	TimeoutSessao time.Duration

	// RitmoDownload espaça os downloads diretos para não castigar o portal.
	RitmoDownload rate.Limit

	// Armazem liga a persistência no banco corporativo. Opcional.
	Armazem Armazem

	// ValidadorPDF confere os PDFs baixados. Vazio usa o pdfcpu.
	ValidadorPDF func(caminho string) error

	Logger zerolog.Logger
}

// Agente executa a captura de notas de uma loja no portal.
type Agente struct {
	cfg        Config
	logger     zerolog.Logger
	limitador  *rate.Limiter
	httpClient *http.Client
	validarPDF func(string) error
}

// ResumoLoja agrega os contadores de uma execução.
type ResumoLoja struct {
	CodLoja     int
	Paginas     int
	Encontradas int
	Baixadas    int
	Existentes  int
	Erros       int
	Falha       string
}

// NewAgente valida a configuração e prepara o diretório de download.
func NewAgente(cfg Config) (*Agente, error) {
	if cfg.Usuario == "" || cfg.Senha == "" {
		return nil, fmt.Errorf("portal: usuário e senha são obrigatórios")
	}
	if cfg.URLBase == "" {
		cfg.URLBase = URLBasePadrao
	}
	cfg.URLBase = strings.TrimSuffix(cfg.URLBase, "/")
	if cfg.DiretorioDownload == "" {
		cfg.DiretorioDownload = "./downloads_nfse"
	}
	if cfg.DiasRetroativos <= 0 {
		cfg.DiasRetroativos = 10
	}
	if cfg.TimeoutSessao <= 0 {
		cfg.TimeoutSessao = 30 * time.Minute
	}
	if cfg.RitmoDownload <= 0 {
		cfg.RitmoDownload = rate.Every(500 * time.Millisecond)
	}
	if err := os.MkdirAll(cfg.DiretorioDownload, 0o755); err != nil {
		return nil, fmt.Errorf("portal: erro ao criar diretório de download: %w", err)
	}

	validar := cfg.ValidadorPDF
	if validar == nil {
		validar = validarPDFComPdfcpu
	}

	return &Agente{
		cfg:        cfg,
		logger:     cfg.Logger.With().Int("loja", cfg.CodLoja).Logger(),
		limitador:  rate.NewLimiter(cfg.RitmoDownload, 1),
		validarPDF: validar,
	}, nil
}

// Executar roda a captura completa da loja: login, filtro de datas, varredura
// das páginas e download dos documentos. Os erros por nota não interrompem a
// varredura; só falhas de login e navegação encerram a execução.
func (a *Agente) Executar(ctx context.Context) (*ResumoLoja, error) {
	resumo := &ResumoLoja{CodLoja: a.cfg.CodLoja}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !a.cfg.Visivel),
		chromedp.WindowSize(1366, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	navCtx, cancelNav := chromedp.NewContext(allocCtx)
	defer cancelNav()

	navCtx, cancelTimeout := context.WithTimeout(navCtx, a.cfg.TimeoutSessao)
	defer cancelTimeout()

	if err := a.login(navCtx); err != nil {
		resumo.Falha = err.Error()
		a.registrarLog(ctx, "ERROR", fmt.Sprintf("Falha no login: %v", err), "")
		return resumo, err
	}

	html, urlAtual, err := a.abrirNotasRecebidas(navCtx)
	if err != nil {
		resumo.Falha = err.Error()
		a.registrarLog(ctx, "ERROR", fmt.Sprintf("Falha ao abrir notas recebidas: %v", err), "")
		return resumo, err
	}

	var chavesAnteriores []string
	for pagina := 1; ; pagina++ {
		chaves, err := ExtrairChaves(html)
		if err != nil {
			resumo.Falha = err.Error()
			return resumo, err
		}
		if len(chaves) == 0 {
			a.logger.Info().Int("pagina", pagina).Msg("⚠ Nenhuma nota nesta página")
			break
		}
		if mesmoConjunto(chaves, chavesAnteriores) {
			a.logger.Warn().Int("pagina", pagina).Msg("⚠ Paginação em loop, mesmas notas da página anterior")
			break
		}
		chavesAnteriores = chaves

		resumo.Paginas++
		a.logger.Info().Int("pagina", pagina).Int("notas", len(chaves)).Msg("→ Processando página")

		for _, chave := range chaves {
			if ctx.Err() != nil {
				resumo.Falha = ctx.Err().Error()
				return resumo, ctx.Err()
			}
			resumo.Encontradas++
			a.processarChave(ctx, chave, resumo)
		}

		proxima, ok := ProximaPagina(html, urlAtual)
		if !ok {
			a.logger.Info().Msg("✓ Não há mais páginas")
			break
		}
		html, urlAtual, err = a.renderizar(navCtx, proxima)
		if err != nil {
			a.logger.Warn().Err(err).Msg("⚠ Falha ao carregar a próxima página, encerrando")
			break
		}
	}

	a.logger.Info().
		Int("paginas", resumo.Paginas).
		Int("encontradas", resumo.Encontradas).
		Int("baixadas", resumo.Baixadas).
		Int("existentes", resumo.Existentes).
		Int("erros", resumo.Erros).
		Msg("✓ Loja processada")
	return resumo, nil
}

func (a *Agente) login(ctx context.Context) error {
	a.logger.Info().Str("usuario", a.cfg.Usuario).Msg("→ Acessando o portal e autenticando")

	var urlFinal string
	err := chromedp.Run(ctx,
		chromedp.Navigate(a.cfg.URLBase+"/Login"),
		chromedp.WaitVisible(`#Inscricao`, chromedp.ByQuery),
		chromedp.SendKeys(`#Inscricao`, a.cfg.Usuario, chromedp.ByQuery),
		chromedp.SendKeys(`#Senha`, a.cfg.Senha, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(5*time.Second),
		chromedp.Location(&urlFinal),
	)
	if err != nil {
		return fmt.Errorf("portal: erro durante o login: %w", err)
	}

	if strings.Contains(urlFinal, "/Login") {
		var msgErro string
		_ = chromedp.Run(ctx,
			chromedp.Text(`.alert-danger, .validation-summary-errors`, &msgErro, chromedp.ByQuery, chromedp.AtLeast(0)),
		)
		if msgErro = strings.TrimSpace(msgErro); msgErro != "" {
			return fmt.Errorf("portal: login recusado: %s", msgErro)
		}
		return fmt.Errorf("portal: login não confirmado, ainda na página de login")
	}

	a.logger.Info().Msg("✓ Login realizado")
	return nil
}

// abrirNotasRecebidas navega até a listagem, aplica o filtro de datas e
// devolve o HTML da primeira página. Os cookies da sessão autenticada são
// capturados aqui e entregues ao cliente HTTP dos downloads diretos.
func (a *Agente) abrirNotasRecebidas(ctx context.Context) (html, urlAtual string, err error) {
	inicial := time.Now().AddDate(0, 0, -a.cfg.DiasRetroativos).Format("02/01/2006")
	final := time.Now().Format("02/01/2006")
	a.logger.Info().Str("de", inicial).Str("ate", final).Msg("→ Aplicando filtro de datas")

	var cookies []*network.Cookie
	err = chromedp.Run(ctx,
		chromedp.Navigate(a.cfg.URLBase+"/Notas/Recebidas"),
		chromedp.WaitVisible(`#datainicio`, chromedp.ByQuery),
		chromedp.SetValue(`#datainicio`, inicial, chromedp.ByQuery),
		chromedp.SetValue(`#datafim`, final, chromedp.ByQuery),
		chromedp.Submit(`#datainicio`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
		chromedp.Location(&urlAtual),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", "", fmt.Errorf("portal: erro ao abrir notas recebidas: %w", err)
	}

	a.httpClient, err = novoClienteHTTP(a.cfg.URLBase, cookies)
	if err != nil {
		return "", "", err
	}
	return html, urlAtual, nil
}

func (a *Agente) renderizar(ctx context.Context, urlPagina string) (html, urlAtual string, err error) {
	err = chromedp.Run(ctx,
		chromedp.Navigate(urlPagina),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
		chromedp.Location(&urlAtual),
	)
	if err != nil {
		return "", "", fmt.Errorf("portal: erro ao renderizar %s: %w", urlPagina, err)
	}
	return html, urlAtual, nil
}

// processarChave baixa XML e DANFSe de uma nota e, quando algo novo chegou,
// grava no banco corporativo. Erros só afetam a nota corrente.
func (a *Agente) processarChave(ctx context.Context, chave string, resumo *ResumoLoja) {
	estadoXML, errXML := a.baixarArquivo(ctx, caminhoXML+chave, chave+".xml", false)
	estadoPDF, errPDF := a.baixarArquivo(ctx, caminhoPDF+chave, chave+".pdf", true)

	if errXML != nil || errPDF != nil {
		resumo.Erros++
		for _, err := range []error{errXML, errPDF} {
			if err != nil {
				a.logger.Error().Err(err).Str("chave", chave).Msg("✗ Erro ao baixar nota")
				a.registrarLog(ctx, "ERROR", fmt.Sprintf("Erro ao baixar: %v", err), chave)
			}
		}
		return
	}

	switch {
	case estadoXML == downloadNovo || estadoPDF == downloadNovo:
		resumo.Baixadas++
		a.persistir(ctx, chave)
	case estadoXML == downloadJaExistia || estadoPDF == downloadJaExistia:
		resumo.Existentes++
	default:
		a.logger.Warn().Str("chave", chave).Msg("⚠ Nota sem XML e sem DANFSe no portal")
	}
}

func (a *Agente) persistir(ctx context.Context, chave string) {
	if a.cfg.Armazem == nil {
		return
	}

	existe, err := a.cfg.Armazem.ExisteChave(ctx, chave)
	if err != nil {
		a.logger.Error().Err(err).Str("chave", chave).Msg("✗ Erro ao verificar nota no banco")
		a.registrarLog(ctx, "ERROR", fmt.Sprintf("Erro verificar existência: %v", err), chave)
		return
	}
	if existe {
		a.logger.Info().Str("chave", chave).Msg("⊘ Já existe no banco")
		return
	}

	xml, _ := os.ReadFile(filepath.Join(a.cfg.DiretorioDownload, chave+".xml"))
	pdf, _ := os.ReadFile(filepath.Join(a.cfg.DiretorioDownload, chave+".pdf"))
	if len(xml) == 0 && len(pdf) == 0 {
		a.registrarLog(ctx, "WARN", "Nenhum arquivo para gravar", chave)
		return
	}

	if err := a.cfg.Armazem.GravarNota(ctx, chave, xml, pdf); err != nil {
		a.logger.Error().Err(err).Str("chave", chave).Msg("✗ Erro ao gravar no banco")
		a.registrarLog(ctx, "ERROR", fmt.Sprintf("Erro ao gravar: %v", err), chave)
		return
	}

	a.logger.Info().Str("chave", chave).Msg("✓ Gravada no banco")
	a.registrarLog(ctx, "INFO", "NFSe gravada com sucesso", chave)
}

func (a *Agente) registrarLog(ctx context.Context, nivel, mensagem, chave string) {
	if a.cfg.Armazem == nil {
		return
	}
	if err := a.cfg.Armazem.RegistrarLog(ctx, nivel, Origem, mensagem, chave); err != nil {
		a.logger.Warn().Err(err).Msg("⚠ Erro ao gravar log de processamento")
	}
}
