package tecnospeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// ErrTempoEsgotado indica que o vendor não concluiu o processamento dentro do
// limite de tentativas. O protocolo segue válido e pode ser consultado depois.
var ErrTempoEsgotado = errors.New("tecnospeed: tempo esgotado aguardando a conclusão da consulta")

// AdicionarConsulta cria uma consulta assíncrona de notas tomadas e devolve o
// protocolo. Antes de enviar, confere os requisitos do município: prestador
// obrigatório sem CNPJ informado e certificado obrigatório sem certificado
// cadastrado são rejeitados aqui, sem gastar a chamada.
func (c *Client) AdicionarConsulta(ctx context.Context, consulta Consulta) (string, error) {
	if consulta.CodigoCidade == "" {
		return "", fmt.Errorf("tecnospeed: código IBGE da cidade é obrigatório")
	}
	if consulta.PeriodoDias <= 0 {
		consulta.PeriodoDias = 30
	}

	requisitos, err := c.RequisitosCidade(ctx, consulta.CodigoCidade)
	if err != nil && !errors.Is(err, ErrCidadeNaoHomologada) {
		return "", err
	}
	if requisitos != nil {
		if requisitos.PrestadorObrigatorio && consulta.PrestadorCNPJ == "" {
			return "", fmt.Errorf("tecnospeed: o município %s exige o CNPJ do prestador", requisitos.Nome)
		}
		if requisitos.CertificadoObrigatorio {
			certificados, err := c.ListarCertificados(ctx)
			if err != nil {
				return "", err
			}
			if len(certificados) == 0 {
				return "", fmt.Errorf("tecnospeed: o município %s exige certificado digital cadastrado", requisitos.Nome)
			}
		}
	}

	final := time.Now()
	inicial := final.AddDate(0, 0, -consulta.PeriodoDias)

	pedido := pedidoConsulta{
		CodigoCidade: consulta.CodigoCidade,
		Destinatario: parteConsulta{
			CpfCnpj:            c.cfg.CNPJTomador,
			InscricaoMunicipal: consulta.TomadorIM,
		},
		Periodo: periodoConsulta{
			Inicial: inicial.Format("2006-01-02"),
			Final:   final.Format("2006-01-02"),
		},
	}
	if consulta.Login != "" && consulta.Senha != "" {
		pedido.Destinatario.Autenticacao = &autenticacao{Login: consulta.Login, Senha: consulta.Senha}
	}
	if consulta.PrestadorCNPJ != "" {
		pedido.Prestador = &parteConsulta{
			CpfCnpj:            consulta.PrestadorCNPJ,
			InscricaoMunicipal: consulta.PrestadorIM,
		}
	}

	corpo, err := json.Marshal(pedido)
	if err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao montar consulta: %w", err)
	}

	req, err := c.novaRequisicao(ctx, http.MethodPost, "/tomadas", bytes.NewReader(corpo))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resposta respostaProtocolo
	if err := c.executar(req, &resposta); err != nil {
		return "", err
	}

	protocolo := resposta.Resposta.Protocolo
	c.logger.Info().
		Str("protocolo", protocolo).
		Str("periodo", fmt.Sprintf("%s a %s", inicial.Format("02/01/2006"), final.Format("02/01/2006"))).
		Msg("✓ Consulta adicionada")
	return protocolo, nil
}

// ConsultarProtocolo devolve a situação atual de uma consulta.
func (c *Client) ConsultarProtocolo(ctx context.Context, protocolo string) (*Protocolo, error) {
	req, err := c.novaRequisicao(ctx, http.MethodGet, "/tomadas/"+url.PathEscape(protocolo), nil)
	if err != nil {
		return nil, err
	}

	var corpo respostaProtocolo
	if err := c.executar(req, &corpo); err != nil {
		return nil, err
	}
	return &corpo.Resposta, nil
}

// AguardarConclusao consulta o protocolo em intervalos fixos até a situação
// chegar a CONCLUIDO, virar ERRO ou o limite de tentativas estourar. Falhas
// pontuais de rede na verificação não interrompem a espera. O processamento
// do vendor pode levar até uma hora dependendo do município.
func (c *Client) AguardarConclusao(ctx context.Context, protocolo string) (*Protocolo, error) {
	c.logger.Info().
		Str("protocolo", protocolo).
		Dur("intervalo", c.cfg.IntervaloConsulta).
		Msg("⏳ Aguardando processamento do vendor")

	for tentativa := 1; tentativa <= c.cfg.MaxTentativas; tentativa++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.IntervaloConsulta):
		}

		status, err := c.ConsultarProtocolo(ctx, protocolo)
		if err != nil {
			c.logger.Warn().Err(err).Int("tentativa", tentativa).Msg("⚠ Falha ao consultar protocolo")
			continue
		}

		switch status.Situacao {
		case SituacaoConcluido:
			c.logger.Info().Int("totalDeNotas", status.TotalDeNotas).Msg("✓ Processamento concluído")
			return status, nil
		case SituacaoErro:
			return nil, fmt.Errorf("tecnospeed: consulta %s terminou em erro: %s", protocolo, status.Mensagem)
		default:
			c.logger.Info().
				Int("tentativa", tentativa).
				Str("situacao", status.Situacao).
				Msg("… Ainda processando")
		}
	}
	return nil, ErrTempoEsgotado
}

// ConsultarNotas devolve uma página da listagem de notas do protocolo.
// A primeira página é 1; ProximaPagina indica se há mais.
func (c *Client) ConsultarNotas(ctx context.Context, protocolo string, pagina int) (*PaginaNotas, error) {
	caminho := "/tomadas/" + url.PathEscape(protocolo) + "/notas"
	if pagina > 1 {
		caminho += "?pagina=" + strconv.Itoa(pagina)
	}

	req, err := c.novaRequisicao(ctx, http.MethodGet, caminho, nil)
	if err != nil {
		return nil, err
	}

	var corpo respostaNotas
	if err := c.executar(req, &corpo); err != nil {
		return nil, err
	}
	return &PaginaNotas{
		Notas:         corpo.Resposta.Notas,
		ProximaPagina: len(corpo.Acoes.ProximaPagina) > 0,
	}, nil
}

// BaixarXML grava o XML de uma nota no diretório de download e devolve o
// caminho completo do arquivo.
func (c *Client) BaixarXML(ctx context.Context, protocolo, notaID, nomeArquivo string) (string, error) {
	caminho := "/tomadas/" + url.PathEscape(protocolo) + "/notas/" + url.PathEscape(notaID) + "/xml"
	req, err := c.novaRequisicao(ctx, http.MethodGet, caminho, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao baixar XML da nota %s: %w", notaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", erroDaResposta(resp)
	}

	conteudo, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao ler XML da nota %s: %w", notaID, err)
	}

	if nomeArquivo == "" {
		nomeArquivo = fmt.Sprintf("nota_%s.xml", notaID)
	}
	destino := filepath.Join(c.cfg.DiretorioDownload, nomeArquivo)
	if err := os.WriteFile(destino, conteudo, 0o644); err != nil {
		return "", fmt.Errorf("tecnospeed: erro ao gravar %s: %w", nomeArquivo, err)
	}
	return destino, nil
}

// ProcessarConsultaCompleta executa o fluxo inteiro: cria a consulta, espera
// a conclusão, percorre todas as páginas e baixa o XML de cada nota, pulando
// arquivos que já existem no diretório. O resultado agrega os contadores que
// alimentam o e-mail de resumo.
func (c *Client) ProcessarConsultaCompleta(ctx context.Context, consulta Consulta) (*Resultado, error) {
	protocolo, err := c.AdicionarConsulta(ctx, consulta)
	if err != nil {
		return nil, err
	}

	if _, err := c.AguardarConclusao(ctx, protocolo); err != nil {
		return nil, err
	}

	resultado := &Resultado{Protocolo: protocolo}
	for pagina := 1; ; pagina++ {
		pag, err := c.ConsultarNotas(ctx, protocolo, pagina)
		if err != nil {
			c.logger.Warn().Err(err).Int("pagina", pagina).Msg("⚠ Falha ao listar notas, encerrando paginação")
			break
		}
		if len(pag.Notas) == 0 {
			break
		}

		c.logger.Info().Int("pagina", pagina).Int("notas", len(pag.Notas)).Msg("📥 Baixando XMLs da página")
		for _, nota := range pag.Notas {
			resultado.Notas = append(resultado.Notas, nota)
			resultado.ValorTotal = resultado.ValorTotal.Add(nota.Valor)

			nome := nomeArquivoNota(nota)
			if _, err := os.Stat(filepath.Join(c.cfg.DiretorioDownload, nome)); err == nil {
				resultado.Existentes++
				continue
			}
			if _, err := c.BaixarXML(ctx, protocolo, nota.ID, nome); err != nil {
				c.logger.Warn().Err(err).Str("nota", nota.ID).Msg("✗ Erro ao baixar XML")
				resultado.Erros++
				continue
			}
			resultado.Baixadas++
		}

		if !pag.ProximaPagina {
			break
		}
	}

	c.logger.Info().
		Str("protocolo", protocolo).
		Int("encontradas", len(resultado.Notas)).
		Int("baixadas", resultado.Baixadas).
		Int("existentes", resultado.Existentes).
		Int("erros", resultado.Erros).
		Str("diretorio", c.cfg.DiretorioDownload).
		Msg("✓ Processo completo encerrado")
	return resultado, nil
}

func nomeArquivoNota(nota Nota) string {
	numero := nota.Numero
	if numero == "" {
		numero = nota.ID
	}
	return fmt.Sprintf("nota_%s_%s.xml", numero, nota.ID)
}
