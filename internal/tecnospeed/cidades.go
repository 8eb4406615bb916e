package tecnospeed

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrCidadeNaoHomologada indica que o código IBGE não consta na lista de
// municípios homologados pelo vendor.
var ErrCidadeNaoHomologada = errors.New("tecnospeed: cidade não homologada")

// ConsultarCidades lista os municípios homologados. O filtro, quando não
// vazio, seleciona por trecho do nome sem diferenciar maiúsculas.
func (c *Client) ConsultarCidades(ctx context.Context, filtro string) ([]Cidade, error) {
	req, err := c.novaRequisicao(ctx, http.MethodGet, "/cidades", nil)
	if err != nil {
		return nil, err
	}

	var corpo respostaCidades
	if err := c.executar(req, &corpo); err != nil {
		return nil, err
	}

	cidades := corpo.Resposta
	if filtro != "" {
		alvo := strings.ToUpper(filtro)
		filtradas := cidades[:0]
		for _, cidade := range cidades {
			if strings.Contains(strings.ToUpper(cidade.Nome), alvo) {
				filtradas = append(filtradas, cidade)
			}
		}
		cidades = filtradas
	}

	c.logger.Info().Int("cidades", len(cidades)).Msg("✓ Cidades homologadas consultadas")
	return cidades, nil
}

// RequisitosCidade devolve o que o município exige antes de uma consulta de
// notas tomadas (prestador, certificado, login e senha municipais).
func (c *Client) RequisitosCidade(ctx context.Context, codigoIbge string) (*Requisitos, error) {
	cidades, err := c.ConsultarCidades(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, cidade := range cidades {
		if cidade.CodigoIbge == codigoIbge {
			return &Requisitos{
				Nome:                   cidade.Nome,
				Padrao:                 cidade.Padrao,
				TipoComunicacao:        cidade.TipoComunicacao,
				CertificadoObrigatorio: cidade.Certificado,
				LoginObrigatorio:       cidade.Login,
				SenhaObrigatoria:       cidade.Senha,
				PrestadorObrigatorio:   cidade.PrestadorObrigatorioTomadas,
			}, nil
		}
	}
	return nil, ErrCidadeNaoHomologada
}
