package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func resumoDeTeste() *Resumo {
	return &Resumo{
		Titulo:         "Agente NFSe - Portal Emissor Nacional",
		PeriodoInicial: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		PeriodoFinal:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Diretorio:      "./downloads_nfse",
		Duracao:        92*time.Second + 400*time.Millisecond,
		Lojas: []LinhaLoja{
			{CodLoja: 1, Encontradas: 12, Baixadas: 10, Existentes: 2},
			{CodLoja: 2, Falha: "login recusado"},
		},
		Encontradas: 12,
		Baixadas:    10,
		Existentes:  2,
		Erros:       1,
	}
}

func TestCorpo(t *testing.T) {
	corpo, err := resumoDeTeste().Corpo()
	if err != nil {
		t.Fatalf("Corpo: %v", err)
	}

	esperados := []string{
		"Agente NFSe - Portal Emissor Nacional",
		"Período consultado: 10/08/2026 a 20/08/2026",
		"Diretório de download: ./downloads_nfse",
		"Duração: 1m32s",
		"Loja 1: 12 encontradas, 10 baixadas, 2 já existiam, 0 erros",
		"Loja 2: FALHA (login recusado)",
		"Notas encontradas: 12",
		"Baixadas: 10",
		"Já existentes: 2",
		"Erros: 1",
	}
	for _, trecho := range esperados {
		if !strings.Contains(corpo, trecho) {
			t.Errorf("corpo não contém %q:\n%s", trecho, corpo)
		}
	}
	if strings.Contains(corpo, "Valor total") {
		t.Error("sem ComValor o corpo não deveria citar valor")
	}
}

func TestCorpoComValorTotal(t *testing.T) {
	resumo := resumoDeTeste()
	resumo.Lojas = nil
	resumo.ValorTotal = decimal.RequireFromString("150.75")
	resumo.ComValor = true

	corpo, err := resumo.Corpo()
	if err != nil {
		t.Fatalf("Corpo: %v", err)
	}
	if !strings.Contains(corpo, "Valor total dos serviços: R$ 150.75") {
		t.Errorf("corpo = %s", corpo)
	}
	if strings.Contains(corpo, "Resultado por loja") {
		t.Error("sem lojas o corpo não deveria trazer a seção por loja")
	}
}

func TestAssunto(t *testing.T) {
	assunto := resumoDeTeste().Assunto()
	if !strings.Contains(assunto, "10 baixadas") || !strings.Contains(assunto, "1 erros") {
		t.Errorf("assunto = %q", assunto)
	}
	if !strings.Contains(assunto, time.Now().Format("02/01/2006")) {
		t.Errorf("assunto sem a data de hoje: %q", assunto)
	}
}

func TestEnviarConfiguracaoIncompleta(t *testing.T) {
	err := Enviar(context.Background(), Config{}, resumoDeTeste())
	if err == nil || !strings.Contains(err.Error(), "incompleta") {
		t.Fatalf("erro = %v", err)
	}
}
