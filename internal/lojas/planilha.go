package lojas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LerPlanilha lê as lojas de uma planilha Excel com as colunas codloja,
// usuario e senha. A primeira linha é tratada como cabeçalho quando a
// primeira célula não é numérica. Linhas incompletas ou com código de loja
// inválido são descartadas; a contagem de descartes volta junto com as lojas
// válidas.
func LerPlanilha(caminho string) ([]Loja, int, error) {
	arquivo, err := excelize.OpenFile(caminho)
	if err != nil {
		return nil, 0, fmt.Errorf("lojas: erro ao abrir planilha: %w", err)
	}
	defer arquivo.Close()

	abas := arquivo.GetSheetList()
	if len(abas) == 0 {
		return nil, 0, fmt.Errorf("lojas: planilha sem abas")
	}

	linhas, err := arquivo.GetRows(abas[0])
	if err != nil {
		return nil, 0, fmt.Errorf("lojas: erro ao ler linhas: %w", err)
	}
	if len(linhas) == 0 {
		return nil, 0, fmt.Errorf("lojas: planilha vazia")
	}

	inicio := 0
	if _, err := codigoLoja(celula(linhas[0], 0)); err != nil {
		// Primeira célula não numérica: cabeçalho.
		inicio = 1
	}

	var validas []Loja
	ignoradas := 0
	for _, linha := range linhas[inicio:] {
		if linhaVazia(linha) {
			continue
		}

		codigo, err := codigoLoja(celula(linha, 0))
		if err != nil {
			ignoradas++
			continue
		}

		loja := Loja{
			CodLoja: codigo,
			Usuario: strings.TrimSpace(celula(linha, 1)),
			Senha:   strings.TrimSpace(celula(linha, 2)),
		}
		if loja.Validar() != nil {
			ignoradas++
			continue
		}
		validas = append(validas, loja)
	}

	return validas, ignoradas, nil
}

// codigoLoja aceita valores numéricos vindos do Excel como "12" ou "12.0".
func codigoLoja(texto string) (int, error) {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return 0, fmt.Errorf("lojas: código vazio")
	}
	valor, err := strconv.ParseFloat(texto, 64)
	if err != nil {
		return 0, fmt.Errorf("lojas: código não numérico: %q", texto)
	}
	codigo := int(valor)
	if codigo <= 0 {
		return 0, fmt.Errorf("lojas: código inválido: %q", texto)
	}
	return codigo, nil
}

func celula(linha []string, indice int) string {
	if indice >= len(linha) {
		return ""
	}
	return linha[indice]
}

func linhaVazia(linha []string) bool {
	for _, valor := range linha {
		if strings.TrimSpace(valor) != "" {
			return false
		}
	}
	return true
}
