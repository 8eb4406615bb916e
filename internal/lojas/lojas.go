// Package lojas define as credenciais municipais de cada loja e a leitura da
// planilha usada para carregá-las no banco corporativo.
package lojas

import (
	"fmt"
	"strings"
)

// Loja são as credenciais de acesso de uma loja ao portal nacional.
type Loja struct {
	CodLoja int
	Usuario string
	Senha   string
}

// Validar confere o mínimo para a loja ser processada pelo agente.
func (l Loja) Validar() error {
	if l.CodLoja <= 0 {
		return fmt.Errorf("lojas: código de loja inválido: %d", l.CodLoja)
	}
	if strings.TrimSpace(l.Usuario) == "" {
		return fmt.Errorf("lojas: loja %d sem usuário", l.CodLoja)
	}
	if strings.TrimSpace(l.Senha) == "" {
		return fmt.Errorf("lojas: loja %d sem senha", l.CodLoja)
	}
	return nil
}
