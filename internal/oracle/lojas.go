package oracle

import (
	"context"
	"fmt"

	"github.com/giorgiootto/go-nfse-agent/internal/lojas"
)

// BuscarLojasAtivas devolve as credenciais das lojas com situação ATIVO,
// na ordem do código da loja. Linhas incompletas são puladas com aviso.
func (b *Banco) BuscarLojasAtivas(ctx context.Context) ([]lojas.Loja, error) {
	linhas, err := b.db.QueryContext(ctx,
		`SELECT codloja, usuario, senha
		   FROM conf_munic_nfse
		  WHERE indsituacao = 'ATIVO'
		  ORDER BY codloja`)
	if err != nil {
		return nil, fmt.Errorf("oracle: erro ao buscar lojas ativas: %w", err)
	}
	defer linhas.Close()

	var ativas []lojas.Loja
	for linhas.Next() {
		var loja lojas.Loja
		if err := linhas.Scan(&loja.CodLoja, &loja.Usuario, &loja.Senha); err != nil {
			return nil, fmt.Errorf("oracle: erro ao ler loja: %w", err)
		}
		if err := loja.Validar(); err != nil {
			b.logger.Warn().Int("loja", loja.CodLoja).Msg("⚠ Loja com dados incompletos, pulando")
			continue
		}
		ativas = append(ativas, loja)
	}
	if err := linhas.Err(); err != nil {
		return nil, fmt.Errorf("oracle: erro ao percorrer lojas: %w", err)
	}
	return ativas, nil
}

// GravarLoja insere as credenciais de uma loja já com situação ATIVO.
func (b *Banco) GravarLoja(ctx context.Context, loja lojas.Loja) error {
	if err := loja.Validar(); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO conf_munic_nfse (codloja, usuario, senha, indsituacao)
		 VALUES (:1, :2, :3, 'ATIVO')`,
		loja.CodLoja, loja.Usuario, loja.Senha)
	if err != nil {
		return fmt.Errorf("oracle: erro ao gravar loja %d: %w", loja.CodLoja, err)
	}
	return nil
}
