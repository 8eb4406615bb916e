package oracle

import (
	"context"
	"fmt"
)

// Níveis aceitos pelo log de processamento.
const (
	NivelInfo  = "INFO"
	NivelAviso = "WARN"
	NivelErro  = "ERROR"
)

// RegistrarLog grava uma linha no log de processamento corporativo. A coluna
// de mensagem aceita até 4000 caracteres e a de usuário até 50; os valores
// são truncados nesses limites antes do insert.
func (b *Banco) RegistrarLog(ctx context.Context, nivel, origem, mensagem, chave string) error {
	var chaveDocumento any
	if chave != "" {
		chaveDocumento = chave
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO adm.log_processamento (nivel, origem, mensagem, chave_documento, usuario)
		 VALUES (:1, :2, :3, :4, :5)`,
		nivel, origem, truncar(mensagem, 4000), chaveDocumento, truncar(b.usuario, 50))
	if err != nil {
		return fmt.Errorf("oracle: erro ao gravar log de processamento: %w", err)
	}
	return nil
}
