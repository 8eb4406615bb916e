package oracle

import (
	"context"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"
)

// ExisteChave informa se a nota já foi gravada em alguma execução anterior.
func (b *Banco) ExisteChave(ctx context.Context, chave string) (bool, error) {
	var total int
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM down_nfse WHERE chave = :1`, chave).Scan(&total)
	if err != nil {
		return false, fmt.Errorf("oracle: erro ao verificar chave %s: %w", chave, err)
	}
	return total > 0, nil
}

// GravarNota insere o XML e o DANFSe de uma nota. A situação nasce zerada
// para o ERP processar depois; a origem marca que a linha veio do agente.
func (b *Banco) GravarNota(ctx context.Context, chave string, xml, pdf []byte) error {
	var docXML, docBlob any
	if len(xml) > 0 {
		docXML = go_ora.Clob{String: string(xml)}
	}
	if len(pdf) > 0 {
		docBlob = go_ora.Blob{Data: pdf}
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO down_nfse (docxml, docblob, origem, situacao, chave)
		 VALUES (:1, :2, :3, :4, :5)`,
		docXML, docBlob, "AGENT", 0, chave)
	if err != nil {
		return fmt.Errorf("oracle: erro ao gravar nota %s: %w", chave, err)
	}
	return nil
}
