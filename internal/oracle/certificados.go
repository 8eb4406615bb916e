package oracle

import (
	"context"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"
)

// ExisteCertificado informa se o arquivo .pfx já foi importado.
func (b *Banco) ExisteCertificado(ctx context.Context, arquivo string) (bool, error) {
	var total int
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cert_down_nfse WHERE arquivo = :1`, arquivo).Scan(&total)
	if err != nil {
		return false, fmt.Errorf("oracle: erro ao verificar certificado %s: %w", arquivo, err)
	}
	return total > 0, nil
}

// GravarCertificado insere um certificado digital com o resumo legível dos
// seus dados (empresa, CNPJ e validade) e o conteúdo binário do .pfx.
func (b *Banco) GravarCertificado(ctx context.Context, arquivo, info string, conteudo []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cert_down_nfse (arquivo, info, indsituacao, conteudo)
		 VALUES (:1, :2, :3, :4)`,
		arquivo, truncar(info, 4000), "ATIVO", go_ora.Blob{Data: conteudo})
	if err != nil {
		return fmt.Errorf("oracle: erro ao gravar certificado %s: %w", arquivo, err)
	}
	return nil
}
