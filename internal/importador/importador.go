// Package importador carrega para o banco corporativo arquivos obtidos fora
// do fluxo automático: XMLs e DANFSes baixados manualmente, certificados .pfx
// e planilhas de credenciais municipais.
package importador

import (
	"context"

	"github.com/giorgiootto/go-nfse-agent/internal/lojas"
)

// ArmazemNotas grava documentos fiscais e registra o andamento.
type ArmazemNotas interface {
	ExisteChave(ctx context.Context, chave string) (bool, error)
	GravarNota(ctx context.Context, chave string, xml, pdf []byte) error
	RegistrarLog(ctx context.Context, nivel, origem, mensagem, chave string) error
}

// ArmazemCertificados grava certificados digitais no cadastro.
type ArmazemCertificados interface {
	ExisteCertificado(ctx context.Context, arquivo string) (bool, error)
	GravarCertificado(ctx context.Context, arquivo, info string, conteudo []byte) error
}

// ArmazemLojas grava credenciais de acesso municipal por loja.
type ArmazemLojas interface {
	GravarLoja(ctx context.Context, loja lojas.Loja) error
}

// Contagem acumula o resultado de uma importação.
type Contagem struct {
	Total      int
	Gravados   int
	Existentes int
	Erros      int
}
