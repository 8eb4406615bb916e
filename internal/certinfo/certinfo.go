// Package certinfo extrai de um arquivo .pfx os dados que identificam o
// certificado digital: razão social, CNPJ e validade. Em certificados e-CNPJ
// o CommonName vem no formato "RAZAO SOCIAL:CNPJ".
package certinfo

import (
	"crypto/x509"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

var cnpjRegex = regexp.MustCompile(`\d{14}`)

// Dados resume o certificado para o cadastro corporativo.
type Dados struct {
	Empresa  string
	CNPJ     string
	ExpiraEm time.Time
}

// Ler abre o .pfx com a senha informada e extrai os dados do certificado.
func Ler(caminho, senha string) (*Dados, error) {
	conteudo, err := os.ReadFile(caminho)
	if err != nil {
		return nil, fmt.Errorf("certinfo: erro ao ler arquivo: %w", err)
	}

	_, certificado, _, err := pkcs12.DecodeChain(conteudo, senha)
	if err != nil {
		return nil, fmt.Errorf("certinfo: erro ao abrir %s: %w", caminho, err)
	}
	return DoCertificado(certificado), nil
}

// DoCertificado monta os dados a partir de um certificado já decodificado.
func DoCertificado(certificado *x509.Certificate) *Dados {
	empresa, cnpj := separarCN(certificado.Subject.CommonName)
	if cnpj == "" {
		cnpj = cnpjRegex.FindString(certificado.Subject.SerialNumber)
	}
	return &Dados{
		Empresa:  empresa,
		CNPJ:     cnpj,
		ExpiraEm: certificado.NotAfter,
	}
}

// Info é a descrição gravada na coluna de informações do cadastro.
func (d *Dados) Info() string {
	empresa := d.Empresa
	if empresa == "" {
		empresa = "N/A"
	}
	cnpj := d.CNPJ
	if cnpj == "" {
		cnpj = "N/A"
	}
	return fmt.Sprintf("Empresa: %s | CNPJ: %s | Expira em: %s",
		empresa, cnpj, d.ExpiraEm.Format("02/01/2006"))
}

func separarCN(cn string) (empresa, cnpj string) {
	empresa = strings.TrimSpace(cn)
	antes, depois, ok := strings.Cut(cn, ":")
	if !ok {
		return empresa, ""
	}
	depois = strings.TrimSpace(depois)
	if cnpjRegex.MatchString(depois) {
		return strings.TrimSpace(antes), cnpjRegex.FindString(depois)
	}
	return empresa, ""
}
