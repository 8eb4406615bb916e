package certinfo

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

func TestDoCertificadoComCNPJNoCommonName(t *testing.T) {
	cert := &x509.Certificate{
		Subject:  pkix.Name{CommonName: "ACME COMERCIO LTDA:12345678000190"},
		NotAfter: time.Date(2027, 5, 10, 0, 0, 0, 0, time.UTC),
	}

	dados := DoCertificado(cert)
	if dados.Empresa != "ACME COMERCIO LTDA" {
		t.Errorf("empresa = %q", dados.Empresa)
	}
	if dados.CNPJ != "12345678000190" {
		t.Errorf("cnpj = %q", dados.CNPJ)
	}
	if !dados.ExpiraEm.Equal(cert.NotAfter) {
		t.Errorf("expiraEm = %v", dados.ExpiraEm)
	}
}

func TestDoCertificadoSerialNumberComoCNPJ(t *testing.T) {
	cert := &x509.Certificate{
		Subject: pkix.Name{
			CommonName:   "FULANO DE TAL",
			SerialNumber: "98765432000155",
		},
		NotAfter: time.Now(),
	}

	dados := DoCertificado(cert)
	if dados.Empresa != "FULANO DE TAL" {
		t.Errorf("empresa = %q", dados.Empresa)
	}
	if dados.CNPJ != "98765432000155" {
		t.Errorf("cnpj = %q", dados.CNPJ)
	}
}

func TestDoCertificadoSemCNPJ(t *testing.T) {
	cert := &x509.Certificate{
		Subject:  pkix.Name{CommonName: "EMPRESA SEM DOCUMENTO"},
		NotAfter: time.Now(),
	}

	dados := DoCertificado(cert)
	if dados.CNPJ != "" {
		t.Errorf("cnpj = %q, esperado vazio", dados.CNPJ)
	}
}

func TestDoCertificadoDoisPontosSemCNPJ(t *testing.T) {
	cert := &x509.Certificate{
		Subject:  pkix.Name{CommonName: "EMPRESA X: FILIAL CENTRO"},
		NotAfter: time.Now(),
	}

	dados := DoCertificado(cert)
	if dados.Empresa != "EMPRESA X: FILIAL CENTRO" {
		t.Errorf("empresa = %q, o nome inteiro deveria ser preservado", dados.Empresa)
	}
	if dados.CNPJ != "" {
		t.Errorf("cnpj = %q, esperado vazio", dados.CNPJ)
	}
}

func TestInfo(t *testing.T) {
	dados := &Dados{
		Empresa:  "ACME COMERCIO LTDA",
		CNPJ:     "12345678000190",
		ExpiraEm: time.Date(2027, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	esperado := "Empresa: ACME COMERCIO LTDA | CNPJ: 12345678000190 | Expira em: 10/05/2027"
	if info := dados.Info(); info != esperado {
		t.Errorf("Info() = %q", info)
	}

	vazio := &Dados{ExpiraEm: time.Date(2027, 5, 10, 0, 0, 0, 0, time.UTC)}
	esperado = "Empresa: N/A | CNPJ: N/A | Expira em: 10/05/2027"
	if info := vazio.Info(); info != esperado {
		t.Errorf("Info() = %q", info)
	}
}

func TestLerPfx(t *testing.T) {
	chave, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	modelo := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "LOJA TESTE LTDA:11222333000144"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, modelo, modelo, &chave.PublicKey, chave)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	pfx, err := pkcs12.Modern.Encode(chave, cert, nil, "segredo")
	if err != nil {
		t.Fatal(err)
	}
	caminho := filepath.Join(t.TempDir(), "loja.pfx")
	if err := os.WriteFile(caminho, pfx, 0o600); err != nil {
		t.Fatal(err)
	}

	dados, err := Ler(caminho, "segredo")
	if err != nil {
		t.Fatalf("Ler: %v", err)
	}
	if dados.Empresa != "LOJA TESTE LTDA" || dados.CNPJ != "11222333000144" {
		t.Errorf("dados = %+v", dados)
	}
	if dados.ExpiraEm.Format("02/01/2006") != "31/01/2028" {
		t.Errorf("expiraEm = %v", dados.ExpiraEm)
	}

	if _, err := Ler(caminho, "senha-errada"); err == nil {
		t.Error("senha errada deveria falhar")
	}
}
