// Package config carrega as configurações do agente a partir do ambiente
// e de um arquivo .env opcional na raiz do projeto.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// CarregarEnv lê o arquivo .env quando presente. A ausência do arquivo não é
// erro: em produção as variáveis vêm do ambiente do processo.
func CarregarEnv() {
	_ = godotenv.Load()
}

// API agrupa as credenciais da API de notas tomadas.
type API struct {
	TokenSH           string
	CNPJSoftwareHouse string
	CNPJTomador       string
	DiretorioDownload string
}

// CarregarAPI lê as credenciais da API do ambiente. Campos vazios podem ser
// preenchidos depois (o menu interativo pergunta o que faltar); Validar
// confere o resultado final.
func CarregarAPI() API {
	return API{
		TokenSH:           os.Getenv("TOKEN_SH"),
		CNPJSoftwareHouse: os.Getenv("CPF_CNPJ_SOFTWAREHOUSE"),
		CNPJTomador:       os.Getenv("CPF_CNPJ_TOMADOR"),
		DiretorioDownload: comPadrao("DIRETORIO_DOWNLOADS", "./downloads"),
	}
}

func (a API) Validar() error {
	if a.TokenSH == "" {
		return fmt.Errorf("config: TOKEN_SH não definido")
	}
	if a.CNPJSoftwareHouse == "" {
		return fmt.Errorf("config: CPF_CNPJ_SOFTWAREHOUSE não definido")
	}
	if a.CNPJTomador == "" {
		return fmt.Errorf("config: CPF_CNPJ_TOMADOR não definido")
	}
	return nil
}

// Oracle agrupa a conexão com o banco corporativo.
type Oracle struct {
	Usuario string
	Senha   string
	DSN     string
}

func CarregarOracle() (Oracle, error) {
	cfg := Oracle{
		Usuario: os.Getenv("ORACLE_USER"),
		Senha:   os.Getenv("ORACLE_PASSWORD"),
		DSN:     os.Getenv("ORACLE_DSN"),
	}
	if cfg.Usuario == "" || cfg.Senha == "" || cfg.DSN == "" {
		return Oracle{}, fmt.Errorf("config: ORACLE_USER, ORACLE_PASSWORD e ORACLE_DSN são obrigatórios")
	}
	return cfg, nil
}

// SMTP agrupa o envio do e-mail de resumo. O envio é opcional: quando o host
// não está configurado o agente apenas registra o resumo no log.
type SMTP struct {
	Host          string
	Porta         int
	Usuario       string
	Senha         string
	Remetente     string
	Destinatarios []string
}

func CarregarSMTP() SMTP {
	return SMTP{
		Host:          os.Getenv("SMTP_HOST"),
		Porta:         inteiro("SMTP_PORTA", 587),
		Usuario:       os.Getenv("SMTP_USUARIO"),
		Senha:         os.Getenv("SMTP_SENHA"),
		Remetente:     os.Getenv("SMTP_REMETENTE"),
		Destinatarios: lista("SMTP_DESTINATARIOS"),
	}
}

// Configurado informa se há o mínimo para enviar o resumo por e-mail.
func (s SMTP) Configurado() bool {
	return s.Host != "" && s.Remetente != "" && len(s.Destinatarios) > 0
}

// Agente agrupa os parâmetros do agente do portal nacional.
type Agente struct {
	DiasRetroativos   int
	DiretorioDownload string
}

func CarregarAgente() Agente {
	return Agente{
		DiasRetroativos:   inteiro("DIAS_RETROATIVOS", 10),
		DiretorioDownload: comPadrao("DIRETORIO_DOWNLOADS", "./downloads_nfse"),
	}
}

// SenhaCertificado é a senha usada para abrir os arquivos .pfx na importação.
func SenhaCertificado() (string, error) {
	senha := os.Getenv("SENHA_CERTIFICADO")
	if senha == "" {
		return "", fmt.Errorf("config: SENHA_CERTIFICADO não definida")
	}
	return senha, nil
}

func comPadrao(chave, padrao string) string {
	if v := os.Getenv(chave); v != "" {
		return v
	}
	return padrao
}

func inteiro(chave string, padrao int) int {
	v := os.Getenv(chave)
	if v == "" {
		return padrao
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return padrao
	}
	return n
}

func lista(chave string) []string {
	v := os.Getenv(chave)
	if v == "" {
		return nil
	}
	var itens []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			itens = append(itens, item)
		}
	}
	return itens
}
