package tecnospeed

import (
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Situações possíveis de um protocolo de consulta.
const (
	SituacaoProcessando = "PROCESSANDO"
	SituacaoConcluido   = "CONCLUIDO"
	SituacaoErro        = "ERRO"
)

// Cidade descreve um município homologado e o que ele exige em uma consulta
// de notas tomadas.
type Cidade struct {
	Nome                        string `json:"nome"`
	CodigoIbge                  string `json:"codigoIbge"`
	Padrao                      string `json:"padrao"`
	Certificado                 bool   `json:"certificado"`
	Login                       bool   `json:"login"`
	Senha                       bool   `json:"senha"`
	PrestadorObrigatorioTomadas bool   `json:"prestadorObrigatorioTomadas"`
	TipoComunicacao             string `json:"tipoComunicacao"`
}

// Requisitos resume o que o município exige antes de aceitar uma consulta.
type Requisitos struct {
	Nome                   string
	Padrao                 string
	TipoComunicacao        string
	CertificadoObrigatorio bool
	LoginObrigatorio       bool
	SenhaObrigatoria       bool
	PrestadorObrigatorio   bool
}

// Certificado é um certificado digital já cadastrado na API.
type Certificado struct {
	ID         string `json:"id"`
	Nome       string `json:"nome"`
	Vencimento string `json:"vencimento"`
}

// Consulta descreve uma consulta de notas tomadas a ser criada.
// Prestador é quem emitiu as notas; o tomador (destinatário) é o dono das
// credenciais do cliente e vem da configuração.
type Consulta struct {
	CodigoCidade  string
	PrestadorCNPJ string
	PrestadorIM   string
	TomadorIM     string
	PeriodoDias   int
	Login         string
	Senha         string
}

// Protocolo é o estado de uma consulta assíncrona no vendor.
type Protocolo struct {
	Protocolo    string `json:"protocolo"`
	Situacao     string `json:"situacao"`
	TotalDeNotas int    `json:"totalDeNotas"`
	Mensagem     string `json:"mensagem"`
}

// Nota é uma NFSe retornada pela consulta.
type Nota struct {
	ID     string          `json:"id"`
	Numero string          `json:"numero"`
	Valor  decimal.Decimal `json:"valorServico"`
}

// PaginaNotas é uma página da listagem de notas (até 100 por página).
type PaginaNotas struct {
	Notas         []Nota
	ProximaPagina bool
}

// Resultado agrega o processo completo de uma consulta: criação, espera,
// paginação e download dos XMLs.
type Resultado struct {
	Protocolo  string
	Notas      []Nota
	Baixadas   int
	Existentes int
	Erros      int
	ValorTotal decimal.Decimal
}

// Estruturas de transporte. Toda resposta da API vem embrulhada em um objeto
// {"resposta": ...}; a paginação chega em um bloco "acoes" irmão da resposta.
type respostaCidades struct {
	Resposta []Cidade `json:"resposta"`
}

type respostaCertificado struct {
	Resposta struct {
		ID string `json:"id"`
	} `json:"resposta"`
}

type respostaCertificados struct {
	Resposta []Certificado `json:"resposta"`
}

type respostaProtocolo struct {
	Resposta Protocolo `json:"resposta"`
}

type respostaNotas struct {
	Resposta struct {
		Notas []Nota `json:"notas"`
	} `json:"resposta"`
	Acoes acoesPagina `json:"acoes"`
}

// O vendor sinaliza a próxima página pela simples presença da chave; o valor
// não interessa ao cliente.
type acoesPagina struct {
	ProximaPagina json.RawMessage `json:"proximaPagina"`
}

type pedidoConsulta struct {
	CodigoCidade string          `json:"codigoCidade"`
	Prestador    *parteConsulta  `json:"prestador,omitempty"`
	Destinatario parteConsulta   `json:"destinatario"`
	Periodo      periodoConsulta `json:"periodo"`
}

type parteConsulta struct {
	CpfCnpj            string        `json:"cpfCnpj"`
	InscricaoMunicipal string        `json:"inscricaoMunicipal,omitempty"`
	Autenticacao       *autenticacao `json:"autenticacao,omitempty"`
}

type autenticacao struct {
	Login string `json:"login"`
	Senha string `json:"senha"`
}

type periodoConsulta struct {
	Inicial string `json:"inicial"`
	Final   string `json:"final"`
}
