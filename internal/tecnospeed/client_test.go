package tecnospeed_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/giorgiootto/go-nfse-agent/internal/tecnospeed"
)

const (
	tokenTeste   = "token-de-teste"
	cnpjSH       = "11111111000111"
	cnpjTomador  = "22222222000122"
	cidadesDuas  = `{"resposta":[{"nome":"Guarapuava","codigoIbge":"4109401","padrao":"NACIONAL"},{"nome":"Curitiba","codigoIbge":"4106902","padrao":"PROPRIO","prestadorObrigatorioTomadas":true}]}`
	cidadesVazia = `{"resposta":[]}`
)

// novoServidorFake embrulha o mux conferindo que toda requisição carrega as
// credenciais nos cabeçalhos.
func novoServidorFake(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	servidor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("token_sh") != tokenTeste {
			t.Errorf("token_sh = %q, esperado %q", r.Header.Get("token_sh"), tokenTeste)
		}
		if r.Header.Get("cpfCnpjSoftwareHouse") != cnpjSH {
			t.Errorf("cpfCnpjSoftwareHouse = %q, esperado %q", r.Header.Get("cpfCnpjSoftwareHouse"), cnpjSH)
		}
		if r.Header.Get("cpfCnpjTomador") != cnpjTomador {
			t.Errorf("cpfCnpjTomador = %q, esperado %q", r.Header.Get("cpfCnpjTomador"), cnpjTomador)
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(servidor.Close)
	return servidor
}

func novoCliente(t *testing.T, servidor *httptest.Server, diretorio string) *tecnospeed.Client {
	t.Helper()
	cliente, err := tecnospeed.NewClient(tecnospeed.Config{
		TokenSH:           tokenTeste,
		CNPJSoftwareHouse: cnpjSH,
		CNPJTomador:       cnpjTomador,
		DiretorioDownload: diretorio,
		URLBase:           servidor.URL,
		HTTPClient:        servidor.Client(),
		IntervaloConsulta: time.Millisecond,
		MaxTentativas:     5,
		Logger:            zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return cliente
}

func TestNewClientExigeCredenciais(t *testing.T) {
	_, err := tecnospeed.NewClient(tecnospeed.Config{})
	if err == nil {
		t.Fatal("esperado erro sem credenciais")
	}
}

func TestConsultarCidadesFiltraPorNome(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesDuas)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	cidades, err := cliente.ConsultarCidades(context.Background(), "guara")
	if err != nil {
		t.Fatalf("ConsultarCidades: %v", err)
	}
	if len(cidades) != 1 || cidades[0].Nome != "Guarapuava" {
		t.Fatalf("filtro devolveu %+v, esperada apenas Guarapuava", cidades)
	}
}

func TestRequisitosCidade(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesDuas)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	requisitos, err := cliente.RequisitosCidade(context.Background(), "4106902")
	if err != nil {
		t.Fatalf("RequisitosCidade: %v", err)
	}
	if requisitos.Nome != "Curitiba" || !requisitos.PrestadorObrigatorio {
		t.Fatalf("requisitos = %+v, esperado prestador obrigatório em Curitiba", requisitos)
	}

	if _, err := cliente.RequisitosCidade(context.Background(), "9999999"); !errors.Is(err, tecnospeed.ErrCidadeNaoHomologada) {
		t.Fatalf("erro = %v, esperado ErrCidadeNaoHomologada", err)
	}
}

func TestCadastrarCertificadoEnviaMultipart(t *testing.T) {
	caminho := filepath.Join(t.TempDir(), "loja.pfx")
	if err := os.WriteFile(caminho, []byte("conteudo-pfx"), 0o600); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/certificados", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("método = %s, esperado POST", r.Method)
		}
		arquivo, cabecalho, err := r.FormFile("arquivo")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer arquivo.Close()
		if cabecalho.Filename != "loja.pfx" {
			t.Errorf("nome do arquivo = %q, esperado loja.pfx", cabecalho.Filename)
		}
		conteudo, _ := io.ReadAll(arquivo)
		if string(conteudo) != "conteudo-pfx" {
			t.Errorf("conteúdo do arquivo = %q", conteudo)
		}
		if r.FormValue("senha") != "segredo" {
			t.Errorf("senha = %q, esperado segredo", r.FormValue("senha"))
		}
		fmt.Fprint(w, `{"resposta":{"id":"cert-123"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	id, err := cliente.CadastrarCertificado(context.Background(), caminho, "segredo")
	if err != nil {
		t.Fatalf("CadastrarCertificado: %v", err)
	}
	if id != "cert-123" {
		t.Fatalf("id = %q, esperado cert-123", id)
	}
}

func TestAdicionarConsultaMontaPedido(t *testing.T) {
	var pedido map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesDuas)
	})
	mux.HandleFunc("/tomadas", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&pedido); err != nil {
			t.Errorf("decodificando pedido: %v", err)
		}
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	protocolo, err := cliente.AdicionarConsulta(context.Background(), tecnospeed.Consulta{
		CodigoCidade: "4109401",
		PeriodoDias:  15,
	})
	if err != nil {
		t.Fatalf("AdicionarConsulta: %v", err)
	}
	if protocolo != "PROT-1" {
		t.Fatalf("protocolo = %q, esperado PROT-1", protocolo)
	}

	if pedido["codigoCidade"] != "4109401" {
		t.Errorf("codigoCidade = %v", pedido["codigoCidade"])
	}
	if _, temPrestador := pedido["prestador"]; temPrestador {
		t.Error("prestador não deveria ir no pedido quando o CNPJ não foi informado")
	}
	destinatario, _ := pedido["destinatario"].(map[string]any)
	if destinatario["cpfCnpj"] != cnpjTomador {
		t.Errorf("destinatario.cpfCnpj = %v, esperado %s", destinatario["cpfCnpj"], cnpjTomador)
	}

	periodo, _ := pedido["periodo"].(map[string]any)
	inicial, _ := time.Parse("2006-01-02", periodo["inicial"].(string))
	final, _ := time.Parse("2006-01-02", periodo["final"].(string))
	if dias := int(final.Sub(inicial).Hours() / 24); dias != 15 {
		t.Errorf("período de %d dias, esperado 15 (%v a %v)", dias, periodo["inicial"], periodo["final"])
	}
}

func TestAdicionarConsultaExigePrestador(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesDuas)
	})
	mux.HandleFunc("/tomadas", func(w http.ResponseWriter, r *http.Request) {
		t.Error("a consulta não deveria chegar ao vendor sem o CNPJ do prestador")
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	_, err := cliente.AdicionarConsulta(context.Background(), tecnospeed.Consulta{CodigoCidade: "4106902"})
	if err == nil || !strings.Contains(err.Error(), "prestador") {
		t.Fatalf("erro = %v, esperada exigência do CNPJ do prestador", err)
	}
}

func TestAdicionarConsultaExigeCertificado(t *testing.T) {
	cidadeComCertificado := `{"resposta":[{"nome":"Maringa","codigoIbge":"4115200","certificado":true}]}`
	certificados := `{"resposta":[]}`

	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadeComCertificado)
	})
	mux.HandleFunc("/certificados", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, certificados)
	})
	mux.HandleFunc("/tomadas", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-2"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	_, err := cliente.AdicionarConsulta(context.Background(), tecnospeed.Consulta{CodigoCidade: "4115200"})
	if err == nil || !strings.Contains(err.Error(), "certificado") {
		t.Fatalf("erro = %v, esperada exigência de certificado cadastrado", err)
	}

	certificados = `{"resposta":[{"id":"cert-1","nome":"loja.pfx","vencimento":"2027-01-01"}]}`
	if _, err := cliente.AdicionarConsulta(context.Background(), tecnospeed.Consulta{CodigoCidade: "4115200"}); err != nil {
		t.Fatalf("com certificado cadastrado a consulta deveria passar: %v", err)
	}
}

func TestAdicionarConsultaCidadeForaDaLista(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesVazia)
	})
	mux.HandleFunc("/tomadas", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-3"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	protocolo, err := cliente.AdicionarConsulta(context.Background(), tecnospeed.Consulta{CodigoCidade: "1234567"})
	if err != nil {
		t.Fatalf("cidade fora da lista não deveria impedir a consulta: %v", err)
	}
	if protocolo != "PROT-3" {
		t.Fatalf("protocolo = %q", protocolo)
	}
}

func TestAguardarConclusao(t *testing.T) {
	var chamadas int
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1", func(w http.ResponseWriter, r *http.Request) {
		chamadas++
		if chamadas < 3 {
			fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1","situacao":"PROCESSANDO"}}`)
			return
		}
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1","situacao":"CONCLUIDO","totalDeNotas":7}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	status, err := cliente.AguardarConclusao(context.Background(), "PROT-1")
	if err != nil {
		t.Fatalf("AguardarConclusao: %v", err)
	}
	if status.TotalDeNotas != 7 {
		t.Errorf("totalDeNotas = %d, esperado 7", status.TotalDeNotas)
	}
	if chamadas != 3 {
		t.Errorf("chamadas = %d, esperadas 3", chamadas)
	}
}

func TestAguardarConclusaoErroDoVendor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1","situacao":"ERRO","mensagem":"cidade indisponível"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	_, err := cliente.AguardarConclusao(context.Background(), "PROT-1")
	if err == nil || !strings.Contains(err.Error(), "cidade indisponível") {
		t.Fatalf("erro = %v, esperada a mensagem do vendor", err)
	}
}

func TestAguardarConclusaoTempoEsgotado(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1","situacao":"PROCESSANDO"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	if _, err := cliente.AguardarConclusao(context.Background(), "PROT-1"); !errors.Is(err, tecnospeed.ErrTempoEsgotado) {
		t.Fatalf("erro = %v, esperado ErrTempoEsgotado", err)
	}
}

func TestAguardarConclusaoCancelamento(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-1","situacao":"PROCESSANDO"}}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	ctx, cancelar := context.WithCancel(context.Background())
	cancelar()
	if _, err := cliente.AguardarConclusao(ctx, "PROT-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("erro = %v, esperado context.Canceled", err)
	}
}

func TestConsultarNotasPaginacao(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1/notas", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pagina") {
		case "":
			fmt.Fprint(w, `{"resposta":{"notas":[{"id":"1","numero":"10","valorServico":100.25}]},"acoes":{"proximaPagina":{"href":"/tomadas/PROT-1/notas?pagina=2"}}}`)
		case "2":
			fmt.Fprint(w, `{"resposta":{"notas":[{"id":"2","numero":"11","valorServico":50.50}]}}`)
		default:
			t.Errorf("página inesperada: %s", r.URL.RawQuery)
		}
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	primeira, err := cliente.ConsultarNotas(context.Background(), "PROT-1", 1)
	if err != nil {
		t.Fatalf("ConsultarNotas página 1: %v", err)
	}
	if !primeira.ProximaPagina {
		t.Error("primeira página deveria apontar a próxima")
	}
	if len(primeira.Notas) != 1 || !primeira.Notas[0].Valor.Equal(decimal.RequireFromString("100.25")) {
		t.Errorf("notas da primeira página = %+v", primeira.Notas)
	}

	segunda, err := cliente.ConsultarNotas(context.Background(), "PROT-1", 2)
	if err != nil {
		t.Fatalf("ConsultarNotas página 2: %v", err)
	}
	if segunda.ProximaPagina {
		t.Error("segunda página não deveria apontar a próxima")
	}
}

func TestBaixarXML(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tomadas/PROT-1/notas/55/xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<nfse id="55"/>`)
	})
	diretorio := t.TempDir()
	cliente := novoCliente(t, novoServidorFake(t, mux), diretorio)

	caminho, err := cliente.BaixarXML(context.Background(), "PROT-1", "55", "nota_10_55.xml")
	if err != nil {
		t.Fatalf("BaixarXML: %v", err)
	}
	if caminho != filepath.Join(diretorio, "nota_10_55.xml") {
		t.Errorf("caminho = %q", caminho)
	}
	conteudo, err := os.ReadFile(caminho)
	if err != nil {
		t.Fatalf("lendo arquivo baixado: %v", err)
	}
	if string(conteudo) != `<nfse id="55"/>` {
		t.Errorf("conteúdo = %q", conteudo)
	}
}

func TestProcessarConsultaCompleta(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cidadesDuas)
	})
	mux.HandleFunc("/tomadas", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-9"}}`)
	})
	mux.HandleFunc("/tomadas/PROT-9", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"protocolo":"PROT-9","situacao":"CONCLUIDO","totalDeNotas":2}}`)
	})
	mux.HandleFunc("/tomadas/PROT-9/notas", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resposta":{"notas":[{"id":"1","numero":"10","valorServico":100.25},{"id":"2","valorServico":50.50}]}}`)
	})
	mux.HandleFunc("/tomadas/PROT-9/notas/2/xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<nfse id="2"/>`)
	})
	mux.HandleFunc("/tomadas/PROT-9/notas/1/xml", func(w http.ResponseWriter, r *http.Request) {
		t.Error("a nota 1 já existe no diretório e não deveria ser baixada de novo")
	})

	diretorio := t.TempDir()
	if err := os.WriteFile(filepath.Join(diretorio, "nota_10_1.xml"), []byte("<nfse/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cliente := novoCliente(t, novoServidorFake(t, mux), diretorio)

	resultado, err := cliente.ProcessarConsultaCompleta(context.Background(), tecnospeed.Consulta{CodigoCidade: "4109401"})
	if err != nil {
		t.Fatalf("ProcessarConsultaCompleta: %v", err)
	}
	if resultado.Protocolo != "PROT-9" {
		t.Errorf("protocolo = %q", resultado.Protocolo)
	}
	if len(resultado.Notas) != 2 || resultado.Baixadas != 1 || resultado.Existentes != 1 || resultado.Erros != 0 {
		t.Errorf("contadores = %+v", resultado)
	}
	if !resultado.ValorTotal.Equal(decimal.RequireFromString("150.75")) {
		t.Errorf("valor total = %s, esperado 150.75", resultado.ValorTotal)
	}
	// A nota sem número cai no id ao montar o nome do arquivo.
	if _, err := os.Stat(filepath.Join(diretorio, "nota_2_2.xml")); err != nil {
		t.Errorf("arquivo da nota 2 não foi gravado: %v", err)
	}
}

func TestErroAPICarregaStatusECorpo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cidades", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"erro":"token inválido"}`)
	})
	cliente := novoCliente(t, novoServidorFake(t, mux), t.TempDir())

	_, err := cliente.ConsultarCidades(context.Background(), "")
	var erroAPI *tecnospeed.ErroAPI
	if !errors.As(err, &erroAPI) {
		t.Fatalf("erro = %T (%v), esperado *ErroAPI", err, err)
	}
	if erroAPI.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, esperado 401", erroAPI.Status)
	}
	if !strings.Contains(erroAPI.Corpo, "token inválido") {
		t.Errorf("corpo = %q", erroAPI.Corpo)
	}
}
