// Agente interativo de notas tomadas via API TecnoSpeed. Consulta cidades
// homologadas, cadastra certificados, cria consultas de notas e acompanha o
// protocolo até baixar os XMLs, enviando um resumo por e-mail ao final.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/config"
	"github.com/giorgiootto/go-nfse-agent/internal/mailer"
	"github.com/giorgiootto/go-nfse-agent/internal/tecnospeed"
)

const separador = "======================================================================"

func main() {
	config.CarregarEnv()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	ctx, parar := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer parar()

	fmt.Println("\n" + separador)
	fmt.Println("  AGENTE NFSe - API TecnoSpeed")
	fmt.Println(separador + "\n")

	leitor := bufio.NewReader(os.Stdin)
	cfgAPI := config.CarregarAPI()
	if cfgAPI.TokenSH == "" {
		cfgAPI.TokenSH = perguntar(leitor, "Token TecnoAccount: ")
	}
	if cfgAPI.CNPJSoftwareHouse == "" {
		cfgAPI.CNPJSoftwareHouse = perguntar(leitor, "CPF/CNPJ da Software House: ")
	}
	if cfgAPI.CNPJTomador == "" {
		cfgAPI.CNPJTomador = perguntar(leitor, "CPF/CNPJ do Tomador: ")
	}
	if err := cfgAPI.Validar(); err != nil {
		logger.Fatal().Err(err).Msg("✗ Configuração incompleta")
	}

	cliente, err := tecnospeed.NewClient(tecnospeed.Config{
		TokenSH:           cfgAPI.TokenSH,
		CNPJSoftwareHouse: cfgAPI.CNPJSoftwareHouse,
		CNPJTomador:       cfgAPI.CNPJTomador,
		DiretorioDownload: cfgAPI.DiretorioDownload,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Erro ao criar cliente")
	}

	for {
		fmt.Println("\n" + separador)
		fmt.Println("  MENU")
		fmt.Println(separador)
		fmt.Println("  1. Consultar cidades homologadas")
		fmt.Println("  2. Cadastrar certificado")
		fmt.Println("  3. Listar certificados cadastrados")
		fmt.Println("  4. Adicionar consulta de notas")
		fmt.Println("  5. Consultar protocolo")
		fmt.Println("  6. Processo completo (adicionar + aguardar + baixar)")
		fmt.Println("  0. Sair")
		fmt.Println(separador)

		fmt.Print("\nEscolha uma opção: ")
		linha, err := leitor.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			logger.Fatal().Err(err).Msg("✗ Erro ao ler entrada")
		}
		opcao := strings.TrimSpace(linha)
		if errors.Is(err, io.EOF) && opcao == "" {
			opcao = "0"
		}

		switch opcao {
		case "1":
			consultarCidades(ctx, cliente, leitor)
		case "2":
			caminho := perguntar(leitor, "Caminho do arquivo .pfx: ")
			senha := perguntar(leitor, "Senha do certificado: ")
			if id, err := cliente.CadastrarCertificado(ctx, caminho, senha); err != nil {
				logger.Error().Err(err).Msg("✗ Erro ao cadastrar certificado")
			} else {
				fmt.Printf("\n✓ Certificado cadastrado, id %s\n", id)
			}
		case "3":
			listarCertificados(ctx, cliente, logger)
		case "4":
			consulta := montarConsulta(ctx, cliente, leitor)
			if protocolo, err := cliente.AdicionarConsulta(ctx, consulta); err != nil {
				logger.Error().Err(err).Msg("✗ Erro ao adicionar consulta")
			} else {
				fmt.Printf("\n💾 Protocolo salvo: %s\n", protocolo)
				fmt.Println("   Use a opção 5 para consultar o status")
			}
		case "5":
			consultarProtocolo(ctx, cliente, leitor, logger)
		case "6":
			fmt.Println("\n" + separador)
			fmt.Println("  PROCESSO COMPLETO")
			fmt.Println(separador)
			consulta := montarConsulta(ctx, cliente, leitor)
			processoCompleto(ctx, cliente, consulta, cfgAPI.DiretorioDownload, logger)
		case "0":
			fmt.Println("\n👋 Até logo!")
			return
		default:
			fmt.Println("\n❌ Opção inválida!")
		}

		if ctx.Err() != nil {
			logger.Warn().Msg("⚠ Execução interrompida")
			return
		}
	}
}

func perguntar(leitor *bufio.Reader, texto string) string {
	fmt.Print(texto)
	linha, _ := leitor.ReadString('\n')
	return strings.TrimSpace(linha)
}

func consultarCidades(ctx context.Context, cliente *tecnospeed.Client, leitor *bufio.Reader) {
	filtro := perguntar(leitor, "Filtrar cidade (opcional): ")
	detalhes := strings.EqualFold(perguntar(leitor, "Mostrar requisitos detalhados? (s/n) [n]: "), "s")

	cidades, err := cliente.ConsultarCidades(ctx, filtro)
	if err != nil {
		fmt.Printf("\n✗ Erro ao consultar cidades: %v\n", err)
		return
	}

	fmt.Printf("\n%s\n  CIDADES HOMOLOGADAS (%d)\n%s\n", separador, len(cidades), separador)
	limite := len(cidades)
	if limite > 20 {
		limite = 20
	}
	for i, cidade := range cidades[:limite] {
		marcador := "  "
		if cidade.PrestadorObrigatorioTomadas {
			marcador = "🏢"
		}
		fmt.Printf("%3d. %s %-28s | IBGE: %s | %s\n",
			i+1, marcador, cidade.Nome, cidade.CodigoIbge, cidade.Padrao)
		if detalhes {
			fmt.Printf("       Certificado: %t | Login: %t | Comunicação: %s\n",
				cidade.Certificado, cidade.Login, cidade.TipoComunicacao)
		}
	}
	if len(cidades) > limite {
		fmt.Printf("\n... e mais %d cidades\n", len(cidades)-limite)
	}
	fmt.Println("\n🏢 = Prestador obrigatório")
	fmt.Println(separador)
}

func listarCertificados(ctx context.Context, cliente *tecnospeed.Client, logger zerolog.Logger) {
	certificados, err := cliente.ListarCertificados(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("✗ Erro ao listar certificados")
		return
	}
	if len(certificados) == 0 {
		fmt.Println("\n⚠ Nenhum certificado cadastrado")
		return
	}
	fmt.Printf("\n%s\n  CERTIFICADOS (%d)\n%s\n", separador, len(certificados), separador)
	for i, cert := range certificados {
		fmt.Printf("%3d. %s | %s | vence em %s\n", i+1, cert.ID, cert.Nome, cert.Vencimento)
	}
	fmt.Println(separador)
}

func montarConsulta(ctx context.Context, cliente *tecnospeed.Client, leitor *bufio.Reader) tecnospeed.Consulta {
	codigoCidade := perguntar(leitor, "Código IBGE da cidade: ")

	if requisitos, err := cliente.RequisitosCidade(ctx, codigoCidade); err == nil {
		obrigatorio := "Não"
		if requisitos.PrestadorObrigatorio {
			obrigatorio = "Sim"
		}
		fmt.Printf("\n📋 Requisitos de %s:\n", requisitos.Nome)
		fmt.Printf("   🏢 Prestador obrigatório: %s\n", obrigatorio)
	}

	fmt.Println("\n💡 Lembre-se:")
	fmt.Println("   PRESTADOR = quem EMITIU as notas contra você")
	fmt.Println("   TOMADOR = VOCÊ (quem recebeu/tomou os serviços)")
	fmt.Println()

	consulta := tecnospeed.Consulta{
		CodigoCidade:  codigoCidade,
		PrestadorCNPJ: perguntar(leitor, "CPF/CNPJ do Prestador (quem emitiu as notas): "),
		PrestadorIM:   perguntar(leitor, "Inscrição Municipal do Prestador (opcional): "),
		TomadorIM:     perguntar(leitor, "Inscrição Municipal do Tomador/VOCÊ (opcional): "),
	}
	if dias, err := strconv.Atoi(perguntar(leitor, "Período em dias [30]: ")); err == nil && dias > 0 {
		consulta.PeriodoDias = dias
	}
	return consulta
}

func consultarProtocolo(ctx context.Context, cliente *tecnospeed.Client, leitor *bufio.Reader, logger zerolog.Logger) {
	protocolo := perguntar(leitor, "Número do protocolo: ")
	status, err := cliente.ConsultarProtocolo(ctx, protocolo)
	if err != nil {
		logger.Error().Err(err).Msg("✗ Erro ao consultar protocolo")
		return
	}
	fmt.Printf("\nSituação: %s", status.Situacao)
	if status.TotalDeNotas > 0 {
		fmt.Printf(" | %d notas", status.TotalDeNotas)
	}
	if status.Mensagem != "" {
		fmt.Printf(" | %s", status.Mensagem)
	}
	fmt.Println()

	if status.Situacao != tecnospeed.SituacaoConcluido {
		return
	}
	if !strings.EqualFold(perguntar(leitor, "\nDeseja ver as notas? (s/n): "), "s") {
		return
	}
	for pagina := 1; ; pagina++ {
		resultado, err := cliente.ConsultarNotas(ctx, protocolo, pagina)
		if err != nil {
			logger.Error().Err(err).Msg("✗ Erro ao consultar notas")
			return
		}
		for _, nota := range resultado.Notas {
			fmt.Printf("  Nota %s (id %s) | R$ %s\n", nota.Numero, nota.ID, nota.Valor.StringFixed(2))
		}
		if !resultado.ProximaPagina {
			return
		}
	}
}

func processoCompleto(ctx context.Context, cliente *tecnospeed.Client, consulta tecnospeed.Consulta, diretorio string, logger zerolog.Logger) {
	inicio := time.Now()
	resultado, err := cliente.ProcessarConsultaCompleta(ctx, consulta)
	if err != nil {
		logger.Error().Err(err).Msg("✗ Processo completo falhou")
		return
	}

	fmt.Printf("\n%s\n  PROCESSO CONCLUÍDO!\n", separador)
	fmt.Printf("  Total de notas: %d\n", len(resultado.Notas))
	fmt.Printf("  XMLs salvos em: %s\n%s\n", diretorio, separador)

	cfgSMTP := config.CarregarSMTP()
	if !cfgSMTP.Configurado() {
		logger.Warn().Msg("⚠ SMTP não configurado, resumo por e-mail desabilitado")
		return
	}

	dias := consulta.PeriodoDias
	if dias <= 0 {
		dias = 30
	}
	resumo := &mailer.Resumo{
		Titulo:         "Agente NFSe - Notas tomadas via API TecnoSpeed",
		PeriodoInicial: inicio.AddDate(0, 0, -dias),
		PeriodoFinal:   inicio,
		Diretorio:      diretorio,
		Duracao:        time.Since(inicio),
		Encontradas:    len(resultado.Notas),
		Baixadas:       resultado.Baixadas,
		Existentes:     resultado.Existentes,
		Erros:          resultado.Erros,
		ValorTotal:     resultado.ValorTotal,
		ComValor:       true,
	}
	if err := mailer.Enviar(ctx, mailer.Config{
		Host:          cfgSMTP.Host,
		Porta:         cfgSMTP.Porta,
		Usuario:       cfgSMTP.Usuario,
		Senha:         cfgSMTP.Senha,
		Remetente:     cfgSMTP.Remetente,
		Destinatarios: cfgSMTP.Destinatarios,
		Logger:        logger,
	}, resumo); err != nil {
		logger.Error().Err(err).Msg("✗ Falha ao enviar resumo por e-mail")
	}
}
