// Agente do portal nacional de NFSe. Busca as credenciais municipais ativas
// no Oracle, percorre as notas recebidas de cada loja no Emissor Nacional,
// baixa XML e DANFSe, grava tudo no banco e envia o resumo por e-mail.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/config"
	"github.com/giorgiootto/go-nfse-agent/internal/mailer"
	"github.com/giorgiootto/go-nfse-agent/internal/oracle"
	"github.com/giorgiootto/go-nfse-agent/internal/portal"
)

func main() {
	config.CarregarEnv()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	cfgAgente := config.CarregarAgente()
	dias := flag.Int("dias", cfgAgente.DiasRetroativos, "dias retroativos do filtro de emissão")
	diretorio := flag.String("dir", cfgAgente.DiretorioDownload, "diretório de download")
	visivel := flag.Bool("visivel", false, "abre o navegador em modo visível")
	flag.Parse()

	ctx, parar := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer parar()

	cfgOracle, err := config.CarregarOracle()
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Configuração Oracle ausente")
	}
	banco, err := oracle.NewBanco(ctx, oracle.Config{
		Usuario: cfgOracle.Usuario,
		Senha:   cfgOracle.Senha,
		DSN:     cfgOracle.DSN,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Erro ao conectar ao Oracle")
	}
	defer banco.Fechar()

	registros, err := banco.BuscarLojasAtivas(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Erro ao buscar lojas ativas")
	}
	if len(registros) == 0 {
		logger.Warn().Msg("⚠ Nenhuma loja ativa configurada, nada a fazer")
		return
	}

	runner := &portal.Runner{
		Lojas:             registros,
		DiasRetroativos:   *dias,
		DiretorioDownload: *diretorio,
		Visivel:           *visivel,
		Armazem:           banco,
		Logger:            logger,
	}
	resumo, err := runner.Executar(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("⚠ Execução interrompida")
	}
	if resumo == nil {
		return
	}

	enviarResumo(ctx, resumo, *dias, *diretorio, logger)
}

func enviarResumo(ctx context.Context, resumo *portal.Resumo, dias int, diretorio string, logger zerolog.Logger) {
	cfgSMTP := config.CarregarSMTP()
	if !cfgSMTP.Configurado() {
		logger.Warn().Msg("⚠ SMTP não configurado, resumo por e-mail desabilitado")
		return
	}

	encontradas, baixadas, existentes, erros := resumo.Totais()
	corpo := &mailer.Resumo{
		Titulo:         "Agente NFSe - Portal Emissor Nacional",
		PeriodoInicial: resumo.Inicio.AddDate(0, 0, -dias),
		PeriodoFinal:   resumo.Fim,
		Diretorio:      diretorio,
		Duracao:        resumo.Duracao(),
		Encontradas:    encontradas,
		Baixadas:       baixadas,
		Existentes:     existentes,
		Erros:          erros,
	}
	for _, loja := range resumo.Lojas {
		corpo.Lojas = append(corpo.Lojas, mailer.LinhaLoja{
			CodLoja:     loja.CodLoja,
			Encontradas: loja.Encontradas,
			Baixadas:    loja.Baixadas,
			Existentes:  loja.Existentes,
			Erros:       loja.Erros,
			Falha:       loja.Falha,
		})
	}

	if err := mailer.Enviar(ctx, mailer.Config{
		Host:          cfgSMTP.Host,
		Porta:         cfgSMTP.Porta,
		Usuario:       cfgSMTP.Usuario,
		Senha:         cfgSMTP.Senha,
		Remetente:     cfgSMTP.Remetente,
		Destinatarios: cfgSMTP.Destinatarios,
		Logger:        logger,
	}, corpo); err != nil {
		logger.Error().Err(err).Msg("✗ Falha ao enviar resumo por e-mail")
	}
}
