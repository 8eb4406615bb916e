// Importa a planilha de credenciais municipais para a tabela de lojas.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/config"
	"github.com/giorgiootto/go-nfse-agent/internal/importador"
	"github.com/giorgiootto/go-nfse-agent/internal/oracle"
)

func main() {
	config.CarregarEnv()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	planilha := flag.String("planilha", "lojas.xlsx", "planilha com codloja, usuario e senha")
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

	if _, err := importador.ImportarLojas(ctx, *planilha, banco, logger); err != nil {
		logger.Fatal().Err(err).Msg("✗ Importação falhou")
	}
}
