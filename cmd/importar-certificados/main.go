// Importa certificados digitais .pfx para o cadastro corporativo no Oracle,
// extraindo razão social, CNPJ e validade de cada arquivo.
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

	diretorio := flag.String("dir", "certificados", "pasta com os arquivos .pfx")
	flag.Parse()

	ctx, parar := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer parar()

	senha, err := config.SenhaCertificado()
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Senha do certificado não configurada")
	}

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

	if _, err := importador.ImportarCertificados(ctx, *diretorio, senha, banco, logger); err != nil {
		logger.Fatal().Err(err).Msg("✗ Importação falhou")
	}
}
