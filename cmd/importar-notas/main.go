// Importa para o Oracle os pares XML/DANFSe baixados manualmente do portal.
// O nome de cada arquivo XML, sem extensão, é a chave de acesso da nota.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/giorgiootto/go-nfse-agent/internal/config"
	"github.com/giorgiootto/go-nfse-agent/internal/importador"
	"github.com/giorgiootto/go-nfse-agent/internal/oracle"
)

func main() {
	config.CarregarEnv()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	cfgAgente := config.CarregarAgente()
	diretorio := flag.String("dir", cfgAgente.DiretorioDownload, "pasta com os arquivos XML e PDF")
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

	validarPDF := func(caminho string) error { return api.ValidateFile(caminho, nil) }
	if _, err := importador.ImportarNotas(ctx, *diretorio, banco, validarPDF, logger); err != nil {
		logger.Fatal().Err(err).Msg("✗ Importação falhou")
	}
}
