package mailer

import (
	"text/template"
	"time"
)

var modeloCorpo = template.Must(template.New("resumo").Funcs(template.FuncMap{
	"data": func(t time.Time) string { return t.Format("02/01/2006") },
	"duracao": func(d time.Duration) string {
		return d.Round(time.Second).String()
	},
}).Parse(`{{.Titulo}}

Período consultado: {{data .PeriodoInicial}} a {{data .PeriodoFinal}}
Diretório de download: {{.Diretorio}}
Duração: {{duracao .Duracao}}
{{if .Lojas}}
Resultado por loja:
{{range .Lojas}}{{if .Falha}}  Loja {{.CodLoja}}: FALHA ({{.Falha}})
{{else}}  Loja {{.CodLoja}}: {{.Encontradas}} encontradas, {{.Baixadas}} baixadas, {{.Existentes}} já existiam, {{.Erros}} erros
{{end}}{{end}}{{end}}
Totais:
  Notas encontradas: {{.Encontradas}}
  Baixadas: {{.Baixadas}}
  Já existentes: {{.Existentes}}
  Erros: {{.Erros}}
{{if .ComValor}}  Valor total dos serviços: R$ {{.ValorTotal.StringFixed 2}}
{{end}}`))
