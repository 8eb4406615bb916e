package portal

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chaves de acesso de NFSe têm de 44 a 50 dígitos dependendo do município.
var (
	chaveExata = regexp.MustCompile(`^\d{44,50}$`)
	chaveTexto = regexp.MustCompile(`\b\d{44,50}\b`)
)

// ExtrairChaves coleta as chaves de acesso das notas presentes em uma página
// renderizada da listagem. A fonte preferida são os links de download, cujo
// último segmento é a própria chave; quando a página não traz os links, o
// texto é varrido em busca de sequências com o tamanho de uma chave.
// O resultado preserva a ordem da página e não repete chaves.
func ExtrairChaves(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("portal: erro ao interpretar HTML da listagem: %w", err)
	}

	vistas := make(map[string]struct{})
	var chaves []string
	adicionar := func(chave string) {
		if _, ok := vistas[chave]; ok {
			return
		}
		vistas[chave] = struct{}{}
		chaves = append(chaves, chave)
	}

	doc.Find(`a[href*="Download"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		partes := strings.Split(strings.TrimSuffix(href, "/"), "/")
		ultimo := partes[len(partes)-1]
		if chaveExata.MatchString(ultimo) {
			adicionar(ultimo)
		}
	})

	if len(chaves) == 0 {
		for _, chave := range chaveTexto.FindAllString(doc.Text(), -1) {
			adicionar(chave)
		}
	}
	return chaves, nil
}

// ProximaPagina procura o link de paginação para a página seguinte e devolve
// a URL absoluta, resolvida contra a URL atual da listagem.
func ProximaPagina(html, urlAtual string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var href string
	doc.Find(`a[href*="pg="]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Find("i.fa-angle-right").Length() == 0 {
			return true
		}
		if h, ok := sel.Attr("href"); ok && h != "" {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return "", false
	}

	base, err := url.Parse(urlAtual)
	if err != nil {
		return href, true
	}
	destino, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(destino).String(), true
}

// mesmoConjunto compara as chaves de duas páginas sem olhar a ordem. Quando a
// paginação do portal entra em loop, a "próxima" página devolve exatamente as
// mesmas notas da anterior.
func mesmoConjunto(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	conjunto := make(map[string]struct{}, len(a))
	for _, chave := range a {
		conjunto[chave] = struct{}{}
	}
	for _, chave := range b {
		if _, ok := conjunto[chave]; !ok {
			return false
		}
	}
	return true
}
