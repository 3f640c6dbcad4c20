package assistant

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/memohai/storefront/internal/catalog"
)

// PromptParams feeds the system prompt template.
type PromptParams struct {
	StoreName string
	Date      time.Time
	Category  string
	Products  []catalog.Product
}

type promptProduct struct {
	Name     string
	Category string
	Price    string
	InStock  bool
}

type promptData struct {
	StoreName string
	Date      string
	Category  string
	Products  []promptProduct
}

const systemPromptTemplate = `---
store: {{.StoreName}}
date: {{.Date}}
{{- if .Category}}
category: {{.Category}}
{{- end}}
---
You are the shopping assistant of {{.StoreName}}. Help the customer choose products from the catalog below.

Rules:
- Recommend only products listed in the catalog. If nothing fits, say so and suggest the closest alternatives from the list.
- Write every product name exactly as it appears in the catalog, so the storefront can show the product card.
- Never write product identifiers, SKUs, database ids or markers such as {{quote "[ID:12]"}}.
- Mention price and stock only as given below. Do not invent discounts or specifications.
- Answer in the customer's language, briefly, using markdown.

Catalog:
{{- if .Products}}
{{- range .Products}}
- {{.Name}}{{if .Category}} ({{.Category}}){{end}}: {{.Price}}{{if not .InStock}}, out of stock{{end}}
{{- end}}
{{- else}}
(the catalog is empty right now)
{{- end}}`

var systemTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"quote": func(s string) string { return "`" + s + "`" },
}).Parse(systemPromptTemplate))

// SystemPrompt renders the system prompt listing the catalog by name only.
func SystemPrompt(params PromptParams) string {
	data := promptData{
		StoreName: params.StoreName,
		Date:      params.Date.Format("2006-01-02"),
		Category:  params.Category,
		Products:  make([]promptProduct, 0, len(params.Products)),
	}
	for _, p := range params.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		data.Products = append(data.Products, promptProduct{
			Name:     name,
			Category: p.Category,
			Price:    FormatPrice(p.PriceCents, p.Currency),
			InStock:  p.Stock > 0,
		})
	}

	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, data); err != nil {
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders minor units as "IDR 150,000.00".
func FormatPrice(cents int64, currency string) string {
	if currency == "" {
		currency = "IDR"
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return pricePrinter.Sprintf("%s %s%d.%02d", currency, sign, cents/100, cents%100)
}
