package research

import (
	"bytes"
	_ "embed"
	"strconv"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

var funcs = template.FuncMap{
	"comma": comma,
}

func mustParse(name, raw string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(raw))
}

//go:embed prompt/classify.md
var classifyPromptRaw string

//go:embed prompt/stock.md
var stockPromptRaw string

//go:embed prompt/news.md
var newsPromptRaw string

//go:embed prompt/product_market.md
var productMarketPromptRaw string

//go:embed prompt/product_purchase.md
var productPurchasePromptRaw string

//go:embed prompt/general.md
var generalPromptRaw string

//go:embed prompt/followup.md
var followUpPromptRaw string

//go:embed report/stock.md
var stockReportRaw string

//go:embed report/news.md
var newsReportRaw string

//go:embed report/product.md
var productReportRaw string

//go:embed report/general.md
var generalReportRaw string

//go:embed report/followup.md
var followUpReportRaw string

//go:embed report/demo.md
var demoReportRaw string

var (
	classifyPromptTmpl        = mustParse("classify", classifyPromptRaw)
	stockPromptTmpl           = mustParse("stock", stockPromptRaw)
	newsPromptTmpl            = mustParse("news", newsPromptRaw)
	productMarketPromptTmpl   = mustParse("product_market", productMarketPromptRaw)
	productPurchasePromptTmpl = mustParse("product_purchase", productPurchasePromptRaw)
	generalPromptTmpl         = mustParse("general", generalPromptRaw)
	followUpPromptTmpl        = mustParse("followup", followUpPromptRaw)

	stockReportTmpl    = mustParse("stock_report", stockReportRaw)
	newsReportTmpl     = mustParse("news_report", newsReportRaw)
	productReportTmpl  = mustParse("product_report", productReportRaw)
	generalReportTmpl  = mustParse("general_report", generalReportRaw)
	followUpReportTmpl = mustParse("followup_report", followUpReportRaw)
	demoReportTmpl     = mustParse("demo_report", demoReportRaw)
)

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute template", goerr.V("template", tmpl.Name()))
	}
	return strings.TrimSpace(buf.String()), nil
}

// comma formats n with thousands separators
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
