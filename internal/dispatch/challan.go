package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// challanView is what the delivery challan template renders.
type challanView struct {
	Dispatch
	Store catalog.Store
}

var challanTemplate = template.Must(template.New("challan").Funcs(template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"datePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"inc":   func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Delivery challan {{.DispatchNumber}}</title>
<style>
body { font-family: sans-serif; font-size: 11pt; }
table { width: 100%; border-collapse: collapse; margin-top: 12pt; }
th, td { border: 1px solid #444; padding: 4pt 6pt; text-align: left; }
td.num, th.num { text-align: right; }
</style>
</head>
<body>
<h1>DELIVERY CHALLAN</h1>
<p><strong>{{.DispatchNumber}}</strong> dated {{date .DispatchDate}} &middot; status {{.Status}}</p>
<p>To: <strong>{{.Store.Name}}</strong>{{with .Store.Code}} ({{.}}){{end}}<br>{{.Store.Address}}</p>
{{with datePtr .ShippedDate}}<p>Shipped: {{.}}</p>{{end}}
{{with datePtr .ReceivedDate}}<p>Received: {{.}}</p>{{end}}
<table>
<thead><tr><th>#</th><th>SKU</th><th>Item</th><th>Size</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Amount</th></tr></thead>
<tbody>
{{range $i, $it := .Items}}<tr><td>{{inc $i}}</td><td>{{$it.SKU}}</td><td>{{$it.Name}}</td><td>{{$it.Size}}</td><td class="num">{{$it.Quantity}}</td><td class="num">{{money $it.Price}}</td><td class="num">{{money $it.Amount}}</td></tr>
{{end}}</tbody>
<tfoot><tr><th colspan="4">Total</th><th class="num">{{.TotalItems}}</th><th></th><th class="num">{{money .TotalValue}}</th></tr></tfoot>
</table>
{{with .Notes}}<p>Notes: {{.}}</p>{{end}}
<p style="margin-top:36pt">Received by: ____________________</p>
</body>
</html>
`))

// Challan renders the delivery challan of a dispatch as an HTML document.
func (s *Service) Challan(ctx context.Context, id uuid.UUID, actor shared.Actor) (Dispatch, string, error) {
	d, err := s.Get(ctx, id, actor)
	if err != nil {
		return Dispatch{}, "", err
	}
	store, err := s.catalog.GetStore(ctx, d.StoreID)
	if err != nil {
		return Dispatch{}, "", err
	}
	var buf bytes.Buffer
	if err := challanTemplate.Execute(&buf, challanView{Dispatch: d, Store: store}); err != nil {
		return Dispatch{}, "", fmt.Errorf("render challan %s: %w", d.DispatchNumber, err)
	}
	return d, buf.String(), nil
}
