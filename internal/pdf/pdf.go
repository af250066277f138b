package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/models"
)

// Seller block printed on every document.
const (
	sellerName    = "Ste Bonjour"
	sellerAddress = "Rue Salem Alaykom, Ariana Tunisie"
	sellerPhone   = "Tél: +216 XX XXX XXX"
	sellerEmail   = "e-mail: Bonjour@gmail.com"
)

// Tunisian invoice totals: 13% VAT plus the fixed fiscal stamp.
var (
	vatRate     = decimal.NewFromFloat(0.13)
	fiscalStamp = decimal.NewFromFloat(0.600)
)

// Renderer produces invoice and quote-specification PDFs.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Invoice renders a facture: seller header, line-item table and the
// HT/TVA/timbre/TTC totals block.
func (r *Renderer) Invoice(inv *models.Invoice) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(8, text.NewCol(6, sellerName, props.Text{Style: fontstyle.Bold, Size: 14}),
		text.NewCol(6, sellerPhone, props.Text{Align: align.Right, Size: 9}))
	m.AddRow(5, text.NewCol(6, sellerAddress, props.Text{Size: 9}),
		text.NewCol(6, sellerEmail, props.Text{Align: align.Right, Size: 9}))

	m.AddRow(10, text.NewCol(6, "Date: "+inv.CreatedAt.Format("02/01/2006"), props.Text{Size: 9, Top: 4}),
		text.NewCol(6, inv.Client.Name, props.Text{Align: align.Right, Size: 10, Top: 4}))
	m.AddRow(8, text.NewCol(12, "Facture: "+inv.InvoiceNumber, props.Text{Style: fontstyle.Bold, Size: 12}))

	m.AddRow(7,
		text.NewCol(6, "Désignation", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Prix unitaire", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Quantité", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range inv.LineItems {
		m.AddRow(6,
			text.NewCol(6, line.Designation, props.Text{Size: 9}),
			text.NewCol(2, line.UnitPrice.StringFixed(3)+" DT", props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Total.StringFixed(3)+" DT", props.Text{Size: 9, Align: align.Right}),
		)
	}

	totalHT := inv.Amount
	tva := totalHT.Mul(vatRate).Round(3)
	totalTTC := totalHT.Add(tva).Add(fiscalStamp)

	m.AddRow(6, text.NewCol(12, "Total HT: "+totalHT.StringFixed(3)+" DT", props.Text{Size: 9, Align: align.Right, Top: 4}))
	m.AddRow(5, text.NewCol(12, "TVA 13%: "+tva.StringFixed(3)+" DT", props.Text{Size: 9, Align: align.Right}))
	m.AddRow(5, text.NewCol(12, "Timbre: "+fiscalStamp.StringFixed(3)+" DT", props.Text{Size: 9, Align: align.Right}))
	m.AddRow(7, text.NewCol(12, "Total TTC: "+totalTTC.StringFixed(3)+" DT", props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right}))

	doc, err := m.Generate()
	if err != nil {
		return nil, core.External("pdf generation", err)
	}
	return doc.GetBytes(), nil
}

// Specification renders the default cahier des charges attached to a
// counter-offer when the admin supplied no document of their own.
func (r *Renderer) Specification(q *models.Quote, counterOffer string) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(8, text.NewCol(12, sellerName, props.Text{Style: fontstyle.Bold, Size: 14}))
	m.AddRow(8, text.NewCol(12, fmt.Sprintf("Cahier des charges - Devis #%d", q.ID), props.Text{Style: fontstyle.Bold, Size: 12, Top: 2}))
	m.AddRow(6, text.NewCol(12, "Client: "+q.Client.Name, props.Text{Size: 10}))
	m.AddRow(6, text.NewCol(12, "Description: "+q.Description, props.Text{Size: 10}))
	m.AddRow(6, text.NewCol(12, "Montant initial: "+q.Amount.StringFixed(2)+" TND", props.Text{Size: 10}))
	if q.ProductDetail != nil {
		m.AddRow(6, text.NewCol(12, "Type de site: "+q.ProductDetail.SiteType, props.Text{Size: 10}))
		if q.ProductDetail.Features != "" {
			m.AddRow(6, text.NewCol(12, "Fonctionnalités: "+q.ProductDetail.Features, props.Text{Size: 10}))
		}
	}
	m.AddRow(8, text.NewCol(12, "Contre-proposition: "+counterOffer, props.Text{Style: fontstyle.Bold, Size: 10, Top: 2}))

	doc, err := m.Generate()
	if err != nil {
		return nil, core.External("pdf generation", err)
	}
	return doc.GetBytes(), nil
}
