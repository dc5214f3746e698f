package reports

import (
	"context"
	"errors"

	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// VatAmount is a taxable amount and its VAT, both in base currency.
type VatAmount struct {
	Amount decimal.Decimal `json:"amount"`
	Vat    decimal.Decimal `json:"vat"`
}

func (v VatAmount) plus(o VatAmount) VatAmount {
	return VatAmount{Amount: v.Amount.Add(o.Amount), Vat: v.Vat.Add(o.Vat)}
}

type EmirateVat struct {
	PlaceOfSupply models.PlaceOfSupply `json:"placeOfSupply"`
	Emirate       string               `json:"emirate"`
	VatAmount
}

type VatReturnReport struct {
	ReportHeader
	StandardRatedSales         []EmirateVat    `json:"standardRatedSales"`
	ZeroRatedSales             VatAmount       `json:"zeroRatedSales"`
	ExemptSales                VatAmount       `json:"exemptSales"`
	StandardRatedPurchases     VatAmount       `json:"standardRatedPurchases"`
	ClaimableExpenses          VatAmount       `json:"claimableExpenses"`
	ReverseCharge              VatAmount       `json:"reverseCharge"`
	CreditNotes                VatAmount       `json:"creditNotes"`
	DebitNotes                 VatAmount       `json:"debitNotes"`
	TotalOutputVat             decimal.Decimal `json:"totalOutputVat"`
	TotalInputVat              decimal.Decimal `json:"totalInputVat"`
	NetVatPayableOrReclaimable decimal.Decimal `json:"netVatPayableOrReclaimable"`
	IsFiledPeriod              bool            `json:"isFiledPeriod"`
}

// GetVatReturnReport builds the VAT return of the business in ctx.
func GetVatReturnReport(ctx context.Context, startDate string, endDate string) (*VatReturnReport, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	period, err := ParseReportPeriod(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return ComputeVatReturn(ctx, config.GetDB(), businessId, period)
}

// ComputeVatReturn runs the VAT aggregates concurrently, or one at a time
// when db is a transaction. Once a filed return covers the period only frozen
// documents (edit_flag = false) count.
func ComputeVatReturn(ctx context.Context, db *gorm.DB, businessId string, period ReportPeriod) (*VatReturnReport, error) {
	filed, err := models.IsPeriodFiled(ctx, db, businessId, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	q := vatQuery{db: db, businessId: businessId, period: period, frozenOnly: filed}

	r := &VatReturnReport{
		ReportHeader:  newReportHeader(ReportTypeVatReturn, period),
		IsFiledPeriod: filed,
	}
	var reverseChargeInvoices, reverseChargeExpenses VatAmount
	var emirates []emirateRow

	g, gctx := errgroup.WithContext(ctx)
	if inTransaction(db) {
		// one connection; result sets must not interleave
		g.SetLimit(1)
	}
	g.Go(func() (err error) {
		emirates, err = q.standardRatedSalesByEmirate(gctx)
		return err
	})
	g.Go(func() (err error) {
		r.ZeroRatedSales, err = q.invoiceTotal(gctx, models.InvoiceTypeCustomer, models.VatCategoryZeroRated, false)
		return err
	})
	g.Go(func() (err error) {
		r.ExemptSales, err = q.invoiceTotal(gctx, models.InvoiceTypeCustomer, models.VatCategoryExempt, false)
		return err
	})
	g.Go(func() (err error) {
		r.StandardRatedPurchases, err = q.invoiceTotal(gctx, models.InvoiceTypeSupplier, models.VatCategoryStandardRated, false)
		return err
	})
	g.Go(func() (err error) {
		r.ClaimableExpenses, err = q.expenseTotal(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		r.CreditNotes, err = q.creditNoteTotal(gctx, models.CreditNoteTypeCredit)
		return err
	})
	g.Go(func() (err error) {
		r.DebitNotes, err = q.creditNoteTotal(gctx, models.CreditNoteTypeDebit)
		return err
	})
	g.Go(func() (err error) {
		reverseChargeInvoices, err = q.invoiceTotal(gctx, models.InvoiceTypeSupplier, models.VatCategoryStandardRated, true)
		return err
	})
	g.Go(func() (err error) {
		reverseChargeExpenses, err = q.expenseTotal(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		config.LogError(config.GetLogger(), "VatReport", "ComputeVatReturn", "Querying VAT aggregates", businessId, err)
		return nil, err
	}

	byEmirate := make(map[models.PlaceOfSupply]VatAmount, len(emirates))
	for _, e := range emirates {
		byEmirate[e.PlaceOfSupply] = byEmirate[e.PlaceOfSupply].plus(VatAmount{Amount: e.Amount, Vat: e.Vat})
	}
	output := decimal.Zero
	r.StandardRatedSales = make([]EmirateVat, 0, len(models.AllPlacesOfSupply))
	for _, p := range models.AllPlacesOfSupply {
		v := byEmirate[p]
		r.StandardRatedSales = append(r.StandardRatedSales, EmirateVat{PlaceOfSupply: p, Emirate: p.Name(), VatAmount: v})
		output = output.Add(v.Vat)
	}
	r.ReverseCharge = reverseChargeInvoices.plus(reverseChargeExpenses)

	r.TotalOutputVat = output.Add(r.ReverseCharge.Vat).Sub(r.CreditNotes.Vat)
	r.TotalInputVat = r.StandardRatedPurchases.Vat.
		Add(r.ClaimableExpenses.Vat).
		Add(r.ReverseCharge.Vat).
		Sub(r.DebitNotes.Vat)
	r.NetVatPayableOrReclaimable = r.TotalOutputVat.Sub(r.TotalInputVat)
	return r, nil
}

func inTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

type emirateRow struct {
	PlaceOfSupply models.PlaceOfSupply
	Amount        decimal.Decimal
	Vat           decimal.Decimal
}

type vatQuery struct {
	db         *gorm.DB
	businessId string
	period     ReportPeriod
	frozenOnly bool
}

func (q vatQuery) invoices(ctx context.Context, invoiceType models.InvoiceType, vatCategory models.VatCategory, reverseCharge bool) *gorm.DB {
	tx := q.db.WithContext(ctx).
		Table("invoices AS i").
		Joins("JOIN invoice_line_items AS l ON l.invoice_id = i.id").
		Where("i.business_id = ? AND i.type = ? AND i.delete_flag = ? AND i.status <> ?", q.businessId, invoiceType, false, models.InvoiceStatusDraft).
		Where("i.invoice_date >= ? AND i.invoice_date < ?", q.period.Start, q.period.EndExclusive()).
		Where("i.is_reverse_charge = ? AND l.vat_category = ?", reverseCharge, vatCategory)
	if q.frozenOnly {
		tx = tx.Where("i.edit_flag = ?", false)
	}
	return tx
}

func (q vatQuery) standardRatedSalesByEmirate(ctx context.Context) ([]emirateRow, error) {
	var rows []emirateRow
	err := q.invoices(ctx, models.InvoiceTypeCustomer, models.VatCategoryStandardRated, false).
		Select("i.place_of_supply AS place_of_supply, " +
			"COALESCE(SUM(l.sub_total * i.exchange_rate), 0) AS amount, " +
			"COALESCE(SUM(l.vat_amount * i.exchange_rate), 0) AS vat").
		Group("i.place_of_supply").
		Scan(&rows).Error
	return rows, err
}

func (q vatQuery) invoiceTotal(ctx context.Context, invoiceType models.InvoiceType, vatCategory models.VatCategory, reverseCharge bool) (VatAmount, error) {
	var v VatAmount
	err := q.invoices(ctx, invoiceType, vatCategory, reverseCharge).
		Select("COALESCE(SUM(l.sub_total * i.exchange_rate), 0) AS amount, " +
			"COALESCE(SUM(l.vat_amount * i.exchange_rate), 0) AS vat").
		Scan(&v).Error
	return v, err
}

func (q vatQuery) expenseTotal(ctx context.Context, reverseCharge bool) (VatAmount, error) {
	var v VatAmount
	tx := q.db.WithContext(ctx).
		Table("expenses").
		Select("COALESCE(SUM(amount * exchange_rate), 0) AS amount, "+
			"COALESCE(SUM(vat_amount * exchange_rate), 0) AS vat").
		Where("business_id = ? AND delete_flag = ? AND vat_claimable = ? AND is_reverse_charge = ?", q.businessId, false, true, reverseCharge).
		Where("expense_date >= ? AND expense_date < ?", q.period.Start, q.period.EndExclusive())
	if q.frozenOnly {
		tx = tx.Where("edit_flag = ?", false)
	}
	err := tx.Scan(&v).Error
	return v, err
}

func (q vatQuery) creditNoteTotal(ctx context.Context, noteType models.CreditNoteType) (VatAmount, error) {
	var v VatAmount
	tx := q.db.WithContext(ctx).
		Table("credit_notes").
		Select("COALESCE(SUM(sub_total * exchange_rate), 0) AS amount, "+
			"COALESCE(SUM(vat_amount * exchange_rate), 0) AS vat").
		Where("business_id = ? AND type = ? AND delete_flag = ?", q.businessId, noteType, false).
		Where("note_date >= ? AND note_date < ?", q.period.Start, q.period.EndExclusive())
	if q.frozenOnly {
		tx = tx.Where("edit_flag = ?", false)
	}
	err := tx.Scan(&v).Error
	return v, err
}

func (r *VatReturnReport) sheetRows() [][]any {
	rows := [][]any{{"Standard rated sales", "Amount", "VAT"}}
	for _, e := range r.StandardRatedSales {
		rows = append(rows, []any{e.Emirate, e.Amount, e.Vat})
	}
	rows = append(rows,
		[]any{"Zero rated sales", r.ZeroRatedSales.Amount, r.ZeroRatedSales.Vat},
		[]any{"Exempt sales", r.ExemptSales.Amount, r.ExemptSales.Vat},
		[]any{"Credit notes", r.CreditNotes.Amount, r.CreditNotes.Vat},
		[]any{"Standard rated purchases", r.StandardRatedPurchases.Amount, r.StandardRatedPurchases.Vat},
		[]any{"Claimable expenses", r.ClaimableExpenses.Amount, r.ClaimableExpenses.Vat},
		[]any{"Debit notes", r.DebitNotes.Amount, r.DebitNotes.Vat},
		[]any{"Reverse charge", r.ReverseCharge.Amount, r.ReverseCharge.Vat},
		[]any{"Total output VAT", nil, r.TotalOutputVat},
		[]any{"Total input VAT", nil, r.TotalInputVat},
		[]any{"Net VAT payable / (reclaimable)", nil, r.NetVatPayableOrReclaimable},
	)
	return rows
}
