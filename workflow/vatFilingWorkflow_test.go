package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type vatFixture struct {
	inputVat   *models.AccountCategory
	outputVat  *models.AccountCategory
	vatPayable *models.AccountCategory
	bank       *models.AccountCategory
}

func jan2024(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

// seedVatPeriod books January 2024: output VAT 50 - 5 (credit note) = 45,
// input VAT 20 + 5 = 25, so 20 is payable.
func seedVatPeriod(t *testing.T, db *gorm.DB) vatFixture {
	t.Helper()
	f := vatFixture{
		inputVat:   createCategory(t, db, "Input VAT", models.ChartCategoryOtherCurrentAsset, models.SystemCodeInputVat),
		outputVat:  createCategory(t, db, "Output VAT", models.ChartCategoryOtherCurrentLiabilities, models.SystemCodeOutputVat),
		vatPayable: createCategory(t, db, "VAT Payable", models.ChartCategoryOtherCurrentLiabilities, models.SystemCodeVatPayable),
		bank:       createCategory(t, db, "Bank", models.ChartCategoryBank, ""),
	}
	docs := []any{
		&models.Invoice{
			BusinessId: testBusinessId, Type: models.InvoiceTypeCustomer, InvoiceDate: jan2024(10),
			PlaceOfSupply: models.PlaceOfSupplyDubai, ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
			LineItems: []models.InvoiceLineItem{{SubTotal: dec(1000), VatAmount: dec(50), VatCategory: models.VatCategoryStandardRated}},
		},
		// drafts never count
		&models.Invoice{
			BusinessId: testBusinessId, Type: models.InvoiceTypeCustomer, InvoiceDate: jan2024(11),
			PlaceOfSupply: models.PlaceOfSupplyDubai, ExchangeRate: dec(1), Status: models.InvoiceStatusDraft, EditFlag: true,
			LineItems: []models.InvoiceLineItem{{SubTotal: dec(999), VatAmount: dec(49), VatCategory: models.VatCategoryStandardRated}},
		},
		&models.Invoice{
			BusinessId: testBusinessId, Type: models.InvoiceTypeSupplier, InvoiceDate: jan2024(12),
			ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
			LineItems: []models.InvoiceLineItem{{SubTotal: dec(400), VatAmount: dec(20), VatCategory: models.VatCategoryStandardRated}},
		},
		&models.Expense{
			BusinessId: testBusinessId, ExpenseDate: jan2024(15), Amount: dec(100), VatAmount: dec(5),
			VatCategory: models.VatCategoryStandardRated, VatClaimable: true, ExchangeRate: dec(1), EditFlag: true,
		},
		&models.CreditNote{
			BusinessId: testBusinessId, Type: models.CreditNoteTypeCredit, NoteDate: jan2024(20),
			SubTotal: dec(100), VatAmount: dec(5), ExchangeRate: dec(1), EditFlag: true,
		},
		// outside the period
		&models.Invoice{
			BusinessId: testBusinessId, Type: models.InvoiceTypeCustomer, InvoiceDate: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			PlaceOfSupply: models.PlaceOfSupplySharjah, ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
			LineItems: []models.InvoiceLineItem{{SubTotal: dec(200), VatAmount: dec(10), VatCategory: models.VatCategoryStandardRated}},
		},
	}
	for _, d := range docs {
		require.NoError(t, db.Create(d).Error)
	}
	return f
}

func countEditable(t *testing.T, db *gorm.DB, model any, editable bool) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where("edit_flag = ?", editable).Count(&n).Error)
	return n
}

func TestProcessVatReport_ComputesDraftReturn(t *testing.T) {
	db := setupLedgerDB(t)
	seedVatPeriod(t, db)
	ctx := testContext()

	filing, err := ProcessVatReport(ctx, testLogger(), &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"})
	require.NoError(t, err)

	assert.Equal(t, models.VatReportStatusUnFiled, filing.Status)
	assert.NotEmpty(t, filing.ReferenceNumber)
	assertDecimal(t, dec(45), filing.TotalOutputVat)
	assertDecimal(t, dec(25), filing.TotalInputVat)
	assertDecimal(t, dec(20), filing.TotalTaxPayable)
	assertDecimal(t, decimal.Zero, filing.TotalTaxReclaimable)
	assertDecimal(t, dec(20), filing.BalanceDue)
	assert.False(t, filing.IsVatReclaimable)

	_, err = ProcessVatReport(ctx, testLogger(), &NewVatReportFiling{StartDate: "15/01/2024", EndDate: "15/02/2024"})
	assert.True(t, utils.IsValidationError(err), "overlapping period must be rejected, got %v", err)

	_, err = ProcessVatReport(ctx, testLogger(), &NewVatReportFiling{StartDate: "2024-02-01", EndDate: "29/02/2024"})
	assert.True(t, utils.IsValidationError(err))
}

func TestFileVatReport_FreezesAndPostsClearingJournals(t *testing.T) {
	db := setupLedgerDB(t)
	f := seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()

	draft, err := ProcessVatReport(ctx, logger, &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"})
	require.NoError(t, err)

	filed, err := FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VatReportStatusFiled, filed.Status)
	require.NotNil(t, filed.TaxFiledOn)
	require.NotNil(t, filed.InputVatJournalId)
	require.NotNil(t, filed.OutputVatJournalId)

	// everything inside January except the draft invoice is frozen
	assert.Equal(t, int64(2), countEditable(t, db, &models.Invoice{}, false))
	assert.Equal(t, int64(1), countEditable(t, db, &models.Expense{}, false))
	assert.Equal(t, int64(1), countEditable(t, db, &models.CreditNote{}, false))

	// Dr VAT payable 25 / Cr input VAT 25, Dr output VAT 45 / Cr VAT payable 45
	assertDecimal(t, dec(25), runningBalance(t, db, f.inputVat.ID).RunningBalance)
	assertDecimal(t, dec(-45), runningBalance(t, db, f.outputVat.ID).RunningBalance)
	assertDecimal(t, dec(20), runningBalance(t, db, f.vatPayable.ID).RunningBalance)

	journal, err := models.GetJournal(ctx, db, testBusinessId, *filed.OutputVatJournalId)
	require.NoError(t, err)
	assert.Equal(t, models.ReferenceTypeVatReportFiled, journal.ReferenceType)
	assert.True(t, journal.JournalDate.Equal(jan2024(31)))

	// the return now only reads frozen documents, so a late invoice changes nothing
	require.NoError(t, db.Create(&models.Invoice{
		BusinessId: testBusinessId, Type: models.InvoiceTypeCustomer, InvoiceDate: jan2024(25),
		PlaceOfSupply: models.PlaceOfSupplyAjman, ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
		LineItems: []models.InvoiceLineItem{{SubTotal: dec(300), VatAmount: dec(15), VatCategory: models.VatCategoryStandardRated}},
	}).Error)

	period, err := reports.ParseReportPeriod("01/01/2024", "31/01/2024")
	require.NoError(t, err)
	vat, err := reports.ComputeVatReturn(ctx, db, testBusinessId, period)
	require.NoError(t, err)
	assert.True(t, vat.IsFiledPeriod)
	assertDecimal(t, dec(45), vat.TotalOutputVat)

	_, err = FileVatReport(ctx, logger, draft.ID)
	assert.True(t, utils.IsValidationError(err))

	_, err = FileVatReport(ctx, logger, 999)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func lateDubaiInvoice(vat int64) *models.Invoice {
	return &models.Invoice{
		BusinessId: testBusinessId, Type: models.InvoiceTypeCustomer, InvoiceDate: jan2024(28),
		PlaceOfSupply: models.PlaceOfSupplyDubai, ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
		LineItems: []models.InvoiceLineItem{{SubTotal: dec(vat * 20), VatAmount: dec(vat), VatCategory: models.VatCategoryStandardRated}},
	}
}

func TestProcessVatReport_RefreshesDraftForSamePeriod(t *testing.T) {
	db := setupLedgerDB(t)
	seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()
	input := &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"}

	draft, err := ProcessVatReport(ctx, logger, input)
	require.NoError(t, err)
	require.NoError(t, db.Create(lateDubaiInvoice(100)).Error)

	again, err := ProcessVatReport(ctx, logger, input)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, again.ID)
	assert.Equal(t, draft.ReferenceNumber, again.ReferenceNumber)
	assertDecimal(t, dec(145), again.TotalOutputVat)
	assertDecimal(t, dec(120), again.TotalTaxPayable)

	stored := reloadFiling(t, db, draft.ID)
	assertDecimal(t, dec(145), stored.TotalOutputVat)
	assertDecimal(t, dec(120), stored.BalanceDue)

	var n int64
	require.NoError(t, db.Model(&models.VatReportFiling{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)
	_, err = ProcessVatReport(ctx, logger, input)
	assert.True(t, utils.IsValidationError(err), "a filed period cannot be re-processed, got %v", err)
}

func TestFileVatReport_ClearsWhatIsFrozenAtFilingTime(t *testing.T) {
	db := setupLedgerDB(t)
	f := seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()

	draft, err := ProcessVatReport(ctx, logger, &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"})
	require.NoError(t, err)
	assertDecimal(t, dec(45), draft.TotalOutputVat)

	// booked between drafting and filing
	require.NoError(t, db.Create(lateDubaiInvoice(100)).Error)

	filed, err := FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)
	assertDecimal(t, dec(145), filed.TotalOutputVat)
	assertDecimal(t, dec(120), filed.TotalTaxPayable)
	assertDecimal(t, dec(120), filed.BalanceDue)
	assertDecimal(t, dec(-145), runningBalance(t, db, f.outputVat.ID).RunningBalance)
	assertDecimal(t, dec(120), runningBalance(t, db, f.vatPayable.ID).RunningBalance)

	period, err := reports.ParseReportPeriod("01/01/2024", "31/01/2024")
	require.NoError(t, err)
	vat, err := reports.ComputeVatReturn(ctx, db, testBusinessId, period)
	require.NoError(t, err)
	assertDecimal(t, filed.TotalOutputVat, vat.TotalOutputVat)
	assertDecimal(t, filed.TotalTaxPayable, vat.NetVatPayableOrReclaimable)

	stored := reloadFiling(t, db, draft.ID)
	assertDecimal(t, dec(120), stored.TotalTaxPayable)
}

func TestUndoFiledVatReport_ReversesAndUnfreezes(t *testing.T) {
	db := setupLedgerDB(t)
	f := seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()

	draft, err := ProcessVatReport(ctx, logger, &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"})
	require.NoError(t, err)
	filed, err := FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)

	undone, err := UndoFiledVatReport(ctx, logger, filed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VatReportStatusUnFiled, undone.Status)
	assert.Nil(t, undone.TaxFiledOn)
	assert.Nil(t, undone.InputVatJournalId)
	assert.Nil(t, undone.OutputVatJournalId)

	assert.Zero(t, countEditable(t, db, &models.Invoice{}, false))
	assert.Zero(t, countEditable(t, db, &models.Expense{}, false))
	assert.Zero(t, countEditable(t, db, &models.CreditNote{}, false))
	for _, c := range []*models.AccountCategory{f.inputVat, f.outputVat, f.vatPayable} {
		assertDecimal(t, decimal.Zero, runningBalance(t, db, c.ID).RunningBalance, c.Name)
	}

	journals, err := models.GetJournals(ctx, db, testBusinessId, []int{*filed.InputVatJournalId, *filed.OutputVatJournalId})
	require.NoError(t, err)
	for _, j := range journals {
		assert.True(t, j.DeleteFlag)
	}

	_, err = UndoFiledVatReport(ctx, logger, filed.ID)
	assert.True(t, utils.IsValidationError(err))

	// the same period can be filed again
	_, err = FileVatReport(ctx, logger, filed.ID)
	require.NoError(t, err)
}

func TestRecordVatPayment_Lifecycle(t *testing.T) {
	db := setupLedgerDB(t)
	f := seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()

	draft, err := ProcessVatReport(ctx, logger, &NewVatReportFiling{StartDate: "01/01/2024", EndDate: "31/01/2024"})
	require.NoError(t, err)

	_, err = RecordVatPayment(ctx, logger, draft.ID, &NewVatPayment{Amount: dec(5), PaymentDate: "05/02/2024", BankCategoryId: f.bank.ID})
	assert.True(t, utils.IsValidationError(err), "an unfiled return cannot be paid")

	_, err = FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input NewVatPayment
	}{
		{"zero amount", NewVatPayment{Amount: decimal.Zero, PaymentDate: "05/02/2024", BankCategoryId: f.bank.ID}},
		{"more than due", NewVatPayment{Amount: dec(21), PaymentDate: "05/02/2024", BankCategoryId: f.bank.ID}},
		{"not a bank account", NewVatPayment{Amount: dec(5), PaymentDate: "05/02/2024", BankCategoryId: f.inputVat.ID}},
		{"bad date", NewVatPayment{Amount: dec(5), PaymentDate: "2024-02-05", BankCategoryId: f.bank.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			_, err := RecordVatPayment(ctx, logger, draft.ID, &input)
			assert.True(t, utils.IsValidationError(err), "got %v", err)
		})
	}

	payment, err := RecordVatPayment(ctx, logger, draft.ID, &NewVatPayment{Amount: dec(15), PaymentDate: "05/02/2024", BankCategoryId: f.bank.ID})
	require.NoError(t, err)
	assert.NotZero(t, payment.JournalId)
	filing := reloadFiling(t, db, draft.ID)
	assert.Equal(t, models.VatReportStatusPartiallyPaid, filing.Status)
	assertDecimal(t, dec(5), filing.BalanceDue)

	_, err = UndoFiledVatReport(ctx, logger, draft.ID)
	assert.True(t, utils.IsValidationError(err), "a return with payments cannot be undone")

	_, err = RecordVatPayment(ctx, logger, draft.ID, &NewVatPayment{Amount: dec(5), PaymentDate: "06/02/2024", BankCategoryId: f.bank.ID})
	require.NoError(t, err)
	filing = reloadFiling(t, db, draft.ID)
	assert.Equal(t, models.VatReportStatusPaid, filing.Status)
	assert.True(t, filing.BalanceDue.IsZero())
	assert.Len(t, filing.Payments, 2)

	// payable cleared by the bank: Dr VAT payable 20 / Cr bank 20
	assertDecimal(t, decimal.Zero, runningBalance(t, db, f.vatPayable.ID).RunningBalance)
	assertDecimal(t, dec(20), runningBalance(t, db, f.bank.ID).RunningBalance)

	_, err = RecordVatPayment(ctx, logger, draft.ID, &NewVatPayment{Amount: dec(1), PaymentDate: "07/02/2024", BankCategoryId: f.bank.ID})
	assert.True(t, utils.IsValidationError(err), "a paid return takes no more payments")
}

func TestRecordVatPayment_ReclaimableReturnIsClaimed(t *testing.T) {
	db := setupLedgerDB(t)
	f := seedVatPeriod(t, db)
	ctx := testContext()
	logger := testLogger()
	// a large purchase in March makes that period reclaimable
	require.NoError(t, db.Create(&models.Invoice{
		BusinessId: testBusinessId, Type: models.InvoiceTypeSupplier, InvoiceDate: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC),
		ExchangeRate: dec(1), Status: models.InvoiceStatusPosted, EditFlag: true,
		LineItems: []models.InvoiceLineItem{{SubTotal: dec(2000), VatAmount: dec(100), VatCategory: models.VatCategoryStandardRated}},
	}).Error)

	draft, err := ProcessVatReport(ctx, logger, &NewVatReportFiling{StartDate: "01/03/2024", EndDate: "31/03/2024"})
	require.NoError(t, err)
	assert.True(t, draft.IsVatReclaimable)
	assertDecimal(t, dec(100), draft.TotalTaxReclaimable)
	assertDecimal(t, dec(100), draft.BalanceDue)

	filed, err := FileVatReport(ctx, logger, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, filed.OutputVatJournalId, "no output VAT, no output journal")
	require.NotNil(t, filed.InputVatJournalId)

	_, err = RecordVatPayment(ctx, logger, draft.ID, &NewVatPayment{Amount: dec(100), PaymentDate: "10/04/2024", BankCategoryId: f.bank.ID})
	require.NoError(t, err)
	filing := reloadFiling(t, db, draft.ID)
	assert.Equal(t, models.VatReportStatusClaimed, filing.Status)
	// refund received: Dr bank 100 / Cr VAT payable 100
	assertDecimal(t, dec(-100), runningBalance(t, db, f.bank.ID).RunningBalance)
	assertDecimal(t, decimal.Zero, runningBalance(t, db, f.vatPayable.ID).RunningBalance)
}

func reloadFiling(t *testing.T, db *gorm.DB, id int) *models.VatReportFiling {
	t.Helper()
	var filing *models.VatReportFiling
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		filing, err = models.GetVatReportFilingForUpdate(context.Background(), tx, testBusinessId, id)
		return err
	})
	require.NoError(t, err)
	return filing
}
