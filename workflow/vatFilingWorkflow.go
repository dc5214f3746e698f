package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NewVatReportFiling struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type NewVatPayment struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    string          `json:"payment_date" validate:"required"`
	BankCategoryId int             `json:"bank_category_id" validate:"required,gt=0"`
}

// ProcessVatReport saves a draft (UN_FILED) return for the period with the
// totals computed from the source documents. Processing the same period
// again refreshes the draft's totals.
func ProcessVatReport(ctx context.Context, logger *logrus.Logger, input *NewVatReportFiling) (*models.VatReportFiling, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	period, err := reports.ParseReportPeriod(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()

	filing, err := models.GetVatReportFilingForPeriod(ctx, db, businessId, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	if filing != nil && filing.Status != models.VatReportStatusUnFiled {
		return nil, utils.NewValidationError("StartDate", "the VAT return for %s - %s is already %s", input.StartDate, input.EndDate, filing.Status)
	}
	if filing == nil {
		overlap, err := models.HasOverlappingVatReportFiling(ctx, db, businessId, period.Start, period.End)
		if err != nil {
			return nil, err
		}
		if overlap {
			return nil, utils.NewValidationError("StartDate", "a VAT return already covers part of %s - %s", input.StartDate, input.EndDate)
		}
	}

	vat, err := reports.ComputeVatReturn(ctx, db, businessId, period)
	if err != nil {
		return nil, err
	}

	if filing != nil {
		applyVatTotals(filing, vat)
		if err := db.WithContext(ctx).Model(filing).Updates(vatTotalColumns(filing)).Error; err != nil {
			config.LogError(logger, "VatFilingWorkflow", "ProcessVatReport", "Refreshing VAT filing", filing, err)
			return nil, err
		}
		return filing, nil
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	filing = &models.VatReportFiling{
		BusinessId:      businessId,
		ReferenceNumber: uuid.New().String(),
		StartDate:       period.Start,
		EndDate:         period.End,
		Status:          models.VatReportStatusUnFiled,
		CreatedBy:       userId,
	}
	applyVatTotals(filing, vat)
	if err := db.WithContext(ctx).Create(filing).Error; err != nil {
		config.LogError(logger, "VatFilingWorkflow", "ProcessVatReport", "Creating VAT filing", filing, err)
		return nil, err
	}
	return filing, nil
}

func applyVatTotals(filing *models.VatReportFiling, vat *reports.VatReturnReport) {
	filing.TotalOutputVat = vat.TotalOutputVat
	filing.TotalInputVat = vat.TotalInputVat
	net := vat.TotalOutputVat.Sub(vat.TotalInputVat)
	filing.IsVatReclaimable = net.IsNegative()
	filing.TotalTaxPayable = decimal.Zero
	filing.TotalTaxReclaimable = decimal.Zero
	if filing.IsVatReclaimable {
		filing.TotalTaxReclaimable = net.Abs()
	} else {
		filing.TotalTaxPayable = net
	}
	filing.BalanceDue = net.Abs()
}

func vatTotalColumns(filing *models.VatReportFiling) map[string]interface{} {
	return map[string]interface{}{
		"total_output_vat":      filing.TotalOutputVat,
		"total_input_vat":       filing.TotalInputVat,
		"total_tax_payable":     filing.TotalTaxPayable,
		"total_tax_reclaimable": filing.TotalTaxReclaimable,
		"balance_due":           filing.BalanceDue,
		"is_vat_reclaimable":    filing.IsVatReclaimable,
	}
}

type vatSystemCategories struct {
	InputVat   int
	OutputVat  int
	VatPayable int
}

func getVatSystemCategories(ctx context.Context, db *gorm.DB, businessId string) (vatSystemCategories, error) {
	var c vatSystemCategories
	var err error
	if c.InputVat, err = models.GetSystemAccountCategoryId(ctx, db, businessId, models.SystemCodeInputVat); err != nil {
		return c, err
	}
	if c.OutputVat, err = models.GetSystemAccountCategoryId(ctx, db, businessId, models.SystemCodeOutputVat); err != nil {
		return c, err
	}
	if c.VatPayable, err = models.GetSystemAccountCategoryId(ctx, db, businessId, models.SystemCodeVatPayable); err != nil {
		return c, err
	}
	return c, nil
}

func (c vatSystemCategories) ids() []int {
	return []int{c.InputVat, c.OutputVat, c.VatPayable}
}

// FileVatReport freezes the period's documents and posts the two clearing
// journals: input VAT and output VAT into VAT payable.
func FileVatReport(ctx context.Context, logger *logrus.Logger, filingId int) (*models.VatReportFiling, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	sys, err := getVatSystemCategories(ctx, db, businessId)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	unlock, err := DefaultCategoryLocker().Lock(ctx, logger, businessId, sys.ids())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var filing *models.VatReportFiling
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := AcquireCategoryPostingLocks(tx, businessId, sys.ids())
		if err != nil {
			return err
		}
		defer release()

		filing, err = models.GetVatReportFilingForUpdate(ctx, tx, businessId, filingId)
		if err != nil {
			return err
		}
		if filing.Status != models.VatReportStatusUnFiled {
			return utils.NewValidationError("Status", "only an UN_FILED return can be filed, this one is %s", filing.Status)
		}
		if err := setVatDocumentsEditable(ctx, tx, filing, false); err != nil {
			return err
		}
		// the journals clear what is frozen now, not what the draft saw
		vat, err := reports.ComputeVatReturn(ctx, tx, businessId, reports.ReportPeriod{Start: filing.StartDate, End: filing.EndDate})
		if err != nil {
			return err
		}
		applyVatTotals(filing, vat)

		inputJournal := clearingJournal(businessId, userId, filing, sys.VatPayable, sys.InputVat, filing.TotalInputVat, "Input VAT clearing")
		if inputJournal != nil {
			if err := prepareJournal(ctx, inputJournal); err != nil {
				return err
			}
			if err := postJournalTx(ctx, tx, logger, inputJournal); err != nil {
				return err
			}
			filing.InputVatJournalId = &inputJournal.ID
		}
		outputJournal := clearingJournal(businessId, userId, filing, sys.OutputVat, sys.VatPayable, filing.TotalOutputVat, "Output VAT clearing")
		if outputJournal != nil {
			if err := prepareJournal(ctx, outputJournal); err != nil {
				return err
			}
			if err := postJournalTx(ctx, tx, logger, outputJournal); err != nil {
				return err
			}
			filing.OutputVatJournalId = &outputJournal.ID
		}

		now := time.Now().UTC()
		filing.Status = models.VatReportStatusFiled
		filing.TaxFiledOn = &now
		columns := vatTotalColumns(filing)
		columns["status"] = filing.Status
		columns["tax_filed_on"] = filing.TaxFiledOn
		columns["input_vat_journal_id"] = filing.InputVatJournalId
		columns["output_vat_journal_id"] = filing.OutputVatJournalId
		return tx.WithContext(ctx).Model(filing).Updates(columns).Error
	})
	if err != nil {
		config.LogError(logger, "VatFilingWorkflow", "FileVatReport", "Filing VAT return", filingId, err)
		return nil, err
	}
	reports.InvalidateReportCache(logger, businessId)
	return filing, nil
}

// clearingJournal moves amount from creditCategory into debitCategory. A
// negative amount swaps the sides; zero needs no journal.
func clearingJournal(businessId string, userId int, filing *models.VatReportFiling, debitCategory int, creditCategory int, amount decimal.Decimal, description string) *models.Journal {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		debitCategory, creditCategory = creditCategory, debitCategory
		amount = amount.Abs()
	}
	return &models.Journal{
		BusinessId:    businessId,
		JournalDate:   filing.EndDate,
		ReferenceType: models.ReferenceTypeVatReportFiled,
		ReferenceId:   filing.ID,
		Description:   fmt.Sprintf("%s %s", description, filing.ReferenceNumber),
		CreatedBy:     userId,
		LineItems: []models.JournalLineItem{
			{AccountCategoryId: debitCategory, DebitAmount: amount, Description: description},
			{AccountCategoryId: creditCategory, CreditAmount: amount, Description: description},
		},
	}
}

// setVatDocumentsEditable flips edit_flag on every document the return
// reads. Drafts are not part of a return and stay editable.
func setVatDocumentsEditable(ctx context.Context, tx *gorm.DB, filing *models.VatReportFiling, editable bool) error {
	start := filing.StartDate
	end := filing.EndDate.AddDate(0, 0, 1)
	if err := tx.WithContext(ctx).Model(&models.Invoice{}).
		Where("business_id = ? AND delete_flag = ? AND status <> ? AND invoice_date >= ? AND invoice_date < ?", filing.BusinessId, false, models.InvoiceStatusDraft, start, end).
		Update("edit_flag", editable).Error; err != nil {
		return fmt.Errorf("set edit_flag on invoices: %w", err)
	}
	if err := tx.WithContext(ctx).Model(&models.Expense{}).
		Where("business_id = ? AND delete_flag = ? AND vat_claimable = ? AND expense_date >= ? AND expense_date < ?", filing.BusinessId, false, true, start, end).
		Update("edit_flag", editable).Error; err != nil {
		return fmt.Errorf("set edit_flag on expenses: %w", err)
	}
	if err := tx.WithContext(ctx).Model(&models.CreditNote{}).
		Where("business_id = ? AND delete_flag = ? AND note_date >= ? AND note_date < ?", filing.BusinessId, false, start, end).
		Update("edit_flag", editable).Error; err != nil {
		return fmt.Errorf("set edit_flag on credit notes: %w", err)
	}
	return nil
}

// UndoFiledVatReport reverses both clearing journals and unfreezes the
// period. A return with payments cannot be undone.
func UndoFiledVatReport(ctx context.Context, logger *logrus.Logger, filingId int) (*models.VatReportFiling, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	sys, err := getVatSystemCategories(ctx, db, businessId)
	if err != nil {
		return nil, err
	}

	unlock, err := DefaultCategoryLocker().Lock(ctx, logger, businessId, sys.ids())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var filing *models.VatReportFiling
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := AcquireCategoryPostingLocks(tx, businessId, sys.ids())
		if err != nil {
			return err
		}
		defer release()

		filing, err = models.GetVatReportFilingForUpdate(ctx, tx, businessId, filingId)
		if err != nil {
			return err
		}
		if filing.Status != models.VatReportStatusFiled {
			return utils.NewValidationError("Status", "only a FILED return can be undone, this one is %s", filing.Status)
		}
		if len(filing.Payments) > 0 {
			return utils.NewValidationError("Payments", "a return with recorded payments cannot be undone")
		}

		var journalIds []int
		if filing.InputVatJournalId != nil {
			journalIds = append(journalIds, *filing.InputVatJournalId)
		}
		if filing.OutputVatJournalId != nil {
			journalIds = append(journalIds, *filing.OutputVatJournalId)
		}
		if len(journalIds) > 0 {
			if _, err := reverseJournalsTx(ctx, tx, logger, businessId, journalIds); err != nil {
				return err
			}
		}
		if err := setVatDocumentsEditable(ctx, tx, filing, true); err != nil {
			return err
		}

		filing.Status = models.VatReportStatusUnFiled
		filing.TaxFiledOn = nil
		filing.InputVatJournalId = nil
		filing.OutputVatJournalId = nil
		return tx.WithContext(ctx).Model(filing).Updates(map[string]interface{}{
			"status":                filing.Status,
			"tax_filed_on":          nil,
			"input_vat_journal_id":  nil,
			"output_vat_journal_id": nil,
		}).Error
	})
	if err != nil {
		config.LogError(logger, "VatFilingWorkflow", "UndoFiledVatReport", "Undoing VAT filing", filingId, err)
		return nil, err
	}
	reports.InvalidateReportCache(logger, businessId)
	return filing, nil
}

// RecordVatPayment posts a payment (or refund, for a reclaimable return)
// against a filed return and moves its status along.
func RecordVatPayment(ctx context.Context, logger *logrus.Logger, filingId int, input *NewVatPayment) (*models.VatPayment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("Amount", "amount must be greater than zero")
	}
	paymentDate, err := utils.ParseReportDate("PaymentDate", input.PaymentDate)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()

	bankCategory, err := models.GetAccountCategory(ctx, db, businessId, input.BankCategoryId)
	if err != nil {
		return nil, err
	}
	if !bankCategory.ChartCategory.IsBankOrCash() {
		return nil, utils.NewValidationError("BankCategoryId", "account category %d is not a bank or cash account", input.BankCategoryId)
	}
	vatPayable, err := models.GetSystemAccountCategoryId(ctx, db, businessId, models.SystemCodeVatPayable)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	categoryIds := []int{vatPayable, input.BankCategoryId}

	unlock, err := DefaultCategoryLocker().Lock(ctx, logger, businessId, categoryIds)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var payment *models.VatPayment
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release, err := AcquireCategoryPostingLocks(tx, businessId, categoryIds)
		if err != nil {
			return err
		}
		defer release()

		filing, err := models.GetVatReportFilingForUpdate(ctx, tx, businessId, filingId)
		if err != nil {
			return err
		}
		if filing.Status != models.VatReportStatusFiled && filing.Status != models.VatReportStatusPartiallyPaid {
			return utils.NewValidationError("Status", "payments can only be recorded on a filed return, this one is %s", filing.Status)
		}
		if input.Amount.GreaterThan(filing.BalanceDue) {
			return utils.NewValidationError("Amount", "amount %s exceeds the balance due %s", input.Amount.String(), filing.BalanceDue.String())
		}

		debit, credit := vatPayable, input.BankCategoryId
		description := "VAT payment"
		if filing.IsVatReclaimable {
			debit, credit = input.BankCategoryId, vatPayable
			description = "VAT refund"
		}
		journal := &models.Journal{
			BusinessId:    businessId,
			JournalDate:   paymentDate,
			ReferenceType: models.ReferenceTypeVatPayment,
			ReferenceId:   filing.ID,
			Description:   fmt.Sprintf("%s %s", description, filing.ReferenceNumber),
			CreatedBy:     userId,
			LineItems: []models.JournalLineItem{
				{AccountCategoryId: debit, DebitAmount: input.Amount, Description: description},
				{AccountCategoryId: credit, CreditAmount: input.Amount, Description: description},
			},
		}
		if err := prepareJournal(ctx, journal); err != nil {
			return err
		}
		if err := postJournalTx(ctx, tx, logger, journal); err != nil {
			return err
		}

		payment = &models.VatPayment{
			BusinessId:        businessId,
			VatReportFilingId: filing.ID,
			Amount:            input.Amount,
			PaymentDate:       paymentDate,
			BankCategoryId:    input.BankCategoryId,
			JournalId:         journal.ID,
		}
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return err
		}

		balanceDue := filing.BalanceDue.Sub(input.Amount)
		status := models.VatReportStatusPartiallyPaid
		if balanceDue.IsZero() {
			status = models.VatReportStatusPaid
			if filing.IsVatReclaimable {
				status = models.VatReportStatusClaimed
			}
		}
		return tx.WithContext(ctx).Model(filing).Updates(map[string]interface{}{
			"balance_due": balanceDue,
			"status":      status,
		}).Error
	})
	if err != nil {
		config.LogError(logger, "VatFilingWorkflow", "RecordVatPayment", "Recording VAT payment", input, err)
		return nil, err
	}
	reports.InvalidateReportCache(logger, businessId)
	return payment, nil
}
