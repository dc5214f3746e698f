package models

import (
	"fmt"
	"strings"
)

// ChartCategory is the fixed top-level chart-of-account classification.
type ChartCategory string

const (
	ChartCategoryCash                    ChartCategory = "CASH"
	ChartCategoryBank                    ChartCategory = "BANK"
	ChartCategoryCurrentAsset            ChartCategory = "CURRENT_ASSET"
	ChartCategoryFixedAsset              ChartCategory = "FIXED_ASSET"
	ChartCategoryOtherCurrentAsset       ChartCategory = "OTHER_CURRENT_ASSET"
	ChartCategoryAccountsReceivable      ChartCategory = "ACCOUNTS_RECEIVABLE"
	ChartCategoryAccountsPayable         ChartCategory = "ACCOUNTS_PAYABLE"
	ChartCategoryOtherCurrentLiabilities ChartCategory = "OTHER_CURRENT_LIABILITIES"
	ChartCategoryOtherLiability          ChartCategory = "OTHER_LIABILITY"
	ChartCategoryEquity                  ChartCategory = "EQUITY"
	ChartCategoryIncome                  ChartCategory = "INCOME"
	ChartCategoryAdminExpense            ChartCategory = "ADMIN_EXPENSE"
	ChartCategoryOtherExpense            ChartCategory = "OTHER_EXPENSE"
	ChartCategoryCostOfGoodsSold         ChartCategory = "COST_OF_GOODS_SOLD"
	ChartCategoryStock                   ChartCategory = "STOCK"
)

var AllChartCategories = []ChartCategory{
	ChartCategoryCash,
	ChartCategoryBank,
	ChartCategoryCurrentAsset,
	ChartCategoryFixedAsset,
	ChartCategoryOtherCurrentAsset,
	ChartCategoryAccountsReceivable,
	ChartCategoryAccountsPayable,
	ChartCategoryOtherCurrentLiabilities,
	ChartCategoryOtherLiability,
	ChartCategoryEquity,
	ChartCategoryIncome,
	ChartCategoryAdminExpense,
	ChartCategoryOtherExpense,
	ChartCategoryCostOfGoodsSold,
	ChartCategoryStock,
}

func (c ChartCategory) IsValid() bool {
	for _, v := range AllChartCategories {
		if v == c {
			return true
		}
	}
	return false
}

// IsBankOrCash reports whether the category can carry a bank-account series.
func (c ChartCategory) IsBankOrCash() bool {
	return c == ChartCategoryBank || c == ChartCategoryCash
}

func ParseChartCategory(s string) (ChartCategory, error) {
	c := ChartCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid chart category %q", s)
	}
	return c, nil
}

// Well-known account categories, matched on AccountCategory.SystemCode.
const (
	SystemCodeInputVat                        = "INPUT_VAT"
	SystemCodeOutputVat                       = "OUTPUT_VAT"
	SystemCodeVatPayable                      = "VAT_PAYABLE"
	SystemCodeRetainedEarnings                = "RETAINED_EARNINGS"
	SystemCodeOpeningBalanceOffsetAssets      = "OPENING_BALANCE_OFFSET_ASSETS"
	SystemCodeOpeningBalanceOffsetLiabilities = "OPENING_BALANCE_OFFSET_LIABILITIES"
)

type ReferenceType string

const (
	ReferenceTypeInvoice        ReferenceType = "INVOICE"
	ReferenceTypeExpense        ReferenceType = "EXPENSE"
	ReferenceTypePayment        ReferenceType = "PAYMENT"
	ReferenceTypeCreditNote     ReferenceType = "CREDIT_NOTE"
	ReferenceTypeManual         ReferenceType = "MANUAL"
	ReferenceTypeOpeningBalance ReferenceType = "OPENING_BALANCE"
	ReferenceTypeVatReportFiled ReferenceType = "VAT_REPORT_FILED"
	ReferenceTypeVatPayment     ReferenceType = "VAT_PAYMENT"
)

type VatCategory string

const (
	VatCategoryStandardRated VatCategory = "STANDARD_RATED"
	VatCategoryZeroRated     VatCategory = "ZERO_RATED"
	VatCategoryExempt        VatCategory = "EXEMPT"
	VatCategoryOutOfScope    VatCategory = "OUT_OF_SCOPE"
)

type VatReportStatus string

const (
	VatReportStatusUnFiled       VatReportStatus = "UN_FILED"
	VatReportStatusFiled         VatReportStatus = "FILED"
	VatReportStatusPartiallyPaid VatReportStatus = "PARTIALLY_PAID"
	VatReportStatusPaid          VatReportStatus = "PAID"
	VatReportStatusClaimed       VatReportStatus = "CLAIMED"
)

type InvoiceType string

const (
	InvoiceTypeCustomer InvoiceType = "CUSTOMER"
	InvoiceTypeSupplier InvoiceType = "SUPPLIER"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusPosted  InvoiceStatus = "POSTED"
	InvoiceStatusPartial InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

type CreditNoteType string

const (
	// issued to a customer, reduces output VAT
	CreditNoteTypeCredit CreditNoteType = "CREDIT_NOTE"
	// received from a supplier, reduces input VAT
	CreditNoteTypeDebit CreditNoteType = "DEBIT_NOTE"
)

// PlaceOfSupply is the UAE emirate a standard-rated sale is reported under.
type PlaceOfSupply int

const (
	PlaceOfSupplyAbuDhabi     PlaceOfSupply = 1
	PlaceOfSupplyDubai        PlaceOfSupply = 2
	PlaceOfSupplySharjah      PlaceOfSupply = 3
	PlaceOfSupplyAjman        PlaceOfSupply = 4
	PlaceOfSupplyUmmAlQuwain  PlaceOfSupply = 5
	PlaceOfSupplyRasAlKhaimah PlaceOfSupply = 6
	PlaceOfSupplyFujairah     PlaceOfSupply = 7
)

var AllPlacesOfSupply = []PlaceOfSupply{
	PlaceOfSupplyAbuDhabi,
	PlaceOfSupplyDubai,
	PlaceOfSupplySharjah,
	PlaceOfSupplyAjman,
	PlaceOfSupplyUmmAlQuwain,
	PlaceOfSupplyRasAlKhaimah,
	PlaceOfSupplyFujairah,
}

func (p PlaceOfSupply) Name() string {
	switch p {
	case PlaceOfSupplyAbuDhabi:
		return "Abu Dhabi"
	case PlaceOfSupplyDubai:
		return "Dubai"
	case PlaceOfSupplySharjah:
		return "Sharjah"
	case PlaceOfSupplyAjman:
		return "Ajman"
	case PlaceOfSupplyUmmAlQuwain:
		return "Umm Al Quwain"
	case PlaceOfSupplyRasAlKhaimah:
		return "Ras Al Khaimah"
	case PlaceOfSupplyFujairah:
		return "Fujairah"
	}
	return ""
}
