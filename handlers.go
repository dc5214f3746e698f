package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/books_ledger/models"
	"github.com/mmdatafocus/books_ledger/models/reports"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/mmdatafocus/books_ledger/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type journalLineRequest struct {
	AccountCategoryId int             `json:"account_category_id"`
	Description       string          `json:"description"`
	DebitAmount       decimal.Decimal `json:"debit_amount"`
	CreditAmount      decimal.Decimal `json:"credit_amount"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"`
}

type journalRequest struct {
	JournalDate   string               `json:"journal_date"`
	ReferenceType models.ReferenceType `json:"reference_type"`
	ReferenceId   int                  `json:"reference_id"`
	Description   string               `json:"description"`
	LineItems     []journalLineRequest `json:"line_items"`
}

func (r journalRequest) toJournal() (*models.Journal, error) {
	date, err := utils.ParseReportDate("journal_date", r.JournalDate)
	if err != nil {
		return nil, err
	}
	j := &models.Journal{
		JournalDate:   date,
		ReferenceType: r.ReferenceType,
		ReferenceId:   r.ReferenceId,
		Description:   r.Description,
		LineItems:     make([]models.JournalLineItem, 0, len(r.LineItems)),
	}
	for _, l := range r.LineItems {
		j.LineItems = append(j.LineItems, models.JournalLineItem{
			AccountCategoryId: l.AccountCategoryId,
			Description:       l.Description,
			DebitAmount:       l.DebitAmount,
			CreditAmount:      l.CreditAmount,
			ExchangeRate:      l.ExchangeRate,
		})
	}
	return j, nil
}

type reverseJournalsRequest struct {
	JournalIds []int `json:"journal_ids"`
}

// writeError maps workflow errors onto status codes.
func writeError(c *gin.Context, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrCategoryLockNotObtained), errors.Is(err, workflow.ErrSnapshotConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathId(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, utils.NewValidationError("id", "invalid id %q", c.Param("id"))
	}
	return id, nil
}

func postJournalHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req journalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		journal, err := req.toJournal()
		if err != nil {
			writeError(c, err)
			return
		}
		journal, err = workflow.PostJournal(c.Request.Context(), logger, journal)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, journal)
	}
}

func reverseJournalsHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reverseJournalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		reversed, err := workflow.ReverseJournals(c.Request.Context(), logger, req.JournalIds)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reversed": reversed})
	}
}

func reportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.BuildReport(c.Request.Context(), c.Param("type"), c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func exportReportHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.BuildReport(c.Request.Context(), c.Param("type"), c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			writeError(c, err)
			return
		}
		f, err := reports.ExportReportToExcel(report)
		if err != nil {
			writeError(c, err)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.WithFields(logrus.Fields{"field": "exportReportHandler"}).Warn("closing workbook: " + err.Error())
			}
		}()
		h := report.Header()
		c.Header("Content-Type", reports.ExcelContentType)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", h.ReportType))
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}

func vatReturnHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetVatReturnReport(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func processVatReportHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewVatReportFiling
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		filing, err := workflow.ProcessVatReport(c.Request.Context(), logger, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, filing)
	}
}

func fileVatReportHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			writeError(c, err)
			return
		}
		filing, err := workflow.FileVatReport(c.Request.Context(), logger, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, filing)
	}
}

func undoVatReportHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			writeError(c, err)
			return
		}
		filing, err := workflow.UndoFiledVatReport(c.Request.Context(), logger, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, filing)
	}
}

func recordVatPaymentHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			writeError(c, err)
			return
		}
		var input workflow.NewVatPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		payment, err := workflow.RecordVatPayment(c.Request.Context(), logger, id, &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}
