package services

import (
	"fmt"
	"io"

	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/xuri/excelize/v2"
)

// OrdersSheet is the sheet name of the order export
const OrdersSheet = "Orders"

// OrderExportHeaders are the column titles of the order export
var OrderExportHeaders = []string{"ID", "Customer", "Address", "Category", "Status", "Worker", "Description", "Created", "Updated"}

const exportTimeLayout = "02.01.2006 15:04"

// WriteOrdersXLSX writes orders as an xlsx workbook to w
func WriteOrdersXLSX(w io.Writer, orders []models.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(OrdersSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, header := range OrderExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(OrdersSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, order := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			order.ID,
			customerName(order.Customer),
			customerAddress(order.Customer),
			order.Category.Display(),
			order.Status.Display(),
			workerName(order.Assignment),
			order.Description,
			order.CreatedAt.Format(exportTimeLayout),
			order.UpdatedAt.Format(exportTimeLayout),
		}
		if err := f.SetSheetRow(OrdersSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write order %d: %w", order.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func customerName(account *models.Account) string {
	if account == nil {
		return ""
	}
	if name := account.FullName(); name != "" {
		return name
	}
	return account.Email
}

func customerAddress(account *models.Account) string {
	if account == nil || account.Contact == nil {
		return ""
	}
	return account.Contact.Address()
}

func workerName(assignment *models.Assignment) string {
	if assignment == nil || assignment.Worker == nil {
		return ""
	}
	return customerName(assignment.Worker)
}
