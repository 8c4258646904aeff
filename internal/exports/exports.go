// Package exports renders the lead table as a spreadsheet.
package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"leadtracker_backend/internal/leads"
	"leadtracker_backend/internal/leads/domain"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	sheetName  = "客户跟进表"
	dateLayout = "2006-01-02"
)

// header uses the labels the importer recognizes, so an export can be
// loaded back. The trailing identifier columns are skipped on import.
var header = []string{
	"客户名称", "电话", "客户来源", "店铺名称", "应用场地", "是否施工",
	"单价", "平方数", "施工费", "材料费", "运费", "总金额",
	"对接人", "跟踪进度", "购买意向", "样品编号", "订单号",
	"日期", "最后联系日期", "计划下次跟进", "跟进记录",
	"线索编号", "对接人编号",
}

// Sheet is the rendered table: a header and one row per lead.
type Sheet struct {
	Header []string
	Rows   [][]string
}

type Service struct {
	leads leads.Reader
	loc   *time.Location
}

// NewService builds an exporter. loc renders history timestamps.
func NewService(reader leads.Reader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{leads: reader, loc: loc}
}

// Build loads leads and their history concurrently and renders them.
func (s *Service) Build(ctx context.Context) (Sheet, error) {
	var (
		all     []domain.Lead
		history map[int64][]domain.HistoryEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.leads.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = s.leads.ListAllHistory(gctx)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Sheet{}, err
	}

	sheet := Sheet{Header: header, Rows: make([][]string, 0, len(all))}
	for _, l := range all {
		sheet.Rows = append(sheet.Rows, s.row(l, history[l.ID]))
	}
	return sheet, nil
}

func (s *Service) row(l domain.Lead, entries []domain.HistoryEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line(s.loc))
	}
	construction := "否"
	if l.IsConstruction {
		construction = "是"
	}
	return []string{
		l.CustomerName, l.Phone, l.Source, l.ChannelName, l.SiteType, construction,
		money(l.UnitPrice), money(l.Area), money(l.ConstructionFee), money(l.MaterialFee), money(l.ShippingFee), money(l.TotalAmount),
		l.OwnerName, l.Stage.Label(), l.Intent.Label(), l.SampleRef, l.OrderRef,
		l.CreatedDate.Format(dateLayout), date(l.LastContactDate), date(l.NextContactDate),
		strings.Join(lines, "\n"),
		strconv.FormatInt(l.ID, 10), l.OwnerID.String(),
	}
}

// WriteCSV writes sheet with a byte order mark so spreadsheet programs
// detect UTF-8.
func WriteCSV(w io.Writer, sheet Sheet) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(sheet.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteXLSX writes sheet as a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet Sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", cells(sheet.Header)); err != nil {
		return err
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
