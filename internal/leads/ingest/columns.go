package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Column is a canonical import column.
type Column string

const (
	ColCustomerName    Column = "customerName"
	ColPhone           Column = "phone"
	ColSource          Column = "source"
	ColChannelName     Column = "channelName"
	ColSiteType        Column = "siteType"
	ColIsConstruction  Column = "isConstruction"
	ColUnitPrice       Column = "unitPrice"
	ColArea            Column = "area"
	ColConstructionFee Column = "constructionFee"
	ColMaterialFee     Column = "materialFee"
	ColShippingFee     Column = "shippingFee"
	ColTotalAmount     Column = "totalAmount"
	ColStage           Column = "stage"
	ColPurchaseIntent  Column = "purchaseIntent"
	ColSampleRef       Column = "sampleRef"
	ColOrderRef        Column = "orderRef"
	ColCreatedDate     Column = "createdDate"
	ColLastContactDate Column = "lastContactDate"
	ColNextContactDate Column = "nextContactDate"
	ColOwner           Column = "owner"
	ColNote            Column = "note"
)

// requiredColumns must be present in every import.
var requiredColumns = []Column{ColCustomerName}

// synonyms maps header spellings, after canonicalHeader, to columns.
var synonyms = buildSynonyms(map[Column][]string{
	ColCustomerName:    {"customerName", "customer", "name", "client", "clientName", "客户名称", "客户", "客户名", "姓名"},
	ColPhone:           {"phone", "phoneNumber", "tel", "telephone", "mobile", "电话", "手机", "手机号", "联系电话"},
	ColSource:          {"source", "leadSource", "客户来源", "来源"},
	ColChannelName:     {"channelName", "channel", "shop", "shopName", "store", "店铺名称", "店铺", "渠道"},
	ColSiteType:        {"siteType", "site", "application", "应用场地", "场地"},
	ColIsConstruction:  {"isConstruction", "construction", "needsConstruction", "是否施工"},
	ColUnitPrice:       {"unitPrice", "price", "单价"},
	ColArea:            {"area", "sqm", "squareMeters", "平方数", "面积"},
	ColConstructionFee: {"constructionFee", "施工费"},
	ColMaterialFee:     {"materialFee", "材料费"},
	ColShippingFee:     {"shippingFee", "shipping", "freight", "运费"},
	ColTotalAmount:     {"totalAmount", "total", "总金额"},
	ColStage:           {"stage", "status", "progress", "跟踪进度", "进度", "阶段"},
	ColPurchaseIntent:  {"purchaseIntent", "intent", "购买意向", "意向"},
	ColSampleRef:       {"sampleRef", "sample", "样品", "样品编号"},
	ColOrderRef:        {"orderRef", "order", "orderNumber", "订单", "订单号"},
	ColCreatedDate:     {"createdDate", "date", "日期", "录入日期", "创建日期"},
	ColLastContactDate: {"lastContactDate", "lastContact", "最后联系日期", "上次联系"},
	ColNextContactDate: {"nextContactDate", "nextContact", "nextFollowUp", "计划下次跟进", "下次跟进"},
	ColOwner:           {"owner", "rep", "representative", "salesRep", "对接人", "负责人"},
	ColNote:            {"note", "notes", "remark", "remarks", "followUp", "跟进记录", "备注", "跟进记录/备注"},
})

func buildSynonyms(in map[Column][]string) map[string]Column {
	out := make(map[string]Column)
	for col, names := range in {
		for _, name := range names {
			out[canonicalHeader(name)] = col
		}
	}
	return out
}

var (
	unitSuffix  = regexp.MustCompile(`[(（][^)）]*[)）]`)
	headerNoise = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "　", "")
)

// canonicalHeader folds a header cell for synonym lookup: unit suffixes
// such as "(元/㎡)" are dropped, full-width forms narrowed, and case and
// separators ignored.
func canonicalHeader(h string) string {
	h = width.Narrow.String(strings.TrimSpace(h))
	h = unitSuffix.ReplaceAllString(h, "")
	return strings.ToLower(headerNoise.Replace(h))
}

// ReconciliationError reports required columns the header lacks.
type ReconciliationError struct {
	Missing []Column
}

func (e *ReconciliationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(names, ", "))
}

// Mapping locates canonical columns in a header row.
type Mapping struct {
	index map[Column]int
	// Unknown lists header cells that matched no column.
	Unknown []string
}

// Has reports whether col was found.
func (m Mapping) Has(col Column) bool {
	_, ok := m.index[col]
	return ok
}

// Value returns the raw cell for col in row, "" when the column is absent.
func (m Mapping) Value(row []string, col Column) string {
	idx, ok := m.index[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Reconcile maps header onto canonical columns. The first header cell
// wins when several map to the same column.
func Reconcile(header []string) (Mapping, error) {
	m := Mapping{index: make(map[Column]int)}
	for i, cell := range header {
		col, ok := synonyms[canonicalHeader(cell)]
		if !ok {
			if strings.TrimSpace(cell) != "" {
				m.Unknown = append(m.Unknown, cell)
			}
			continue
		}
		if _, seen := m.index[col]; !seen {
			m.index[col] = i
		}
	}

	var missing []Column
	for _, col := range requiredColumns {
		if !m.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Mapping{}, &ReconciliationError{Missing: missing}
	}
	return m, nil
}
