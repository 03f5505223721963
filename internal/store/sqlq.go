package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

const selectEvents = `SELECT e.id, e.doc, r.id, r.capture_id, r.record_time, COALESCE(r.user_id, '')
FROM epcis_event e
JOIN epcis_request r ON r.id = e.request_id`

var eventColumns = map[query.Attr]string{
	query.AttrEventType:        "e.event_type",
	query.AttrEventTime:        "e.event_time",
	query.AttrRecordTime:       "r.record_time",
	query.AttrAction:           "e.action",
	query.AttrBizLocation:      "e.business_location",
	query.AttrBizStep:          "e.business_step",
	query.AttrDisposition:      "e.disposition",
	query.AttrEventID:          "e.event_id",
	query.AttrTransformationID: "e.transformation_id",
	query.AttrReadPoint:        "e.read_point",
	query.AttrUserID:           "r.user_id",
	query.AttrDeclarationTime:  "e.corrective_declaration_time",
	query.AttrErrorReason:      "e.corrective_reason",
	query.AttrRequestID:        "r.id",
	query.AttrCaptureID:        "r.capture_id",
}

type childTable struct {
	name    string
	columns map[query.Attr]string
}

var childTables = map[query.Set]childTable{
	query.SetEpcs: {"epcis_epc", map[query.Attr]string{
		query.AttrType:     "epc_type",
		query.AttrID:       "epc",
		query.AttrQuantity: "quantity",
		query.AttrUnit:     "uom",
	}},
	query.SetSources: {"epcis_source", map[query.Attr]string{
		query.AttrType: "source_type",
		query.AttrID:   "source_id",
	}},
	query.SetDestinations: {"epcis_destination", map[query.Attr]string{
		query.AttrType: "destination_type",
		query.AttrID:   "destination_id",
	}},
	query.SetTransactions: {"epcis_biz_transaction", map[query.Attr]string{
		query.AttrType: "transaction_type",
		query.AttrID:   "transaction_id",
	}},
	query.SetPersistentDispositions: {"epcis_persistent_disposition", map[query.Attr]string{
		query.AttrType: "disposition_type",
		query.AttrID:   "disposition_id",
	}},
	query.SetSensorElements: {"epcis_sensor_element", map[query.Attr]string{
		query.AttrStartTime:            "start_time",
		query.AttrEndTime:              "end_time",
		query.AttrBizRules:             "biz_rules",
		query.AttrDeviceID:             "device_id",
		query.AttrDataProcessingMethod: "data_processing_method",
	}},
	query.SetReports: {"epcis_sensor_report", map[query.Attr]string{
		query.AttrType:                 "report_type",
		query.AttrDeviceID:             "device_id",
		query.AttrDataProcessingMethod: "data_processing_method",
		query.AttrMicroorganism:        "microorganism",
		query.AttrChemicalSubstance:    "chemical_substance",
		query.AttrStringValue:          "string_value",
		query.AttrBooleanValue:         "boolean_value",
		query.AttrHexBinaryValue:       "hex_binary_value",
		query.AttrURIValue:             "uri_value",
		query.AttrUnit:                 "uom",
		query.AttrValue:                "value",
		query.AttrMinValue:             "min_value",
		query.AttrMaxValue:             "max_value",
		query.AttrMeanValue:            "mean_value",
		query.AttrSDev:                 "s_dev",
		query.AttrPercRank:             "perc_rank",
		query.AttrPercValue:            "perc_value",
	}},
	query.SetFields: {"epcis_field", map[query.Attr]string{
		query.AttrKind:      "kind",
		query.AttrNamespace: "namespace",
		query.AttrName:      "name",
		query.AttrText:      "text_value",
		query.AttrNumeric:   "numeric_value",
		query.AttrDate:      "date_value",
	}},
	query.SetCorrectiveIDs: {"epcis_corrective_event_id", map[query.Attr]string{
		query.AttrID: "corrective_id",
	}},
}

var sqlOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// scope resolves attributes to columns: the event row, or the element
// row of a child table inside an EXISTS subquery.
type scope struct {
	alias   string
	set     query.Set
	columns map[query.Attr]string
}

var eventScope = scope{columns: eventColumns}

func (s scope) column(attr query.Attr) (string, error) {
	col, ok := s.columns[attr]
	if !ok {
		if s.set == "" {
			return "", errors.Errorf("no column for event attribute %q", attr)
		}
		return "", errors.Errorf("no column for %s attribute %q", s.set, attr)
	}
	if s.alias == "" {
		return col, nil
	}
	return s.alias + "." + col, nil
}

// sqlQuery translates a plan into one parameterised SELECT. It is shared
// by the Postgres and DuckDB stores; both accept $n placeholders. The first
// translation error sticks and is returned by SQL.
type sqlQuery struct {
	where   []string
	args    []any
	order   string
	offset  int
	limit   int
	limited bool
	err     error
}

func newSQLQuery() *sqlQuery {
	return &sqlQuery{}
}

// Explain returns the statement and arguments a SQL store runs for plan.
func Explain(plan *query.Plan) (string, []any, error) {
	return translate(plan).SQL()
}

func translate(plan *query.Plan) *sqlQuery {
	return plan.Apply(newSQLQuery()).(*sqlQuery)
}

func (q *sqlQuery) Where(e query.Expr) query.Collection {
	if q.err != nil {
		return q
	}
	clause, err := q.expr(e, eventScope)
	if err != nil {
		q.err = err
		return q
	}
	q.where = append(q.where, clause)
	return q
}

func (q *sqlQuery) OrderBy(o query.Order) query.Collection {
	col, ok := eventColumns[o.Attr]
	if !ok {
		q.err = errors.Errorf("cannot order by %q", o.Attr)
		return q
	}
	dir := "DESC"
	if o.Ascending {
		dir = "ASC"
	}
	q.order = fmt.Sprintf("%s %s, e.id %s", col, dir, dir)
	return q
}

func (q *sqlQuery) Skip(n int) query.Collection {
	q.offset = n
	return q
}

func (q *sqlQuery) Take(n int) query.Collection {
	q.limit = n
	q.limited = true
	return q
}

// SQL renders the statement. Without an order stage rows come back in
// capture order.
func (q *sqlQuery) SQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	var b strings.Builder
	b.WriteString(selectEvents)
	if len(q.where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(q.where, "\n  AND "))
	}

	b.WriteString("\nORDER BY ")
	if q.order != "" {
		b.WriteString(q.order)
	} else {
		b.WriteString("e.id")
	}

	if q.limited {
		b.WriteString("\nLIMIT " + strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		b.WriteString("\nOFFSET " + strconv.Itoa(q.offset))
	}
	return b.String(), q.args, nil
}

func (q *sqlQuery) bind(v any) string {
	q.args = append(q.args, sqlValue(v))
	return "$" + strconv.Itoa(len(q.args))
}

func (q *sqlQuery) bindAll(values []any) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = q.bind(v)
	}
	return strings.Join(ph, ", ")
}

func (q *sqlQuery) expr(e query.Expr, s scope) (string, error) {
	switch e.Op {
	case query.OpEq, query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		if len(e.Values) != 1 {
			return "", errors.Errorf("%s needs one operand", e.Op)
		}
		if s.set == query.SetFields && e.Attr == query.AttrInner {
			return innerClause(s, e)
		}
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", col, sqlOps[e.Op], q.bind(e.Values[0])), nil

	case query.OpIn:
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		if len(e.Values) == 0 {
			return "FALSE", nil
		}
		if len(e.Values) == 1 {
			return fmt.Sprintf("%s = %s", col, q.bind(e.Values[0])), nil
		}
		return fmt.Sprintf("%s IN (%s)", col, q.bindAll(e.Values)), nil

	case query.OpLike:
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		if len(e.Values) == 0 {
			return "FALSE", nil
		}
		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			parts[i] = fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, col, q.bind(globToLike(fmt.Sprint(v))))
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil

	case query.OpNotNull:
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		return col + " IS NOT NULL", nil

	case query.OpAny:
		return q.exists(e, s)

	case query.OpWithin:
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		if len(e.Values) == 0 {
			return "FALSE", nil
		}
		self := q.bindAll(e.Values)
		vocab := q.bind(e.Vocab)
		roots := q.bindAll(e.Values)
		return fmt.Sprintf(
			"(%s IN (%s) OR EXISTS (SELECT 1 FROM masterdata_hierarchy h WHERE h.md_type = %s AND h.id = %s AND h.root IN (%s)))",
			col, self, vocab, col, roots,
		), nil

	case query.OpHasAttribute:
		col, err := s.column(e.Attr)
		if err != nil {
			return "", err
		}
		clause := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM masterdata_attribute a WHERE a.md_type = %s AND a.md_id = %s AND a.attribute_id = %s",
			q.bind(e.Vocab), col, q.bind(e.Name),
		)
		if len(e.Values) > 0 {
			clause += fmt.Sprintf(" AND a.value IN (%s)", q.bindAll(e.Values))
		}
		return clause + ")", nil
	}

	return "", errors.Errorf("unsupported operator %q", e.Op)
}

func (q *sqlQuery) exists(e query.Expr, s scope) (string, error) {
	if s.set != "" {
		return "", errors.Errorf("nested element filter on %s inside %s", e.Set, s.set)
	}
	table, ok := childTables[e.Set]
	if !ok {
		return "", errors.Errorf("unknown element set %q", e.Set)
	}

	inner := scope{alias: "c", set: e.Set, columns: table.columns}
	conds := []string{"c.event_id = e.id"}
	for _, c := range e.Children {
		clause, err := q.expr(c, inner)
		if err != nil {
			return "", err
		}
		conds = append(conds, clause)
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s c WHERE %s)", table.name, strings.Join(conds, " AND ")), nil
}

func innerClause(s scope, e query.Expr) (string, error) {
	inner, ok := e.Values[0].(bool)
	if !ok || e.Op != query.OpEq {
		return "", errors.Errorf("inner must be compared for equality with a boolean")
	}
	if inner {
		return s.alias + ".parent_index IS NOT NULL", nil
	}
	return s.alias + ".parent_index IS NULL", nil
}

// globToLike turns a glob where only '*' is special into a LIKE pattern
// escaped with backslash.
func globToLike(glob string) string {
	var b strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sqlValue maps engine values onto driver values: enums are stored as
// integers and timestamps in UTC.
func sqlValue(v any) any {
	switch v := v.(type) {
	case models.EventType:
		return int64(v)
	case models.Action:
		return int64(v)
	case models.EpcType:
		return int64(v)
	case models.DispositionType:
		return int64(v)
	case models.FieldKind:
		return int64(v)
	case int:
		return int64(v)
	case time.Time:
		return v.UTC()
	}
	return v
}
