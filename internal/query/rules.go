package query

import (
	"regexp"
	"strings"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

// match reports whether a parameter name belongs to a rule, returning the
// parts of the name the builder needs.
type match func(name string) (captures []string, ok bool)

type buildFunc func(plan *Plan, p Parameter, captures []string) error

type rule struct {
	pattern string
	match   match
	build   buildFunc
}

func exact(name string) (string, match) {
	return name, func(s string) ([]string, bool) {
		return nil, s == name
	}
}

func prefix(pfx string) (string, match) {
	return pfx + "*", func(s string) ([]string, bool) {
		if !strings.HasPrefix(s, pfx) {
			return nil, false
		}
		return []string{s[len(pfx):]}, true
	}
}

func pattern(expr string) (string, match) {
	re := regexp.MustCompile(expr)
	return expr, func(s string) ([]string, bool) {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return nil, false
		}
		return m[1:], true
	}
}

func newRule(pattern string, m match) partial {
	return partial{pattern: pattern, match: m}
}

const (
	cmpOps      = `(EQ|GT|GE|LT|LE)`
	sensorKinds = `(SENSORELEMENT|SENSORMETADATA|SENSORREPORT)`
	reportNums  = `(value|minValue|maxValue|meanValue|sDev|percValue)`

	// eqReportNums is claimed ahead of the generic EQ_ field prefix.
	eqReportNums = `^(EQ)_(minValue|maxValue|meanValue|sDev|percValue)_([A-Za-z0-9]+)$`
)

// rules is evaluated top to bottom and the first match wins: exact names,
// then prefix families most specific first, then the comparison regexes.
var rules = []rule{
	// Order and pagination
	newRule(exact("orderBy")).with(orderBy),
	newRule(exact("orderDirection")).with(orderDirection),
	newRule(exact("nextPageToken")).with(nextPageToken),
	newRule(exact("eventCountLimit")).with(countLimit),
	newRule(exact("perPage")).with(countLimit),
	newRule(exact("maxEventCount")).with(countLimit),

	// Event fields
	newRule(exact("eventType")).with(eventType),
	newRule(exact("GE_eventTime")).with(timeBound(OpGte, AttrEventTime)),
	newRule(exact("LT_eventTime")).with(timeBound(OpLt, AttrEventTime)),
	newRule(exact("GE_recordTime")).with(timeBound(OpGte, AttrRecordTime)),
	newRule(exact("LT_recordTime")).with(timeBound(OpLt, AttrRecordTime)),
	newRule(exact("EQ_action")).with(action),
	newRule(exact("EQ_bizLocation")).with(equals(AttrBizLocation)),
	newRule(exact("EQ_bizStep")).with(equals(AttrBizStep)),
	newRule(exact("EQ_disposition")).with(equals(AttrDisposition)),
	newRule(exact("EQ_eventID")).with(equals(AttrEventID)),
	newRule(exact("EQ_transformationID")).with(equals(AttrTransformationID)),
	newRule(exact("EQ_readPoint")).with(equals(AttrReadPoint)),
	newRule(exact("EQ_userID")).with(equals(AttrUserID)),
	newRule(exact("EXISTS_errorDeclaration")).with(exists(AttrDeclarationTime)),
	newRule(exact("EQ_errorReason")).with(equals(AttrErrorReason)),
	newRule(exact("EQ_correctiveEventID")).with(anyEquals(SetCorrectiveIDs, AttrID)),
	newRule(exact("GE_errorDeclarationTime")).with(timeBound(OpGte, AttrDeclarationTime)),
	newRule(exact("LT_errorDeclarationTime")).with(timeBound(OpLt, AttrDeclarationTime)),
	newRule(exact("WD_readPoint")).with(within(AttrReadPoint, models.ReadPointType)),
	newRule(exact("WD_bizLocation")).with(within(AttrBizLocation, models.LocationType)),
	newRule(exact("EQ_requestID")).with(requestID),
	newRule(exact("EQ_captureID")).with(equals(AttrCaptureID)),
	newRule(exact("EQ_quantity")).with(quantity(OpEq)),
	newRule(exact("GT_quantity")).with(quantity(OpGt)),
	newRule(exact("GE_quantity")).with(quantity(OpGte)),
	newRule(exact("LT_quantity")).with(quantity(OpLt)),
	newRule(exact("LE_quantity")).with(quantity(OpLte)),

	// Sensor elements and reports
	newRule(exact("GE_startTime")).with(anyTimeBound(SetSensorElements, OpGte, AttrStartTime)),
	newRule(exact("LT_startTime")).with(anyTimeBound(SetSensorElements, OpLt, AttrStartTime)),
	newRule(exact("GE_endTime")).with(anyTimeBound(SetSensorElements, OpGte, AttrEndTime)),
	newRule(exact("LT_endTime")).with(anyTimeBound(SetSensorElements, OpLt, AttrEndTime)),
	newRule(exact("EQ_type")).with(anyEquals(SetReports, AttrType)),
	newRule(exact("EQ_deviceID")).with(anyEquals(SetReports, AttrDeviceID)),
	newRule(exact("EQ_dataProcessingMethod")).with(anyEquals(SetReports, AttrDataProcessingMethod)),
	newRule(exact("EQ_microorganism")).with(anyEquals(SetReports, AttrMicroorganism)),
	newRule(exact("EQ_chemicalSubstance")).with(anyEquals(SetReports, AttrChemicalSubstance)),
	newRule(exact("EQ_bizRules")).with(anyEquals(SetSensorElements, AttrBizRules)),
	newRule(exact("EQ_stringValue")).with(anyEquals(SetReports, AttrStringValue)),
	newRule(exact("EQ_booleanValue")).with(anyBool(SetReports, AttrBooleanValue)),
	newRule(exact("EQ_hexBinaryValue")).with(anyEquals(SetReports, AttrHexBinaryValue)),
	newRule(exact("EQ_uriValue")).with(anyEquals(SetReports, AttrURIValue)),
	newRule(exact("GE_percRank")).with(anyBound(SetReports, OpGte, AttrPercRank)),
	newRule(exact("LT_percRank")).with(anyBound(SetReports, OpLt, AttrPercRank)),
	newRule(exact("EQ_persistentDisposition_set")).with(persistentDisposition(models.DispositionSet)),
	newRule(exact("EQ_persistentDisposition_unset")).with(persistentDisposition(models.DispositionUnset)),

	// Prefix families
	newRule(prefix("MATCH_")).with(matchEpc),
	newRule(prefix("EQ_source_")).with(relation(SetSources)),
	newRule(prefix("EQ_destination_")).with(relation(SetDestinations)),
	newRule(prefix("EQ_bizTransaction_")).with(relation(SetTransactions)),
	newRule(prefix("EQ_INNER_ILMD_")).with(field(models.FieldILMD, true, true)),
	newRule(prefix("EQ_ILMD_")).with(field(models.FieldILMD, false, true)),
	newRule(prefix("EQ_INNER_SENSORELEMENT_")).with(field(models.FieldSensor, true, true)),
	newRule(prefix("EQ_SENSORELEMENT_")).with(field(models.FieldSensor, false, true)),
	newRule(prefix("EQ_INNER_SENSORMETADATA_")).with(field(models.FieldSensorMetadata, true, true)),
	newRule(prefix("EQ_SENSORMETADATA_")).with(field(models.FieldSensorMetadata, false, true)),
	newRule(prefix("EQ_INNER_SENSORREPORT_")).with(field(models.FieldSensorReport, true, true)),
	newRule(prefix("EQ_SENSORREPORT_")).with(field(models.FieldSensorReport, false, true)),
	newRule(prefix("EXISTS_INNER_ILMD_")).with(field(models.FieldILMD, true, false)),
	newRule(prefix("EXISTS_ILMD_")).with(field(models.FieldILMD, false, false)),
	newRule(prefix("EXISTS_INNER_SENSORELEMENT_")).with(field(models.FieldSensor, true, false)),
	newRule(prefix("EXISTS_SENSORELEMENT_")).with(field(models.FieldSensor, false, false)),
	newRule(prefix("EXISTS_INNER_SENSORMETADATA_")).with(field(models.FieldSensorMetadata, true, false)),
	newRule(prefix("EXISTS_SENSORMETADATA_")).with(field(models.FieldSensorMetadata, false, false)),
	newRule(prefix("EXISTS_INNER_SENSORREPORT_")).with(field(models.FieldSensorReport, true, false)),
	newRule(prefix("EXISTS_SENSORREPORT_")).with(field(models.FieldSensorReport, false, false)),
	newRule(prefix("EXISTS_INNER_")).with(field(models.FieldCustom, true, false)),
	newRule(prefix("EXISTS_")).with(field(models.FieldCustom, false, false)),
	newRule(prefix("EQ_INNER_")).with(field(models.FieldCustom, true, true)),
	newRule(prefix("EQ_value_")).with(reportValue),
	newRule(pattern(eqReportNums)).with(compareReport),
	newRule(prefix("EQ_")).with(field(models.FieldCustom, false, true)),
	newRule(prefix("EQATTR_")).with(masterdataAttribute(true)),
	newRule(prefix("HASATTR_")).with(masterdataAttribute(false)),

	// Comparison families
	newRule(pattern(`^` + cmpOps + `_INNER_ILMD_(.+)#([^#]+)$`)).with(compareField(models.FieldILMD, true)),
	newRule(pattern(`^` + cmpOps + `_ILMD_(.+)#([^#]+)$`)).with(compareField(models.FieldILMD, false)),
	newRule(pattern(`^` + cmpOps + `_INNER_` + sensorKinds + `_(.+)#([^#]+)$`)).with(compareSensor(true)),
	newRule(pattern(`^` + cmpOps + `_` + sensorKinds + `_(.+)#([^#]+)$`)).with(compareSensor(false)),
	newRule(pattern(`^` + cmpOps + `_INNER_(.+)#([^#]+)$`)).with(compareField(models.FieldExtension, true)),
	newRule(pattern(`^` + cmpOps + `_` + reportNums + `_([A-Za-z0-9]+)$`)).with(compareReport),
	newRule(pattern(`^` + cmpOps + `_(.+)#([^#]+)$`)).with(compareField(models.FieldExtension, false)),
}

// partial is a rule waiting for its builder, so the table reads
// newRule(exact("x")).with(builder).
type partial struct {
	pattern string
	match   match
}

func (pt partial) with(build buildFunc) rule {
	return rule{pattern: pt.pattern, match: pt.match, build: build}
}

func lookup(name string) (*rule, []string) {
	for i := range rules {
		if captures, ok := rules[i].match(name); ok {
			return &rules[i], captures
		}
	}
	return nil, nil
}
