package models

import (
	"time"
)

// Event is one captured supply-chain event. Events are immutable once captured.
//
// Request is a non-owning back-reference to the capture batch; it is not part of
// the serialised event document and is attached by the store on load.
type Event struct {
	ID                        int64      `json:"-"`
	EventID                   string     `json:"eventID,omitempty"`
	Type                      EventType  `json:"type"`
	EventTime                 time.Time  `json:"eventTime"`
	EventTimeZoneOffset       string     `json:"eventTimeZoneOffset,omitempty"`
	Action                    *Action    `json:"action,omitempty"`
	ReadPoint                 string     `json:"readPoint,omitempty"`
	BusinessLocation          string     `json:"bizLocation,omitempty"`
	BusinessStep              string     `json:"bizStep,omitempty"`
	Disposition               string     `json:"disposition,omitempty"`
	TransformationID          string     `json:"transformationID,omitempty"`
	CertificationInfo         string     `json:"certificationInfo,omitempty"`
	CorrectiveDeclarationTime *time.Time `json:"declarationTime,omitempty"`
	CorrectiveReason          string     `json:"reason,omitempty"`
	CorrectiveEventIDs        []string   `json:"correctiveEventIDs,omitempty"`

	Epcs                   []Epc                   `json:"epcs,omitempty"`
	Sources                []Source                `json:"sources,omitempty"`
	Destinations           []Destination           `json:"destinations,omitempty"`
	Transactions           []BusinessTransaction   `json:"bizTransactions,omitempty"`
	PersistentDispositions []PersistentDisposition `json:"persistentDispositions,omitempty"`
	SensorElements         []SensorElement         `json:"sensorElements,omitempty"`
	Reports                []SensorReport          `json:"sensorReports,omitempty"`
	Fields                 []Field                 `json:"fields,omitempty"`

	Request *Request `json:"-"`
}

// Epc is an identifier attached to an event. Quantity is only meaningful
// for the quantity-list types.
type Epc struct {
	Type          EpcType  `json:"type"`
	ID            string   `json:"id"`
	Quantity      *float64 `json:"quantity,omitempty"`
	UnitOfMeasure string   `json:"uom,omitempty"`
}

// Source is a typed source of a business transfer.
type Source struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Destination is a typed destination of a business transfer.
type Destination struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// BusinessTransaction references a business document by type and id.
type BusinessTransaction struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// PersistentDisposition is a disposition explicitly set or unset by an event.
type PersistentDisposition struct {
	Type DispositionType `json:"type"`
	ID   string          `json:"id"`
}

// SensorElement groups sensor reports captured within a time window.
type SensorElement struct {
	Index                int        `json:"index"`
	Time                 *time.Time `json:"time,omitempty"`
	StartTime            *time.Time `json:"startTime,omitempty"`
	EndTime              *time.Time `json:"endTime,omitempty"`
	DeviceID             string     `json:"deviceID,omitempty"`
	DeviceMetadata       string     `json:"deviceMetadata,omitempty"`
	RawData              string     `json:"rawData,omitempty"`
	DataProcessingMethod string     `json:"dataProcessingMethod,omitempty"`
	BizRules             string     `json:"bizRules,omitempty"`
}

// SensorReport is a single measurement. SensorIndex points to the owning
// SensorElement of the same event.
type SensorReport struct {
	Index                     int        `json:"index"`
	SensorIndex               int        `json:"sensorIndex"`
	Type                      string     `json:"type,omitempty"`
	DeviceID                  string     `json:"deviceID,omitempty"`
	DeviceMetadata            string     `json:"deviceMetadata,omitempty"`
	RawData                   string     `json:"rawData,omitempty"`
	DataProcessingMethod      string     `json:"dataProcessingMethod,omitempty"`
	Time                      *time.Time `json:"time,omitempty"`
	Microorganism             string     `json:"microorganism,omitempty"`
	ChemicalSubstance         string     `json:"chemicalSubstance,omitempty"`
	Component                 string     `json:"component,omitempty"`
	StringValue               string     `json:"stringValue,omitempty"`
	BooleanValue              *bool      `json:"booleanValue,omitempty"`
	HexBinaryValue            string     `json:"hexBinaryValue,omitempty"`
	URIValue                  string     `json:"uriValue,omitempty"`
	UnitOfMeasure             string     `json:"uom,omitempty"`
	CoordinateReferenceSystem string     `json:"coordinateReferenceSystem,omitempty"`
	Value                     *float64   `json:"value,omitempty"`
	MinValue                  *float64   `json:"minValue,omitempty"`
	MaxValue                  *float64   `json:"maxValue,omitempty"`
	MeanValue                 *float64   `json:"meanValue,omitempty"`
	SDev                      *float64   `json:"sDev,omitempty"`
	PercRank                  *float64   `json:"percRank,omitempty"`
	PercValue                 *float64   `json:"percValue,omitempty"`
}

// Request is the capture batch events belong to.
type Request struct {
	ID            int64        `json:"id,omitempty"`
	CaptureID     string       `json:"captureID,omitempty"`
	RecordTime    time.Time    `json:"recordTime"`
	DocumentTime  time.Time    `json:"documentTime"`
	UserID        string       `json:"userID,omitempty"`
	SchemaVersion string       `json:"schemaVersion,omitempty"`
	Events        []Event      `json:"events"`
	Masterdata    []MasterData `json:"masterdata,omitempty"`
}

// CaptureResponse is returned by POST /capture.
type CaptureResponse struct {
	CaptureID  string    `json:"captureID"`
	RequestID  int64     `json:"requestID"`
	RecordTime time.Time `json:"recordTime"`
	EventCount int       `json:"eventCount"`
}

// QueryResponse is the body returned for a successful event query.
type QueryResponse struct {
	QueryName string  `json:"queryName"`
	EventList []Event `json:"eventList"`
}
