package models

import (
	"github.com/pkg/errors"
)

// EventType tags the event variant.
type EventType int16

const (
	ObjectEvent EventType = iota + 1
	AggregationEvent
	TransactionEvent
	TransformationEvent
	AssociationEvent
)

var eventTypeNames = map[EventType]string{
	ObjectEvent:         "ObjectEvent",
	AggregationEvent:    "AggregationEvent",
	TransactionEvent:    "TransactionEvent",
	TransformationEvent: "TransformationEvent",
	AssociationEvent:    "AssociationEvent",
}

func (t EventType) String() string {
	return eventTypeNames[t]
}

// ParseEventType maps an EPCIS event type name to its EventType.
func ParseEventType(s string) (EventType, error) {
	for t, name := range eventTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown event type: %q", s)
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(b []byte) (err error) {
	*t, err = ParseEventType(string(b))
	return
}

// Action is the event action. TransformationEvents carry none.
type Action int16

const (
	ActionAdd Action = iota + 1
	ActionObserve
	ActionDelete
)

var actionNames = map[Action]string{
	ActionAdd:     "ADD",
	ActionObserve: "OBSERVE",
	ActionDelete:  "DELETE",
}

func (a Action) String() string {
	return actionNames[a]
}

// ParseAction maps ADD, OBSERVE or DELETE to its Action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, errors.Errorf("unknown action: %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) (err error) {
	if len(b) == 0 {
		*a = 0
		return nil
	}
	*a, err = ParseAction(string(b))
	return
}

// ActionOf returns a pointer to a, for building events in code.
func ActionOf(a Action) *Action {
	return &a
}

// EpcType is the role an EPC plays in its event.
type EpcType int16

const (
	EpcList EpcType = iota + 1
	EpcParentID
	EpcChild
	EpcInput
	EpcOutput
	EpcQuantity
	EpcChildQuantity
	EpcInputQuantity
	EpcOutputQuantity
)

var epcTypeNames = map[EpcType]string{
	EpcList:           "list",
	EpcParentID:       "parentID",
	EpcChild:          "childEPC",
	EpcInput:          "inputEPC",
	EpcOutput:         "outputEPC",
	EpcQuantity:       "quantity",
	EpcChildQuantity:  "childQuantity",
	EpcInputQuantity:  "inputQuantity",
	EpcOutputQuantity: "outputQuantity",
}

func (t EpcType) String() string {
	return epcTypeNames[t]
}

// QuantityTypes lists the quantity-list EPC types.
var QuantityTypes = []EpcType{EpcQuantity, EpcChildQuantity, EpcInputQuantity, EpcOutputQuantity}

func (t EpcType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EpcType) UnmarshalText(b []byte) error {
	for k, name := range epcTypeNames {
		if name == string(b) {
			*t = k
			return nil
		}
	}
	return errors.Errorf("unknown epc type: %q", string(b))
}

// DispositionType tells whether a persistent disposition is set or unset.
type DispositionType int16

const (
	DispositionSet DispositionType = iota + 1
	DispositionUnset
)

func (t DispositionType) String() string {
	switch t {
	case DispositionSet:
		return "set"
	case DispositionUnset:
		return "unset"
	}
	return ""
}

func (t DispositionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DispositionType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "set":
		*t = DispositionSet
	case "unset":
		*t = DispositionUnset
	default:
		return errors.Errorf("unknown persistent disposition type: %q", string(b))
	}
	return nil
}
