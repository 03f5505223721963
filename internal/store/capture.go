package store

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

// writer is the slice of a transaction the capture path needs. pgx and
// database/sql transactions are adapted to it by their stores.
type writer interface {
	exec(ctx context.Context, sql string, args ...any) error
	insertID(ctx context.Context, sql string, args ...any) (int64, error)
}

// prepareRequest assigns the record time and, when the client sent none,
// a capture id. An empty action is dropped; events are otherwise stored as
// given.
func prepareRequest(req *models.Request, now time.Time) {
	req.RecordTime = now.UTC()
	if req.DocumentTime.IsZero() {
		req.DocumentTime = req.RecordTime
	}
	if req.CaptureID == "" {
		req.CaptureID = uuid.New().String()
	}
	for i := range req.Events {
		if a := req.Events[i].Action; a != nil && *a == 0 {
			req.Events[i].Action = nil
		}
	}
}

func writeRequest(ctx context.Context, w writer, req *models.Request) (models.CaptureResponse, error) {
	requestID, err := w.insertID(ctx, `
		INSERT INTO epcis_request(capture_id, record_time, document_time, user_id, schema_version)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, req.CaptureID, req.RecordTime, req.DocumentTime.UTC(), nullString(req.UserID), nullString(req.SchemaVersion))
	if err != nil {
		return models.CaptureResponse{}, errors.Wrapf(err, "failed to insert capture request %s", req.CaptureID)
	}
	req.ID = requestID

	for i := range req.Events {
		if err := writeEvent(ctx, w, requestID, &req.Events[i]); err != nil {
			return models.CaptureResponse{}, errors.Wrapf(err, "failed to insert event %d of capture %s", i, req.CaptureID)
		}
	}

	if err := writeMasterdata(ctx, w, req.Masterdata); err != nil {
		return models.CaptureResponse{}, err
	}

	return models.CaptureResponse{
		CaptureID:  req.CaptureID,
		RequestID:  requestID,
		RecordTime: req.RecordTime,
		EventCount: len(req.Events),
	}, nil
}

func writeEvent(ctx context.Context, w writer, requestID int64, ev *models.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrapf(err, "failed to encode event")
	}

	id, err := w.insertID(ctx, `
		INSERT INTO epcis_event(request_id, event_id, event_type, event_time, event_timezone_offset, action,
			read_point, business_location, business_step, disposition, transformation_id,
			corrective_declaration_time, corrective_reason, doc)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id
	`,
		requestID, nullString(ev.EventID), int64(ev.Type), ev.EventTime.UTC(), nullString(ev.EventTimeZoneOffset),
		nullAction(ev.Action), nullString(ev.ReadPoint), nullString(ev.BusinessLocation),
		nullString(ev.BusinessStep), nullString(ev.Disposition), nullString(ev.TransformationID),
		nullTime(ev.CorrectiveDeclarationTime), nullString(ev.CorrectiveReason), string(doc),
	)
	if err != nil {
		return err
	}
	ev.ID = id

	for _, epc := range ev.Epcs {
		if err := w.exec(ctx, `INSERT INTO epcis_epc(event_id, epc_type, epc, quantity, uom) VALUES ($1,$2,$3,$4,$5)`,
			id, int64(epc.Type), epc.ID, epc.Quantity, nullString(epc.UnitOfMeasure)); err != nil {
			return err
		}
	}
	for _, s := range ev.Sources {
		if err := w.exec(ctx, `INSERT INTO epcis_source(event_id, source_type, source_id) VALUES ($1,$2,$3)`,
			id, s.Type, s.ID); err != nil {
			return err
		}
	}
	for _, d := range ev.Destinations {
		if err := w.exec(ctx, `INSERT INTO epcis_destination(event_id, destination_type, destination_id) VALUES ($1,$2,$3)`,
			id, d.Type, d.ID); err != nil {
			return err
		}
	}
	for _, t := range ev.Transactions {
		if err := w.exec(ctx, `INSERT INTO epcis_biz_transaction(event_id, transaction_type, transaction_id) VALUES ($1,$2,$3)`,
			id, t.Type, t.ID); err != nil {
			return err
		}
	}
	for _, pd := range ev.PersistentDispositions {
		if err := w.exec(ctx, `INSERT INTO epcis_persistent_disposition(event_id, disposition_type, disposition_id) VALUES ($1,$2,$3)`,
			id, int64(pd.Type), pd.ID); err != nil {
			return err
		}
	}
	for _, se := range ev.SensorElements {
		if err := w.exec(ctx, `
			INSERT INTO epcis_sensor_element(event_id, sensor_index, observed_at, start_time, end_time, device_id,
				device_metadata, raw_data, data_processing_method, biz_rules)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, id, se.Index, nullTime(se.Time), nullTime(se.StartTime), nullTime(se.EndTime), nullString(se.DeviceID),
			nullString(se.DeviceMetadata), nullString(se.RawData), nullString(se.DataProcessingMethod),
			nullString(se.BizRules)); err != nil {
			return err
		}
	}
	for _, r := range ev.Reports {
		if err := w.exec(ctx, `
			INSERT INTO epcis_sensor_report(event_id, report_index, sensor_index, report_type, device_id,
				data_processing_method, observed_at, microorganism, chemical_substance, string_value, boolean_value,
				hex_binary_value, uri_value, uom, value, min_value, max_value, mean_value, s_dev, perc_rank, perc_value)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		`, id, r.Index, r.SensorIndex, nullString(r.Type), nullString(r.DeviceID),
			nullString(r.DataProcessingMethod), nullTime(r.Time), nullString(r.Microorganism),
			nullString(r.ChemicalSubstance), nullString(r.StringValue), r.BooleanValue,
			nullString(r.HexBinaryValue), nullString(r.URIValue), nullString(r.UnitOfMeasure),
			r.Value, r.MinValue, r.MaxValue, r.MeanValue, r.SDev, r.PercRank, r.PercValue); err != nil {
			return err
		}
	}
	for _, f := range ev.Fields {
		text, numeric, date := fieldValue(f.Value)
		if err := w.exec(ctx, `
			INSERT INTO epcis_field(event_id, field_index, parent_index, kind, namespace, name,
				text_value, numeric_value, date_value)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, id, f.Index, f.ParentIndex, int64(f.Kind), nullString(f.Namespace), f.Name, text, numeric, date); err != nil {
			return err
		}
	}
	for _, cid := range ev.CorrectiveEventIDs {
		if err := w.exec(ctx, `INSERT INTO epcis_corrective_event_id(event_id, corrective_id) VALUES ($1,$2)`,
			id, cid); err != nil {
			return err
		}
	}
	return nil
}

// writeMasterdata replaces the attributes and children of each record, so
// the stored version is always the last one written.
func writeMasterdata(ctx context.Context, w writer, records []models.MasterData) error {
	for _, md := range records {
		if err := w.exec(ctx, `INSERT INTO masterdata(md_type, md_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			md.Type, md.ID); err != nil {
			return errors.Wrapf(err, "failed to upsert masterdata %s %s", md.Type, md.ID)
		}
		if err := w.exec(ctx, `DELETE FROM masterdata_attribute WHERE md_type = $1 AND md_id = $2`, md.Type, md.ID); err != nil {
			return errors.Wrapf(err, "failed to clear attributes of %s", md.ID)
		}
		if err := w.exec(ctx, `DELETE FROM masterdata_children WHERE md_type = $1 AND md_id = $2`, md.Type, md.ID); err != nil {
			return errors.Wrapf(err, "failed to clear children of %s", md.ID)
		}

		for _, a := range md.Attributes {
			if err := w.exec(ctx, `INSERT INTO masterdata_attribute(md_type, md_id, attribute_id, value) VALUES ($1,$2,$3,$4)`,
				md.Type, md.ID, a.ID, a.Value); err != nil {
				return errors.Wrapf(err, "failed to insert attribute %s of %s", a.ID, md.ID)
			}
		}
		for _, child := range md.Children {
			if err := w.exec(ctx, `INSERT INTO masterdata_children(md_type, md_id, child_id) VALUES ($1,$2,$3)`,
				md.Type, md.ID, child); err != nil {
				return errors.Wrapf(err, "failed to insert child %s of %s", child, md.ID)
			}
		}
	}
	return nil
}

// decodeEvent rebuilds an event from its stored document and request row.
func decodeEvent(id int64, doc string, req models.Request) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal([]byte(doc), &ev); err != nil {
		return models.Event{}, errors.Wrapf(err, "failed to decode event %d", id)
	}
	ev.ID = id
	req.RecordTime = req.RecordTime.UTC()
	ev.Request = &req
	return ev, nil
}

func fieldValue(v models.Value) (text, numeric, date any) {
	switch v := v.(type) {
	case models.Text:
		return string(v), nil, nil
	case models.Numeric:
		return nil, float64(v), nil
	case models.Date:
		return nil, nil, v.Time().UTC()
	}
	return nil, nil, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullEnum(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullAction(a *models.Action) any {
	if a == nil {
		return nil
	}
	return nullEnum(int64(*a))
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
