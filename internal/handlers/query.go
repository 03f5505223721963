package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/PratikDhanave/epcis-query-service/internal/metrics"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
)

const simpleEventQuery = "SimpleEventQuery"

// RegisterQueryRoutes registers the serving-path endpoints.
//
// GET /events?EQ_bizStep=shipping|receiving&GE_eventTime=...
// GET /queries/SimpleEventQuery/events?...
// - Requires X-API-Key
// - Parameters are applied in the order they appear in the query string
// - Unknown or malformed parameters fail the whole query with 400
func RegisterQueryRoutes(r gin.IRoutes, st store.EventStore) {
	handle := func(c *gin.Context) {
		params, err := parseQuery(c.Request.URL.RawQuery)
		if err != nil {
			rejectParameter(c, err)
			return
		}

		plan, err := query.Build(params)
		if err != nil {
			rejectParameter(c, err)
			return
		}

		events, err := st.Query(c.Request.Context(), plan)
		if err != nil {
			log.Error().Err(err).Msg("event query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, models.QueryResponse{
			QueryName: simpleEventQuery,
			EventList: events,
		})
	}

	r.GET("/events", handle)
	r.GET("/queries/"+simpleEventQuery+"/events", handle)
}

// parseQuery keeps the raw order of the query string, which url.Values
// loses. Multiple values of one parameter are |-separated.
func parseQuery(raw string) ([]query.Parameter, error) {
	var params []query.Parameter
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(pair, "=")

		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, &query.Error{Kind: query.ErrInvalid, Parameter: rawName, Reason: "malformed escape"}
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, &query.Error{Kind: query.ErrInvalid, Parameter: name, Reason: "malformed escape"}
		}
		params = append(params, query.ParseParameter(name, value))
	}
	return params, nil
}

func rejectParameter(c *gin.Context, err error) {
	var qe *query.Error
	if !errors.As(err, &qe) {
		log.Error().Err(err).Msg("event query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	kind := "invalid"
	if errors.Is(err, query.ErrNotImplemented) {
		kind = "not_implemented"
	}
	metrics.ParameterErrorsTotal.WithLabelValues(kind).Inc()
	log.Warn().Str("parameter", qe.Parameter).Str("kind", kind).Msg(qe.Error())

	c.JSON(http.StatusBadRequest, gin.H{
		"type":  "epcisException:QueryParameterException",
		"title": qe.Error(),
	})
}
