package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/agentbridge/internal/providers/flightsearch"
)

// FlightSearchTool searches flight offers across configured providers,
// returning the first non-empty result set in priority order.
type FlightSearchTool struct {
	registry *flightsearch.Registry
}

func NewFlightSearchTool(registry *flightsearch.Registry) *FlightSearchTool {
	return &FlightSearchTool{registry: registry}
}

func (t *FlightSearchTool) Name() string { return "flight_search" }

func (t *FlightSearchTool) Description() string {
	return "Search for flight offers between two airports on given dates."
}

func (t *FlightSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"origin":      map[string]interface{}{"type": "string", "description": "Origin airport IATA code, e.g. 'SFO'"},
			"destination": map[string]interface{}{"type": "string", "description": "Destination airport IATA code, e.g. 'JFK'"},
			"depart_date": map[string]interface{}{"type": "string", "description": "Departure date, YYYY-MM-DD"},
			"return_date": map[string]interface{}{"type": "string", "description": "Return date, YYYY-MM-DD (omit for one-way)"},
			"adults":      map[string]interface{}{"type": "integer", "description": "Number of adult passengers, default 1"},
			"cabin_class": map[string]interface{}{"type": "string", "description": "economy, premium_economy, business, or first"},
		},
		"required": []string{"origin", "destination", "depart_date"},
	}
}

func (t *FlightSearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	origin, _ := args["origin"].(string)
	destination, _ := args["destination"].(string)
	departDate, _ := args["depart_date"].(string)
	if origin == "" || destination == "" || departDate == "" {
		return ErrorResult("origin, destination, and depart_date are required")
	}
	returnDate, _ := args["return_date"].(string)
	cabinClass, _ := args["cabin_class"].(string)
	adults := 1
	if v, ok := args["adults"].(float64); ok && v > 0 {
		adults = int(v)
	}

	offers, provider, err := t.registry.SearchFirst(ctx, flightsearch.Query{
		Origin:      origin,
		Destination: destination,
		DepartDate:  departDate,
		ReturnDate:  returnDate,
		Adults:      adults,
		CabinClass:  cabinClass,
	})
	if err != nil {
		return ErrorResult(fmt.Sprintf("flight search failed: %v", err))
	}
	if len(offers) == 0 {
		return SilentResult("No flight offers found for that route and date.")
	}

	data, err := json.Marshal(offers)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to encode flight offers: %v", err))
	}
	result := SilentResult(string(data))
	result.Provider = provider
	return result
}
