package flightsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// GoogleFlightsProvider searches Google Flights results through SerpApi's
// "google_flights" search engine, since Google itself exposes no public
// flight-search API.
type GoogleFlightsProvider struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

func NewGoogleFlightsProvider(apiKey string) *GoogleFlightsProvider {
	return &GoogleFlightsProvider{
		apiKey:  apiKey,
		baseURL: "https://serpapi.com/search.json",
		client:  resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *GoogleFlightsProvider) Name() string { return "google-flights" }

type serpAPIFlightsResponse struct {
	BestFlights []serpAPIFlightOption `json:"best_flights"`
	OtherFlights []serpAPIFlightOption `json:"other_flights"`
}

type serpAPIFlightOption struct {
	Flights []struct {
		AirlineName   string `json:"airline"`
		FlightNumber  string `json:"flight_number"`
		DepartureTime string `json:"departure_airport_time"`
		ArrivalTime   string `json:"arrival_airport_time"`
	} `json:"flights"`
	TotalDuration int     `json:"total_duration"` // minutes
	Price         float64 `json:"price"`
}

func (p *GoogleFlightsProvider) Search(ctx context.Context, q Query) ([]Offer, error) {
	qtype := "2" // one-way
	if q.ReturnDate != "" {
		qtype = "1" // round trip
	}
	adults := q.Adults
	if adults <= 0 {
		adults = 1
	}

	var result serpAPIFlightsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":           "google_flights",
			"departure_id":     q.Origin,
			"arrival_id":       q.Destination,
			"outbound_date":    q.DepartDate,
			"return_date":      q.ReturnDate,
			"type":             qtype,
			"adults":           fmt.Sprintf("%d", adults),
			"currency":         "USD",
			"api_key":          p.apiKey,
		}).
		SetResult(&result).
		Get(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("google-flights: search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google-flights: search status %d: %s", resp.StatusCode(), resp.String())
	}

	const layout = "2006-01-02 15:04"
	var offers []Offer
	for _, opt := range append(result.BestFlights, result.OtherFlights...) {
		if len(opt.Flights) == 0 {
			continue
		}
		first := opt.Flights[0]
		last := opt.Flights[len(opt.Flights)-1]
		depart, _ := time.Parse(layout, first.DepartureTime)
		arrive, _ := time.Parse(layout, last.ArrivalTime)
		offers = append(offers, Offer{
			Airline:     first.AirlineName,
			FlightNo:    first.FlightNumber,
			DepartTime:  depart,
			ArriveTime:  arrive,
			DurationMin: opt.TotalDuration,
			Stops:       len(opt.Flights) - 1,
			Price:       opt.Price,
			Currency:    "USD",
		})
	}
	return offers, nil
}
