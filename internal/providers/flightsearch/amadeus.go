package flightsearch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// AmadeusProvider searches flights via the Amadeus Self-Service Flight
// Offers Search API, authenticating with the OAuth2 client-credentials grant.
type AmadeusProvider struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *resty.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewAmadeusProvider(clientID, clientSecret string) *AmadeusProvider {
	return &AmadeusProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      "https://test.api.amadeus.com",
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

func (p *AmadeusProvider) Name() string { return "amadeus" }

func (p *AmadeusProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken != "" && time.Now().Before(p.expiresAt) {
		return p.accessToken, nil
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     p.clientID,
			"client_secret": p.clientSecret,
		}).
		SetResult(&tokenResp).
		Post(p.baseURL + "/v1/security/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("amadeus: auth request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("amadeus: auth status %d: %s", resp.StatusCode(), resp.String())
	}

	p.accessToken = tokenResp.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn-30) * time.Second)
	return p.accessToken, nil
}

type amadeusOfferResponse struct {
	Data []struct {
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure struct {
					At string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					At string `json:"at"`
				} `json:"arrival"`
				CarrierCode string `json:"carrierCode"`
				Number      string `json:"number"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"data"`
}

func (p *AmadeusProvider) Search(ctx context.Context, q Query) ([]Offer, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	adults := q.Adults
	if adults <= 0 {
		adults = 1
	}

	params := map[string]string{
		"originLocationCode":      q.Origin,
		"destinationLocationCode": q.Destination,
		"departureDate":           q.DepartDate,
		"adults":                  strconv.Itoa(adults),
		"max":                     "10",
	}
	if q.ReturnDate != "" {
		params["returnDate"] = q.ReturnDate
	}
	if q.CabinClass != "" {
		params["travelClass"] = q.CabinClass
	}

	var result amadeusOfferResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(&result).
		Get(p.baseURL + "/v2/shopping/flight-offers")
	if err != nil {
		return nil, fmt.Errorf("amadeus: search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("amadeus: search status %d: %s", resp.StatusCode(), resp.String())
	}

	var offers []Offer
	for _, d := range result.Data {
		if len(d.Itineraries) == 0 || len(d.Itineraries[0].Segments) == 0 {
			continue
		}
		firstLeg := d.Itineraries[0].Segments[0]
		lastLeg := d.Itineraries[0].Segments[len(d.Itineraries[0].Segments)-1]
		depart, _ := time.Parse(time.RFC3339, firstLeg.Departure.At)
		arrive, _ := time.Parse(time.RFC3339, lastLeg.Arrival.At)
		price, _ := strconv.ParseFloat(d.Price.Total, 64)
		offers = append(offers, Offer{
			Airline:     firstLeg.CarrierCode,
			FlightNo:    firstLeg.CarrierCode + firstLeg.Number,
			DepartTime:  depart,
			ArriveTime:  arrive,
			DurationMin: int(arrive.Sub(depart).Minutes()),
			Stops:       len(d.Itineraries[0].Segments) - 1,
			Price:       price,
			Currency:    d.Price.Currency,
		})
	}
	return offers, nil
}
