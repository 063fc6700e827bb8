// Package countries loads the dial-code picker data from a
// restcountries-compatible endpoint and degrades to a built-in set when the
// upstream is unreachable, slow, or returns something unusable. The picker is
// cosmetic, so degradation is silent beyond a warning log.
package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
)

// DefaultBaseURL is the restcountries field-filtered endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1/all?fields=name,idd,cca2,flags"

// restCountry mirrors the subset of the restcountries v3.1 payload we read.
type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	IDD struct {
		Root     string   `json:"root"`
		Suffixes []string `json:"suffixes"`
	} `json:"idd"`
	CCA2  string `json:"cca2"`
	Flags struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
	} `json:"flags"`
}

// Client fetches country metadata over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against baseURL. An empty baseURL selects
// DefaultBaseURL; a nil httpClient gets a 10s-timeout default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Fetch retrieves the country list, drops entries without dial-code data, and
// returns the rest sorted by display name under English collation.
func (c *Client) Fetch(ctx context.Context) ([]domain.Country, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("countries: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("countries: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("countries: upstream status %d", resp.StatusCode)
	}

	var raw []restCountry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("countries: decode: %w", err)
	}

	out := make([]domain.Country, 0, len(raw))
	for _, rc := range raw {
		dial := dialCode(rc)
		if dial == "" || rc.Name.Common == "" {
			continue
		}
		flag := rc.Flags.PNG
		if flag == "" {
			flag = rc.Flags.SVG
		}
		out = append(out, domain.Country{
			Name:     rc.Name.Common,
			Code:     rc.CCA2,
			DialCode: dial,
			Flag:     flag,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("countries: upstream returned no usable entries")
	}

	coll := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

// dialCode joins the IDD root with its suffix. Countries with several
// suffixes (NANP members, shared roots) keep the bare root.
func dialCode(rc restCountry) string {
	root := rc.IDD.Root
	if root == "" {
		return ""
	}
	if len(rc.IDD.Suffixes) == 1 {
		return root + rc.IDD.Suffixes[0]
	}
	return root
}

// Load is the degradation wrapper used by the HTTP layer: any fetch failure
// yields the built-in fallback set instead of an error.
func (c *Client) Load(ctx context.Context) []domain.Country {
	list, err := c.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("country list unavailable, serving fallback set")
		return DefaultCountries()
	}
	return list
}

// DefaultCountries is the built-in fallback picker set.
func DefaultCountries() []domain.Country {
	return []domain.Country{
		{Name: "United States", Code: "US", DialCode: "+1", Flag: "https://flagcdn.com/w320/us.png"},
		{Name: "India", Code: "IN", DialCode: "+91", Flag: "https://flagcdn.com/w320/in.png"},
		{Name: "United Kingdom", Code: "GB", DialCode: "+44", Flag: "https://flagcdn.com/w320/gb.png"},
		{Name: "Canada", Code: "CA", DialCode: "+1", Flag: "https://flagcdn.com/w320/ca.png"},
		{Name: "Australia", Code: "AU", DialCode: "+61", Flag: "https://flagcdn.com/w320/au.png"},
	}
}
