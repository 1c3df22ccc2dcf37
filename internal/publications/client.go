package publications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ybbu/NexJen-Bio/internal/errors"
	"github.com/ybbu/NexJen-Bio/internal/resilience"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

const (
	defaultClinicalTrialsBaseURL = "https://clinicaltrials.gov/api/v2/studies"
	defaultPubMedBaseURL         = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// One request every ~350ms keeps both providers comfortably under
	// their published limits.
	requestSpacing = 350 * time.Millisecond

	requestTimeout = 10 * time.Second

	maxPubMedIDs     = 10
	maxPubMedDetails = 5
)

var journalTitleRe = regexp.MustCompile(`<journal-title>(.*?)</journal-title>`)

// ClinicalTrialsClient fetches reference citations for a trial from
// the ClinicalTrials.gov v2 API.
type ClinicalTrialsClient struct {
	BaseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	logger     *slog.Logger
}

// NewClinicalTrialsClient creates a client with default rate limiting
// and circuit breaking.
func NewClinicalTrialsClient() *ClinicalTrialsClient {
	return &ClinicalTrialsClient{
		BaseURL:    defaultClinicalTrialsBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(requestSpacing), 1),
		breaker:    resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		logger:     slog.Default(),
	}
}

// Name identifies this source in failure logs.
func (c *ClinicalTrialsClient) Name() string { return "clinicaltrials_publications" }

// Journals returns the raw reference citations attached to the trial's
// registry entry. Citations are parsed into journal names downstream.
func (c *ClinicalTrialsClient) Journals(ctx context.Context, rec *trials.Record) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query.term", rec.NCTID)
	params.Set("fields", "protocolSection.referencesModule,hasResults")
	params.Set("format", "json")

	body, err := c.get(ctx, c.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, errors.NewExternalAPIError("ClinicalTrials.gov", err)
	}

	var parsed struct {
		Studies []struct {
			ProtocolSection struct {
				ReferencesModule struct {
					References []struct {
						Citation string `json:"citation"`
					} `json:"references"`
				} `json:"referencesModule"`
			} `json:"protocolSection"`
		} `json:"studies"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewExternalAPIError("ClinicalTrials.gov", err)
	}

	if len(parsed.Studies) == 0 {
		return nil, nil
	}

	var citations []string
	for _, ref := range parsed.Studies[0].ProtocolSection.ReferencesModule.References {
		if strings.TrimSpace(ref.Citation) != "" {
			citations = append(citations, ref.Citation)
		}
	}
	return citations, nil
}

func (c *ClinicalTrialsClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := c.breaker.Call(func() error {
		resp, err := resilience.HTTPRetryWithPolicy(ctx, resilience.StandardRetryPolicy, func() (*http.Response, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if reqErr != nil {
				return nil, reqErr
			}
			return c.httpClient.Do(req)
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}

// PubMedClient searches PubMed for publications mentioning a trial's
// NCT id and resolves each hit to its journal title.
type PubMedClient struct {
	BaseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	failures   *FailureLog
	logger     *slog.Logger
}

// NewPubMedClient creates a client with default rate limiting. The
// failure log is optional; when set, per-publication detail failures
// are recorded there without failing the whole search.
func NewPubMedClient(failures *FailureLog) *PubMedClient {
	return &PubMedClient{
		BaseURL:    defaultPubMedBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(requestSpacing), 1),
		breaker:    resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		failures:   failures,
		logger:     slog.Default(),
	}
}

// Name identifies this source in failure logs.
func (c *PubMedClient) Name() string { return "pubmed_publications" }

// Journals searches PubMed by NCT id and returns resolved journal
// titles, at most maxPubMedDetails of them.
func (c *PubMedClient) Journals(ctx context.Context, rec *trials.Record) ([]string, error) {
	pmids, err := c.search(ctx, rec.NCTID)
	if err != nil {
		return nil, errors.NewExternalAPIError("PubMed", err)
	}

	if len(pmids) > maxPubMedDetails {
		pmids = pmids[:maxPubMedDetails]
	}

	var journals []string
	for _, pmid := range pmids {
		journal, err := c.fetchJournal(ctx, pmid)
		if err != nil {
			c.logger.Warn("PubMed detail lookup failed", "pmid", pmid, "error", err)
			if c.failures != nil {
				c.failures.Record("PMID_"+pmid, "pubmed_journal", err, map[string]string{
					"nct_id": rec.NCTID,
					"pmid":   pmid,
				})
			}
			continue
		}
		if journal != "" {
			journals = append(journals, journal)
		}
	}
	return journals, nil
}

// search runs an esearch query for the NCT id and returns matching
// PubMed ids.
func (c *PubMedClient) search(ctx context.Context, nctID string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", fmt.Sprintf("%q[All Fields]", nctID))
	params.Set("retmode", "json")
	params.Set("retmax", fmt.Sprintf("%d", maxPubMedIDs))

	body, err := c.get(ctx, c.BaseURL+"/esearch.fcgi?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return parsed.ESearchResult.IDList, nil
}

// fetchJournal resolves one PubMed id to its journal title via efetch.
func (c *PubMedClient) fetchJournal(ctx context.Context, pmid string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "xml")

	body, err := c.get(ctx, c.BaseURL+"/efetch.fcgi?"+params.Encode())
	if err != nil {
		return "", err
	}

	// A full XML parse is overkill for one field; the lowered-body
	// regex mirrors how reference titles appear in practice.
	match := journalTitleRe.FindStringSubmatch(strings.ToLower(string(body)))
	if match == nil {
		return "", nil
	}
	return match[1], nil
}

func (c *PubMedClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := c.breaker.Call(func() error {
		resp, err := resilience.HTTPRetryWithPolicy(ctx, resilience.StandardRetryPolicy, func() (*http.Response, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if reqErr != nil {
				return nil, reqErr
			}
			return c.httpClient.Do(req)
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}
