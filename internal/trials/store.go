package trials

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Store holds the immutable trial snapshot, loaded once at process
// start and shared by reference. Records are never mutated after load.
type Store struct {
	records []*Record
	byID    map[string]*Record
}

// NewStore builds a store over already-parsed records.
func NewStore(records []*Record) *Store {
	byID := make(map[string]*Record, len(records))
	for _, rec := range records {
		byID[rec.NCTID] = rec
	}
	return &Store{records: records, byID: byID}
}

// LoadStore reads the snapshot CSV and builds the store. Rows without
// an NCT id are dropped; all other malformed fields resolve to their
// documented defaults.
func LoadStore(csvPath string) (*Store, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening trial snapshot: %w", err)
	}
	defer f.Close()

	store, err := readStore(f)
	if err != nil {
		return nil, fmt.Errorf("reading trial snapshot %s: %w", csvPath, err)
	}

	slog.Info("Trial snapshot loaded", "path", csvPath, "records", len(store.records))
	return store, nil
}

func readStore(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["nctId"]; !ok {
		return nil, fmt.Errorf("snapshot has no nctId column")
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	store := &Store{byID: make(map[string]*Record)}
	dropped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		nctID := field(row, "nctId")
		if nctID == "" {
			dropped++
			continue
		}

		rec := &Record{
			NCTID:               nctID,
			BriefTitle:          field(row, "briefTitle"),
			BriefSummary:        field(row, "briefSummary"),
			StudyType:           field(row, "studyType"),
			Phases:              field(row, "phases"),
			OverallStatus:       field(row, "overallStatus"),
			Conditions:          field(row, "conditions"),
			Interventions:       field(row, "interventions"),
			PrimaryOutcomes:     field(row, "primaryOutcomes"),
			EligibilityCriteria: field(row, "eligibilityCriteria"),
			Keywords:            field(row, "keywords"),
			Allocation:          field(row, "allocation"),
			Masking:             field(row, "masking"),
			LeadSponsor:         field(row, "leadSponsor"),
			Collaborators:       field(row, "collaborators"),
			Officials:           field(row, "officials"),
			Country:             field(row, "country"),
			IPDSharing:          field(row, "ipdSharing"),
			IPDDescription:      field(row, "ipdDescription"),
			EnrollmentCount:     parseEnrollment(field(row, "enrollmentCount")),
			StartDate:           ParseDate(field(row, "startDate")),
			CompletionDate:      ParseDate(field(row, "completionDate")),
		}

		// Older snapshots carry free-text locations instead of a
		// country column.
		if rec.Country == "" {
			if loc := field(row, "locations"); loc != "" {
				rec.Country = ExtractCountry(loc)
			}
		}

		store.records = append(store.records, rec)
		store.byID[rec.NCTID] = rec
	}

	if dropped > 0 {
		slog.Warn("Dropped snapshot rows without NCT id", "count", dropped)
	}
	return store, nil
}

func parseEnrollment(s string) int {
	if s == "" {
		return 0
	}
	// Some exports carry enrollment as a float ("120.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return int(f)
	}
	return 0
}

// ByID returns the record for an NCT id, or nil when absent.
func (s *Store) ByID(nctID string) *Record {
	return s.byID[strings.TrimSpace(nctID)]
}

// All returns every record in snapshot order. Callers must not mutate.
func (s *Store) All() []*Record {
	return s.records
}

// Interventional returns the interventional subset in snapshot order.
func (s *Store) Interventional() []*Record {
	var out []*Record
	for _, rec := range s.records {
		if rec.IsInterventional() {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports the number of loaded records.
func (s *Store) Len() int { return len(s.records) }

// ScoreEntry is one cached quality-score object as persisted by the
// batch orchestrator (see internal/batch).
type ScoreEntry struct {
	BaseScore  float64            `json:"base_score"`
	TotalScore float64            `json:"total_score"`
	Components map[string]float64 `json:"components"`
	Bonuses    map[string]float64 `json:"bonuses"`
	Penalties  map[string]float64 `json:"penalties"`
	Timestamp  string             `json:"timestamp"`
}

// ScoreCache is the read side of the persisted quality-score map,
// keyed by NCT id.
type ScoreCache struct {
	entries map[string]ScoreEntry
}

// LoadScoreCache reads the score map written by a prior batch run. A
// missing file yields an empty cache, not an error.
func LoadScoreCache(path string) (*ScoreCache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("No pre-calculated quality scores found", "path", path)
		return &ScoreCache{entries: map[string]ScoreEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading quality scores: %w", err)
	}

	entries := map[string]ScoreEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing quality scores %s: %w", path, err)
	}

	slog.Info("Quality scores loaded", "path", path, "entries", len(entries))
	return &ScoreCache{entries: entries}, nil
}

// Get returns the cached score entry and whether one exists.
func (c *ScoreCache) Get(nctID string) (ScoreEntry, bool) {
	e, ok := c.entries[strings.TrimSpace(nctID)]
	return e, ok
}

// Mean returns the average cached total score over the given ids,
// skipping ids with no cached entry or a zero score.
func (c *ScoreCache) Mean(nctIDs []string) float64 {
	sum := 0.0
	n := 0
	for _, id := range nctIDs {
		if e, ok := c.Get(id); ok && e.TotalScore > 0 {
			sum += e.TotalScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Len reports the number of cached entries.
func (c *ScoreCache) Len() int { return len(c.entries) }
