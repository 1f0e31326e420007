package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
)

// Defaults applied when a setting row is missing or unparsable.
const (
	DefaultAutoArchiveEnabled   = true
	DefaultCompletedHours       = 24
	DefaultCancelledHours       = 48
	DefaultTestOrdersHours      = 12
	DefaultArchiveIntervalHours = 24
)

// MaxRetentionHours bounds hour settings written through the admin API (one year).
const MaxRetentionHours = 24 * 365

// MaxSettingHours is the largest hour count representable as a time.Duration.
// Stored values above it are clamped, so an oversized window keeps every order
// instead of wrapping to a cutoff in the future.
const MaxSettingHours = int(math.MaxInt64 / int64(time.Hour))

// timestampLayout matches the millisecond ISO-8601 strings the admin UI writes.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ArchiveSettings is the parsed retention configuration for one run.
type ArchiveSettings struct {
	AutoArchiveEnabled   bool
	CompletedHours       int
	CancelledHours       int
	TestOrdersHours      int
	ArchiveIntervalHours int
	LastRun              *time.Time
}

// SettingsReader reads raw setting rows by key.
type SettingsReader interface {
	ListSettingsByKeys(ctx context.Context, keys []string) ([]database.SystemSetting, error)
}

// SettingsWriter writes one setting row. Satisfied by *database.Queries.
type SettingsWriter interface {
	UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.SystemSetting, error)
}

// NewSettingsWriter creates a SettingsWriter from a DBTX (pool or tx).
type NewSettingsWriter func(db database.DBTX) SettingsWriter

// SettingsService reads the archive settings and applies admin updates.
type SettingsService struct {
	pool     TxBeginner
	store    SettingsReader
	newStore NewSettingsWriter
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(pool TxBeginner, store SettingsReader, newStore NewSettingsWriter) *SettingsService {
	return &SettingsService{pool: pool, store: store, newStore: newStore}
}

// Load returns the parsed settings and the raw rows.
func (s *SettingsService) Load(ctx context.Context) (ArchiveSettings, []database.SystemSetting, error) {
	return LoadArchiveSettings(ctx, s.store)
}

// Save writes every update in one transaction: either all keys change or none do.
func (s *SettingsService) Save(ctx context.Context, updates []database.UpsertSettingParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	for _, u := range updates {
		if _, err := store.UpsertSetting(ctx, u); err != nil {
			return fmt.Errorf("upsert %s: %w", u.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

// DefaultArchiveSettings returns the settings used when nothing is stored.
func DefaultArchiveSettings() ArchiveSettings {
	return ArchiveSettings{
		AutoArchiveEnabled:   DefaultAutoArchiveEnabled,
		CompletedHours:       DefaultCompletedHours,
		CancelledHours:       DefaultCancelledHours,
		TestOrdersHours:      DefaultTestOrdersHours,
		ArchiveIntervalHours: DefaultArchiveIntervalHours,
	}
}

// LoadArchiveSettings reads the archive keys and applies defaults. The raw rows
// are returned unchanged for callers that report them as stored.
func LoadArchiveSettings(ctx context.Context, store SettingsReader) (ArchiveSettings, []database.SystemSetting, error) {
	rows, err := store.ListSettingsByKeys(ctx, enum.ArchiveSettingKeys)
	if err != nil {
		return ArchiveSettings{}, nil, fmt.Errorf("load archive settings: %w", err)
	}
	return ParseArchiveSettings(rows), rows, nil
}

// ParseArchiveSettings builds ArchiveSettings from raw rows. Unknown keys are ignored.
func ParseArchiveSettings(rows []database.SystemSetting) ArchiveSettings {
	s := DefaultArchiveSettings()
	for _, row := range rows {
		switch row.Key {
		case enum.SettingAutoArchiveEnabled:
			s.AutoArchiveEnabled = parseBoolSetting(row.Value, DefaultAutoArchiveEnabled)
		case enum.SettingCompletedHours:
			s.CompletedHours = parseHoursSetting(row.Value, DefaultCompletedHours)
		case enum.SettingCancelledHours:
			s.CancelledHours = parseHoursSetting(row.Value, DefaultCancelledHours)
		case enum.SettingTestOrdersHours:
			s.TestOrdersHours = parseHoursSetting(row.Value, DefaultTestOrdersHours)
		case enum.SettingArchiveIntervalHours:
			s.ArchiveIntervalHours = parseHoursSetting(row.Value, DefaultArchiveIntervalHours)
		case enum.SettingLastArchiveRun:
			s.LastRun = parseTimestampSetting(row.Value)
		}
	}
	return s
}

// parseBoolSetting accepts exactly "true" and "false". Anything else, including
// a present-but-garbled value, falls back to the default rather than false.
// Existing deployments rely on this fail-open behaviour; do not tighten it
// without migrating stored values first.
func parseBoolSetting(v pgtype.Text, def bool) bool {
	if !v.Valid {
		return def
	}
	switch v.String {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

// parseHoursSetting falls back to def for missing and non-numeric values.
// Zero and negative values also fall back to def rather than meaning
// "cutoff = now", so a stray "0" cannot archive every order in its class.
// Values too large for a time.Duration are clamped to MaxSettingHours.
func parseHoursSetting(v pgtype.Text, def int) int {
	if !v.Valid {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.String))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			return MaxSettingHours
		}
		return def
	}
	if n <= 0 {
		return def
	}
	return min(n, MaxSettingHours)
}

func parseTimestampSetting(v pgtype.Text) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// FormatTimestamp renders t the way last_archive_run is stored and reported.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Thresholds are the absolute cutoffs for one run.
type Thresholds struct {
	Completed  time.Time
	Cancelled  time.Time
	TestOrders time.Time
}

// ComputeThresholds subtracts each retention window from now.
func ComputeThresholds(s ArchiveSettings, now time.Time) Thresholds {
	return Thresholds{
		Completed:  now.Add(-hoursDuration(s.CompletedHours)),
		Cancelled:  now.Add(-hoursDuration(s.CancelledHours)),
		TestOrders: now.Add(-hoursDuration(s.TestOrdersHours)),
	}
}

// hoursDuration converts h to a Duration, clamping to [0, MaxSettingHours].
func hoursDuration(h int) time.Duration {
	h = max(0, min(h, MaxSettingHours))
	return time.Duration(h) * time.Hour
}
