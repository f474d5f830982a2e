// Package lookup serves ordered suggested values for capture form fields,
// sourced from static configuration or a cached remote fetch. It sits
// outside the sync/storage core.
package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
)

const (
	sourceStatic = "static"
	sourceRemote = "remote"
)

// Provider resolves suggestion lists per field. Remote-sourced fields are
// cached in memory with a TTL so the capture form stays usable offline.
type Provider struct {
	cfg config.Lookup
	db  *sql.DB
	sb  sq.StatementBuilderType
	log zerolog.Logger
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	options   []string
	fetchedAt time.Time
}

// NewProvider creates a lookup provider. db may be nil when no field uses a
// remote source.
func NewProvider(cfg config.Lookup, db *sql.DB, logger zerolog.Logger) *Provider {
	return &Provider{
		cfg:   cfg,
		db:    db,
		sb:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		log:   logger,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// Options returns the ordered suggested values for a field. Unknown fields
// yield an empty list. A remote fetch failure falls back to the last cached
// list when one exists.
func (p *Provider) Options(ctx context.Context, field string) ([]string, error) {
	field = strings.TrimSpace(field)
	fieldCfg, ok := p.cfg.Fields[field]
	if !ok {
		return []string{}, nil
	}

	switch strings.ToLower(strings.TrimSpace(fieldCfg.Source)) {
	case "", sourceStatic:
		return append([]string{}, fieldCfg.Options...), nil
	case sourceRemote:
		return p.remoteOptions(ctx, field, fieldCfg)
	default:
		return nil, fmt.Errorf("field %q has unknown lookup source %q", field, fieldCfg.Source)
	}
}

func (p *Provider) remoteOptions(ctx context.Context, field string, fieldCfg config.LookupField) ([]string, error) {
	p.mu.Lock()
	entry, cached := p.cache[field]
	p.mu.Unlock()

	if cached && p.now().Sub(entry.fetchedAt) < p.cfg.CacheTTL {
		return append([]string{}, entry.options...), nil
	}

	options, err := p.fetchRemote(ctx, field, fieldCfg)
	if err != nil {
		if cached {
			p.log.Warn().Err(err).Str("field", field).Msg("remote lookup failed, serving cached options")
			return append([]string{}, entry.options...), nil
		}
		return nil, err
	}

	p.mu.Lock()
	p.cache[field] = cacheEntry{options: options, fetchedAt: p.now()}
	p.mu.Unlock()

	return append([]string{}, options...), nil
}

func (p *Provider) fetchRemote(ctx context.Context, field string, fieldCfg config.LookupField) ([]string, error) {
	if p.db == nil {
		return nil, fmt.Errorf("field %q uses a remote lookup source but no remote store is configured", field)
	}
	table := strings.TrimSpace(fieldCfg.Table)
	column := strings.TrimSpace(fieldCfg.Column)
	if table == "" || column == "" {
		return nil, fmt.Errorf("field %q remote lookup needs table and column", field)
	}

	query := p.sb.
		Select(fmt.Sprintf("DISTINCT %s", column)).
		From(table).
		Where(sq.NotEq{column: ""}).
		OrderBy(column + " ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building lookup query for %q: %w", field, err)
	}

	rows, err := p.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching lookup options for %q: %w", field, err)
	}
	defer rows.Close()

	options := make([]string, 0)
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scanning lookup option for %q: %w", field, err)
		}
		if value.Valid && strings.TrimSpace(value.String) != "" {
			options = append(options, value.String)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterating lookup options for %q: %w", field, rowsErr)
	}
	return options, nil
}
