// Package supabase reads roster tallies from a Supabase (PostgREST) table.
// Every fetch runs through a circuit breaker so a failing upstream does not
// stall scheduled syncs.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	supa "github.com/supabase-community/supabase-go"

	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// columns selected from the stats table.
const columns = "roster_id,player_id,role,matches,goals,assists,yellow_cards,red_cards,raw_points"

// minRequestsToTrip is the sample size below which the breaker never opens.
const minRequestsToTrip = 3

// Selector runs a full-table select and returns the JSON array body.
type Selector interface {
	SelectAll(ctx context.Context, table, columns string) ([]byte, error)
}

// row mirrors one record of the stats table.
type row struct {
	RosterID    string      `json:"roster_id"`
	PlayerID    string      `json:"player_id"`
	Role        rating.Role `json:"role"`
	Matches     int         `json:"matches"`
	Goals       int         `json:"goals"`
	Assists     int         `json:"assists"`
	YellowCards int         `json:"yellow_cards"`
	RedCards    int         `json:"red_cards"`
	RawPoints   *int        `json:"raw_points"`
}

// Source fetches tallies through a circuit breaker.
type Source struct {
	selector Selector
	table    string
	breaker  *gobreaker.CircuitBreaker
	logger   logger.Logger
}

// Option configures a Source.
type Option func(*settings)

type settings struct {
	table        string
	maxRequests  uint32
	timeout      time.Duration
	failureRatio float64
	logger       logger.Logger
}

// WithTable sets the stats table name.
func WithTable(table string) Option {
	return func(s *settings) {
		if table != "" {
			s.table = table
		}
	}
}

// WithBreaker tunes the circuit breaker: requests allowed while half-open,
// how long it stays open, and the failure ratio that trips it.
func WithBreaker(maxRequests uint32, timeout time.Duration, failureRatio float64) Option {
	return func(s *settings) {
		if maxRequests > 0 {
			s.maxRequests = maxRequests
		}
		if timeout > 0 {
			s.timeout = timeout
		}
		if failureRatio > 0 {
			s.failureRatio = failureRatio
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a source over selector.
func New(selector Selector, opts ...Option) *Source {
	st := settings{
		table:        "player_season_stats",
		maxRequests:  1,
		timeout:      30 * time.Second,
		failureRatio: 0.6,
	}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = logger.Get().Named("supabase-source")
	}

	s := &Source{selector: selector, table: st.table, logger: st.logger}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: st.maxRequests,
		Timeout:     st.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequestsToTrip {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= st.failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			st.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerState("supabase", int(gobreaker.StateClosed))
	return s
}

// Name implements source.Source.
func (s *Source) Name() string { return "supabase" }

// State reports the breaker state.
func (s *Source) State() gobreaker.State { return s.breaker.State() }

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context) ([]model.PlayerTally, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.selector.SelectAll(ctx, s.table, columns)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: select %s: %v", source.ErrUnavailable, s.table, err)
	}
	return decodeRows(out.([]byte))
}

func decodeRows(body []byte) ([]model.PlayerTally, error) {
	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrMalformed, err)
	}
	out := make([]model.PlayerTally, 0, len(rows))
	for i, r := range rows {
		if r.RosterID == "" || r.PlayerID == "" {
			return nil, fmt.Errorf("%w: row %d is missing roster_id or player_id", source.ErrMalformed, i)
		}
		out = append(out, model.PlayerTally{
			RosterID: r.RosterID,
			PlayerID: r.PlayerID,
			Stats: rating.PlayerStats{
				Matches:     r.Matches,
				Goals:       r.Goals,
				Assists:     r.Assists,
				YellowCards: r.YellowCards,
				RedCards:    r.RedCards,
				Role:        r.Role,
				RawPoints:   r.RawPoints,
			},
		})
	}
	return out, nil
}

// ClientSelector runs selects through the Supabase client.
type ClientSelector struct {
	client *supa.Client
}

// NewClientSelector connects a Supabase client for url and key.
func NewClientSelector(url, key string) (*ClientSelector, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &ClientSelector{client: client}, nil
}

// SelectAll implements Selector. The PostgREST builder has no context
// support, so cancellation is only checked before the request.
func (c *ClientSelector) SelectAll(ctx context.Context, table, columns string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := c.client.From(table).Select(columns, "", false).Execute()
	if err != nil {
		return nil, err
	}
	return body, nil
}
