// Package yamlfile reads roster tallies from a YAML fixture file.
//
// Layout:
//
//	rosters:
//	  - id: u17
//	    players:
//	      - id: keeper-1
//	        role: goalkeeper
//	        matches: 10
//	        assists: 1
package yamlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

const defaultDebounce = 200 * time.Millisecond

type document struct {
	Rosters []rosterDoc `yaml:"rosters"`
}

type rosterDoc struct {
	ID      string      `yaml:"id"`
	Players []playerDoc `yaml:"players"`
}

type playerDoc struct {
	ID                 string `yaml:"id"`
	rating.PlayerStats `yaml:",inline"`
}

// Source loads tallies from a file on disk.
type Source struct {
	path     string
	debounce time.Duration
	logger   logger.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithDebounce sets how long Watch waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a source reading path.
func New(path string, opts ...Option) *Source {
	s := &Source{path: path, debounce: defaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("yaml-source")
	}
	return s
}

// Name implements source.Source.
func (s *Source) Name() string { return "yaml" }

// Path returns the watched file.
func (s *Source) Path() string { return s.path }

// Fetch implements source.Source.
func (s *Source) Fetch(ctx context.Context) ([]model.PlayerTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}
	return Decode(raw)
}

// Decode parses a roster document.
func Decode(raw []byte) ([]model.PlayerTally, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrMalformed, err)
	}

	var out []model.PlayerTally
	for i, r := range doc.Rosters {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: roster #%d has no id", source.ErrMalformed, i)
		}
		for j, p := range r.Players {
			if p.ID == "" {
				return nil, fmt.Errorf("%w: roster %s player #%d has no id", source.ErrMalformed, r.ID, j)
			}
			out = append(out, model.PlayerTally{RosterID: r.ID, PlayerID: p.ID, Stats: p.PlayerStats})
		}
	}
	return out, nil
}

// Watch calls onChange after the file is written, coalescing bursts of
// writes. It runs until ctx is cancelled.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: a save that renames a temp file over the roster
	// file replaces its inode, and a watch on the file itself would be lost.
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	s.logger.Info(ctx, "watching roster file", logger.String("path", s.path))

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(s.debounce)

		case <-timer.C:
			s.logger.Info(ctx, "roster file changed", logger.String("path", s.path))
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error(ctx, "roster file watcher error", logger.Error(err))
		}
	}
}
