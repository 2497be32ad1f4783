package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/iscas-system/vtrain-graph/simulator"
	"github.com/iscas-system/vtrain-graph/store"
	"github.com/iscas-system/vtrain-graph/tracing"
)

const defaultSpanFile = "spans.jsonl"

// session is a simulator wired with the collaborators named by cfg.
type session struct {
	sim      *simulator.Simulator
	provider *tracing.Provider
	store    *store.Store
}

func openSession(extra ...simulator.SetOption) (*session, error) {
	s := &session{}
	opts := []simulator.SetOption{simulator.WithOptionConfig(cfg)}

	tc := cfg.Tracing
	if tc.Enabled && tc.Exporter == "file" && tc.FilePath == "" {
		tc.FilePath = filepath.Join(cfg.ResultsDir, defaultSpanFile)
	}
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	s.provider = provider
	opts = append(opts, simulator.WithOptionTracer(provider.Tracer()))

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			_ = s.Close(context.Background())
			return nil, err
		}
		s.store = st
		opts = append(opts, simulator.WithOptionStore(st))
	}

	if cfg.ProfileTable != "" {
		table, err := simulator.LoadProfileTable(cfg.ProfileTable)
		if err != nil {
			_ = s.Close(context.Background())
			return nil, err
		}
		opts = append(opts, simulator.WithOptionEstimator(table))
	}

	sim, err := simulator.NewSimulator(append(opts, extra...)...)
	if err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	s.sim = sim
	return s, nil
}

func (s *session) Close(ctx context.Context) error {
	var errs []error
	if s.sim != nil {
		errs = append(errs, s.sim.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

var (
	reschedule bool
	keepGaps   bool
)

// schedulerOption replaces the traced start times when --reschedule is set.
func schedulerOption() simulator.SetOption {
	if !reschedule {
		return simulator.WithOptionScheduler(nil)
	}
	return simulator.WithOptionScheduler(&simulator.ASAPScheduler{KeepGaps: keepGaps})
}
