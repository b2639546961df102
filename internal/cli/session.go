package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/config"
	"github.com/roach88/ddb/internal/ddb"
	"github.com/roach88/ddb/internal/logstore"
)

// session is the configuration, blueprints and (optionally) running
// manager a single command works with.
type session struct {
	cfg        *config.Config
	blueprints *blueprint.Registry
	manager    *ddb.Manager
	logger     *slog.Logger
	formatter  *OutputFormatter
}

// loadSession loads the config and compiles its blueprints without
// touching the database.
func loadSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	f := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, failWith(f, ErrCodeConfig, err)
	}
	if opts.DB != "" {
		cfg.Node.Path = opts.DB
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fail(f, err)
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, failWith(f, ErrCodeConfig, err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	return &session{
		cfg:        cfg,
		blueprints: reg,
		logger:     NewLogger(cmd.ErrOrStderr(), level, cfg.Logging.Format),
		formatter:  f,
	}, nil
}

// openSession is loadSession plus a manager over the configured node.
// Callers must close the session.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	s, err := loadSession(opts, cmd)
	if err != nil {
		return nil, err
	}

	node, err := logstore.Open(s.cfg.Node.Path, logstore.WithLogger(s.logger))
	if err != nil {
		return nil, fail(s.formatter, err)
	}
	m, err := ddb.CreateDatabase(ctx, node, s.cfg.IdentityProvider(),
		ddb.WithLogger(s.logger),
		ddb.WithResolvers(s.cfg.ResolverRegistry()))
	if err != nil {
		_ = node.Stop(ctx)
		return nil, fail(s.formatter, err)
	}
	s.manager = m
	s.formatter.VerboseLog("Opened %s as %s", s.cfg.Node.Path, m.Identity().ID)
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if s.manager == nil {
		return
	}
	if err := s.manager.Stop(ctx); err != nil {
		s.logger.Warn("stopping database", "error", err)
	}
}

func (s *session) blueprint(name string) (blueprint.Blueprint, error) {
	return s.blueprints.Get(name)
}

// createProps are the access props for stores created by this identity.
// Writers-controlled blueprints include the creator.
func (s *session) createProps() access.Props {
	return access.Props{config.WritersProp: s.manager.Identity().ID}
}

// store opens the store identifier names, typed by the named blueprint.
// Reopened stores are guarded by the controller recorded at creation
// unless the blueprint fixes one.
func (s *session) store(ctx context.Context, bpName, identifier string) (*ddb.Store, error) {
	bp, err := s.blueprint(bpName)
	if err != nil {
		return nil, err
	}
	st, err := s.manager.GetStore(ctx, bp, identifier, nil)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("store %s: %w", identifier, errNotFound)
	}
	return st, nil
}
