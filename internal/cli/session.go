package cli

import (
	"context"
	"fmt"

	"github.com/aidanlsb/discourse/internal/audit"
	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/vocab"
)

// session is an opened graph: its settings, fact store and the compilers
// built over them.
type session struct {
	path     string
	settings *config.GraphConfig
	vocab    vocab.Vocabulary
	store    *factstore.Store
	executor *query.Executor
	blocks   *blocks.Compiler
	audit    *audit.Logger
}

func openSession() (*session, error) {
	settings, err := config.LoadGraphConfig(resolvedGraphPath)
	if err != nil {
		return nil, err
	}
	v := settings.Vocabulary()
	for _, verr := range settings.Validate() {
		warnf("%s: %v", config.GraphConfigFile, verr)
	}

	var storeOpts []factstore.Option
	storeOpts = append(storeOpts, factstore.WithLogger(logger))
	if settings.User != "" {
		storeOpts = append(storeOpts, factstore.WithUser(settings.User))
	}
	store, err := factstore.Open(resolvedGraphPath, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	reg := query.NewRegistry(v, query.WithLogger(logger), query.WithEntityIndex(store))
	return &session{
		path:     resolvedGraphPath,
		settings: settings,
		vocab:    reg.Vocabulary(),
		store:    store,
		executor: query.NewExecutor(reg, store, query.WithExecutorLogger(logger)),
		blocks:   blocks.NewCompiler(v, blocks.WithEntityIndex(store), blocks.WithLogger(logger)),
		audit:    audit.New(resolvedGraphPath, settings.AuditEnabled()),
	}, nil
}

// record logs a write to the audit log. Failures only warn.
func (s *session) record(err error) {
	if err != nil {
		logger.Sugar().Warnw("audit log write failed", "error", err)
	}
}

func (s *session) Close() error {
	return s.store.Close()
}

// ensurePage returns the uid of the page titled title, creating an empty
// page when there is none.
func ensurePage(ctx context.Context, store *factstore.Store, title string) (string, error) {
	if e, ok := store.EntityByTitle(title); ok {
		return e.UID, nil
	}
	if _, err := store.Append(ctx, []factstore.Page{{Title: title}}); err != nil {
		return "", err
	}
	e, ok := store.EntityByTitle(title)
	if !ok {
		return "", fmt.Errorf("page %q was not created", title)
	}
	return e.UID, nil
}
