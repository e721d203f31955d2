// Package composer binds the engine to a project: it loads the catalog from
// the configured directories, runs validate/preview/merge requests against it,
// records each run in the journal, and writes merge output to disk.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/config"
	"github.com/kingrea/contract-composer/internal/logbook"
	"github.com/kingrea/contract-composer/internal/logging"
	"github.com/kingrea/contract-composer/internal/merge"
	"github.com/kingrea/contract-composer/internal/output"
	"github.com/kingrea/contract-composer/internal/validation"
	"github.com/kingrea/contract-composer/plugins"
)

// ErrNoBase is returned when neither the request nor the project config
// names a base template.
var ErrNoBase = errors.New("composer: no base template selected")

// Request selects what to compose. Empty fields fall back to the saved
// selection in the project config.
type Request struct {
	Project string
	Base    string
	Modules []string
	Params  map[string]string
}

// Service runs engine operations for one project.
type Service struct {
	cfg     *config.Config
	log     *logging.Logger
	journal *logbook.Logbook

	mu      sync.RWMutex
	catalog *catalog.Catalog
}

// Open loads the catalog from the configured directories and opens the run
// journal.
func Open(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Service, error) {
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("composer: open journal: %w", err)
	}
	svc := New(cfg, catalog.New(), log, journal)
	if err := svc.Reload(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// New assembles a service from already-loaded parts.
func New(cfg *config.Config, cat *catalog.Catalog, log *logging.Logger, journal *logbook.Logbook) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{cfg: cfg, catalog: cat, log: log, journal: journal}
}

// Reload re-reads templates and modules from disk. The previous catalog stays
// in place when loading fails.
func (s *Service) Reload(ctx context.Context) error {
	cat, err := plugins.LoadCatalog(ctx, s.cfg.TemplatesDir(), s.cfg.ModulesDir())
	if err != nil {
		s.log.WithError(err).Error("catalog load failed")
		return fmt.Errorf("composer: load catalog: %w", err)
	}
	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{
		"templates": len(cat.BaseNames()),
		"modules":   len(cat.ModuleNames()),
	}).Info("catalog loaded")
	return nil
}

// Catalog returns the current catalog.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Config returns the project configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Limits returns the configured size thresholds.
func (s *Service) Limits() validation.Limits {
	return validation.Limits{Soft: s.cfg.Project.Limits.Soft, Hard: s.cfg.Project.Limits.Hard}
}

// Normalize fills empty request fields from the saved selection.
func (s *Service) Normalize(req Request) Request {
	saved := s.cfg.DefaultSelection()
	req.Base = strings.TrimSpace(req.Base)
	if req.Base == "" {
		req.Base = saved.Base
		if len(req.Modules) == 0 {
			req.Modules = saved.Modules
		}
	}
	if strings.TrimSpace(req.Project) == "" {
		req.Project = saved.Name
	}
	if strings.TrimSpace(req.Project) == "" {
		req.Project = req.Base
	}
	if len(saved.Params) > 0 {
		params := make(map[string]string, len(saved.Params)+len(req.Params))
		for key, value := range saved.Params {
			params[key] = value
		}
		for key, value := range req.Params {
			params[key] = value
		}
		req.Params = params
	}
	return req
}

// Selection looks up the request's base and modules in the catalog.
func (s *Service) Selection(req Request) (catalog.Base, []catalog.Module, error) {
	if req.Base == "" {
		return catalog.Base{}, nil, ErrNoBase
	}
	cat := s.Catalog()
	base, err := cat.Base(req.Base)
	if err != nil {
		return catalog.Base{}, nil, err
	}
	mods, err := cat.Select(req.Modules...)
	if err != nil {
		return catalog.Base{}, nil, err
	}
	return base, mods, nil
}

// Validate runs the validation pipeline for the request.
func (s *Service) Validate(req Request) (validation.Result, error) {
	req = s.Normalize(req)
	base, mods, err := s.Selection(req)
	if err != nil {
		return validation.Result{}, err
	}
	result := validation.Validate(base, mods, validation.Options{TypeParams: req.Params, Limits: s.Limits()})
	s.logResult("validate", req, result)
	s.record(logbook.Entry{
		Kind:     logbook.KindValidate,
		Project:  req.Project,
		Base:     base.Name,
		Modules:  catalog.Names(mods),
		Valid:    result.Valid,
		Errors:   len(result.Errors),
		Warnings: len(result.Warnings),
	})
	return result, nil
}

// Preview renders the merge summary for the request.
func (s *Service) Preview(req Request) (string, error) {
	req = s.Normalize(req)
	base, mods, err := s.Selection(req)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"base": base.Name, "modules": req.Modules}).Debug("preview")
	s.record(logbook.Entry{Kind: logbook.KindPreview, Project: req.Project, Base: base.Name, Modules: catalog.Names(mods)})
	return merge.Preview(base, mods, s.mergeOptions(req)), nil
}

// Merge composes the request in memory. A refused merge returns the result
// together with an error wrapping merge.ErrValidation.
func (s *Service) Merge(req Request) (merge.Result, error) {
	req = s.Normalize(req)
	base, mods, err := s.Selection(req)
	if err != nil {
		return merge.Result{}, err
	}
	result := merge.Merge(base, mods, s.mergeOptions(req))
	s.logResult("merge", req, result.Validation)
	entry := logbook.Entry{
		Kind:     logbook.KindMerge,
		Project:  req.Project,
		Base:     base.Name,
		Modules:  catalog.Names(mods),
		Valid:    result.Success,
		Errors:   len(result.Validation.Errors),
		Warnings: len(result.Validation.Warnings),
	}
	if !result.Success {
		s.record(entry)
		return result, result.Err()
	}
	entry.Modules = result.Stats.Modules
	entry.Fingerprint = result.Stats.Fingerprint
	s.record(entry)
	s.log.WithFields(logrus.Fields{
		"files":       len(result.Files),
		"slots":       result.Stats.SlotsUsed,
		"fingerprint": result.Stats.Fingerprint,
	}).Info("merge complete")
	return result, nil
}

// Write merges the request and writes the files beneath dir, or beneath the
// configured output directory when dir is empty.
func (s *Service) Write(req Request, dir string) (merge.Result, output.Manifest, error) {
	req = s.Normalize(req)
	result, err := s.Merge(req)
	if err != nil {
		return result, output.Manifest{}, err
	}
	if strings.TrimSpace(dir) == "" {
		dir = s.cfg.OutputDir(req.Project)
	}
	store := output.NewStore(dir)
	manifest, err := store.Write(req.Project, result)
	if err != nil {
		s.log.WithError(err).WithField("dir", dir).Error("write failed")
		return result, output.Manifest{}, err
	}
	s.record(logbook.Entry{
		Kind:        logbook.KindMerge,
		Project:     req.Project,
		Base:        manifest.Base,
		Modules:     manifest.Modules,
		Valid:       true,
		Warnings:    len(result.Validation.Warnings),
		Fingerprint: manifest.Fingerprint,
		Output:      store.Root(),
		Note:        "written",
	})
	s.log.WithFields(logrus.Fields{"dir": store.Root(), "files": len(manifest.Files)}).Info("output written")
	return result, manifest, nil
}

// Check compares a written output directory against its manifest.
func (s *Service) Check(dir string) (output.Manifest, []output.CheckResult, error) {
	store := output.NewStore(dir)
	manifest, results, err := store.Check()
	if err != nil {
		return manifest, nil, err
	}
	drifted := 0
	for _, res := range results {
		if res.State != output.StateReady {
			drifted++
		}
	}
	s.record(logbook.Entry{
		Kind:        logbook.KindCheck,
		Project:     manifest.Project,
		Base:        manifest.Base,
		Modules:     manifest.Modules,
		Valid:       drifted == 0,
		Errors:      drifted,
		Fingerprint: manifest.Fingerprint,
		Output:      store.Root(),
	})
	return manifest, results, nil
}

// History returns the most recent journal entries and the total count.
func (s *Service) History(n int) ([]logbook.Entry, int) {
	return s.journal.Tail(n)
}

func (s *Service) mergeOptions(req Request) merge.Options {
	return merge.Options{ProjectName: req.Project, TypeParams: req.Params, Limits: s.Limits()}
}

func (s *Service) logResult(op string, req Request, result validation.Result) {
	entry := s.log.WithFields(logrus.Fields{
		"op":       op,
		"base":     req.Base,
		"modules":  req.Modules,
		"valid":    result.Valid,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	})
	if result.Valid {
		entry.Info("validation passed")
		return
	}
	for _, e := range result.Errors {
		entry.WithField("category", e.Category).Warn(e.Message)
	}
}

func (s *Service) record(entry logbook.Entry) {
	if err := s.journal.Record(entry); err != nil {
		s.log.WithError(err).Warn("journal write failed")
	}
}
