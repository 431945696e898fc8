package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
	"github.com/vk/featuregrid/internal/fsutil"
	"github.com/vk/featuregrid/internal/hcl_adapter"
	"github.com/vk/featuregrid/internal/influence"
	"github.com/vk/featuregrid/internal/metrics"
	"github.com/vk/featuregrid/internal/modeldef"
	"github.com/vk/featuregrid/internal/pim"
	"github.com/vk/featuregrid/internal/project"
	"github.com/vk/featuregrid/internal/publish"
	"github.com/vk/featuregrid/internal/splcxml"
	"github.com/vk/featuregrid/internal/validator"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	metrics    *metrics.Metrics
	validator  *validator.Validator
	httpServer *http.Server
	publisher  *publish.Publisher

	model     *feature.Model
	influence *influence.Model
	regions   *pim.RegionSet
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger and metrics registry. Nothing is loaded
// until Run is called.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	m := metrics.New()
	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: m,
		validator: validator.New(
			validator.WithTimeout(cfg.SolveTimeout),
			validator.WithRecorder(m),
		),
	}
}

// Model returns the loaded variability model. This is primarily for testing.
func (a *App) Model() *feature.Model { return a.model }

// Metrics returns the application's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// applyProject fills every setting the command line left empty from the
// project file.
func (a *App) applyProject(ctx context.Context) error {
	if a.config.ProjectPath == "" {
		return nil
	}
	p, err := project.Load(ctx, a.config.ProjectPath)
	if err != nil {
		return err
	}

	cfg := a.config
	if cfg.ModelPath == "" {
		cfg.ModelPath = p.Model
	}
	if cfg.InfluencePath == "" {
		cfg.InfluencePath = p.InfluenceModel
	}
	if len(cfg.ConfigPaths) == 0 {
		cfg.ConfigPaths = p.Configurations
	}
	if len(cfg.RegionPatterns) == 0 {
		cfg.RegionPatterns = p.Regions
	}
	if len(cfg.Features) == 0 {
		cfg.Features = p.Features
	}
	if cfg.SolveTimeout == 0 && p.SolveTimeout > 0 {
		cfg.SolveTimeout = p.SolveTimeout
		a.validator = validator.New(validator.WithTimeout(p.SolveTimeout), validator.WithRecorder(a.metrics))
	}
	if cfg.PublishURL == "" {
		cfg.PublishURL = p.PublishURL
	}
	cfg.OnlyPositive = cfg.OnlyPositive || p.OnlyPositive

	ctxlog.FromContext(ctx).Info("Project loaded.", "project", p.Name, "model", cfg.ModelPath)
	return nil
}

// loaderFor picks the model loader by file extension. Directories hold HCL
// files.
func loaderFor(path string) modeldef.Loader {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return splcxml.NewLoader()
	}
	return hcl_adapter.NewLoader()
}

// load reads the variability model and everything that depends on it.
func (a *App) load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := a.applyProject(ctx); err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if err := a.config.validate(); err != nil {
		return err
	}

	def, err := loaderFor(a.config.ModelPath).Load(ctx, a.config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load variability model: %w", err)
	}
	model, err := feature.Build(ctx, def)
	if err != nil {
		return fmt.Errorf("failed to build variability model: %w", err)
	}
	if len(a.config.Features) > 0 {
		if err := model.SetFeaturesOrder(a.config.Features); err != nil {
			logger.Error("Features order not set.", "error", err)
		}
	}
	a.model = model
	logger.Info("Variability model loaded.", "model", model.Name(), "options", model.OptionCount(), "constraints", len(model.Constraints()))

	if a.config.InfluencePath != "" {
		im, err := influence.Load(ctx, a.config.InfluencePath, influence.OptionNames(model))
		if err != nil {
			return err
		}
		a.influence = im
		logger.Info("Influence model loaded.", "regions", len(im.Regions()), "properties", im.PropertyNames())
	}

	if len(a.config.RegionPatterns) > 0 {
		files, err := fsutil.ExpandPatterns(a.config.RegionPatterns, fsutil.RegionFilePatterns)
		if err != nil {
			return fmt.Errorf("failed to find region files: %w", err)
		}
		set, err := pim.Load(ctx, files, model)
		if err != nil {
			return err
		}
		a.regions = set
		logger.Info("Regions loaded.", "files", len(files), "regions", set.Len(), "nfps", set.NFPNames())
	}
	return nil
}
