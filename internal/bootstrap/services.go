package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/townready/townready/config"
	"github.com/townready/townready/internal/adapters/genai"
	"github.com/townready/townready/internal/adapters/pushauth"
	"github.com/townready/townready/internal/adapters/queue"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/service"
	"github.com/townready/townready/internal/service/stages"
)

// ServiceContainer holds the wired application components.
type ServiceContainer struct {
	Jobs       *data.JobRepo
	Objects    *data.ObjectRepo
	KPIEvents  *data.KPIRepo
	Cache      *data.RedisCacheRepo
	Catalog    *data.FileRegionCatalog
	Links      *service.LinkService
	Resolver   *service.RegionResolver
	Registry   *stages.Registry
	Retry      *service.RetryScheduler
	Dispatcher *service.Dispatcher
	Sweeper    *service.RetrySweeper
	KPI        *service.KPIService
	Publisher  *queue.Publisher
	Generator  *genai.Client
	Verifier   *pushauth.Verifier
}

// ContainerOptions groups inputs for BuildServices.
type ContainerOptions struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// BuildServices wires repositories, adapters, and services into a
// container. Construction order follows the dependency direction: data,
// adapters, then services.
func BuildServices(ctx context.Context, opts ContainerOptions) (*ServiceContainer, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &ServiceContainer{}

	c.Jobs = data.NewJobRepo(opts.DB, data.JobRepoConfig{Logger: logger})
	c.Objects = data.NewObjectRepo(opts.DB, nil)
	c.KPIEvents = data.NewKPIRepo(opts.DB, nil)
	if opts.Redis != nil {
		c.Cache = data.NewRedisCacheRepo(opts.Redis)
	}
	c.Catalog = data.NewFileRegionCatalog(data.FileRegionCatalogConfig{
		Dir:       cfg.Region.CatalogDir,
		IndexName: cfg.Region.CatalogIndex,
		Logger:    logger,
	})

	c.Generator = genai.NewClient(genai.ClientOptions{Config: cfg.GenAI, Logger: logger})
	c.Publisher = queue.NewPublisher(queue.PublisherOptions{Config: cfg.Queue, Logger: logger})

	verifier, err := pushauth.NewVerifier(ctx, cfg.PushAuth)
	if err != nil {
		return nil, fmt.Errorf("build push verifier: %w", err)
	}
	c.Verifier = verifier

	c.Links = service.NewLinkService(service.LinkServiceOptions{
		Jobs:  c.Jobs,
		Blobs: c.Objects,
		Config: service.LinkServiceConfig{
			SigningKey: cfg.Storage.SigningKey,
			BaseURL:    cfg.HTTP.BaseURL,
			LinkTTL:    cfg.Storage.LinkTTL,
		},
		Logger: logger,
	})

	resolverOpts := service.RegionResolverOptions{
		Catalog: c.Catalog,
		TTL:     cfg.Cache.RegionContextTTL,
		Logger:  logger,
	}
	if c.Cache != nil {
		resolverOpts.Cache = c.Cache
	}
	c.Resolver = service.NewRegionResolver(resolverOpts)

	c.Registry = stages.NewRegistry(stages.RegistryOptions{
		Generator: c.Generator,
		Logger:    logger,
	})
	c.Retry = service.NewRetryScheduler(cfg.Pipeline)

	c.Dispatcher = service.NewDispatcher(service.DispatcherOptions{
		Deps: service.DispatcherDeps{
			Jobs:      c.Jobs,
			Registry:  c.Registry,
			Links:     c.Links,
			Resolver:  c.Resolver,
			Publisher: c.Publisher,
			Retry:     c.Retry,
		},
		Pipeline: cfg.Pipeline,
		Logger:   logger,
	})

	sweeperOpts := service.RetrySweeperOptions{
		Jobs:      c.Jobs,
		Publisher: c.Publisher,
		Interval:  cfg.Pipeline.RetrySweepInterval,
		Logger:    logger,
	}
	if c.Cache != nil {
		sweeperOpts.Cache = c.Cache
	}
	c.Sweeper = service.NewRetrySweeper(sweeperOpts)

	kpi, err := service.NewKPIService(service.KPIServiceOptions{
		Jobs:   c.Jobs,
		Events: c.KPIEvents,
		Config: cfg.KPI,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build KPI service: %w", err)
	}
	c.KPI = kpi

	return c, nil
}
