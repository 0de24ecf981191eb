package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	appservices "lorekeeper-backend/application/services"
	domaincfg "lorekeeper-backend/domain/config"
	"lorekeeper-backend/domain/services"
	"lorekeeper-backend/infrastructure/config"
	dynamostore "lorekeeper-backend/infrastructure/persistence/dynamodb"
	"lorekeeper-backend/infrastructure/persistence/memory"
	"lorekeeper-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig derives the domain thresholds from app configuration
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("lorekeeper")
}

// ProvideTracer creates the pipeline tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("lorekeeper")
}

// ProvideAtomStore creates the configured atom store
func ProvideAtomStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
	metrics *observability.Collector,
) ports.AtomStore {
	if cfg.StoreBackend == "dynamodb" {
		return dynamostore.NewAtomStore(client, cfg.DynamoDBTable, logger, metrics)
	}
	return memory.NewAtomStore()
}

// ProvideTimelineStore creates the configured timeline store
func ProvideTimelineStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
	metrics *observability.Collector,
) ports.TimelineStore {
	if cfg.StoreBackend == "dynamodb" {
		return dynamostore.NewTimelineStore(client, cfg.DynamoDBTable, logger, metrics)
	}
	return memory.NewTimelineStore()
}

// ProvideBiographyStore creates the configured biography store
func ProvideBiographyStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
	metrics *observability.Collector,
) ports.BiographyStore {
	if cfg.StoreBackend == "dynamodb" {
		return dynamostore.NewBiographyStore(client, cfg.DynamoDBTable, cfg.UserIndexName, logger, metrics)
	}
	return memory.NewBiographyStore()
}

// ProvideGraphCache creates the narrative graph cache
func ProvideGraphCache() ports.GraphCache {
	return memory.NewGraphCache()
}

// ProvideGraphBuilder creates the graph builder
func ProvideGraphBuilder(cfg *domaincfg.DomainConfig, logger *zap.Logger) *services.GraphBuilder {
	return services.NewGraphBuilder(cfg, logger)
}

// ProvideSpecFilter creates the spec filter
func ProvideSpecFilter(logger *zap.Logger) *services.SpecFilter {
	return services.NewSpecFilter(logger)
}

// ProvideVersionFilter creates the version filter
func ProvideVersionFilter(cfg *domaincfg.DomainConfig, logger *zap.Logger) *services.VersionFilter {
	return services.NewVersionFilter(cfg, logger)
}

// ProvideThemeAnalyzer creates the theme analyzer
func ProvideThemeAnalyzer(cfg *domaincfg.DomainConfig) *services.ThemeAnalyzer {
	return services.NewThemeAnalyzer(cfg)
}

// ProvideVoidAwareness creates the void awareness service
func ProvideVoidAwareness(cfg *domaincfg.DomainConfig, themes *services.ThemeAnalyzer, logger *zap.Logger) *services.VoidAwarenessService {
	return services.NewVoidAwarenessService(cfg, themes, logger)
}

// ProvideAtomPrioritizer creates the atom prioritizer
func ProvideAtomPrioritizer(cfg *domaincfg.DomainConfig) *services.AtomPrioritizer {
	return services.NewAtomPrioritizer(cfg)
}

// ProvideTimelineClusterer creates the timeline clusterer
func ProvideTimelineClusterer(
	cfg *domaincfg.DomainConfig,
	prioritizer *services.AtomPrioritizer,
	themes *services.ThemeAnalyzer,
	logger *zap.Logger,
) *services.TimelineClusterer {
	return services.NewTimelineClusterer(cfg, prioritizer, themes, logger)
}

// ProvideTimePeriodAnalyzer creates the time period analyzer
func ProvideTimePeriodAnalyzer(cfg *domaincfg.DomainConfig, themes *services.ThemeAnalyzer) *services.TimePeriodAnalyzer {
	return services.NewTimePeriodAnalyzer(cfg, themes)
}

// ProvideQualityValidator creates the quality validator
func ProvideQualityValidator(cfg *domaincfg.DomainConfig, logger *zap.Logger) *services.QualityValidator {
	return services.NewQualityValidator(cfg, logger)
}

// ProvideBiographyAssembler wires the full pipeline
func ProvideBiographyAssembler(
	atoms ports.AtomStore,
	timeline ports.TimelineStore,
	bios ports.BiographyStore,
	cache ports.GraphCache,
	narrator ports.ChapterNarrator,
	builder *services.GraphBuilder,
	specFilter *services.SpecFilter,
	versionFilter *services.VersionFilter,
	voids *services.VoidAwarenessService,
	clusterer *services.TimelineClusterer,
	themes *services.ThemeAnalyzer,
	periods *services.TimePeriodAnalyzer,
	quality *services.QualityValidator,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *appservices.BiographyAssembler {
	return appservices.NewBiographyAssembler(appservices.AssemblerDeps{
		Atoms:         atoms,
		Timeline:      timeline,
		Biographies:   bios,
		Cache:         cache,
		Narrator:      narrator,
		GraphBuilder:  builder,
		SpecFilter:    specFilter,
		VersionFilter: versionFilter,
		Voids:         voids,
		Clusterer:     clusterer,
		Themes:        themes,
		Periods:       periods,
		Quality:       quality,
		Config:        cfg,
		FallbackConf:  appservices.DefaultFallbackGeneratorConfig(),
		Logger:        logger,
		Metrics:       metrics,
		Tracer:        tracer,
	})
}

// ProvideVersionManager creates the version manager
func ProvideVersionManager(
	assembler *appservices.BiographyAssembler,
	bios ports.BiographyStore,
	logger *zap.Logger,
) *appservices.VersionManager {
	return appservices.NewVersionManager(assembler, bios, logger)
}
