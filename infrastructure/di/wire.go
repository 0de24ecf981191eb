//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"lorekeeper-backend/application/ports"
	appservices "lorekeeper-backend/application/services"
	"lorekeeper-backend/infrastructure/config"
	"lorekeeper-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	AtomStore      ports.AtomStore
	TimelineStore  ports.TimelineStore
	BiographyStore ports.BiographyStore
	GraphCache     ports.GraphCache
	Assembler      *appservices.BiographyAssembler
	VersionManager *appservices.VersionManager
	Metrics        *observability.Collector
	Tracer         *observability.Tracer
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideAtomStore,
	ProvideTimelineStore,
	ProvideBiographyStore,
	ProvideGraphCache,
	ProvideGraphBuilder,
	ProvideSpecFilter,
	ProvideVersionFilter,
	ProvideThemeAnalyzer,
	ProvideVoidAwareness,
	ProvideAtomPrioritizer,
	ProvideTimelineClusterer,
	ProvideTimePeriodAnalyzer,
	ProvideQualityValidator,
	ProvideBiographyAssembler,
	ProvideVersionManager,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The narrator is
// supplied by the host process; the pipeline treats it as an opaque
// collaborator.
func InitializeContainer(ctx context.Context, cfg *config.Config, narrator ports.ChapterNarrator) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
