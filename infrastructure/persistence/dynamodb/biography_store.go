package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
	"lorekeeper-backend/pkg/observability"
	"lorekeeper-backend/pkg/utils"
)

// BiographyStore persists assembled biographies on the shared table. A
// biography item keeps chapter prose and atom IDs, not full atom content;
// atoms remain the single source of truth in their own items.
type BiographyStore struct {
	client    *dynamodb.Client
	tableName string
	indexName string // GSI keyed by version root
	logger    *zap.Logger
	metrics   *observability.Collector
	breaker   *gobreaker.CircuitBreaker
}

// NewBiographyStore creates a DynamoDB-backed biography store
func NewBiographyStore(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger, metrics *observability.Collector) *BiographyStore {
	return &BiographyStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
		metrics:   metrics,
		breaker:   newReadBreaker("biography-store", logger),
	}
}

type biographyRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`

	BiographyID string `dynamodbav:"BiographyID"`
	BaseID      string `dynamodbav:"BaseID"`
	UserID      string `dynamodbav:"UserID"`
	Title       string `dynamodbav:"Title"`
	Subtitle    string `dynamodbav:"Subtitle,omitempty"`
	Version     string `dynamodbav:"Version"`
	CreatedAt   string `dynamodbav:"CreatedAt"`

	Chapters []chapterRecord `dynamodbav:"Chapters"`

	// Provenance metadata
	AtomCount          int      `dynamodbav:"AtomCount"`
	DroppedAtomCount   int      `dynamodbav:"DroppedAtomCount"`
	VoidCount          int      `dynamodbav:"VoidCount"`
	AppliedFilters     []string `dynamodbav:"AppliedFilters,omitempty"`
	AtomHashes         []string `dynamodbav:"AtomHashes,omitempty"`
	SnapshotTime       string   `dynamodbav:"SnapshotTime"`
	CrossCuttingThemes []string `dynamodbav:"CrossCuttingThemes,omitempty"`

	GraphAtomCount       int     `dynamodbav:"GraphAtomCount"`
	GraphEdgeCount       int     `dynamodbav:"GraphEdgeCount"`
	GraphAvgEdgeWeight   float64 `dynamodbav:"GraphAvgEdgeWeight"`
	GraphMostConnectedID string  `dynamodbav:"GraphMostConnectedID,omitempty"`
}

type chapterRecord struct {
	ChapterID         string   `dynamodbav:"ChapterID"`
	AtomIDs           []string `dynamodbav:"AtomIDs,omitempty"`
	DominantThemes    []string `dynamodbav:"DominantThemes,omitempty"`
	Start             string   `dynamodbav:"Start"`
	End               string   `dynamodbav:"End"`
	AvgSignificance   float64  `dynamodbav:"AvgSignificance"`
	TimelineChapterID string   `dynamodbav:"TimelineChapterID,omitempty"`
	Title             string   `dynamodbav:"Title"`
	Narrative         string   `dynamodbav:"Narrative"`
	Fallback          bool     `dynamodbav:"Fallback"`

	IsVoid           bool   `dynamodbav:"IsVoid"`
	VoidType         string `dynamodbav:"VoidType,omitempty"`
	VoidSignificance string `dynamodbav:"VoidSignificance,omitempty"`
	VoidFillStrategy string `dynamodbav:"VoidFillStrategy,omitempty"`
}

// Save persists an assembled biography
func (s *BiographyStore) Save(ctx context.Context, bio *entities.Biography) error {
	start := time.Now()

	item, err := attributevalue.MarshalMap(toBiographyRecord(bio))
	if err != nil {
		return fmt.Errorf("failed to marshal biography: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if s.metrics != nil {
		s.metrics.RecordStoreOperation("put", "biographies", start, err)
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("save biography", err)
	}

	s.logger.Info("biography saved",
		zap.String("biographyID", bio.ID().String()),
		zap.String("userID", bio.UserID()),
		zap.String("version", string(bio.Version())),
	)
	return nil
}

// GetByID retrieves a previously assembled biography
func (s *BiographyStore) GetByID(ctx context.Context, id valueobjects.BiographyID) (*entities.Biography, error) {
	start := time.Now()

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: bioPK(id)},
				"SK": &types.AttributeValueMemberS{Value: "METADATA"},
			},
		})
	})
	if s.metrics != nil {
		s.metrics.RecordStoreOperation("get", "biographies", start, err)
	}
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewUnavailableError("biography store")
		}
		return nil, pkgerrors.NewDatabaseError("get biography", err)
	}

	output := result.(*dynamodb.GetItemOutput)
	if output.Item == nil {
		return nil, pkgerrors.NewNotFoundError("biography " + string(id))
	}

	var record biographyRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal biography", err)
	}
	return record.toEntity()
}

// GetVersions retrieves every biography sharing a version root, oldest first
func (s *BiographyStore) GetVersions(ctx context.Context, baseID valueobjects.BiographyID) ([]*entities.Biography, error) {
	start := time.Now()

	keyEx := expression.Key("GSI1PK").Equal(expression.Value(basePK(baseID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build version query: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(s.indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(true), // GSI1SK is the creation time
		})
	})
	if s.metrics != nil {
		s.metrics.RecordStoreOperation("query", "biographies", start, err)
	}
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewUnavailableError("biography store")
		}
		return nil, pkgerrors.NewDatabaseError("query biography versions", err)
	}

	output := result.(*dynamodb.QueryOutput)
	bios := make([]*entities.Biography, 0, len(output.Items))
	for _, item := range output.Items {
		var record biographyRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, pkgerrors.NewDatabaseError("unmarshal biography", err)
		}
		bio, err := record.toEntity()
		if err != nil {
			return nil, err
		}
		bios = append(bios, bio)
	}
	return bios, nil
}

func toBiographyRecord(bio *entities.Biography) biographyRecord {
	meta := bio.Metadata()
	record := biographyRecord{
		PK:          bioPK(bio.ID()),
		SK:          "METADATA",
		GSI1PK:      basePK(bio.BaseID()),
		GSI1SK:      bio.CreatedAt().UTC().Format(time.RFC3339Nano),
		EntityType:  "BIOGRAPHY",
		BiographyID: string(bio.ID()),
		BaseID:      string(bio.BaseID()),
		UserID:      bio.UserID(),
		Title:       bio.Title(),
		Subtitle:    bio.Subtitle(),
		Version:     string(bio.Version()),
		CreatedAt:   bio.CreatedAt().UTC().Format(time.RFC3339Nano),

		AtomCount:          meta.AtomCount,
		DroppedAtomCount:   meta.DroppedAtomCount,
		VoidCount:          meta.VoidCount,
		AppliedFilters:     meta.AppliedFilters,
		AtomHashes:         meta.AtomHashes,
		SnapshotTime:       meta.SnapshotTime.UTC().Format(time.RFC3339Nano),
		CrossCuttingThemes: meta.CrossCuttingThemes,

		GraphAtomCount:       meta.GraphStats.AtomCount,
		GraphEdgeCount:       meta.GraphStats.EdgeCount,
		GraphAvgEdgeWeight:   meta.GraphStats.AvgEdgeWeight,
		GraphMostConnectedID: meta.GraphStats.MostConnectedID,
	}

	for _, chapter := range bio.Chapters() {
		record.Chapters = append(record.Chapters, toChapterRecord(chapter))
	}
	return record
}

func toChapterRecord(chapter *entities.ChapterCluster) chapterRecord {
	record := chapterRecord{
		ChapterID:         chapter.ID().String(),
		DominantThemes:    chapter.DominantThemes(),
		Start:             chapter.Span().Start().UTC().Format(time.RFC3339Nano),
		End:               chapter.Span().End().UTC().Format(time.RFC3339Nano),
		AvgSignificance:   chapter.AvgSignificance(),
		TimelineChapterID: chapter.TimelineChapterID(),
		Title:             chapter.Title(),
		Narrative:         chapter.Narrative(),
		Fallback:          chapter.FromFallback(),
		IsVoid:            chapter.IsVoid(),
	}
	for _, atom := range chapter.Atoms() {
		record.AtomIDs = append(record.AtomIDs, atom.ID().String())
	}
	if void := chapter.Void(); void != nil {
		record.VoidType = string(void.Type())
		record.VoidSignificance = string(void.Significance())
		record.VoidFillStrategy = string(void.FillStrategy())
	}
	return record
}

func (r biographyRecord) toEntity() (*entities.Biography, error) {
	createdAt, err := utils.ParseRFC3339(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	snapshotAt, err := utils.ParseRFC3339(r.SnapshotTime)
	if err != nil {
		return nil, err
	}

	chapters := make([]*entities.ChapterCluster, 0, len(r.Chapters))
	for _, cr := range r.Chapters {
		chapter, err := cr.toEntity()
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, chapter)
	}

	metadata := entities.BiographyMetadata{
		AtomCount:          r.AtomCount,
		DroppedAtomCount:   r.DroppedAtomCount,
		VoidCount:          r.VoidCount,
		AppliedFilters:     r.AppliedFilters,
		AtomHashes:         r.AtomHashes,
		SnapshotTime:       snapshotAt,
		CrossCuttingThemes: r.CrossCuttingThemes,
		GraphStats: entities.GraphStats{
			AtomCount:       r.GraphAtomCount,
			EdgeCount:       r.GraphEdgeCount,
			AvgEdgeWeight:   r.GraphAvgEdgeWeight,
			MostConnectedID: r.GraphMostConnectedID,
		},
	}

	return entities.ReconstructBiography(
		valueobjects.BiographyID(r.BiographyID),
		valueobjects.BiographyID(r.BaseID),
		r.UserID,
		r.Title,
		r.Subtitle,
		valueobjects.BuildVersion(r.Version),
		chapters,
		metadata,
		createdAt,
	), nil
}

func (r chapterRecord) toEntity() (*entities.ChapterCluster, error) {
	startAt, err := utils.ParseRFC3339(r.Start)
	if err != nil {
		return nil, err
	}
	endAt, err := utils.ParseRFC3339(r.End)
	if err != nil {
		return nil, err
	}
	span, err := valueobjects.NewTimeSpan(startAt, endAt)
	if err != nil {
		return nil, err
	}

	var void *entities.VoidPeriod
	if r.IsVoid {
		void = entities.NewVoidPeriod(
			span,
			entities.VoidType(r.VoidType),
			entities.VoidSignificance(r.VoidSignificance),
			entities.FillStrategy(r.VoidFillStrategy),
		)
	}

	// Atom content lives in its own items; a rehydrated chapter carries
	// prose and provenance only.
	return entities.ReconstructChapter(
		valueobjects.ChapterID(r.ChapterID),
		nil,
		r.DominantThemes,
		span,
		r.AvgSignificance,
		r.TimelineChapterID,
		void,
		r.Title,
		r.Narrative,
		r.Fallback,
	), nil
}

func bioPK(id valueobjects.BiographyID) string {
	return fmt.Sprintf("BIO#%s", string(id))
}

func basePK(id valueobjects.BiographyID) string {
	return fmt.Sprintf("BASE#%s", string(id))
}
