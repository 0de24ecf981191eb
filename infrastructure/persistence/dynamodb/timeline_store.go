package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"lorekeeper-backend/domain/core/valueobjects"
	pkgerrors "lorekeeper-backend/pkg/errors"
	"lorekeeper-backend/pkg/observability"
	"lorekeeper-backend/pkg/utils"
)

// TimelineStore reads a user's timeline scaffolding from the shared table
type TimelineStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
	metrics   *observability.Collector
	breaker   *gobreaker.CircuitBreaker
}

// NewTimelineStore creates a DynamoDB-backed timeline store
func NewTimelineStore(client *dynamodb.Client, tableName string, logger *zap.Logger, metrics *observability.Collector) *TimelineStore {
	return &TimelineStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		metrics:   metrics,
		breaker:   newReadBreaker("timeline-store", logger),
	}
}

// hierarchyRecord is the item shape for a full timeline hierarchy. The
// scaffolding is small and read as a unit, so it lives in one item.
type hierarchyRecord struct {
	PK         string       `dynamodbav:"PK"`
	SK         string       `dynamodbav:"SK"`
	EntityType string       `dynamodbav:"EntityType"`
	UserID     string       `dynamodbav:"UserID"`
	Sagas      []sagaRecord `dynamodbav:"Sagas"`
}

type sagaRecord struct {
	ID    string      `dynamodbav:"ID"`
	Title string      `dynamodbav:"Title"`
	Arcs  []arcRecord `dynamodbav:"Arcs"`
}

type arcRecord struct {
	ID       string            `dynamodbav:"ID"`
	Title    string            `dynamodbav:"Title"`
	Chapters []chapterScaffold `dynamodbav:"Chapters"`
}

type chapterScaffold struct {
	ID    string `dynamodbav:"ID"`
	Title string `dynamodbav:"Title"`
	Start string `dynamodbav:"Start"`
	End   string `dynamodbav:"End"`
}

// GetHierarchy retrieves the user's saga/arc/chapter scaffolding. A user
// without one gets nil, not an error.
func (s *TimelineStore) GetHierarchy(ctx context.Context, userID string) (*valueobjects.TimelineHierarchy, error) {
	start := time.Now()

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: "TIMELINE"},
			},
		})
	})
	if s.metrics != nil {
		s.metrics.RecordStoreOperation("get", "timeline", start, err)
	}
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewUnavailableError("timeline store")
		}
		return nil, pkgerrors.NewDatabaseError("get timeline hierarchy", err)
	}

	output := result.(*dynamodb.GetItemOutput)
	if output.Item == nil {
		return nil, nil
	}

	var record hierarchyRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal timeline hierarchy", err)
	}

	return record.toHierarchy()
}

func (r hierarchyRecord) toHierarchy() (*valueobjects.TimelineHierarchy, error) {
	hierarchy := &valueobjects.TimelineHierarchy{}
	for _, saga := range r.Sagas {
		out := valueobjects.TimelineSaga{ID: saga.ID, Title: saga.Title}
		for _, arc := range saga.Arcs {
			outArc := valueobjects.TimelineArc{ID: arc.ID, Title: arc.Title}
			for _, ch := range arc.Chapters {
				startAt, err := utils.ParseRFC3339(ch.Start)
				if err != nil {
					return nil, err
				}
				endAt, err := utils.ParseRFC3339(ch.End)
				if err != nil {
					return nil, err
				}
				span, err := valueobjects.NewTimeSpan(startAt, endAt)
				if err != nil {
					return nil, err
				}
				outArc.Chapters = append(outArc.Chapters, valueobjects.TimelineChapter{
					ID:    ch.ID,
					Title: ch.Title,
					Span:  span,
				})
			}
			out.Arcs = append(out.Arcs, outArc)
		}
		hierarchy.Sagas = append(hierarchy.Sagas, out)
	}
	return hierarchy, nil
}
