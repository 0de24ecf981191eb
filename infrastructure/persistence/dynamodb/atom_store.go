package dynamodb

import (
	"context"
	"errors"
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

// AtomStore implements the AtomStore port on a single DynamoDB table.
// Reads go through a circuit breaker so a struggling table degrades the
// pipeline quickly instead of queueing timeouts.
type AtomStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
	metrics   *observability.Collector
	breaker   *gobreaker.CircuitBreaker
}

// NewAtomStore creates a DynamoDB-backed atom store
func NewAtomStore(client *dynamodb.Client, tableName string, logger *zap.Logger, metrics *observability.Collector) *AtomStore {
	return &AtomStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		metrics:   metrics,
		breaker:   newReadBreaker("atom-store", logger),
	}
}

// atomRecord is the DynamoDB item shape for one narrative atom
type atomRecord struct {
	PK              string   `dynamodbav:"PK"`
	SK              string   `dynamodbav:"SK"`
	EntityType      string   `dynamodbav:"EntityType"`
	AtomID          string   `dynamodbav:"AtomID"`
	UserID          string   `dynamodbav:"UserID"`
	AtomType        string   `dynamodbav:"AtomType"`
	Timestamp       string   `dynamodbav:"Timestamp"`
	Domains         []string `dynamodbav:"Domains"`
	PeopleIDs       []string `dynamodbav:"PeopleIDs,omitempty"`
	Tags            []string `dynamodbav:"Tags,omitempty"`
	EmotionalWeight float64  `dynamodbav:"EmotionalWeight"`
	Sensitivity     float64  `dynamodbav:"Sensitivity"`
	Significance    float64  `dynamodbav:"Significance"`
	Content         string   `dynamodbav:"Content"`
	SourceStores    []string `dynamodbav:"SourceStores,omitempty"`
	SourceRecordIDs []string `dynamodbav:"SourceRecordIDs,omitempty"`
	Preserved       bool     `dynamodbav:"Preserved"`

	// Tagged metadata variant
	MetadataKind     string `dynamodbav:"MetadataKind"`
	EventID          string `dynamodbav:"EventID,omitempty"`
	LocationID       string `dynamodbav:"LocationID,omitempty"`
	SkillID          string `dynamodbav:"SkillID,omitempty"`
	SkillLevel       string `dynamodbav:"SkillLevel,omitempty"`
	WorkID           string `dynamodbav:"WorkID,omitempty"`
	Medium           string `dynamodbav:"Medium,omitempty"`
	RelationshipKind string `dynamodbav:"RelationshipKind,omitempty"`
}

// GetAtoms retrieves every atom recorded for a user, oldest first. The sort
// key embeds the timestamp, so DynamoDB returns them in order.
func (s *AtomStore) GetAtoms(ctx context.Context, userID string) ([]*entities.NarrativeAtom, error) {
	start := time.Now()

	keyEx := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith("ATOM#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build atom query: %w", err)
	}

	var atoms []*entities.NarrativeAtom
	var lastKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		}

		result, err := s.guardedQuery(ctx, input)
		if err != nil {
			s.recordOp("query", start, err)
			return nil, err
		}

		for _, item := range result.Items {
			var record atomRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal atom: %w", err)
			}
			atom, err := record.toEntity()
			if err != nil {
				s.logger.Warn("skipping malformed atom record",
					zap.String("atomID", record.AtomID),
					zap.Error(err),
				)
				continue
			}
			atoms = append(atoms, atom)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	s.recordOp("query", start, nil)
	s.logger.Debug("loaded atoms",
		zap.String("userID", userID),
		zap.Int("count", len(atoms)),
	)
	return atoms, nil
}

// SaveAtom persists an atom. Atoms are immutable; an existing ID is a
// conflict, enforced with a conditional put.
func (s *AtomStore) SaveAtom(ctx context.Context, atom *entities.NarrativeAtom) error {
	start := time.Now()

	item, err := attributevalue.MarshalMap(toRecord(atom))
	if err != nil {
		return fmt.Errorf("failed to marshal atom: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	s.recordOp("put", start, err)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewConflictError("atom " + atom.ID().String() + " already exists")
		}
		return pkgerrors.NewDatabaseError("save atom", err)
	}
	return nil
}

func (s *AtomStore) guardedQuery(ctx context.Context, input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Query(ctx, input)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewUnavailableError("atom store")
		}
		return nil, pkgerrors.NewDatabaseError("query atoms", err)
	}
	return result.(*dynamodb.QueryOutput), nil
}

func (s *AtomStore) recordOp(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(operation, "atoms", start, err)
	}
}

func toRecord(atom *entities.NarrativeAtom) atomRecord {
	record := atomRecord{
		PK:              userPK(atom.UserID()),
		SK:              atomSK(atom.Timestamp(), atom.ID()),
		EntityType:      "ATOM",
		AtomID:          atom.ID().String(),
		UserID:          atom.UserID(),
		AtomType:        string(atom.Type()),
		Timestamp:       atom.Timestamp().UTC().Format(time.RFC3339Nano),
		Domains:         atom.Domains(),
		PeopleIDs:       atom.PeopleIDs(),
		Tags:            atom.Tags(),
		EmotionalWeight: atom.EmotionalWeight(),
		Sensitivity:     atom.Sensitivity(),
		Significance:    atom.Significance(),
		Content:         atom.Content(),
		Preserved:       atom.Preserved(),
		MetadataKind:    string(atom.Metadata().Kind()),
	}

	for _, src := range atom.Sources() {
		record.SourceStores = append(record.SourceStores, src.Store)
		record.SourceRecordIDs = append(record.SourceRecordIDs, src.RecordID)
	}

	switch meta := atom.Metadata().(type) {
	case entities.EventMetadata:
		record.EventID = meta.EventID
		record.LocationID = meta.LocationID
	case entities.SkillMilestoneMetadata:
		record.SkillID = meta.SkillID
		record.SkillLevel = meta.Level
	case entities.CreativeOutputMetadata:
		record.WorkID = meta.WorkID
		record.Medium = meta.Medium
	case entities.RelationshipMomentMetadata:
		record.RelationshipKind = meta.RelationshipKind
	}

	return record
}

func (r atomRecord) toEntity() (*entities.NarrativeAtom, error) {
	id, err := valueobjects.NewAtomIDFromString(r.AtomID)
	if err != nil {
		return nil, err
	}
	timestamp, err := utils.ParseRFC3339(r.Timestamp)
	if err != nil {
		return nil, err
	}

	var sources []entities.SourceRef
	for i, store := range r.SourceStores {
		ref := entities.SourceRef{Store: store}
		if i < len(r.SourceRecordIDs) {
			ref.RecordID = r.SourceRecordIDs[i]
		}
		sources = append(sources, ref)
	}

	var metadata entities.AtomMetadata = entities.NoMetadata{}
	switch entities.MetadataKind(r.MetadataKind) {
	case entities.MetadataKindEvent:
		metadata = entities.EventMetadata{EventID: r.EventID, LocationID: r.LocationID}
	case entities.MetadataKindSkillMilestone:
		metadata = entities.SkillMilestoneMetadata{SkillID: r.SkillID, Level: r.SkillLevel}
	case entities.MetadataKindCreativeOutput:
		metadata = entities.CreativeOutputMetadata{WorkID: r.WorkID, Medium: r.Medium}
	case entities.MetadataKindRelationshipMoment:
		metadata = entities.RelationshipMomentMetadata{RelationshipKind: r.RelationshipKind}
	}

	return entities.ReconstructAtom(
		id,
		r.UserID,
		entities.AtomType(r.AtomType),
		timestamp,
		r.Domains,
		r.PeopleIDs,
		r.Tags,
		r.EmotionalWeight,
		r.Sensitivity,
		r.Significance,
		r.Content,
		sources,
		r.Preserved,
		metadata,
	)
}

func userPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func atomSK(timestamp time.Time, id valueobjects.AtomID) string {
	return fmt.Sprintf("ATOM#%s#%s", timestamp.UTC().Format(time.RFC3339Nano), id.String())
}
