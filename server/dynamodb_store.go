package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"
)

// DynamoDBStore implements the RecordStore interface using AWS DynamoDB
type DynamoDBStore struct {
	client         *dynamodb.DynamoDB
	workshopsTable string
}

// workshopItem represents a workshop record in DynamoDB
type workshopItem struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Duration      string      `json:"duration,omitempty"`
	Difficulty    string      `json:"difficulty"`
	Materials     string      `json:"materials,omitempty"`
	Objectives    string      `json:"objectives,omitempty"`
	Category      string      `json:"category,omitempty"`
	AgeRange      string      `json:"ageRange,omitempty"`
	CoverImageURL string      `json:"coverImageUrl"`
	StorageFolder string      `json:"storageFolder"`
	Slides        []slideItem `json:"slides"`
	CreatedAt     int64       `json:"createdAt"`
	UpdatedAt     int64       `json:"updatedAt"`
}

// slideItem represents a slide element in a workshop's slide list
type slideItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	CreatedAt   int64   `json:"createdAt"`
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(region, workshopsTable string) (*DynamoDBStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &DynamoDBStore{
		client:         dynamodb.New(sess),
		workshopsTable: workshopsTable,
	}, nil
}

// Get retrieves a workshop by ID
func (s *DynamoDBStore) Get(ctx context.Context, id string) (*Workshop, error) {
	result, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.workshopsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {
				S: aws.String(id),
			},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get workshop: %v", err)
	}

	if result.Item == nil {
		return nil, ErrNotFound
	}

	var item workshopItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workshop item: %v", err)
	}

	return itemToWorkshop(&item), nil
}

// Put writes the full workshop record unconditionally
func (s *DynamoDBStore) Put(ctx context.Context, workshop *Workshop) error {
	av, err := dynamodbattribute.MarshalMap(workshopToItem(workshop))
	if err != nil {
		return fmt.Errorf("failed to marshal workshop item: %v", err)
	}

	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.workshopsTable),
		Item:      av,
	})

	if err != nil {
		return fmt.Errorf("failed to put workshop item: %v", err)
	}

	return nil
}

// AppendToList atomically appends elem to the named list field of the
// workshop record, creating the list if it does not exist yet. The whole
// operation is a single conditional UpdateItem, so concurrent appends
// never overwrite each other. Appending to a missing record fails the
// condition and is reported as ErrNotFound.
func (s *DynamoDBStore) AppendToList(ctx context.Context, id, field string, elem Slide) (*Workshop, error) {
	now := time.Now().Unix()

	update := expression.Set(
		expression.Name(field),
		expression.ListAppend(
			expression.IfNotExists(expression.Name(field), expression.Value([]slideItem{})),
			expression.Value([]slideItem{slideToItem(&elem)}),
		),
	).Set(expression.Name("updatedAt"), expression.Value(now))

	condition := expression.AttributeExists(expression.Name("id"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %v", err)
	}

	result, err := s.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.workshopsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {
				S: aws.String(id),
			},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              aws.String(dynamodb.ReturnValueAllNew),
	})

	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to append to %s: %v", field, err)
	}

	var item workshopItem
	if err := dynamodbattribute.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated workshop item: %v", err)
	}

	return itemToWorkshop(&item), nil
}

// Delete removes a workshop record
func (s *DynamoDBStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.workshopsTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {
				S: aws.String(id),
			},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete workshop: %v", err)
	}

	return nil
}

// ScanSummaries returns all workshops projected to summary fields. The
// slides list is deliberately excluded from the projection to bound
// response size.
func (s *DynamoDBStore) ScanSummaries(ctx context.Context) ([]*WorkshopSummary, error) {
	projection := expression.NamesList(
		expression.Name("id"),
		expression.Name("name"),
		expression.Name("description"),
		expression.Name("duration"),
		expression.Name("difficulty"),
		expression.Name("category"),
		expression.Name("ageRange"),
		expression.Name("coverImageUrl"),
		expression.Name("createdAt"),
		expression.Name("updatedAt"),
	)

	expr, err := expression.NewBuilder().WithProjection(projection).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %v", err)
	}

	result, err := s.client.ScanWithContext(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(s.workshopsTable),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan workshops: %v", err)
	}

	summaries := make([]*WorkshopSummary, 0, len(result.Items))
	for _, av := range result.Items {
		var item workshopItem
		if err := dynamodbattribute.UnmarshalMap(av, &item); err != nil {
			log.Printf("Failed to unmarshal workshop item: %v", err)
			continue
		}

		summaries = append(summaries, &WorkshopSummary{
			ID:            item.ID,
			Name:          item.Name,
			Description:   item.Description,
			Duration:      item.Duration,
			Difficulty:    item.Difficulty,
			Category:      item.Category,
			AgeRange:      item.AgeRange,
			CoverImageURL: item.CoverImageURL,
			CreatedAt:     time.Unix(item.CreatedAt, 0),
			UpdatedAt:     time.Unix(item.UpdatedAt, 0),
		})
	}

	return summaries, nil
}

func workshopToItem(w *Workshop) *workshopItem {
	slides := make([]slideItem, 0, len(w.Slides))
	for i := range w.Slides {
		slides = append(slides, slideToItem(&w.Slides[i]))
	}

	return &workshopItem{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		Duration:      w.Duration,
		Difficulty:    w.Difficulty,
		Materials:     w.Materials,
		Objectives:    w.Objectives,
		Category:      w.Category,
		AgeRange:      w.AgeRange,
		CoverImageURL: w.CoverImageURL,
		StorageFolder: w.StorageFolder,
		Slides:        slides,
		CreatedAt:     w.CreatedAt.Unix(),
		UpdatedAt:     w.UpdatedAt.Unix(),
	}
}

func itemToWorkshop(item *workshopItem) *Workshop {
	// A missing slides attribute unmarshals to nil; callers always see a
	// list, never null.
	slides := make([]Slide, 0, len(item.Slides))
	for _, s := range item.Slides {
		slides = append(slides, Slide{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			ImageURL:    s.ImageURL,
			CreatedAt:   time.Unix(s.CreatedAt, 0),
		})
	}

	return &Workshop{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Duration:      item.Duration,
		Difficulty:    item.Difficulty,
		Materials:     item.Materials,
		Objectives:    item.Objectives,
		Category:      item.Category,
		AgeRange:      item.AgeRange,
		CoverImageURL: item.CoverImageURL,
		StorageFolder: item.StorageFolder,
		Slides:        slides,
		CreatedAt:     time.Unix(item.CreatedAt, 0),
		UpdatedAt:     time.Unix(item.UpdatedAt, 0),
	}
}

func slideToItem(s *Slide) slideItem {
	return slideItem{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		CreatedAt:   s.CreatedAt.Unix(),
	}
}
