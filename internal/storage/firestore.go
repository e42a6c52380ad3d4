package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/offers-bot/internal/models"
)

const (
	firestoreCollection = "sent_offers"
	firestoreOffers     = "offers"
)

// FirestoreStore keeps one document per send at sent_offers/{YYYY}/{MM}/{DD}/offers/{id}.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) dayOffers(day models.Day) *firestore.CollectionRef {
	return s.client.Collection(firestoreCollection).
		Doc(day.YearKey()).
		Collection(day.MonthKey()).
		Doc(day.DayKey()).
		Collection(firestoreOffers)
}

// Exists looks up the offer document. A missing day collection is simply NotFound.
func (s *FirestoreStore) Exists(ctx context.Context, id string, day models.Day) (bool, error) {
	doc, err := s.dayOffers(day).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get offer %s for %s: %w", id, day, err)
	}
	return doc.Exists(), nil
}

// Insert creates the offer document. Create fails if the document already exists.
func (s *FirestoreStore) Insert(ctx context.Context, rec models.RecencyRecord) error {
	_, err := s.dayOffers(rec.Day).Doc(rec.ID).Create(ctx, rec)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrDuplicate
		}
		return fmt.Errorf("failed to create offer %s for %s: %w", rec.ID, rec.Day, err)
	}
	return nil
}

// CountDay runs a count aggregation over one day's offers.
func (s *FirestoreStore) CountDay(ctx context.Context, day models.Day) (int, error) {
	snapshot, err := s.dayOffers(day).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count offers for %s: %w", day, err)
	}
	n, err := aggregationCount(snapshot["all"])
	if err != nil {
		return 0, fmt.Errorf("count aggregation for %s: %w", day, err)
	}
	return int(n), nil
}

// aggregationCount unwraps a count result, which the client returns either
// as a raw int64 or as a protobuf value depending on version.
func aggregationCount(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case *firestorepb.Value:
		return val.GetIntegerValue(), nil
	case nil:
		return 0, fmt.Errorf("'all' key missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
