package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sieapi/gateway/internal/core/domain"
)

const collectionInstances = "instances"

type InstanceRepository struct {
	col *mongo.Collection
}

func NewInstanceRepository(db *mongo.Database) *InstanceRepository {
	return &InstanceRepository{col: db.Collection(collectionInstances)}
}

type instanceDocument struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Name                   string             `bson:"name"`
	SessionID              string             `bson:"session_id"`
	PhoneNumber            string             `bson:"phone_number,omitempty"`
	Type                   string             `bson:"instance_type"`
	IsConnected            bool               `bson:"is_connected"`
	IsActive               bool               `bson:"is_active"`
	WebhookURL             string             `bson:"webhook_url,omitempty"`
	IgnoreGroups           bool               `bson:"ignore_groups"`
	BlockCalls             bool               `bson:"block_calls"`
	PreventMessageDeletion bool               `bson:"prevent_message_deletion"`
	UserID                 string             `bson:"user_id"`
	CreatedAt              time.Time          `bson:"created_at"`
	UpdatedAt              time.Time          `bson:"updated_at"`
}

func toInstanceDocument(i *domain.Instance) instanceDocument {
	return instanceDocument{
		Name:                   i.Name,
		SessionID:              i.SessionID,
		PhoneNumber:            i.PhoneNumber,
		Type:                   string(i.Type),
		IsConnected:            i.IsConnected,
		IsActive:               i.IsActive,
		WebhookURL:             i.WebhookURL,
		IgnoreGroups:           i.IgnoreGroups,
		BlockCalls:             i.BlockCalls,
		PreventMessageDeletion: i.PreventMessageDeletion,
		UserID:                 i.UserID,
		CreatedAt:              i.CreatedAt,
		UpdatedAt:              i.UpdatedAt,
	}
}

func (d instanceDocument) toDomain() *domain.Instance {
	return &domain.Instance{
		ID:                     d.ID.Hex(),
		Name:                   d.Name,
		SessionID:              d.SessionID,
		PhoneNumber:            d.PhoneNumber,
		Type:                   domain.InstanceType(d.Type),
		IsConnected:            d.IsConnected,
		IsActive:               d.IsActive,
		WebhookURL:             d.WebhookURL,
		IgnoreGroups:           d.IgnoreGroups,
		BlockCalls:             d.BlockCalls,
		PreventMessageDeletion: d.PreventMessageDeletion,
		UserID:                 d.UserID,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
	}
}

func (r *InstanceRepository) Create(ctx context.Context, inst *domain.Instance) (*domain.Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toInstanceDocument(inst)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *InstanceRepository) FindByID(ctx context.Context, id string) (*domain.Instance, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInstanceNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc instanceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("find instance: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the instances owned by ownerID, newest first. An empty ownerID
// lists every instance.
func (r *InstanceRepository) List(ctx context.Context, ownerID string) ([]*domain.Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if ownerID != "" {
		filter["user_id"] = ownerID
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer cur.Close(ctx)

	var docs []instanceDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode instances: %w", err)
	}
	out := make([]*domain.Instance, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Update persists the client-editable fields. Session id, type and owner are
// immutable after creation.
func (r *InstanceRepository) Update(ctx context.Context, inst *domain.Instance) error {
	oid, err := primitive.ObjectIDFromHex(inst.ID)
	if err != nil {
		return domain.ErrInstanceNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":                     inst.Name,
		"is_active":                inst.IsActive,
		"webhook_url":              inst.WebhookURL,
		"ignore_groups":            inst.IgnoreGroups,
		"block_calls":              inst.BlockCalls,
		"prevent_message_deletion": inst.PreventMessageDeletion,
		"updated_at":               inst.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceRepository) SetConnected(ctx context.Context, id string, connected bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInstanceNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"is_connected": connected,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set connected: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInstanceNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": ownerID}); err != nil {
		return fmt.Errorf("delete instances of %s: %w", ownerID, err)
	}
	return nil
}

// EnsureIndexes creates the unique session id index and the owner lookup.
func (r *InstanceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
